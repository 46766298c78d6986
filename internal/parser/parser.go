// Package parser turns raw Lynis output into a models.ParsedReport.
//
// Input is treated as untrusted and loosely formatted. Every label the
// parser understands lives behind a named extractor in extractors.go, and
// anything it cannot read degrades to a zero value instead of failing.
package parser

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/ppiankov/hardenscope/internal/classifier"
	"github.com/ppiankov/hardenscope/internal/models"
)

// DefaultMaxDetails is the number of detail lines kept per suggestion.
const DefaultMaxDetails = 3

// ErrNoInput is returned when there is no output to parse at all.
// An empty string is valid input; a nil one is not.
var ErrNoInput = errors.New("no audit output to parse")

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// Options tune parsing. The zero value uses defaults.
type Options struct {
	MaxDetails int
}

// Parser extracts findings and classifies them with a shared Classifier.
// It holds no per-parse state and is safe for concurrent use.
type Parser struct {
	classifier *classifier.Classifier
	maxDetails int
}

// New creates a Parser. A nil classifier uses the built-in rules.
func New(c *classifier.Classifier, opts Options) *Parser {
	if c == nil {
		c = classifier.Default()
	}
	maxDetails := opts.MaxDetails
	if maxDetails <= 0 {
		maxDetails = DefaultMaxDetails
	}
	return &Parser{classifier: c, maxDetails: maxDetails}
}

// ParseBytes parses raw output. A nil slice means no output was produced.
func (p *Parser) ParseBytes(raw []byte) (*models.ParsedReport, error) {
	if raw == nil {
		return nil, ErrNoInput
	}
	return p.Parse(string(raw)), nil
}

// ParseReader reads all of r and parses it.
func (p *Parser) ParseReader(r io.Reader) (*models.ParsedReport, error) {
	if r == nil {
		return nil, ErrNoInput
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return p.ParseBytes(data)
}

// Parse builds a report from text. It never fails: empty or unrecognised
// text yields a zeroed report.
func (p *Parser) Parse(raw string) *models.ParsedReport {
	report := models.NewParsedReport()
	lines := splitLines(StripANSI(raw))

	extractLabels(lines, report)
	findings := p.extractFindings(lines, report)
	report.SecurityComponents = detectComponents(lines)

	for _, f := range findings {
		f = p.classifier.ClassifyFinding(f)
		report.Findings[f.Severity] = append(report.Findings[f.Severity], f)
		switch f.Kind {
		case models.KindWarning:
			report.Statistics.WarningsCount++
		case models.KindSuggestion:
			report.Statistics.SuggestionsCount++
		}
	}

	for _, sev := range models.AllSeverities {
		report.SeveritySummary[sev] = len(report.Findings[sev])
	}
	report.Score.Status = models.ScoreStatus(report.Score.HardeningIndex)
	report.RiskSummary = models.RiskSummary(report.SeveritySummary)

	return report
}

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
