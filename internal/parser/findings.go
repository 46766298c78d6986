package parser

import (
	"regexp"
	"strings"

	"github.com/ppiankov/hardenscope/internal/models"
)

var (
	warningsHeader    = regexp.MustCompile(`^Warnings\s*\((\d*)\)\s*:?\s*$`)
	suggestionsHeader = regexp.MustCompile(`^Suggestions\s*\((\d*)\)\s*:?\s*$`)
	warningMarker     = regexp.MustCompile(`(?i)\[WARNING\](?::|\s)\s*(\S.*)$`)
	trailingTestID    = regexp.MustCompile(`\s*\[([A-Z][A-Z0-9]*-[A-Z0-9]+)\]\s*$`)
	reportFileEntry   = regexp.MustCompile(`^(warning|suggestion)\[\]=(.*)$`)
)

type blockState int

const (
	outsideBlock blockState = iota
	inWarnings
	inSuggestions
)

// open tracks the suggestion currently collecting detail lines.
type open struct {
	index  int // position in the findings slice
	indent int // indentation of the bullet line
}

// extractFindings walks the output once and returns findings in order of
// appearance. Repeated findings are kept: the audit tool emits one entry per
// checked option, often with the same test ID and message.
func (p *Parser) extractFindings(lines []string, r *models.ParsedReport) []models.Finding {
	var (
		findings []models.Finding
		state    = outsideBlock
		current  *open
	)

	add := func(f models.Finding) bool {
		f.Message = strings.TrimSpace(f.Message)
		if f.Message == "" {
			return false
		}
		f.Path = p.pickPath(detectPaths(f.Message))
		findings = append(findings, f)
		return true
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if m := warningsHeader.FindStringSubmatch(trimmed); m != nil {
			state, current = inWarnings, nil
			r.Statistics.ReportedWarnings = atoi(m[1])
			continue
		}
		if m := suggestionsHeader.FindStringSubmatch(trimmed); m != nil {
			state, current = inSuggestions, nil
			r.Statistics.ReportedSuggestions = atoi(m[1])
			continue
		}
		if isSectionBoundary(trimmed) {
			state, current = outsideBlock, nil
			continue
		}

		if m := reportFileEntry.FindStringSubmatch(trimmed); m != nil {
			current = nil
			add(p.reportFileFinding(m[1], m[2]))
			continue
		}

		if trimmed == "" {
			current = nil
			continue
		}
		if isSeparator(trimmed) {
			continue
		}

		switch {
		case state == inWarnings && strings.HasPrefix(trimmed, "!"):
			current = nil
			msg, id := splitTestID(strings.TrimPrefix(trimmed, "!"))
			add(models.Finding{Kind: models.KindWarning, Message: msg, TestID: id})
			continue

		case state == inSuggestions && strings.HasPrefix(trimmed, "*"):
			current = nil
			msg, id := splitTestID(strings.TrimPrefix(trimmed, "*"))
			if add(models.Finding{Kind: models.KindSuggestion, Message: msg, TestID: id}) {
				current = &open{index: len(findings) - 1, indent: indentOf(line)}
			}
			continue

		case current != nil:
			if indentOf(line) > current.indent {
				f := &findings[current.index]
				if len(f.Details) < p.maxDetails {
					if d := detailText(trimmed); d != "" {
						f.Details = append(f.Details, d)
					}
				}
				continue
			}
			current = nil
		}

		if m := warningMarker.FindStringSubmatch(trimmed); m != nil {
			msg, id := splitTestID(m[1])
			add(models.Finding{Kind: models.KindWarning, Message: msg, TestID: id})
		}
	}

	return findings
}

// reportFileFinding reads a lynis-report.dat entry:
// TEST-ID|message|details|solution|
func (p *Parser) reportFileFinding(kind, value string) models.Finding {
	fields := strings.Split(value, "|")
	f := models.Finding{Kind: models.KindWarning}
	if kind == "suggestion" {
		f.Kind = models.KindSuggestion
	}
	if len(fields) > 0 {
		f.TestID = strings.TrimSpace(fields[0])
	}
	if len(fields) > 1 {
		f.Message = fields[1]
	}
	if f.Kind == models.KindSuggestion && len(fields) > 2 {
		for _, extra := range fields[2:min(len(fields), 4)] {
			extra = strings.TrimSpace(extra)
			if extra == "" || extra == "-" || len(f.Details) >= p.maxDetails {
				continue
			}
			f.Details = append(f.Details, extra)
		}
	}
	return f
}

// splitTestID separates a trailing "[ABC-1234]" from the message.
func splitTestID(s string) (message, testID string) {
	s = strings.TrimSpace(s)
	if loc := trailingTestID.FindStringSubmatchIndex(s); loc != nil {
		return strings.TrimSpace(s[:loc[0]]), s[loc[2]:loc[3]]
	}
	return s, ""
}

func detailText(trimmed string) string {
	d := strings.TrimPrefix(trimmed, "-")
	return strings.TrimSpace(d)
}

func isSectionBoundary(trimmed string) bool {
	switch {
	case strings.HasPrefix(trimmed, "Follow-up"):
		return true
	case strings.HasPrefix(trimmed, "===="):
		return true
	case strings.HasPrefix(trimmed, "-["):
		return true
	case strings.HasPrefix(trimmed, "[+]"):
		return true
	}
	return false
}

func isSeparator(trimmed string) bool {
	return strings.Trim(trimmed, "-") == ""
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// detectPaths returns every filesystem-looking token in a message, in
// order: absolute paths, and file names with a key or certificate extension.
func detectPaths(message string) []string {
	var paths []string
	for _, tok := range strings.Fields(message) {
		tok = strings.Trim(tok, "()[]{}<>,;:'\"`")
		tok = strings.TrimRight(tok, ".")
		if len(tok) < 2 {
			continue
		}
		if strings.HasPrefix(tok, "/") {
			paths = append(paths, tok)
			continue
		}
		lower := strings.ToLower(tok)
		if (strings.HasSuffix(lower, ".pem") || strings.HasSuffix(lower, ".key")) && len(lower) > 4 {
			paths = append(paths, tok)
		}
	}
	return paths
}

// pickPath returns the path whose override is most severe, or the first
// path when none is sensitive.
func (p *Parser) pickPath(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	best, bestRank := paths[0], -1
	for _, path := range paths {
		sev, ok := p.classifier.PathSeverity(path)
		if !ok {
			continue
		}
		if bestRank < 0 || sev.Rank() < bestRank {
			best, bestRank = path, sev.Rank()
		}
	}
	return best
}
