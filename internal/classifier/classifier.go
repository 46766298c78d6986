// Package classifier assigns a severity to each audit finding.
//
// Classification is a first-match walk: referenced path, pinned test ID,
// then the keyword tables from critical down to low. Anything left over
// is informational. A Classifier holds only compiled, read-only tables
// and is safe for concurrent use.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/hardenscope/internal/models"
)

type tier struct {
	severity models.Severity
	keywords []string // lowercased
}

// Classifier maps findings to severities using a fixed set of Rules.
type Classifier struct {
	criticalPaths []*regexp.Regexp
	highPaths     []*regexp.Regexp
	testIDs       map[string]models.Severity
	tiers         []tier
}

// New compiles rules into a Classifier.
func New(rules Rules) (*Classifier, error) {
	c := &Classifier{
		testIDs: make(map[string]models.Severity, len(rules.TestIDs)),
	}

	var err error
	if c.criticalPaths, err = compileAll(rules.CriticalPaths); err != nil {
		return nil, fmt.Errorf("critical path pattern: %w", err)
	}
	if c.highPaths, err = compileAll(rules.HighPaths); err != nil {
		return nil, fmt.Errorf("high path pattern: %w", err)
	}

	for id, sev := range rules.TestIDs {
		c.testIDs[strings.ToUpper(id)] = sev
	}

	for _, sev := range KeywordTiers {
		t := tier{severity: sev}
		for _, kw := range rules.Keywords[sev] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				t.keywords = append(t.keywords, kw)
			}
		}
		c.tiers = append(c.tiers, t)
	}

	return c, nil
}

// Default returns a Classifier built from DefaultRules.
func Default() *Classifier {
	c, err := New(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("classifier: invalid default rules: %v", err))
	}
	return c
}

// Classify returns the severity for one finding. testID and path may be empty.
// It never fails; unmatched findings are informational.
func (c *Classifier) Classify(message, testID, path string) models.Severity {
	if sev, ok := c.PathSeverity(path); ok {
		return sev
	}

	if testID != "" {
		if sev, ok := c.testIDs[strings.ToUpper(testID)]; ok {
			return sev
		}
	}

	msg := strings.ToLower(message)
	for _, t := range c.tiers {
		for _, kw := range t.keywords {
			if strings.Contains(msg, kw) {
				return t.severity
			}
		}
	}

	return models.SeverityInfo
}

// PathSeverity reports the override for a referenced path: critical for
// credential stores and private keys, high for access-control files.
func (c *Classifier) PathSeverity(path string) (models.Severity, bool) {
	switch {
	case path == "":
		return "", false
	case matchAny(c.criticalPaths, path):
		return models.SeverityCritical, true
	case matchAny(c.highPaths, path):
		return models.SeverityHigh, true
	}
	return "", false
}

// ClassifyFinding sets f.Severity and returns the updated copy.
func (c *Classifier) ClassifyFinding(f models.Finding) models.Finding {
	f.Severity = c.Classify(f.Message, f.TestID, f.Path)
	return f
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
