package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/hardenscope/internal/models"
)

// labelExtractor reads one labelled value. Patterns are in priority order:
// a line matching an earlier pattern replaces a value taken from a later
// one, otherwise the first matching line wins.
type labelExtractor struct {
	name     string
	patterns []*regexp.Regexp
	apply    func(r *models.ParsedReport, value string)
}

// Patterns run against a line with leading whitespace and list dashes removed.
var labelExtractors = []labelExtractor{
	{
		name: "os_name",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(?:Operating system name|OS name)\s*:\s*(.+)$`),
			regexp.MustCompile(`^os_name=(.+)$`),
			regexp.MustCompile(`^Operating system\s*:\s*(.+)$`),
		},
		apply: func(r *models.ParsedReport, v string) { r.SystemInfo.OSName = v },
	},
	{
		name: "os_version",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(?:Operating system version|OS version)\s*:\s*(.+)$`),
			regexp.MustCompile(`^os_version=(.+)$`),
		},
		apply: func(r *models.ParsedReport, v string) { r.SystemInfo.OSVersion = v },
	},
	{
		name: "kernel_version",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^Kernel version\s*:\s*(.+)$`),
			regexp.MustCompile(`^os_kernel_version=(.+)$`),
		},
		apply: func(r *models.ParsedReport, v string) { r.SystemInfo.KernelVersion = v },
	},
	{
		name: "hostname",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^Hostname\s*:\s*(.+)$`),
			regexp.MustCompile(`^hostname=(.+)$`),
		},
		apply: func(r *models.ParsedReport, v string) { r.SystemInfo.Hostname = v },
	},
	{
		name: "hardware_platform",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^Hardware platform\s*:\s*(.+)$`),
			regexp.MustCompile(`^hardware=(.+)$`),
		},
		apply: func(r *models.ParsedReport, v string) { r.SystemInfo.HardwarePlatform = v },
	},
	{
		name: "hardening_index",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^Hardening index\s*:\s*(\S*)`),
			regexp.MustCompile(`^hardening_index=(\S*)`),
		},
		apply: func(r *models.ParsedReport, v string) { r.Score.HardeningIndex = clamp(atoi(v), 0, 100) },
	},
	{
		name: "tests_performed",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^Tests performed\s*:\s*(\S*)`),
			regexp.MustCompile(`^lynis_tests_done=(\S*)`),
		},
		apply: func(r *models.ParsedReport, v string) { r.Statistics.TestsPerformed = atoi(v) },
	},
	{
		name: "plugins_enabled",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^Plugins enabled\s*:\s*(\S*)`),
		},
		apply: func(r *models.ParsedReport, v string) { r.Statistics.PluginsEnabled = atoi(v) },
	},
}

// extractLabels fills system info, score and statistics.
func extractLabels(lines []string, r *models.ParsedReport) {
	// best[i] is the pattern index that set extractor i's value; -1 is unset.
	best := make([]int, len(labelExtractors))
	for i := range best {
		best[i] = -1
	}
	remaining := len(labelExtractors)

	for _, line := range lines {
		if remaining == 0 {
			return
		}
		text := normalizeLabelLine(line)
		if text == "" {
			continue
		}
		for i, ex := range labelExtractors {
			if best[i] == 0 {
				continue
			}
			v, idx, ok := ex.match(text)
			if !ok || (best[i] >= 0 && idx >= best[i]) {
				continue
			}
			ex.apply(r, v)
			best[i] = idx
			if idx == 0 {
				remaining--
			}
		}
	}
}

func (ex labelExtractor) match(text string) (string, int, bool) {
	for i, re := range ex.patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1]), i, true
		}
	}
	return "", 0, false
}

func normalizeLabelLine(line string) string {
	text := strings.TrimSpace(line)
	text = strings.TrimPrefix(text, "- ")
	return strings.TrimSpace(text)
}

// atoi returns a non-negative integer or 0 for anything malformed.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
