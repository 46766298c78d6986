package collector

import (
	"bufio"
	"bytes"
	"errors"
	"regexp"
	"strings"
)

// Source identifies which kind of Lynis artefact a file holds.
type Source string

const (
	SourceScreen     Source = "screen"      // captured terminal output of "lynis audit system"
	SourceReportFile Source = "report_file" // /var/log/lynis-report.dat
	SourceLog        Source = "log"         // /var/log/lynis.log
	SourceUnknown    Source = "unknown"
)

// ErrUnrecognized is returned for files that do not look like Lynis output.
var ErrUnrecognized = errors.New("input does not look like Lynis output")

var (
	reportFileKey = regexp.MustCompile(`^(report_version_major|lynis_version|hardening_index|warning\[\]|suggestion\[\]|os_name)=`)
	logLine       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} `)
	screenMarkers = []string{"hardening index", "warnings (", "suggestions (", "lynis security scan details", "[+] "}
)

// detectScanLines bounds how much of a file detection looks at.
const detectScanLines = 400

// DetectSource identifies the artefact kind from its content. It uses a
// two-phase approach:
// 1. Count report-file keys and timestamped log lines
// 2. Fall back to screen markers when the text mentions Lynis
func DetectSource(data []byte) (Source, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return SourceUnknown, ErrUnrecognized
	}

	var (
		keys, logs, lines int
		mentionsLynis     bool
		screenHits        int
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() && lines < detectScanLines {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines++

		lower := strings.ToLower(line)
		if strings.Contains(lower, "lynis") {
			mentionsLynis = true
		}
		if reportFileKey.MatchString(line) {
			keys++
		}
		if logLine.MatchString(line) {
			logs++
		}
		for _, marker := range screenMarkers {
			if strings.Contains(lower, marker) {
				screenHits++
				break
			}
		}
	}

	switch {
	case keys >= 2:
		return SourceReportFile, nil
	case mentionsLynis && logs*2 > lines:
		return SourceLog, nil
	case screenHits > 0 && (mentionsLynis || screenHits >= 2):
		return SourceScreen, nil
	}
	return SourceUnknown, ErrUnrecognized
}
