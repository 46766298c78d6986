package parser

import (
	"regexp"
	"strings"

	"github.com/ppiankov/hardenscope/internal/models"
)

// componentRule detects one security component. An explicit status line
// such as "Firewall [V]" or "Firewall [X]" is authoritative; otherwise the
// component counts as present when a known tool is named on a line that
// does not report it missing.
type componentRule struct {
	status   *regexp.Regexp
	reportOn *regexp.Regexp
	tools    *regexp.Regexp
	set      func(c *models.SecurityComponents)
}

var componentRules = []componentRule{
	{
		status:   regexp.MustCompile(`^-?\s*Firewall\s+\[\s*([VX])\s*\]`),
		reportOn: regexp.MustCompile(`^firewall_(?:installed|active)=1$`),
		tools:    regexp.MustCompile(`(?i)\b(iptables|nftables|ufw|firewalld|ipfw|pf firewall)\b`),
		set:      func(c *models.SecurityComponents) { c.Firewall = true },
	},
	{
		status:   regexp.MustCompile(`^-?\s*Intrusion software\s+\[\s*([VX])\s*\]`),
		reportOn: regexp.MustCompile(`^ids_ips_tooling\[\]=\S+`),
		tools:    regexp.MustCompile(`(?i)\b(aide|ossec|wazuh|snort|suricata|fail2ban|tripwire|samhain)\b`),
		set:      func(c *models.SecurityComponents) { c.IntrusionSoftware = true },
	},
	{
		status:   regexp.MustCompile(`^-?\s*Malware scanner\s+\[\s*([VX])\s*\]`),
		reportOn: regexp.MustCompile(`^malware_scanner_installed=1$`),
		tools:    regexp.MustCompile(`(?i)\b(clamav|clamscan|clamd|rkhunter|chkrootkit|maldet|linux malware detect)\b`),
		set:      func(c *models.SecurityComponents) { c.MalwareScanner = true },
	},
}

// Status markers that mean a check did not find the tool.
var negativeMarkers = []string{
	"NOT FOUND", "NONE", "NOT ENABLED", "NOT ACTIVE", "NOT RUNNING",
	"NOT INSTALLED", "DISABLED", "SKIPPED", "[ X ]", "[X]",
}

func detectComponents(lines []string) models.SecurityComponents {
	var c models.SecurityComponents
	for _, rule := range componentRules {
		if present(rule, lines) {
			rule.set(&c)
		}
	}
	return c
}

func present(rule componentRule, lines []string) bool {
	explicit, hinted := false, false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := rule.status.FindStringSubmatch(trimmed); m != nil {
			if m[1] == "V" {
				return true
			}
			explicit = true
			continue
		}
		if rule.reportOn.MatchString(trimmed) {
			return true
		}
		if !hinted && !isFindingLine(trimmed) && rule.tools.MatchString(trimmed) && !isNegative(trimmed) {
			hinted = true
		}
	}
	return hinted && !explicit
}

func isFindingLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "*") ||
		strings.HasPrefix(trimmed, "!") ||
		strings.HasPrefix(trimmed, "warning[]=") ||
		strings.HasPrefix(trimmed, "suggestion[]=") ||
		warningMarker.MatchString(trimmed)
}

func isNegative(trimmed string) bool {
	upper := strings.ToUpper(trimmed)
	for _, m := range negativeMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}
