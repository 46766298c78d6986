package discovery

// Well-known Lynis file locations. Their presence is reported by doctor;
// none of them is required to run an audit.
var (
	// ProfileFiles hold Lynis scan profiles.
	ProfileFiles = []string{
		"/etc/lynis/default.prf",
		"/etc/lynis/custom.prf",
		"/usr/local/etc/lynis/default.prf",
	}

	// ReportFiles are written by Lynis after each audit and can be
	// fed straight to "hardenscope parse".
	ReportFiles = []string{
		"/var/log/lynis-report.dat",
		"/var/log/lynis.log",
	}
)
