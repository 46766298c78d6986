package discovery

import (
	"os"
	"path/filepath"
	"strings"
)

// LookPathFunc matches the signature of exec.LookPath.
type LookPathFunc func(file string) (string, error)

// EUIDFunc matches the signature of os.Geteuid.
type EUIDFunc func() int

// Discoverer probes the local host for the audit tool and the privileges
// needed to run it. Injectable deps make it fully testable.
type Discoverer struct {
	lookPath LookPathFunc
	geteuid  EUIDFunc
}

// New creates a Discoverer with the given dependency functions.
func New(lookPath LookPathFunc, geteuid EUIDFunc) *Discoverer {
	return &Discoverer{
		lookPath: lookPath,
		geteuid:  geteuid,
	}
}

// Options name the binaries to look for.
type Options struct {
	LynisBinary string
	SudoBinary  string
	UseSudo     bool
}

// BinaryStatus describes one executable lookup.
type BinaryStatus struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Available bool   `json:"available"`
}

// FileStatus tracks whether a well-known file exists.
type FileStatus struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Plan is the complete result of a discovery probe.
type Plan struct {
	Lynis       BinaryStatus `json:"lynis"`
	Sudo        BinaryStatus `json:"sudo"`
	IsRoot      bool         `json:"is_root"`
	NeedsSudo   bool         `json:"needs_sudo"`
	Runnable    bool         `json:"runnable"`
	Reason      string       `json:"reason,omitempty"` // why the audit cannot run
	Profiles    []FileStatus `json:"profiles"`
	ReportFiles []FileStatus `json:"report_files"`
}

// Discover checks whether the audit tool is installed and whether it can be
// run with sufficient privileges. No commands are executed.
func (d *Discoverer) Discover(opts Options) *Plan {
	plan := &Plan{
		Lynis:  d.probe(opts.LynisBinary),
		IsRoot: d.geteuid() == 0,
	}

	plan.NeedsSudo = opts.UseSudo && !plan.IsRoot
	if plan.NeedsSudo {
		plan.Sudo = d.probe(opts.SudoBinary)
	}

	switch {
	case !plan.Lynis.Available:
		plan.Reason = opts.LynisBinary + " not found in PATH"
	case plan.NeedsSudo && !plan.Sudo.Available:
		plan.Reason = opts.SudoBinary + " not found in PATH (needed because not running as root)"
	default:
		plan.Runnable = true
	}

	for _, p := range ProfileFiles {
		plan.Profiles = append(plan.Profiles, FileStatus{Path: p, Exists: fileExists(expandHome(p))})
	}
	for _, p := range ReportFiles {
		plan.ReportFiles = append(plan.ReportFiles, FileStatus{Path: p, Exists: fileExists(expandHome(p))})
	}

	return plan
}

// ExistingReportFiles returns the report files present on this host.
func (p *Plan) ExistingReportFiles() []string {
	var paths []string
	for _, f := range p.ReportFiles {
		if f.Exists {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

func (d *Discoverer) probe(name string) BinaryStatus {
	st := BinaryStatus{Name: name}
	if name == "" {
		return st
	}
	if path, err := d.lookPath(name); err == nil {
		st.Available = true
		st.Path = path
	}
	return st
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists (not a directory).
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
