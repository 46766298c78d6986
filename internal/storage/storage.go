package storage

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/hardenscope/internal/models"
)

// ErrScanNotFound is returned when no stored scan has the requested ID.
var ErrScanNotFound = errors.New("scan not found")

var scanIDPattern = regexp.MustCompile(`^scan_[0-9a-f]{8}$`)

// NewScanID returns a fresh identifier of the form scan_1a2b3c4d.
func NewScanID() string {
	return "scan_" + uuid.NewString()[:8]
}

// ValidScanID reports whether id has the shape produced by NewScanID.
func ValidScanID(id string) bool {
	return scanIDPattern.MatchString(id)
}

// Storage defines the interface for persisting scans
type Storage interface {
	// CreateScan allocates a pending scan directory
	CreateScan(source string) (*models.ScanMetadata, error)

	// SaveRawOutput stores the audit tool's raw text output
	SaveRawOutput(id string, data []byte) error

	// SaveReport stores the parsed report
	SaveReport(id string, report *models.ParsedReport) error

	// SaveMetadata rewrites a scan's metadata
	SaveMetadata(meta *models.ScanMetadata) error

	// Complete moves a pending scan to completed
	Complete(id string) error

	// Archive moves a completed scan to archived
	Archive(id string) error

	// LoadScan returns a scan's metadata
	LoadScan(id string) (*models.ScanMetadata, error)

	// LoadReport returns a scan's parsed report
	LoadReport(id string) (*models.ParsedReport, error)

	// LoadRawOutput returns a scan's raw output
	LoadRawOutput(id string) ([]byte, error)

	// ListScans returns scans in the given state ("" for all), newest first
	ListScans(status string) ([]*models.ScanMetadata, error)

	// GetLatest returns the most recent completed scan
	GetLatest() (*models.ScanMetadata, error)

	// GetLastN returns up to n completed scans, newest first
	GetLastN(n int) ([]*models.ScanMetadata, error)

	// Cleanup removes scans created before now minus maxAge
	Cleanup(maxAge time.Duration) (int, error)
}
