package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ppiankov/hardenscope/internal/models"
)

// Stored file names inside a scan directory.
const (
	RawOutputFile = "raw_output.txt"
	MetadataFile  = "metadata.json"
	ReportFile    = "report.json"
)

const dirTimestampLayout = "20060102_150405"

var scanStates = []string{models.ScanPending, models.ScanCompleted, models.ScanArchived}

// LocalStorage implements Storage using the local filesystem:
//
//	<base>/scans/{pending,completed,archived}/<YYYYMMDD_HHMMSS>_<scan_id>/
type LocalStorage struct {
	baseDir string
	now     func() time.Time
}

// NewLocal creates a new local storage instance
func NewLocal(baseDir string) *LocalStorage {
	return &LocalStorage{
		baseDir: baseDir,
		now:     time.Now,
	}
}

// GetStoragePath returns the full path to the storage directory
func (s *LocalStorage) GetStoragePath() string {
	return s.baseDir
}

// EnsureDirectoryExists creates the state directories if they don't exist
func (s *LocalStorage) EnsureDirectoryExists() error {
	for _, state := range scanStates {
		if err := os.MkdirAll(s.stateDir(state), 0o700); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", state, err)
		}
	}
	return nil
}

// CreateScan allocates a pending scan directory and writes its metadata
func (s *LocalStorage) CreateScan(source string) (*models.ScanMetadata, error) {
	if err := s.EnsureDirectoryExists(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	meta := &models.ScanMetadata{
		ID:        NewScanID(),
		Status:    models.ScanPending,
		Source:    source,
		CreatedAt: now,
	}

	dir := filepath.Join(s.stateDir(models.ScanPending), scanDirName(now, meta.ID))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scan directory: %w", err)
	}

	if err := s.writeJSON(filepath.Join(dir, MetadataFile), meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// SaveRawOutput stores raw output readable by the owner only
func (s *LocalStorage) SaveRawOutput(id string, data []byte) error {
	dir, _, err := s.findScan(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, RawOutputFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write raw output: %w", err)
	}
	return nil
}

// SaveReport stores the parsed report
func (s *LocalStorage) SaveReport(id string, report *models.ParsedReport) error {
	dir, _, err := s.findScan(id)
	if err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(dir, ReportFile), report)
}

// SaveMetadata rewrites a scan's metadata. The stored status always
// follows the directory the scan lives in.
func (s *LocalStorage) SaveMetadata(meta *models.ScanMetadata) error {
	dir, state, err := s.findScan(meta.ID)
	if err != nil {
		return err
	}
	meta.Status = state
	return s.writeJSON(filepath.Join(dir, MetadataFile), meta)
}

// Complete moves a pending scan to completed
func (s *LocalStorage) Complete(id string) error {
	return s.move(id, models.ScanPending, models.ScanCompleted)
}

// Archive moves a completed scan to archived
func (s *LocalStorage) Archive(id string) error {
	return s.move(id, models.ScanCompleted, models.ScanArchived)
}

func (s *LocalStorage) move(id, from, to string) error {
	dir, state, err := s.findScan(id)
	if err != nil {
		return err
	}
	if state != from {
		return fmt.Errorf("scan %s is %s, expected %s", id, state, from)
	}

	if err := os.MkdirAll(s.stateDir(to), 0o700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", to, err)
	}
	target := filepath.Join(s.stateDir(to), filepath.Base(dir))
	if err := os.Rename(dir, target); err != nil {
		return fmt.Errorf("failed to move scan directory: %w", err)
	}

	meta, err := s.readMetadata(target)
	if err != nil {
		return err
	}
	meta.Status = to
	if to == models.ScanCompleted && meta.CompletedAt.IsZero() {
		meta.CompletedAt = s.now().UTC()
	}
	return s.writeJSON(filepath.Join(target, MetadataFile), meta)
}

// LoadScan returns a scan's metadata
func (s *LocalStorage) LoadScan(id string) (*models.ScanMetadata, error) {
	dir, _, err := s.findScan(id)
	if err != nil {
		return nil, err
	}
	return s.readMetadata(dir)
}

// LoadReport returns a scan's parsed report
func (s *LocalStorage) LoadReport(id string) (*models.ParsedReport, error) {
	dir, _, err := s.findScan(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scan %s has no report: %w", id, ErrScanNotFound)
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report models.ParsedReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// LoadRawOutput returns a scan's raw output
func (s *LocalStorage) LoadRawOutput(id string) ([]byte, error) {
	dir, _, err := s.findScan(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, RawOutputFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scan %s has no raw output: %w", id, ErrScanNotFound)
		}
		return nil, fmt.Errorf("failed to read raw output: %w", err)
	}
	return data, nil
}

// ListScans returns scans in the given state ("" for all), newest first.
// Directories with unreadable metadata are skipped.
func (s *LocalStorage) ListScans(status string) ([]*models.ScanMetadata, error) {
	states := scanStates
	if status != "" {
		if !validState(status) {
			return nil, fmt.Errorf("invalid scan status: %s", status)
		}
		states = []string{status}
	}

	var scans []*models.ScanMetadata
	for _, state := range states {
		entries, err := os.ReadDir(s.stateDir(state))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s directory: %w", state, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			meta, err := s.readMetadata(filepath.Join(s.stateDir(state), entry.Name()))
			if err != nil {
				continue
			}
			meta.Status = state
			scans = append(scans, meta)
		}
	}

	sort.SliceStable(scans, func(i, j int) bool {
		return scans[i].CreatedAt.After(scans[j].CreatedAt)
	})
	return scans, nil
}

// GetLatest returns the most recent completed scan
func (s *LocalStorage) GetLatest() (*models.ScanMetadata, error) {
	scans, err := s.GetLastN(1)
	if err != nil {
		return nil, err
	}
	return scans[0], nil
}

// GetLastN returns up to n completed scans, newest first
func (s *LocalStorage) GetLastN(n int) ([]*models.ScanMetadata, error) {
	scans, err := s.ListScans(models.ScanCompleted)
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, fmt.Errorf("no completed scans: %w", ErrScanNotFound)
	}
	if n > 0 && len(scans) > n {
		scans = scans[:n]
	}
	return scans, nil
}

// Cleanup removes scans in any state whose directory timestamp is older
// than maxAge. It returns the number of scans removed.
func (s *LocalStorage) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	removed := 0
	var errs []error

	for _, state := range scanStates {
		entries, err := os.ReadDir(s.stateDir(state))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("failed to read %s directory: %w", state, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			created, ok := parseDirTimestamp(entry.Name())
			if !ok || !created.Before(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(s.stateDir(state), entry.Name())); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

// findScan locates a scan directory by ID across all states.
func (s *LocalStorage) findScan(id string) (dir, state string, err error) {
	if !ValidScanID(id) {
		return "", "", fmt.Errorf("invalid scan id %q: %w", id, ErrScanNotFound)
	}
	for _, st := range scanStates {
		matches, err := filepath.Glob(filepath.Join(s.stateDir(st), "*_"+id))
		if err != nil {
			return "", "", err
		}
		if len(matches) > 0 {
			return matches[0], st, nil
		}
	}
	return "", "", fmt.Errorf("%s: %w", id, ErrScanNotFound)
}

func (s *LocalStorage) readMetadata(dir string) (*models.ScanMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta models.ScanMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

func (s *LocalStorage) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *LocalStorage) stateDir(state string) string {
	return filepath.Join(s.baseDir, "scans", state)
}

// parseDirTimestamp reads the leading YYYYMMDD_HHMMSS of a scan directory name.
func parseDirTimestamp(name string) (time.Time, bool) {
	if len(name) < len(dirTimestampLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dirTimestampLayout, name[:len(dirTimestampLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func validState(state string) bool {
	for _, s := range scanStates {
		if s == state {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the scan does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScanNotFound)
}

func scanDirName(t time.Time, id string) string {
	return t.UTC().Format(dirTimestampLayout) + "_" + id
}
