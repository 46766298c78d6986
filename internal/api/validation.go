package api

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/storage"
)

const (
	// DefaultListLimit is the number of scans returned when no limit is given.
	DefaultListLimit = 20

	// MaxListLimit caps the scans returned by one list request.
	MaxListLimit = 100
)

// ValidateScanID verifies a scan identifier before it reaches storage.
func ValidateScanID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("scan id is required")
	}
	if !storage.ValidScanID(id) {
		return fmt.Errorf("scan id must match scan_<8 hex>")
	}
	return nil
}

// ValidateStatus accepts an empty filter or one of the scan states.
func ValidateStatus(status string) error {
	switch status {
	case "", models.ScanPending, models.ScanCompleted, models.ScanArchived:
		return nil
	}
	return fmt.Errorf("status must be one of %s, %s or %s", models.ScanPending, models.ScanCompleted, models.ScanArchived)
}

// ParseLimit reads a list limit, defaulting when empty.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be a number")
	}
	if n < 1 || n > MaxListLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", MaxListLimit)
	}
	return n, nil
}

// ValidateRawOutput checks an uploaded audit output before parsing.
func ValidateRawOutput(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("request body must contain audit output")
	}
	if !utf8.Valid(body) {
		return fmt.Errorf("audit output must be UTF-8 text")
	}
	if bytes.IndexByte(body, 0) >= 0 {
		return fmt.Errorf("audit output must not contain NUL bytes")
	}
	return nil
}
