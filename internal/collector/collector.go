// Package collector parses many saved audit outputs concurrently.
package collector

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/parser"
)

// Extensions picked up when walking a directory. Files named explicitly are
// always read regardless of extension.
var Extensions = []string{".txt", ".log", ".dat"}

// Config holds configuration for the collector
type Config struct {
	MaxConcurrency int
	Verbose        bool
	Timeout        time.Duration
}

// Collector reads files and parses them with one shared Parser.
type Collector struct {
	config Config
	parser *parser.Parser
}

// Result is one successfully parsed file.
type Result struct {
	Path   string               `json:"path"`
	Source Source               `json:"source"`
	Report *models.ParsedReport `json:"report"`
}

// FileError records a file that could not be parsed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Outcome is the result of a collection run. Failed files do not abort the
// run; they are listed in Errors next to the successful Results.
type Outcome struct {
	Results []Result
	Errors  []*FileError
}

// New creates a new collector. A nil parser uses the built-in rules.
func New(config Config, p *parser.Parser) *Collector {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if p == nil {
		p = parser.New(nil, parser.Options{})
	}

	return &Collector{
		config: config,
		parser: p,
	}
}

// CollectFromPaths expands paths (files or directories) and parses every
// matching file. It fails only when nothing could be parsed.
func (c *Collector) CollectFromPaths(ctx context.Context, paths []string) (*Outcome, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input paths given")
	}

	files, err := c.expandPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no audit output files found in %s", strings.Join(paths, ", "))
	}

	c.logf("Found %d file(s) to process\n", len(files))

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	outcome := c.collectFiles(ctx, files)
	if len(outcome.Results) == 0 {
		if err := ctx.Err(); err != nil {
			return outcome, fmt.Errorf("collection interrupted: %w", err)
		}
		return outcome, fmt.Errorf("all files failed to process (%d errors)", len(outcome.Errors))
	}
	if len(outcome.Errors) > 0 {
		c.logf("Warning: %d file(s) failed to process\n", len(outcome.Errors))
	}
	return outcome, nil
}

// expandPaths resolves directories into matching files and drops duplicates.
func (c *Collector) expandPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		files = append(files, path)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !hasExtension(p) {
				return nil
			}
			add(p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	}

	return files, nil
}

func hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// collectFiles processes files concurrently using a worker pool
func (c *Collector) collectFiles(ctx context.Context, files []string) *Outcome {
	fileCh := make(chan string, len(files))
	resultCh := make(chan collectResult, len(files))

	workers := c.config.MaxConcurrency
	if workers > len(files) {
		workers = len(files)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.worker(ctx, &wg, fileCh, resultCh)
	}

	for _, file := range files {
		fileCh <- file
	}
	close(fileCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	outcome := &Outcome{}
	for result := range resultCh {
		if result.err != nil {
			outcome.Errors = append(outcome.Errors, &FileError{Path: result.file, Err: result.err})
			c.logf("Error processing %s: %v\n", result.file, result.err)
			continue
		}
		outcome.Results = append(outcome.Results, result.result)
		c.logf("✓ Parsed: %s (%s, %d findings)\n",
			filepath.Base(result.file), result.result.Source, result.result.Report.TotalFindings())
	}

	sort.Slice(outcome.Results, func(i, j int) bool {
		return outcome.Results[i].Path < outcome.Results[j].Path
	})
	sort.Slice(outcome.Errors, func(i, j int) bool {
		return outcome.Errors[i].Path < outcome.Errors[j].Path
	})
	return outcome
}

type collectResult struct {
	file   string
	result Result
	err    error
}

func (c *Collector) worker(ctx context.Context, wg *sync.WaitGroup, fileCh <-chan string, resultCh chan<- collectResult) {
	defer wg.Done()

	for file := range fileCh {
		if err := ctx.Err(); err != nil {
			resultCh <- collectResult{file: file, err: err}
			continue
		}
		result, err := c.processFile(file)
		resultCh <- collectResult{file: file, result: result, err: err}
	}
}

// processFile reads, identifies and parses a single file.
func (c *Collector) processFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read file: %w", err)
	}

	source, err := DetectSource(data)
	if err != nil {
		return Result{}, err
	}

	report, err := c.parser.ParseBytes(data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse output: %w", err)
	}

	return Result{Path: path, Source: source, Report: report}, nil
}

func (c *Collector) logf(format string, args ...any) {
	if c.config.Verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
