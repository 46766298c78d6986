package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for hardenscope
type Config struct {
	// Storage configuration
	StorageDir string `mapstructure:"storage_dir"`

	// Days to keep scans before cleanup removes them (0 = keep forever)
	RetentionDays int `mapstructure:"retention_days"`

	// Threshold for CI/CD failure on total findings (0 = disabled)
	FailThreshold int `mapstructure:"fail_threshold"`

	// Output format (text, json, html, both)
	Format string `mapstructure:"format"`

	// Number of recent scans in the view history sparkline
	LastRuns int `mapstructure:"last_runs"`

	// Verbose output
	Verbose bool `mapstructure:"verbose"`

	// Debug mode
	Debug bool `mapstructure:"debug"`

	// Audit tool invocation
	LynisBinary string        `mapstructure:"lynis_binary"`
	LynisArgs   []string      `mapstructure:"lynis_args"`
	UseSudo     bool          `mapstructure:"use_sudo"`
	SudoBinary  string        `mapstructure:"sudo_binary"`
	ScanTimeout time.Duration `mapstructure:"scan_timeout"`

	// Classification rules file and how it combines with the built-in tables
	RulesFile string `mapstructure:"rules_file"`
	RulesMode string `mapstructure:"rules_mode"`

	// Parsing and display limits
	MaxSuggestionDetails int `mapstructure:"max_suggestion_details"`
	TopFindings          int `mapstructure:"top_findings"`
	MaxPrintFindings     int `mapstructure:"max_print_findings"`
	PreviewLength        int `mapstructure:"preview_length"`

	// HTTP API
	ListenAddr     string  `mapstructure:"listen_addr"`
	RateLimit      float64 `mapstructure:"rate_limit"` // requests per second per client IP
	RateBurst      int     `mapstructure:"rate_burst"`
	MaxUploadBytes int64   `mapstructure:"max_upload_bytes"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		StorageDir:           ".hardenscope",
		RetentionDays:        30,
		FailThreshold:        0, // 0 means no threshold check
		Format:               "text",
		LastRuns:             7,
		Verbose:              false,
		Debug:                false,
		LynisBinary:          "lynis",
		LynisArgs:            []string{"audit", "system", "--quick", "--no-colors"},
		UseSudo:              true,
		SudoBinary:           "sudo",
		ScanTimeout:          30 * time.Minute,
		RulesMode:            "extend",
		MaxSuggestionDetails: 3,
		TopFindings:          5,
		MaxPrintFindings:     30,
		PreviewLength:        2000,
		ListenAddr:           "127.0.0.1:5000",
		RateLimit:            5,
		RateBurst:            20,
		MaxUploadBytes:       10 << 20,
	}
}

// LoadFromFile loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file: configPath, or the first of ./hardenscope.yaml,
//    ~/hardenscope.yaml and $XDG_CONFIG_HOME/hardenscope when it is empty
// 3. Environment variables (HARDENSCOPE_*)
// 4. CLI flags (handled by caller)
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("storage_dir", defaults.StorageDir)
	v.SetDefault("retention_days", defaults.RetentionDays)
	v.SetDefault("fail_threshold", defaults.FailThreshold)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("last_runs", defaults.LastRuns)
	v.SetDefault("verbose", defaults.Verbose)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("lynis_binary", defaults.LynisBinary)
	v.SetDefault("lynis_args", defaults.LynisArgs)
	v.SetDefault("use_sudo", defaults.UseSudo)
	v.SetDefault("sudo_binary", defaults.SudoBinary)
	v.SetDefault("scan_timeout", defaults.ScanTimeout)
	v.SetDefault("rules_file", "")
	v.SetDefault("rules_mode", defaults.RulesMode)
	v.SetDefault("max_suggestion_details", defaults.MaxSuggestionDetails)
	v.SetDefault("top_findings", defaults.TopFindings)
	v.SetDefault("max_print_findings", defaults.MaxPrintFindings)
	v.SetDefault("preview_length", defaults.PreviewLength)
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("rate_limit", defaults.RateLimit)
	v.SetDefault("rate_burst", defaults.RateBurst)
	v.SetDefault("max_upload_bytes", defaults.MaxUploadBytes)

	v.SetConfigName("hardenscope")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, "hardenscope"))
		}
	}

	v.SetEnvPrefix("HARDENSCOPE")
	v.AutomaticEnv()

	// Config file not found is OK, defaults apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"html": true,
		"both": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format: %s (must be text, json, html, or both)", c.Format)
	}

	if c.FailThreshold < 0 {
		return fmt.Errorf("fail_threshold cannot be negative")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days cannot be negative")
	}
	if c.LastRuns <= 0 {
		return fmt.Errorf("last_runs must be positive")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}
	if c.LynisBinary == "" {
		return fmt.Errorf("lynis_binary cannot be empty")
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("scan_timeout must be positive")
	}
	if c.RulesMode != "extend" && c.RulesMode != "replace" {
		return fmt.Errorf("invalid rules_mode: %s (must be extend or replace)", c.RulesMode)
	}
	if c.MaxSuggestionDetails <= 0 || c.TopFindings <= 0 || c.MaxPrintFindings <= 0 {
		return fmt.Errorf("max_suggestion_details, top_findings and max_print_findings must be positive")
	}
	if c.PreviewLength < 0 {
		return fmt.Errorf("preview_length cannot be negative")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("rate_limit and rate_burst must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}

	return nil
}

// GetStoragePath returns the absolute path to the storage directory
func (c *Config) GetStoragePath() (string, error) {
	if strings.HasPrefix(c.StorageDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, c.StorageDir[2:]), nil
	}

	absPath, err := filepath.Abs(c.StorageDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// ShouldFailOnThreshold checks if the finding count exceeds the threshold
func (c *Config) ShouldFailOnThreshold(findingCount int) bool {
	if c.FailThreshold == 0 {
		return false
	}
	return findingCount > c.FailThreshold
}

// ConfigPath returns the default location for a user config file.
func ConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hardenscope", "hardenscope.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "hardenscope.yaml")
	}
	return "hardenscope.yaml"
}

// WriteSampleConfig writes GenerateSampleConfig to path, creating parent
// directories. An existing file is left untouched unless force is set.
func WriteSampleConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateSampleConfig()), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# hardenscope configuration
# Save this file as ./hardenscope.yaml, ~/hardenscope.yaml
# or $XDG_CONFIG_HOME/hardenscope/hardenscope.yaml

# Directory holding stored scans (pending/, completed/, archived/)
storage_dir: .hardenscope

# Scans older than this are removed by "hardenscope scans cleanup"
retention_days: 30

# Fail threshold for CI/CD (exit code 1 if findings exceed this number)
# Set to 0 to disable threshold checking
fail_threshold: 0

# Output format: text, json, html, or both
format: text

# Number of recent scans in the "hardenscope view" history sparkline
last_runs: 7

# Audit tool invocation
lynis_binary: lynis
lynis_args: [audit, system, --quick, --no-colors]
use_sudo: true
sudo_binary: sudo
scan_timeout: 30m

# Extra classification keywords (YAML). rules_mode: extend or replace
# rules_file: ./hardenscope-rules.yaml
rules_mode: extend

# Parsing and display limits
max_suggestion_details: 3
top_findings: 5
max_print_findings: 30
preview_length: 2000

# HTTP API (hardenscope serve)
listen_addr: 127.0.0.1:5000
rate_limit: 5
rate_burst: 20
max_upload_bytes: 10485760

# Enable verbose output
verbose: false

# Enable debug mode
debug: false
`
}
