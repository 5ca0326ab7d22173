package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Storage selects the object store backend holding job records and files.
type Storage struct {
	Backend     string `toml:"backend"`
	Root        string `toml:"root"`
	DBPath      string `toml:"db_path"`
	JobTTLHours int    `toml:"job_ttl_hours"`
}

// Queue selects the transport that delivers job ids to workers.
type Queue struct {
	Backend             string `toml:"backend"`
	RedisURL            string `toml:"redis_url"`
	Name                string `toml:"name"`
	BlockTimeoutSeconds int    `toml:"block_timeout_seconds"`
	LeaseSeconds        int    `toml:"lease_seconds"`
}

// Worker contains consumer loop and external process limits.
type Worker struct {
	Concurrency         int `toml:"concurrency"`
	ToolTimeoutSeconds  int `toml:"tool_timeout_seconds"`
	ProbeTimeoutSeconds int `toml:"probe_timeout_seconds"`
	ErrorRetryInterval  int `toml:"error_retry_interval"`
	MinFreeDiskMiB      int `toml:"min_free_disk_mib"`
}

// OCR contains text recognition settings.
type OCR struct {
	Language     string `toml:"language"`
	TessdataDir  string `toml:"tessdata_dir"`
	DPI          int    `toml:"dpi"`
	CloudURL     string `toml:"cloud_url"`
	CloudAPIKey  string `toml:"cloud_api_key"`
	CloudTimeout int    `toml:"cloud_timeout_seconds"`
}

// Translate contains LibreTranslate connection settings.
type Translate struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TargetLanguage string `toml:"target_language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for fileconv.
//
// Configuration sections by subsystem:
//   - Paths: scratch, state, and log directories
//   - Storage: object store backend and job retention
//   - Queue: job delivery transport
//   - Worker: concurrency and external process ceilings
//   - OCR / Translate: network fallbacks for text recognition
//   - Tools: per-capability executable overrides
//   - Logging: log format and level
type Config struct {
	Paths     Paths             `toml:"paths"`
	Storage   Storage           `toml:"storage"`
	Queue     Queue             `toml:"queue"`
	Worker    Worker            `toml:"worker"`
	OCR       OCR               `toml:"ocr"`
	Translate Translate         `toml:"translate"`
	Tools     map[string]string `toml:"tools"`
	Logging   Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is applied to the environment first so credential
// fallbacks can be kept out of the TOML file.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fileconv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for worker operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageFS {
		dirs = append(dirs, c.Storage.Root)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LocksDir returns the directory holding per-job lease files.
func (c *Config) LocksDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// JobTTL returns the retention window stamped on new job records.
func (c *Config) JobTTL() time.Duration {
	return time.Duration(c.Storage.JobTTLHours) * time.Hour
}

// ToolTimeout returns the wall-clock ceiling for a single external conversion.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Worker.ToolTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the ceiling applied to a tool version probe.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Worker.ProbeTimeoutSeconds) * time.Second
}

// BlockTimeout returns how long a dequeue waits before returning empty-handed.
func (c *Config) BlockTimeout() time.Duration {
	return time.Duration(c.Queue.BlockTimeoutSeconds) * time.Second
}

// LeaseDuration returns how long a dequeued message stays claimed without a heartbeat.
func (c *Config) LeaseDuration() time.Duration {
	return time.Duration(c.Queue.LeaseSeconds) * time.Second
}

// ErrorRetryInterval returns the pause after a failed dequeue.
func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Worker.ErrorRetryInterval) * time.Second
}

// ToolOverride returns the configured executable for a capability, if any.
func (c *Config) ToolOverride(capability string) string {
	if c.Tools == nil {
		return ""
	}
	return strings.TrimSpace(c.Tools[strings.ToLower(strings.TrimSpace(capability))])
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
