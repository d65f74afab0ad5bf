package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/specialistvlad/buildgrid/internal/buildfile"
)

const (
	// DefaultBuildFile is the build file looked up when none is given.
	DefaultBuildFile = "build" + buildfile.Extension
	// SettingsFileName is the settings file looked up next to the build file.
	SettingsFileName = "buildgrid.toml"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// BuildPath is a build file or a directory of build files.
	BuildPath string
	Goals     []string

	Jobs        int
	TaskTimeout time.Duration
	LogFormat   string
	LogLevel    string
	Verbose     bool
	DryRun      bool
	// ReportFile receives the YAML execution report when set.
	ReportFile string
	// StateFile overrides the up-to-date state location. Relative paths are
	// resolved against the root project directory.
	StateFile string
	NoState   bool
	// DefaultTasks replaces default-task selection when no goal is given.
	DefaultTasks []string
	// StatusAddr starts the status server on this address when set.
	StatusAddr string
}

// DefaultConfig returns the built-in defaults, the lowest configuration
// layer.
func DefaultConfig() Config {
	return Config{
		BuildPath: DefaultBuildFile,
		Jobs:      runtime.NumCPU(),
		LogFormat: "text",
		LogLevel:  "warn",
	}
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.BuildPath == "" {
		return nil, errors.New("build path is a required configuration field and cannot be empty")
	}
	if cfg.Jobs < 1 {
		return nil, fmt.Errorf("jobs must be at least 1, got %d", cfg.Jobs)
	}
	if cfg.TaskTimeout < 0 {
		return nil, fmt.Errorf("task timeout must not be negative, got %s", cfg.TaskTimeout)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Settings is the content of a buildgrid.toml file. Unset keys leave the
// lower layer untouched.
type Settings struct {
	Jobs         *int     `toml:"jobs"`
	TaskTimeout  *string  `toml:"task_timeout"`
	LogLevel     *string  `toml:"log_level"`
	LogFormat    *string  `toml:"log_format"`
	ReportFile   *string  `toml:"report_file"`
	StateFile    *string  `toml:"state_file"`
	NoState      *bool    `toml:"no_state"`
	DefaultTasks []string `toml:"default_tasks"`
	StatusAddr   *string  `toml:"status_addr"`
}

// SettingsPathFor returns where the settings file of a build lives: next to
// the build file, or inside the build directory.
func SettingsPathFor(buildPath string) string {
	if info, err := os.Stat(buildPath); err == nil && info.IsDir() {
		return filepath.Join(buildPath, SettingsFileName)
	}
	return filepath.Join(filepath.Dir(buildPath), SettingsFileName)
}

// LoadSettings decodes the settings file at path. A missing file yields nil
// settings unless required is set. Unknown keys are rejected.
func LoadSettings(path string, required bool) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var s Settings
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("settings file %s: %s", path, strict.String())
		}
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, col := decErr.Position()
			return nil, fmt.Errorf("settings file %s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	return &s, nil
}

// ApplyTo layers s over cfg.
func (s *Settings) ApplyTo(cfg *Config) error {
	if s == nil {
		return nil
	}
	if s.Jobs != nil {
		cfg.Jobs = *s.Jobs
	}
	if s.TaskTimeout != nil {
		d, err := time.ParseDuration(*s.TaskTimeout)
		if err != nil {
			return fmt.Errorf("task_timeout: %w", err)
		}
		cfg.TaskTimeout = d
	}
	if s.LogLevel != nil {
		cfg.LogLevel = *s.LogLevel
	}
	if s.LogFormat != nil {
		cfg.LogFormat = *s.LogFormat
	}
	if s.ReportFile != nil {
		cfg.ReportFile = *s.ReportFile
	}
	if s.StateFile != nil {
		cfg.StateFile = *s.StateFile
	}
	if s.NoState != nil {
		cfg.NoState = *s.NoState
	}
	if s.DefaultTasks != nil {
		cfg.DefaultTasks = s.DefaultTasks
	}
	if s.StatusAddr != nil {
		cfg.StatusAddr = *s.StatusAddr
	}
	return nil
}
