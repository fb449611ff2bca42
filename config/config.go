// Package config handles configuration loading and validation for fusectl.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-fusebits/descfile"
	"github.com/moffa90/go-fusebits/logging"
)

// AppName names the per-user directories.
const AppName = "fusebits"

// Environment variables applied by ApplyEnvOverrides.
const (
	EnvOverrideDir = "FUSEBITS_OVERRIDE_DIR"
	EnvBuiltinDir  = "FUSEBITS_BUILTIN_DIR"
	EnvSourceDir   = "FUSEBITS_SOURCE_DIR"
	EnvLogLevel    = "FUSEBITS_LOG_LEVEL"
)

// Config is the fusectl configuration.
type Config struct {
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// StorageConfig locates the descriptor tiers.
type StorageConfig struct {
	// OverrideDir is the user-writable tier
	OverrideDir string `toml:"override_dir" yaml:"override_dir"`

	// BuiltinDir is the read-only tier shipped with the tools
	BuiltinDir string `toml:"builtin_dir" yaml:"builtin_dir"`

	// SourceDir holds part description documents parsed on demand (optional)
	SourceDir string `toml:"source_dir" yaml:"source_dir"`

	// FuseExt and LockExt are the snapshot file extensions
	FuseExt string `toml:"fuse_ext" yaml:"fuse_ext"`
	LockExt string `toml:"lock_ext" yaml:"lock_ext"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" yaml:"level"`

	// Format is text or json
	Format string `toml:"format" yaml:"format"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			OverrideDir: filepath.Join(PlatformDataDir(), "descriptors"),
			BuiltinDir:  PlatformBuiltinDir(),
			FuseExt:     descfile.FuseExt,
			LockExt:     descfile.LockExt,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// PlatformDataDir returns the per-user data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/fusebits/
//   - Linux:   $XDG_DATA_HOME/fusebits/ or ~/.local/share/fusebits/
//   - Windows: %APPDATA%\fusebits\
func PlatformDataDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppName)
	case "windows":
		if dir := os.Getenv("APPDATA"); dir != "" {
			return filepath.Join(dir, AppName)
		}
	case "linux":
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, AppName)
		}
		return filepath.Join(home, ".local", "share", AppName)
	}
	return filepath.Join(home, "."+AppName)
}

// PlatformBuiltinDir returns the system-wide directory of shipped
// descriptors.
func PlatformBuiltinDir() string {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("ProgramData"); dir != "" {
			return filepath.Join(dir, AppName, "descriptors")
		}
		return filepath.Join(`C:\ProgramData`, AppName, "descriptors")
	default:
		return filepath.Join("/usr", "share", AppName, "descriptors")
	}
}

// PlatformConfigPath returns the default configuration file path.
func PlatformConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "."+AppName, "config.toml")
	}
	return filepath.Join(dir, AppName, "config.toml")
}

// Load reads the configuration at path, applies environment overrides and
// validates the result. A missing file yields the defaults. The format is
// chosen by extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return cfg, nil
}

// ApplyEnvOverrides applies FUSEBITS_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvOverrideDir); v != "" {
		c.Storage.OverrideDir = v
	}
	if v := os.Getenv(EnvBuiltinDir); v != "" {
		c.Storage.BuiltinDir = v
	}
	if v := os.Getenv(EnvSourceDir); v != "" {
		c.Storage.SourceDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.OverrideDir == "" {
		errs = append(errs, errors.New("storage.override_dir is required"))
	}
	for key, ext := range map[string]string{"fuse_ext": c.Storage.FuseExt, "lock_ext": c.Storage.LockExt} {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 || strings.ContainsAny(ext, `/\`) {
			errs = append(errs, fmt.Errorf("storage.%s %q must be an extension like .fusedesc", key, ext))
		}
	}
	if c.Storage.FuseExt != "" && c.Storage.FuseExt == c.Storage.LockExt {
		errs = append(errs, errors.New("storage.fuse_ext and storage.lock_ext must differ"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("logging.format: %w", err))
	}
	return errors.Join(errs...)
}

// NewLogger builds the logger described by the logging section.
func (c *Config) NewLogger(w io.Writer, component string) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{
		Level:     level,
		Format:    format,
		Output:    w,
		Component: component,
	}), nil
}
