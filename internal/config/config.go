// Package config handles configuration discovery and loading.
//
// Settings resolve in precedence order: command-line flags, then
// RUNONE_* environment variables, then the config file, then built-in
// defaults. The file is YAML, looked up at --config, $RUNONE_CONFIG,
// or ~/.config/runone/config.yaml; only an explicitly named file is
// required to exist.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from either a Go
// duration string ("500ms", "2h") or a bare number of seconds (0.5),
// the unit older job wrappers put in their config.
type Duration time.Duration

// UnmarshalYAML implements custom YAML unmarshaling for both spellings.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		parsed, err := ParseDuration(raw)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}

	var secs float64
	if err := unmarshal(&secs); err != nil {
		return err
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Config holds the runone configuration.
type Config struct {
	// LockName is the lock taken when no name is given on the command line.
	LockName string `yaml:"lockname,omitempty"`

	// LockGroup is the directory grouping related locks under BasePath.
	LockGroup string `yaml:"lockgroup,omitempty"`

	// BasePath is where the lockgroup lives. Point it at a shared
	// mount to coordinate across hosts.
	BasePath string `yaml:"basepath,omitempty"`

	// Poll is the barrier wait's poll interval.
	Poll Duration `yaml:"poll,omitempty"`

	// Persistent records locks with the persistent sentinel instead of
	// the process id, so they survive process exit.
	Persistent bool `yaml:"persistent,omitempty"`

	// MaxAge force-releases locks older than this during acquisition.
	// Zero disables age-based reclamation.
	MaxAge Duration `yaml:"max_age,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LockName:  "lock",
		LockGroup: ".locks",
		BasePath:  ".",
		Poll:      Duration(500 * time.Millisecond),
	}
}

// DefaultPath returns ~/.config/runone/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "runone", "config.yaml"), nil
}

// Resolve picks the config file location. An explicit path or
// $RUNONE_CONFIG must exist; the default location is optional.
func Resolve(explicit string) (path string, required bool, err error) {
	if explicit != "" {
		return explicit, true, nil
	}
	if env := os.Getenv("RUNONE_CONFIG"); env != "" {
		return env, true, nil
	}
	path, err = DefaultPath()
	return path, false, err
}

// Load builds the effective configuration from defaults, the config
// file, and the environment. Flag overrides are the caller's job.
func Load(explicit string) (*Config, error) {
	cfg := Default()

	path, required, err := Resolve(explicit)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !required:
		// No file at the default location is fine.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays RUNONE_* environment variables. An unparseable
// value is an error the user needs to see, never a silent fallback.
func (c *Config) applyEnv() error {
	if v := os.Getenv("RUNONE_LOCKNAME"); v != "" {
		c.LockName = v
	}
	if v := os.Getenv("RUNONE_LOCKGROUP"); v != "" {
		c.LockGroup = v
	}
	if v := os.Getenv("RUNONE_BASEPATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("RUNONE_POLL"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RUNONE_POLL: %w", err)
		}
		c.Poll = Duration(d)
	}
	if v := os.Getenv("RUNONE_PERSISTENT"); v == "true" || v == "1" {
		c.Persistent = true
	}
	if v := os.Getenv("RUNONE_MAX_AGE"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RUNONE_MAX_AGE: %w", err)
		}
		c.MaxAge = Duration(d)
	}
	return nil
}

// Validate rejects configurations the lock protocol cannot honor.
func (c *Config) Validate() error {
	if err := checkPathComponent("lockname", c.LockName); err != nil {
		return err
	}
	if err := checkPathComponent("lockgroup", c.LockGroup); err != nil {
		return err
	}
	if c.Poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", time.Duration(c.Poll))
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative, got %v", time.Duration(c.MaxAge))
	}
	return nil
}

// checkPathComponent ensures value is a single path element, so lock
// names cannot escape the lockgroup directory.
func checkPathComponent(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if value == "." || value == ".." {
		return fmt.Errorf("%s must not be %q", field, value)
	}
	if strings.ContainsRune(value, os.PathSeparator) || strings.ContainsRune(value, '/') {
		return fmt.Errorf("%s must be a single path element, got %q", field, value)
	}
	return nil
}

// ParseDuration accepts a Go duration string or a bare number of
// seconds.
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: use a duration like 500ms or seconds", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
