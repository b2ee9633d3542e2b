package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/timwarnock/runone/internal/config"
	"github.com/timwarnock/runone/internal/log"
	"github.com/timwarnock/runone/pkg/multilock"
)

// Values bound to the persistent flags on the root command. Flags only
// override the config file and environment when explicitly set, which
// loadConfig checks through pflag's Changed.
var (
	lockName   string
	lockGroup  string
	baseDir    string
	pollSpec   string
	persistent bool
	maxAgeSpec string
	configPath string
)

// logger is shared by every command. Level and format come from the
// environment (RUNONE_DEBUG, RUNONE_LOG_LEVEL, LOG_FORMAT); the default
// is warn on stderr so a healthy cron run stays silent.
var logger *slog.Logger = log.New(log.FromEnv())

// loadConfig builds the effective configuration: defaults, then the
// config file, then RUNONE_* environment variables, then any flags the
// user explicitly set on this invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("lockname") {
		cfg.LockName = lockName
	}
	if flags.Changed("lockgroup") {
		cfg.LockGroup = lockGroup
	}
	if flags.Changed("basedir") {
		cfg.BasePath = baseDir
	}
	if flags.Changed("persistent") {
		cfg.Persistent = persistent
	}
	if err := overrideDuration(flags, "poll", pollSpec, &cfg.Poll); err != nil {
		return nil, err
	}
	if err := overrideDuration(flags, "max-age", maxAgeSpec, &cfg.MaxAge); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideDuration applies a duration flag over the config value when
// the flag was set. Flags accept Go durations ("500ms") or bare
// seconds ("2.5"), same as the file and environment.
func overrideDuration(flags *pflag.FlagSet, name, spec string, dst *config.Duration) error {
	if !flags.Changed(name) {
		return nil
	}
	d, err := config.ParseDuration(spec)
	if err != nil {
		return fmt.Errorf("--%s: %w", name, err)
	}
	*dst = config.Duration(d)
	return nil
}

// newLock builds a lock from the effective configuration. Extra
// options append after the config-derived ones, so callers can force
// the persistent identity or inject a probe.
func newLock(cfg *config.Config, name string, opts ...multilock.Option) (*multilock.Lock, error) {
	base := []multilock.Option{
		multilock.WithGroup(cfg.LockGroup),
		multilock.WithBasePath(cfg.BasePath),
		multilock.WithPollInterval(time.Duration(cfg.Poll)),
		multilock.WithMaxAge(time.Duration(cfg.MaxAge)),
		multilock.WithLogger(logger),
	}
	if cfg.Persistent {
		base = append(base, multilock.Persistent())
	}
	lk, err := multilock.New(name, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("build lock %q: %w", name, err)
	}
	return lk, nil
}
