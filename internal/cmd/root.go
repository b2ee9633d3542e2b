// Package cmd provides the CLI commands for runone.
package cmd

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// waitSpec is the root-only --wait flag. Set, the invocation waits on
// the lockgroup barrier instead of running a command.
var waitSpec string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "runone [flags] -- <command> [args...]",
	Short: "Run a command as the only instance on the lock",
	Long: `runone - run one, and only one, instance

Runs a command under a filesystem lock so overlapping invocations
(cron, systemd timers, retry loops) collapse to a single instance:
one invocation runs and exits with the command's status, the rest do
nothing and exit 0.

Locks live under <basedir>/<lockgroup>/ as plain directories, so
pointing --basedir at a shared mount coordinates across hosts. A lock
whose recording process has died is reclaimed automatically on the
next acquisition; --max-age force-releases locks past a given age no
matter who holds them.

Flag parsing stops at the first non-flag argument; everything after
it belongs to the wrapped command. Use -- when the command's name
collides with a runone subcommand.

RUN
  runone -- <command> [args...]    Run under the default lock
  runone -l nightly -- backup.sh   Run under a named lock
  runone -n -- start-worker.sh     Leave the lock held after exit
  runone --wait 30                 Wait for the lockgroup to empty

INSPECTION
  status                Show every lock in the group
  doctor                Check the base path, protocol and stale locks

MAINTENANCE
  release <lockname>    Release a persistent lock
  clean [lockname...]   Reclaim crashed and aged locks

SETUP
  init [dir]            Write a starter config file
  update                Update runone to the latest version`,
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		HandleExitError(err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&lockName, "lockname", "l", "lock", "lock name, unique per protected job")
	pf.StringVarP(&lockGroup, "lockgroup", "g", ".locks", "lockgroup, a directory of independent locks")
	pf.StringVarP(&baseDir, "basedir", "d", ".", "base directory the lockgroup lives under")
	pf.StringVar(&pollSpec, "poll", "500ms", "wait poll interval (Go duration or seconds)")
	pf.BoolVarP(&persistent, "persistent", "n", false, "keep the lock held after the command exits")
	pf.StringVar(&maxAgeSpec, "max-age", "0", "force-release locks older than this (Go duration or seconds, 0 disables)")
	pf.StringVar(&configPath, "config", "", "config file (default ~/.config/runone/config.yaml)")

	rootCmd.Flags().StringVarP(&waitSpec, "wait", "w", "", "wait up to this long for all locks in the lockgroup to complete, then exit")

	// The wrapped command owns everything after the first non-flag
	// argument, including its own flags.
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.SetVersionTemplate("runone version {{.Version}}\n")
}
