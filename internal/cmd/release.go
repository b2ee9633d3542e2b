package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timwarnock/runone/internal/config"
	"github.com/timwarnock/runone/internal/ui"
	"github.com/timwarnock/runone/pkg/multilock"
)

var releaseForce bool

// releaseCmd releases a lock that outlived its process.
var releaseCmd = &cobra.Command{
	Use:   "release <lockname>",
	Short: "Release a persistent lock",
	Long: `Release a lock that outlived its process.

Persistent locks record the -1 sentinel instead of a process id, so
nothing releases them automatically; this command releases one as the
recording host. It also clears crashed locks whose process is gone,
same as clean. A lock held by a live process or another host is left
alone unless --force is given.

Examples:
  runone release nightly           # Release the persistent lock "nightly"
  runone release nightly --force   # Remove it no matter who holds it`,
	Args: cobra.ExactArgs(1),
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().BoolVarP(&releaseForce, "force", "f", false, "Remove the lock regardless of ownership")

	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	name := args[0]
	lk, err := newLock(cfg, name, multilock.Persistent())
	if err != nil {
		return err
	}

	if releaseForce {
		if err := os.RemoveAll(lk.Paths().LockDir); err != nil {
			return fmt.Errorf("remove lock %q: %w", name, err)
		}
		// Best effort; fails while other locks remain in the group.
		_ = os.Remove(lk.Paths().GroupDir)
		ui.Success("Removed lock %s", name)
		return nil
	}

	unlocked, err := lk.Release()
	if err != nil {
		return fmt.Errorf("release lock %q: %w", name, err)
	}
	if !unlocked {
		return &ExitError{
			Code:    ExitFailure,
			Message: fmt.Sprintf("lock %q is still held%s; use --force to remove it anyway", name, ownerHint(cfg, name)),
		}
	}
	ui.Success("Lock %s is clear", name)
	return nil
}

// ownerHint names the current holder for error messages, best effort.
func ownerHint(cfg *config.Config, name string) string {
	locks, err := multilock.List(cfg.BasePath, cfg.LockGroup)
	if err != nil {
		return ""
	}
	for _, info := range locks {
		if info.Name == name && info.Owner != (multilock.Identity{}) {
			return fmt.Sprintf(" by %s", info.Owner)
		}
	}
	return ""
}
