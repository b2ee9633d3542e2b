package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/timwarnock/runone/internal/ui"
	"github.com/timwarnock/runone/pkg/multilock"
)

// cleanCmd sweeps stale state out of the lockgroup.
var cleanCmd = &cobra.Command{
	Use:   "clean [lockname...]",
	Short: "Reclaim crashed and aged locks",
	Long: `Run reclamation across the lockgroup, or only the named locks.

A lock is reclaimed when its recording process on this host is gone,
or, with --max-age, when it is older than the given age regardless of
who holds it. Locks held by live processes, foreign hosts or the
persistent sentinel are left alone.

Examples:
  runone clean                  # Sweep the whole lockgroup
  runone clean nightly hourly   # Only these locks
  runone clean --max-age 2h     # Also force-release anything older`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	locks, err := multilock.List(cfg.BasePath, cfg.LockGroup)
	if err != nil {
		return fmt.Errorf("list locks: %w", err)
	}
	before := make(map[string]multilock.Info, len(locks))
	for _, info := range locks {
		before[info.Name] = info
	}

	names := args
	if len(names) == 0 {
		for _, info := range locks {
			names = append(names, info.Name)
		}
	}
	if len(names) == 0 {
		ui.Info("No locks in %s", filepath.Join(cfg.BasePath, cfg.LockGroup))
		return nil
	}

	reclaimed, held := 0, 0
	for _, name := range names {
		lk, err := newLock(cfg, name)
		if err != nil {
			return err
		}
		unlocked, err := lk.Cleanup(time.Duration(cfg.MaxAge))
		if err != nil {
			return fmt.Errorf("clean lock %q: %w", name, err)
		}
		prior, existed := before[name]
		switch {
		case unlocked && existed:
			reclaimed++
			if prior.Owner != (multilock.Identity{}) {
				ui.Green.Printf("  * %s reclaimed from %s\n", name, prior.Owner)
			} else {
				ui.Green.Printf("  * %s reclaimed\n", name)
			}
		case unlocked:
			ui.Green.Printf("  * %s already clear\n", name)
		default:
			held++
			if prior.Owner != (multilock.Identity{}) {
				ui.Yellow.Printf("  ! %s held by %s\n", name, prior.Owner)
			} else {
				ui.Yellow.Printf("  ! %s still held\n", name)
			}
		}
	}

	fmt.Println()
	fmt.Printf("%d reclaimed, %d still held\n", reclaimed, held)
	return nil
}
