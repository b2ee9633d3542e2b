package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timwarnock/runone/internal/fsutil"
	"github.com/timwarnock/runone/internal/preflight"
	"github.com/timwarnock/runone/internal/ui"
	"github.com/timwarnock/runone/pkg/multilock"
)

// doctorCmd runs pre-flight checks.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Pre-flight checks - can locks work here?",
	Long:  "Run diagnostic checks for the hostname, the base path, the on-disk lock protocol and the locks currently in the group.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ui.Blue.Println("Running pre-flight checks...")
	fmt.Println()

	passed := 0
	failed := 0
	warned := 0

	// Check: hostname usable in lock records
	if err := preflight.CheckHostname(); err == nil {
		host, _ := os.Hostname()
		ui.Green.Printf("  * Hostname %s is recordable\n", host)
		passed++
	} else {
		ui.Red.Printf("  x Hostname: %v\n", err)
		failed++
	}

	// Check: liveness probe
	if err := preflight.CheckLiveness(); err == nil {
		ui.Green.Println("  * Liveness probe works")
		passed++
	} else {
		ui.Red.Printf("  x Liveness probe: %v\n", err)
		ui.Blue.Println("      Crashed locks on this host would never be reclaimed")
		failed++
	}

	// Check: base path
	warning, err := preflight.CheckBasePath(cfg.BasePath)
	switch {
	case err != nil:
		ui.Red.Printf("  x Base path: %v\n", err)
		failed++
	case warning != "":
		ui.Yellow.Printf("  ! %s\n", warning)
		warned++
	default:
		ui.Green.Printf("  * Base path %s is writable\n", cfg.BasePath)
		passed++
	}

	// Check: on-disk handshake, which needs the base path to exist
	if fsutil.IsDir(cfg.BasePath) {
		if err := preflight.CheckProtocol(cfg.BasePath); err == nil {
			ui.Green.Println("  * Exclusive create and atomic rename behave")
			passed++
		} else {
			ui.Red.Printf("  x Lock handshake: %v\n", err)
			ui.Blue.Println("      This filesystem cannot host locks")
			failed++
		}
	} else {
		ui.Yellow.Println("  ! Lock handshake not probed (base path missing)")
		warned++
	}

	// Check: lock inventory
	locks, err := multilock.List(cfg.BasePath, cfg.LockGroup)
	if err != nil {
		ui.Red.Printf("  x List locks: %v\n", err)
		failed++
	} else {
		var stale []string
		for _, info := range locks {
			if info.State == multilock.StateStale {
				stale = append(stale, info.Name)
			}
		}
		switch {
		case len(stale) > 0:
			ui.Yellow.Printf("  ! %d stale lock(s): %s\n", len(stale), strings.Join(stale, ", "))
			ui.Blue.Println("      Run: runone clean")
			warned++
		case len(locks) == 0:
			ui.Green.Println("  * No locks in the group")
			passed++
		default:
			ui.Green.Printf("  * %d lock(s), none stale\n", len(locks))
			passed++
		}
	}

	// Summary
	fmt.Println()
	fmt.Printf("Summary: ")
	ui.Green.Printf("%d passed", passed)
	fmt.Printf(", ")
	ui.Yellow.Printf("%d warnings", warned)
	fmt.Printf(", ")
	ui.Red.Printf("%d failed\n", failed)

	if failed > 0 {
		fmt.Println()
		ui.Red.Println("Locking will not work here! Fix errors above.")
		return &ExitError{Code: ExitFailure}
	} else if warned > 0 {
		fmt.Println()
		ui.Yellow.Println("Locking will work, but check warnings.")
	} else {
		fmt.Println()
		ui.Green.Println("All clear! Locks are safe to use here.")
	}

	return nil
}
