package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/timwarnock/runone/internal/ui"
	"github.com/timwarnock/runone/pkg/multilock"
)

var (
	statusJSON   bool
	statusFormat string
)

// statusCmd shows every lock in the lockgroup.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every lock in the group",
	Long: `Show each lock in the lockgroup with its state, owner and age.

States:
  acquired   held by the recorded process
  pending    an acquisition that has not committed (in flight or crashed)
  stale      the recorded process on this host is gone
  unlocked   an empty lock directory left by a crashed acquisition

Examples:
  runone status                                  # Table for the default lockgroup
  runone status -d /mnt/shared -g batch          # Another lockgroup
  runone status --json                           # Machine-readable
  runone status --format '{{.Name}} {{.State}}'  # One line per lock`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	statusCmd.Flags().StringVar(&statusFormat, "format", "", "Render each lock through a Go template (sprig functions available)")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	locks, err := multilock.List(cfg.BasePath, cfg.LockGroup)
	if err != nil {
		return fmt.Errorf("list locks: %w", err)
	}

	switch {
	case statusJSON:
		return printStatusJSON(cmd.OutOrStdout(), locks)
	case statusFormat != "":
		return printStatusTemplate(cmd.OutOrStdout(), statusFormat, locks)
	default:
		printStatusHuman(filepath.Join(cfg.BasePath, cfg.LockGroup), locks)
		return nil
	}
}

func printStatusHuman(groupDir string, locks []multilock.Info) {
	ui.Header("Lockgroup %s", groupDir)
	fmt.Println()

	if len(locks) == 0 {
		fmt.Println("  no locks")
		fmt.Println()
		return
	}

	width := len("NAME")
	for _, info := range locks {
		if len(info.Name) > width {
			width = len(info.Name)
		}
	}

	fmt.Printf("  %-*s  %-9s  %-8s  %s\n", width, "NAME", "STATE", "AGE", "OWNER")
	for _, info := range locks {
		owner := "-"
		if info.Owner != (multilock.Identity{}) {
			owner = info.Owner.String()
		}
		fmt.Printf("  %-*s  ", width, info.Name)
		stateColor(info.State).Printf("%-9s", info.State)
		fmt.Printf("  %-8s  %s\n", formatAge(info.Age), owner)
	}
	fmt.Println()
}

type statusEntry struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	Host       string `json:"host,omitempty"`
	PID        int    `json:"pid,omitempty"`
	AgeSeconds int64  `json:"age_seconds"`
	Path       string `json:"path"`
}

func printStatusJSON(w io.Writer, locks []multilock.Info) error {
	entries := make([]statusEntry, 0, len(locks))
	for _, info := range locks {
		entries = append(entries, statusEntry{
			Name:       info.Name,
			State:      info.State.String(),
			Host:       info.Owner.Host,
			PID:        info.Owner.PID,
			AgeSeconds: int64(info.Age.Seconds()),
			Path:       info.Path,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func printStatusTemplate(w io.Writer, format string, locks []multilock.Info) error {
	tmpl, err := template.New("status").Funcs(sprig.TxtFuncMap()).Parse(format)
	if err != nil {
		return fmt.Errorf("parse --format template: %w", err)
	}
	for _, info := range locks {
		if err := tmpl.Execute(w, info); err != nil {
			return fmt.Errorf("render lock %s: %w", info.Name, err)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func stateColor(s multilock.State) *color.Color {
	switch s {
	case multilock.StateAcquired:
		return ui.Yellow
	case multilock.StateStale:
		return ui.Red
	case multilock.StatePending:
		return ui.Cyan
	default:
		return ui.Green
	}
}

func formatAge(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
