package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timwarnock/runone/internal/config"
	"github.com/timwarnock/runone/internal/fsutil"
	"github.com/timwarnock/runone/internal/ui"
)

var initYes bool

// initCmd writes a starter config file.
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter config file",
	Long: `Write a starter config file with every option commented out, so
the built-in defaults keep applying until you change something.

Without a directory the file goes to ~/.config/runone/config.yaml;
with one it goes to <dir>/config.yaml, handy together with --config
or $RUNONE_CONFIG for per-project setups.

Use --yes to skip all interactive prompts (useful for non-TTY environments).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Skip all interactive prompts (assume yes for all questions)")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) > 0 {
		target = filepath.Join(args[0], "config.yaml")
	} else {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		target = path
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	ui.Header("runone init")
	fmt.Println()

	if fsutil.Exists(target) {
		ui.Warning("%s already exists, skipping", target)
		return nil
	}

	if !initYes {
		ok, err := promptYesNo(fmt.Sprintf("Create %s?", target))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(target, []byte(starterConfig), 0644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	ui.Success("Created %s", target)

	fmt.Println()
	ui.Header("Next steps:")
	fmt.Println()
	ui.Step(1, "Edit %s and point basepath at a shared directory", target)
	ui.Step(2, "Wrap a job: runone -- /path/to/job.sh")
	ui.Step(3, "Verify the setup: runone doctor")
	fmt.Println()
	ui.Info("Run 'runone --help' for all commands.")

	return nil
}

// promptYesNo asks the user a yes/no question.
// Returns error if stdin is not a TTY and cannot read input.
func promptYesNo(question string) (bool, error) {
	if !ui.IsInteractive() {
		return false, fmt.Errorf("cannot prompt for input: stdin is not a TTY. Use --yes flag to skip interactive prompts")
	}

	fmt.Printf("%s [y/N] ", question)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// Starter file template

const starterConfig = `# runone configuration.
# Every value here is overridden by RUNONE_* environment variables and
# by command line flags. All options are commented out, so the built-in
# defaults apply as-is.

# Lock taken when no --lockname is given.
#lockname: lock

# Directory grouping related locks under basepath.
#lockgroup: .locks

# Where the lockgroup lives. Point at a shared mount to coordinate
# across hosts.
#basepath: .

# Wait poll interval. Accepts Go durations (500ms) or bare seconds.
#poll: 500ms

# Record locks with the persistent sentinel so they survive process
# exit. Release them with 'runone release <lockname>'.
#persistent: false

# Force-release locks older than this during acquisition. Accepts Go
# durations (2h) or bare seconds; 0 disables age-based reclamation.
#max_age: 0
`
