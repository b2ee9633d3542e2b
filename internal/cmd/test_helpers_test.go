package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// deadPID is a PID no real process can hold, so a planted record with
// it always reads as a crashed holder.
const deadPID = 1 << 30

// cleanEnv scrubs every RUNONE_* variable and points HOME at a fresh
// directory so the default config location is guaranteed empty.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RUNONE_LOCKNAME", "RUNONE_LOCKGROUP", "RUNONE_BASEPATH",
		"RUNONE_POLL", "RUNONE_PERSISTENT", "RUNONE_MAX_AGE",
		"RUNONE_CONFIG", "RUNONE_DEBUG", "RUNONE_LOG_LEVEL",
	} {
		// Setenv first so the cleanup restores the caller's value.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("HOME", t.TempDir())
}

// resetFlags walks the whole command tree and restores every flag to
// its default. Cobra keeps flag state between Execute calls, so without
// this a flag set in one test leaks into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// executeCmd executes the root command with the given args and returns
// whatever was written through cobra's output writers.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	if args == nil {
		// nil would make cobra fall back to os.Args.
		args = []string{}
	}
	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

// plantLock fabricates a lock directory with the given record file, the
// way a holder elsewhere would have left it.
func plantLock(t *testing.T, base, group, name, file, record string) {
	t.Helper()
	dir := filepath.Join(base, group, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(record), 0o644))
}
