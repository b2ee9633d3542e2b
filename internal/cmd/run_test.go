package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// needsShell skips tests that wrap a real child through sh.
func needsShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRun_ChildExitPassesThrough(t *testing.T) {
	needsShell(t)
	cleanEnv(t)
	base := t.TempDir()

	_, err := executeCmd(t, "-d", base, "--", "sh", "-c", "exit 3")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	// Silent: the child already said whatever it had to say.
	assert.Empty(t, exitErr.Message)
}

func TestRun_ReleasesAfterSuccess(t *testing.T) {
	needsShell(t)
	cleanEnv(t)
	base := t.TempDir()

	_, err := executeCmd(t, "-d", base, "--", "sh", "-c", "exit 0")

	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(base, ".locks"))
}

func TestRun_HoldsLockWhileChildRuns(t *testing.T) {
	needsShell(t)
	cleanEnv(t)
	base := t.TempDir()
	record := filepath.Join(base, ".locks", "job", "job.locked")
	snapshot := filepath.Join(base, "snapshot")

	// The child copies the record out; if the lock were not held while
	// it runs, there would be nothing to copy.
	_, err := executeCmd(t, "-d", base, "-l", "job", "--",
		"sh", "-c", fmt.Sprintf("cp %q %q", record, snapshot))

	require.NoError(t, err)
	data, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	host, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s %d", host, os.Getpid()), string(data))
	assert.NoDirExists(t, filepath.Join(base, ".locks", "job"))
}

func TestRun_BusyLockIsSilentNoop(t *testing.T) {
	needsShell(t)
	cleanEnv(t)
	base := t.TempDir()
	plantLock(t, base, ".locks", "lock", "lock.locked", "otherhost 4242")
	marker := filepath.Join(base, "ran")

	out, err := executeCmd(t, "-d", base, "--", "sh", "-c", "touch "+marker)

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoFileExists(t, marker)

	data, err := os.ReadFile(filepath.Join(base, ".locks", "lock", "lock.locked"))
	require.NoError(t, err)
	assert.Equal(t, "otherhost 4242", string(data))
}

func TestRun_CrashedHolderIsReclaimed(t *testing.T) {
	needsShell(t)
	cleanEnv(t)
	base := t.TempDir()
	host, err := os.Hostname()
	require.NoError(t, err)
	plantLock(t, base, ".locks", "lock", "lock.locked", fmt.Sprintf("%s %d", host, deadPID))
	marker := filepath.Join(base, "ran")

	_, err = executeCmd(t, "-d", base, "--", "sh", "-c", "touch "+marker)

	require.NoError(t, err)
	assert.FileExists(t, marker)
}

func TestRun_PersistentLeavesLockHeld(t *testing.T) {
	needsShell(t)
	cleanEnv(t)
	base := t.TempDir()

	_, err := executeCmd(t, "-d", base, "-n", "-l", "svc", "--", "sh", "-c", "exit 0")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(base, ".locks", "svc", "svc.locked"))
	require.NoError(t, err)
	host, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, host+" -1", string(data))

	// A second invocation stands down against our own persistent lock.
	marker := filepath.Join(base, "ran")
	_, err = executeCmd(t, "-d", base, "-l", "svc", "--", "sh", "-c", "touch "+marker)
	require.NoError(t, err)
	assert.NoFileExists(t, marker)

	// An explicit release clears it.
	_, err = executeCmd(t, "release", "svc", "-d", base)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(base, ".locks", "svc"))
}

func TestRun_SignaledChildExitCode(t *testing.T) {
	needsShell(t)
	cleanEnv(t)
	base := t.TempDir()

	_, err := executeCmd(t, "-d", base, "--", "sh", "-c", "kill -TERM $$")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 128+15, exitErr.Code)
}

func TestRun_StartFailureReleasesLock(t *testing.T) {
	cleanEnv(t)
	base := t.TempDir()

	_, err := executeCmd(t, "-d", base, "--", filepath.Join(base, "does-not-exist"))

	assert.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "start failure is a real error, not an exit passthrough")
	assert.NoDirExists(t, filepath.Join(base, ".locks"))
}

func TestWait_EmptyGroupReturnsImmediately(t *testing.T) {
	cleanEnv(t)

	_, err := executeCmd(t, "-d", t.TempDir(), "--wait", "5")

	assert.NoError(t, err)
}

func TestWait_TimeoutIsExitCodeTwo(t *testing.T) {
	cleanEnv(t)
	base := t.TempDir()
	plantLock(t, base, ".locks", "job", "job.locked", "otherhost 4242")

	_, err := executeCmd(t, "-d", base, "--wait", "0.3", "--poll", "50ms")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitWaitTimeout, exitErr.Code)
	assert.Contains(t, exitErr.Message, "timed out")
}

func TestWait_ClearsWhenGroupEmpties(t *testing.T) {
	cleanEnv(t)
	base := t.TempDir()
	plantLock(t, base, ".locks", "job", "job.locked", "otherhost 4242")

	go func() {
		time.Sleep(150 * time.Millisecond)
		os.RemoveAll(filepath.Join(base, ".locks"))
	}()

	_, err := executeCmd(t, "-d", base, "--wait", "5", "--poll", "50ms")

	assert.NoError(t, err)
}

func TestWait_RejectsWrappedCommand(t *testing.T) {
	cleanEnv(t)

	_, err := executeCmd(t, "--wait", "1", "--", "sh", "-c", "exit 0")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--wait takes no command")
}

func TestRun_BadDurationFlags(t *testing.T) {
	cleanEnv(t)

	_, err := executeCmd(t, "--wait", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--wait")

	_, err = executeCmd(t, "--wait", "0", "--poll", "often")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--poll")
}
