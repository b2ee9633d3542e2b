// Package preflight provides pre-flight validation of the environment
// the lock protocol depends on.
package preflight

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/timwarnock/runone/internal/fsutil"
)

// CheckHostname verifies the local hostname can serve as a lock record
// field. Records are whitespace-delimited, so an empty or
// whitespace-bearing hostname would corrupt every record this host
// writes.
func CheckHostname() error {
	host, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("resolve hostname: %w", err)
	}
	if host == "" {
		return fmt.Errorf("hostname is empty")
	}
	if strings.ContainsAny(host, " \t\n") {
		return fmt.Errorf("hostname %q contains whitespace and cannot be recorded", host)
	}
	return nil
}

// CheckBasePath verifies the base path is a writable directory, or
// that its nearest existing ancestor is, since acquisition creates
// missing directories on first use. A non-fatal finding comes back as
// a warning.
func CheckBasePath(dir string) (warning string, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve base path %s: %w", dir, err)
	}

	if fsutil.IsDir(abs) {
		if err := fsutil.ProbeWritable(abs); err != nil {
			return "", fmt.Errorf("base path %s is not writable: %w", abs, err)
		}
		return "", nil
	}
	if fsutil.Exists(abs) {
		return "", fmt.Errorf("base path %s exists but is not a directory", abs)
	}

	parent := filepath.Dir(abs)
	for !fsutil.Exists(parent) {
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if !fsutil.IsDir(parent) {
		return "", fmt.Errorf("base path %s has no usable ancestor directory", abs)
	}
	if err := fsutil.ProbeWritable(parent); err != nil {
		return "", fmt.Errorf("base path %s cannot be created: %w", abs, err)
	}
	return fmt.Sprintf("base path %s does not exist yet; first acquisition creates it", abs), nil
}

// CheckProtocol dry-runs the on-disk handshake in a scratch directory
// under dir: exclusive mkdir, exclusive record create, fsync, rename,
// read-back, rmdir. A filesystem that cannot do these faithfully
// cannot host locks.
func CheckProtocol(dir string) error {
	scratch, err := os.MkdirTemp(dir, ".preflight-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	lockDir := filepath.Join(scratch, "probe")
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		return fmt.Errorf("exclusive mkdir: %w", err)
	}

	pending := filepath.Join(lockDir, "probe.lock")
	record := []byte("preflight 0")
	f, err := os.OpenFile(pending, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("exclusive create: %w", err)
	}
	if _, err := f.Write(record); err != nil {
		f.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close record: %w", err)
	}

	acquired := filepath.Join(lockDir, "probe.locked")
	if err := os.Rename(pending, acquired); err != nil {
		return fmt.Errorf("rename commit: %w", err)
	}

	got, err := os.ReadFile(acquired)
	if err != nil {
		return fmt.Errorf("read back record: %w", err)
	}
	if !bytes.Equal(got, record) {
		return fmt.Errorf("read back mismatch: got %q", got)
	}

	if err := os.Remove(acquired); err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	if err := os.Remove(lockDir); err != nil {
		return fmt.Errorf("rmdir: %w", err)
	}
	return nil
}

// CheckLiveness verifies the liveness probe can judge processes on
// this host by probing our own pid, which is alive by definition. On
// Windows the probe treats every process as alive, so there is nothing
// to verify.
func CheckLiveness() error {
	if runtime.GOOS == "windows" {
		return nil
	}
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		return fmt.Errorf("find own process: %w", err)
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return fmt.Errorf("probe own process %d: %w", os.Getpid(), err)
	}
	return nil
}
