//go:build !windows

package multilock

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// probeProcess checks pid with signal 0, which probes existence
// without delivering anything. EPERM means the process exists but
// belongs to someone we may not signal.
func probeProcess(pid int) Liveness {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return Dead
	}
	err = proc.Signal(unix.Signal(0))
	switch {
	case err == nil:
		return Alive
	case errors.Is(err, unix.EPERM):
		return Unknown
	}
	return Dead
}
