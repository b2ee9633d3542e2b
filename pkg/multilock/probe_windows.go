//go:build windows

package multilock

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// probeProcess checks whether pid is alive. There is no signal 0 on
// Windows; opening the process probes existence instead. Only the
// no-such-process error means dead: a refused open (access denied)
// means the process exists but belongs to someone we may not inspect.
func probeProcess(pid int) Liveness {
	proc, err := os.FindProcess(pid)
	switch {
	case err == nil:
		proc.Release()
		return Alive
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return Dead
	}
	return Unknown
}
