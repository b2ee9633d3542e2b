package multilock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PersistentPID is the sentinel process id recorded by persistent
// locks. A persistent lock is not bound to a living process: it
// survives the process that took it and is never reclaimed by liveness
// probing, only by explicit release or an age threshold.
const PersistentPID = -1

// Identity names a lock holder: the host it runs on and its process
// id. It is captured once at construction and embedded in the lock as
// an immutable value.
type Identity struct {
	Host string
	PID  int
}

// LocalIdentity returns the identity of the calling process.
func LocalIdentity() (Identity, error) {
	host, err := os.Hostname()
	if err != nil {
		return Identity{}, fmt.Errorf("resolve hostname: %w", err)
	}
	return Identity{Host: host, PID: os.Getpid()}, nil
}

// Persistent reports whether the identity carries the persistent
// sentinel pid.
func (id Identity) Persistent() bool { return id.PID == PersistentPID }

// String renders the identity in lock record form.
func (id Identity) String() string {
	return id.Host + " " + strconv.Itoa(id.PID)
}

// record serializes the identity as lock file content.
func (id Identity) record() []byte {
	return []byte(id.String())
}

// parseRecord decodes "<host> <pid>" lock file content. Anything other
// than exactly two whitespace-separated tokens with an integer pid is
// malformed; malformed records mean ownership is unknown, never that
// the lock is free.
func parseRecord(data []byte) (Identity, error) {
	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return Identity{}, fmt.Errorf("malformed lock record: %d fields", len(fields))
	}
	pid, err := strconv.Atoi(fields[1])
	if err != nil {
		return Identity{}, fmt.Errorf("malformed lock record pid %q: %w", fields[1], err)
	}
	return Identity{Host: fields[0], PID: pid}, nil
}
