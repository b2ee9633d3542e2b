package multilock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths holds the on-disk locations derived from a lock's name, group
// and base path:
//
//	<base>/<group>/                      barrier directory
//	<base>/<group>/<name>/<name>.lock    pending record (transient)
//	<base>/<group>/<name>/<name>.locked  acquired record
//
// LockDir exists if and only if the pending or acquired record exists;
// both records coexist only for the instant of the rename that commits
// an acquisition.
type Paths struct {
	GroupDir string
	LockDir  string
	Pending  string
	Acquired string
}

// newPaths resolves base to an absolute path and derives the lock's
// locations. Name and group must each be a single path element so a
// lock cannot escape its lockgroup. Nothing is touched on disk.
func newPaths(name, group, base string) (Paths, error) {
	if err := checkElement("lock name", name); err != nil {
		return Paths{}, err
	}
	if err := checkElement("lockgroup", group); err != nil {
		return Paths{}, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve base path %s: %w", base, err)
	}
	groupDir := filepath.Join(abs, group)
	lockDir := filepath.Join(groupDir, name)
	return Paths{
		GroupDir: groupDir,
		LockDir:  lockDir,
		Pending:  filepath.Join(lockDir, name+".lock"),
		Acquired: filepath.Join(lockDir, name+".locked"),
	}, nil
}

func checkElement(field, value string) error {
	if value == "" || value == "." || value == ".." {
		return fmt.Errorf("%s must not be %q", field, value)
	}
	if strings.ContainsRune(value, os.PathSeparator) || strings.ContainsRune(value, '/') {
		return fmt.Errorf("%s must be a single path element, got %q", field, value)
	}
	return nil
}
