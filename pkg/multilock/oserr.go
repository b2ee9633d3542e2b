package multilock

import (
	"errors"
	"io/fs"
)

// errClass tags the filesystem error shapes the locking protocol
// branches on. The race-expected classes (already exists, not empty,
// not found) are the normal signature of concurrent racers and are
// swallowed at their call sites; permission and other failures
// surface.
type errClass int

const (
	classOther errClass = iota
	classAlreadyExists
	classNotEmpty
	classNotFound
	classPermission
)

// classify maps a non-nil error from an os call to its protocol class.
func classify(err error) errClass {
	switch {
	case errors.Is(err, fs.ErrExist):
		return classAlreadyExists
	case errors.Is(err, fs.ErrNotExist):
		return classNotFound
	case errors.Is(err, fs.ErrPermission):
		return classPermission
	case isNotEmpty(err):
		return classNotEmpty
	}
	return classOther
}

// raceExpected reports whether the error class is one concurrent
// racers produce in normal operation.
func raceExpected(c errClass) bool {
	// Solaris-style rmdir reports a populated directory as EEXIST, so
	// already-exists stays in the set alongside not-empty.
	return c == classAlreadyExists || c == classNotEmpty || c == classNotFound
}
