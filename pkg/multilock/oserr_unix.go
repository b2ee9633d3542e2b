//go:build !windows

package multilock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isNotEmpty reports the rmdir-on-populated-directory errno.
func isNotEmpty(err error) bool {
	return errors.Is(err, unix.ENOTEMPTY)
}
