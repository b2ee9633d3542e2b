//go:build windows

package multilock

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isNotEmpty reports the remove-on-populated-directory error.
func isNotEmpty(err error) bool {
	return errors.Is(err, windows.ERROR_DIR_NOT_EMPTY)
}
