//go:build !windows
// +build !windows

package terminal

import (
	"os"

	"golang.org/x/sys/unix"
)

// IsTerminal returns true if f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	_, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	return err == nil
}
