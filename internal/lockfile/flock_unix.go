//go:build unix

package lockfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive acquires an exclusive non-blocking lock on the file.
// Returns ErrLockBusy if any lock is already held.
func flockExclusive(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return ErrLockBusy
	}
	return err
}

func flockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
