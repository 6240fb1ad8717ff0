// Package lockfile serializes local snapshot-file writers with an
// advisory file lock. The lock guards the local file only; tracker state
// needs no lock (reactions and closes are idempotent).
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLockBusy is returned when another process holds the lock.
var ErrLockBusy = errors.New("file lock held by another process")

// acquireTimeout bounds how long Lock waits for a competing writer.
const acquireTimeout = 10 * time.Second

const pollInterval = 100 * time.Millisecond

// Lock acquires an exclusive advisory lock on path, creating the file
// when absent. It polls until the lock is free or the acquire timeout
// passes, then returns a release function.
func Lock(path string) (release func(), err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	deadline := time.Now().Add(acquireTimeout)
	for {
		err = flockExclusive(f)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrLockBusy) || time.Now().After(deadline) {
			_ = f.Close()
			if errors.Is(err, ErrLockBusy) {
				return nil, fmt.Errorf("%s: %w", path, ErrLockBusy)
			}
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		time.Sleep(pollInterval)
	}

	return func() {
		_ = flockUnlock(f)
		_ = f.Close()
	}, nil
}
