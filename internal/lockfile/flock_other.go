//go:build !unix && !windows

package lockfile

import "os"

// File locking is unavailable on this platform; writers fall back to the
// temp-file rename alone.
func flockExclusive(f *os.File) error { return nil }

func flockUnlock(f *os.File) error { return nil }
