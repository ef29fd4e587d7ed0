// SPDX-License-Identifier: MPL-2.0

//go:build linux

package cachelock

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockFile opens (or creates) the lock file and takes a blocking exclusive
// flock. The zero-byte lock file is harmless if orphaned: the kernel drops
// the flock when the descriptor closes, including on crash.
func lockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return f, nil
}

func unlockFile(f *os.File) {
	if f == nil {
		return
	}
	// LOCK_UN before Close for explicitness; Close also releases the flock.
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	_ = f.Close()
}
