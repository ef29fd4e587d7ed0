// SPDX-License-Identifier: MPL-2.0

package cachelock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LockSuffix is appended to a guarded path to form its lock file.
const LockSuffix = ".lock"

// pathMutexes holds one in-process mutex per guarded path. Goroutines of the
// same process contend here first; flock (where available) handles other
// processes.
var pathMutexes sync.Map

// Lock is a held cache lock. Release must be called exactly once; further
// calls are no-ops.
type Lock struct {
	path string
	mu   *sync.Mutex
	file *os.File
}

// Acquire blocks until the caller holds the exclusive lock for target. The
// lock file's directory is created on demand.
func Acquire(target string) (*Lock, error) {
	lockPath := target + LockSuffix
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory for %s: %w", target, err)
	}

	v, _ := pathMutexes.LoadOrStore(lockPath, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	f, err := lockFile(lockPath)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	return &Lock{path: lockPath, mu: mu, file: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks the file lock and the in-process mutex.
func (l *Lock) Release() {
	if l == nil || l.mu == nil {
		return
	}
	unlockFile(l.file)
	l.file = nil
	l.mu.Unlock()
	l.mu = nil
}
