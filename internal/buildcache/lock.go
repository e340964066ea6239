package buildcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval bounds how often a waiter re-checks for the lock or the
// artifact appearing.
const pollInterval = 100 * time.Millisecond

// Lock is a held exclusive build lock for one identity, released by
// Unlock. Built on golang.org/x/sys/unix.Flock exactly as the process
// group and signal plumbing elsewhere in this package uses the same
// x/sys import for POSIX primitives the standard library doesn't
// expose.
type Lock struct {
	file *os.File
}

// Acquire obtains the exclusive build lock for identity within s,
// blocking (subject to ctx) while another process or goroutine holds
// it. If the caller observes the artifact appear in the meantime (a
// concurrent builder finished first), Acquire returns (nil, true, nil)
// without ever taking the lock: the artifact it wanted already exists,
// so there is nothing left to compile.
func (s *Store) Acquire(ctx context.Context, identity string) (*Lock, bool, error) {
	lockPath := filepath.Join(s.dir(), "locks", identity+".lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, false, fmt.Errorf("buildcache: creating lock directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, false, fmt.Errorf("buildcache: opening lock file %s: %w", lockPath, err)
	}

	for {
		if _, done, err := s.checkArtifact(identity); err != nil {
			f.Close()
			return nil, false, err
		} else if done {
			f.Close()
			return nil, true, nil
		}

		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{file: f}, false, nil
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, false, fmt.Errorf("buildcache: locking %s: %w", lockPath, err)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (s *Store) checkArtifact(identity string) (Entry, bool, error) {
	return s.Lookup(identity)
}

// Unlock releases the lock. The lock file itself is left on disk; only
// its advisory hold is released, so the next Acquire reopens the same
// inode rather than racing a delete-then-recreate.
func (l *Lock) Unlock() error {
	defer l.file.Close()
	return unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
}
