package tododb

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const lockFilePerm = 0o600

// processLock is an exclusive flock(2) on "<db>.lock", held for the lifetime
// of a file-backed [DB]. It keeps a second process from writing to the same
// database file through its own single-writer connection.
//
// flock locks an inode, not a pathname: after locking, the descriptor is
// checked against the file currently at path so that a lock file replaced
// during acquisition is not mistaken for the live one.
type processLock struct {
	mu   sync.Mutex
	file *os.File
}

// tryLock acquires the lock without waiting. It returns [ErrLocked] when
// another process holds it.
func tryLock(path string) (*processLock, error) {
	for range 3 {
		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm)
		if err != nil {
			return nil, fmt.Errorf("opening lockfile: %w", err)
		}

		err = flockRetryEINTR(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err != nil {
			_ = file.Close()

			if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
				return nil, fmt.Errorf("%w: %s", ErrLocked, path)
			}

			return nil, fmt.Errorf("flock: %w", err)
		}

		match, err := inodeMatchesPath(path, file)
		if err == nil && match {
			return &processLock{file: file}, nil
		}

		_ = flockRetryEINTR(int(file.Fd()), unix.LOCK_UN)
		_ = file.Close()

		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("verifying inode match: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: lock file %s keeps being replaced", ErrLocked, path)
}

// Close releases the lock. It is idempotent.
func (lk *processLock) Close() error {
	lk.mu.Lock()
	defer lk.mu.Unlock()

	if lk.file == nil {
		return nil
	}

	unlockErr := flockRetryEINTR(int(lk.file.Fd()), unix.LOCK_UN)
	closeErr := lk.file.Close()
	lk.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking lock: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock fd: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

func inodeMatchesPath(path string, f *os.File) (bool, error) {
	var open, current unix.Stat_t

	err := unix.Fstat(int(f.Fd()), &open)
	if err != nil {
		return false, err
	}

	err = unix.Stat(path, &current)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return false, os.ErrNotExist
		}

		return false, err
	}

	return open.Dev == current.Dev && open.Ino == current.Ino, nil
}

func flockRetryEINTR(fd int, how int) error {
	for {
		err := unix.Flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
