package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned when another process holds the daemon lock.
var ErrLocked = errors.New("config: lock file held by another process")

// PidLock is an exclusive advisory lock holding the daemon pid. It is the
// authoritative signal that a daemon is running; the pid recorded in the
// config file is only a convenience copy.
type PidLock struct {
	path string
	file *os.File
}

// AcquirePidLock takes the exclusive lock at path and writes pid into it.
// It fails with ErrLocked if another process already holds the lock.
func AcquirePidLock(path string, pid int) (*PidLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("config: could not open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("config: could not lock %s: %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("config: could not truncate lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("config: could not write pid to lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("config: could not sync lock file: %w", err)
	}
	return &PidLock{path: path, file: f}, nil
}

// Release drops the lock and removes the lock file.
func (l *PidLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := os.Remove(l.path)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

// ReadPidLock returns the pid recorded in the lock file at path.
func ReadPidLock(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("config: could not read lock file %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("config: malformed lock file %s: %w", path, err)
	}
	return pid, nil
}
