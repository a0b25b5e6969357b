package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/will-rowe/ddevil/config"
)

// childEnv marks the re-executed process as the detached daemon child.
const childEnv = "DDEVIL_DAEMON"

// stopTimeout bounds how long Stop waits for the daemon to exit.
const stopTimeout = 30 * time.Second

// ErrStopTimeout is returned when the daemon does not exit in time.
var ErrStopTimeout = errors.New("daemon: timed out waiting for the daemon to stop")

// IsChild reports whether this process is the detached daemon child.
func IsChild() bool {
	return os.Getenv(childEnv) == "1"
}

// Spawn re-executes the current binary as a detached daemon: the child
// starts in its own session with its standard streams attached to the
// daemon log file (or /dev/null), working from cfg.WorkingDir. It returns
// the child's pid; the caller is the foreground parent and should exit.
func Spawn(cfg *config.Config) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("daemon: could not locate executable: %w", err)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = os.DevNull
	}
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("daemon: could not open log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return 0, fmt.Errorf("daemon: could not open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(exe, "start", "--config", cfg.ConfigFile)
	cmd.Env = append(os.Environ(), childEnv+"=1")
	cmd.Dir = cfg.WorkingDir

	// The child's fds 0/1/2 are bound here, which is the dup2-style
	// redirect: no stream globals are touched in the child.
	cmd.Stdin = devNull
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("daemon: could not start the daemon process: %w", err)
	}
	pid := cmd.Process.Pid

	// Detach: the child is session leader, the parent must not wait on it.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("daemon: could not release the daemon process: %w", err)
	}
	return pid, nil
}

// Stop signals the running daemon and waits for its running flag to clear.
// The pid is taken from the lock file, falling back to the config record.
func Stop(cfg *config.Config) error {
	pid := cfg.Pid
	if lockPid, err := config.ReadPidLock(filepath.Join(cfg.WorkingDir, LockFileName)); err == nil {
		pid = lockPid
	}
	if pid <= 0 {
		return fmt.Errorf("daemon: no running daemon recorded in %s", cfg.ConfigFile)
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("daemon: could not signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		current, err := config.Load(cfg.ConfigFile)
		if err == nil && !current.Running {
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	return fmt.Errorf("%w (pid %d)", ErrStopTimeout, pid)
}
