package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/sys/unix"

	ddevil "github.com/will-rowe/ddevil"
	"github.com/will-rowe/ddevil/config"
	"github.com/will-rowe/ddevil/internal/pipeline"
)

// LockFileName is the advisory lock file inside the working directory.
const LockFileName = "ddevil.lock"

// Run is the daemon main loop: it takes the pid lock, announces itself in
// the config file, then runs the watch pipeline until a termination signal
// arrives. The lock and the running flag are cleared on the way out, on
// success and on error alike.
func Run(cfg *config.Config, log *ddevil.Logger) error {
	pid := os.Getpid()
	log = log.WithPid(pid)

	lock, err := config.AcquirePidLock(filepath.Join(cfg.WorkingDir, LockFileName), pid)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Error("could not release the pid lock", "error", err)
		}
	}()

	cfg.Pid = pid
	cfg.Running = true
	if err := cfg.Save(cfg.ConfigFile); err != nil {
		return fmt.Errorf("daemon: could not update config file: %w", err)
	}
	defer func() {
		cfg.Pid = -1
		cfg.Running = false
		if err := cfg.Save(cfg.ConfigFile); err != nil {
			log.Error("could not clear the running flag", "error", err)
		}
	}()
	log.Info("started the ddevil daemon", "version", ddevil.Version, "watch_dir", cfg.WatchDir)

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
	defer stop()

	if err := p.Run(ctx); err != nil {
		return err
	}
	log.Info("stopped the ddevil daemon")
	return nil
}
