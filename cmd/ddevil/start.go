package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	ddevil "github.com/will-rowe/ddevil"
	"github.com/will-rowe/ddevil/config"
	"github.com/will-rowe/ddevil/daemon"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ddevil daemon and watch a directory",
	RunE:  runStart,
}

func init() {
	flags := startCmd.Flags()
	flags.String("watch-dir", "", "directory to watch for sequence files")
	flags.String("working-dir", "", "directory for the index, lock and log files")
	flags.String("log-file", "", "daemon log file (defaults to ddevil.log in the working directory)")
	flags.Int("workers", config.DefaultNumWorkers, "number of sketching workers")
	flags.Int("k-size", config.DefaultKSize, "k-mer size")
	flags.Int("sketch-size", config.DefaultSketchSize, "number of minimums per sketch")
	flags.Float64("fp-rate", config.DefaultBloomFPRate, "bloom filter false positive rate")
	flags.Int("max-elements", config.DefaultBloomMaxElements, "bloom filter capacity in elements")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyStartFlags(cmd, cfg); err != nil {
		return err
	}

	// The detached child skips straight to the daemon main loop; its
	// stderr is already attached to the log file.
	if daemon.IsChild() {
		log := ddevil.NewJSONLogger(os.Stderr, slog.LevelInfo)
		return daemon.Run(cfg, log)
	}

	// The lock file is the authoritative liveness signal; the running
	// flag alone can be left behind by a crashed daemon.
	if cfg.Running {
		lock, err := config.AcquirePidLock(filepath.Join(cfg.WorkingDir, daemon.LockFileName), os.Getpid())
		if errors.Is(err, config.ErrLocked) {
			return fmt.Errorf("a ddevil daemon already appears to be running (pid %d); run 'ddevil stop' first", cfg.Pid)
		}
		if err != nil {
			return err
		}
		if err := lock.Release(); err != nil {
			return err
		}
		cfg.Running = false
		cfg.Pid = -1
	}
	if err := cfg.Save(configFile); err != nil {
		return err
	}

	pid, err := daemon.Spawn(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("started the ddevil daemon (pid %d)\n", pid)
	fmt.Printf("\twatching: %s\n", cfg.WatchDir)
	fmt.Printf("\tlogging to: %s\n", cfg.LogFile)
	return nil
}

func applyStartFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("watch-dir") {
		cfg.WatchDir, _ = flags.GetString("watch-dir")
	}
	if flags.Changed("working-dir") {
		cfg.WorkingDir, _ = flags.GetString("working-dir")
	}
	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
	if flags.Changed("workers") {
		cfg.NumWorkers, _ = flags.GetInt("workers")
	}
	if flags.Changed("k-size") {
		cfg.KSize, _ = flags.GetInt("k-size")
	}
	if flags.Changed("sketch-size") {
		cfg.SketchSize, _ = flags.GetInt("sketch-size")
	}
	if flags.Changed("fp-rate") {
		cfg.BloomFPRate, _ = flags.GetFloat64("fp-rate")
	}
	if flags.Changed("max-elements") {
		cfg.BloomMaxElements, _ = flags.GetInt("max-elements")
	}

	if cfg.WatchDir == "" {
		return fmt.Errorf("a watch directory is required (--watch-dir)")
	}
	if cfg.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg.WorkingDir = wd
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.WorkingDir, "ddevil.log")
	}

	for _, dir := range []string{cfg.WatchDir, cfg.WorkingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create %s: %w", dir, err)
		}
	}
	return nil
}
