package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/will-rowe/ddevil/bigsi"
	"github.com/will-rowe/ddevil/config"
	"github.com/will-rowe/ddevil/internal/pipeline"
)

var shrinkCmd = &cobra.Command{
	Use:   "shrink",
	Short: "Compact the index store files",
	Long: `Shrink rewrites the index store files, dropping dead pages left
behind by the build. The daemon must be stopped first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if cfg.Running {
			return fmt.Errorf("the daemon is running (pid %d); stop it before shrinking", cfg.Pid)
		}

		indexDir := filepath.Join(cfg.WorkingDir, pipeline.IndexDirName)
		if err := bigsi.Compact(indexDir); err != nil {
			return err
		}
		fmt.Printf("compacted the index stores in %s\n", indexDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shrinkCmd)
}
