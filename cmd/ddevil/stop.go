package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/will-rowe/ddevil/config"
	"github.com/will-rowe/ddevil/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running ddevil daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if !cfg.Running {
			return fmt.Errorf("no running daemon recorded in %s", configFile)
		}
		if err := daemon.Stop(cfg); err != nil {
			return err
		}
		fmt.Println("stopped the ddevil daemon")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
