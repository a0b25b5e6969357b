package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/will-rowe/ddevil/bigsi"
	"github.com/will-rowe/ddevil/config"
	"github.com/will-rowe/ddevil/internal/pipeline"
)

var infoPidOnly bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the daemon config and index details",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if infoPidOnly {
			fmt.Println(cfg.Pid)
			return nil
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))

		info, err := bigsi.ReadInfo(filepath.Join(cfg.WorkingDir, pipeline.IndexDirName))
		if err != nil {
			fmt.Println("no index found in the working directory")
			return nil
		}
		fmt.Printf("index: %d colours, %d bits, %d hashes (%s)\n",
			info.Colours, info.NumBits, info.NumHashes, info.Dir)
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoPidOnly, "pid", false, "print only the daemon pid")
	rootCmd.AddCommand(infoCmd)
}
