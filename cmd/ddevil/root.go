package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	ddevil "github.com/will-rowe/ddevil"
	"github.com/will-rowe/ddevil/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "ddevil",
	Short: "ddevil indexes and searches sequence files with a BIGSI",
	Long: `ddevil watches a directory for sequence files, sketches them, and
maintains a BIt-sliced Genome Signature Index (BIGSI). While an index is
being built, watched files are ingested as new colours; once an index
exists, watched files are queried against it.`,
	Version:       ddevil.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfigPath(), "path to the ddevil config file")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ddevil.json"
	}
	return filepath.Join(home, ".ddevil.json")
}

// loadConfig reads the config file, or returns defaults if it does not
// exist yet.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		c := config.Default()
		c.ConfigFile = configFile
		return c, nil
	}
	return config.Load(configFile)
}
