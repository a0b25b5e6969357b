package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/will-rowe/ddevil/config"
	"github.com/will-rowe/ddevil/sketch"
)

var sketchCmd = &cobra.Command{
	Use:   "sketch <file>",
	Short: "Sketch the sequences in a file and print the minimums",
	Args:  cobra.ExactArgs(1),
	RunE:  runSketch,
}

func init() {
	flags := sketchCmd.Flags()
	flags.Int("k-size", config.DefaultKSize, "k-mer size")
	flags.Int("sketch-size", config.DefaultSketchSize, "number of minimums per sketch")
	rootCmd.AddCommand(sketchCmd)
}

func runSketch(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("k-size")
	size, _ := cmd.Flags().GetInt("sketch-size")

	s, err := sketch.NewSketcher(k, size, config.DefaultBloomMaxElements, config.DefaultBloomFPRate)
	if err != nil {
		return err
	}

	records, err := sketch.ReadFile(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range records {
		_, minima, err := s.Sequence(rec.Seq)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", rec.ID, err)
			continue
		}
		entry := struct {
			ID     string   `json:"id"`
			KSize  int      `json:"k_size"`
			Sketch []uint64 `json:"sketch"`
		}{rec.ID, k, minima}
		if err := enc.Encode(&entry); err != nil {
			return err
		}
	}
	return nil
}
