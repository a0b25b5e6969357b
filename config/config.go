package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults for a fresh config record.
const (
	DefaultKSize            = 7
	DefaultSketchSize       = 128
	DefaultBloomFPRate      = 0.001
	DefaultBloomMaxElements = 100000
	DefaultNumWorkers       = 4
)

// ErrNilConfig is returned when a nil config is saved or loaded into.
var ErrNilConfig = errors.New("config: nil config")

// Config is the flat record shared between the CLI subcommands and the
// daemon. The daemon rewrites it at startup with its pid and running flag
// so later CLI invocations can find it.
type Config struct {
	ConfigFile       string  `json:"configFile"`
	WorkingDir       string  `json:"workingDirectory"`
	WatchDir         string  `json:"watchDirectory"`
	LogFile          string  `json:"logFile"`
	Pid              int     `json:"pid"`
	Running          bool    `json:"running"`
	KSize            int     `json:"k_size"`
	SketchSize       int     `json:"sketch_size"`
	BloomFPRate      float64 `json:"bloom_fp_rate"`
	BloomMaxElements int     `json:"bloom_max_elements"`
	NumWorkers       int     `json:"num_workers"`
}

// Default returns a config populated with the default parameters and no
// recorded daemon.
func Default() *Config {
	return &Config{
		Pid:              -1,
		KSize:            DefaultKSize,
		SketchSize:       DefaultSketchSize,
		BloomFPRate:      DefaultBloomFPRate,
		BloomMaxElements: DefaultBloomMaxElements,
		NumWorkers:       DefaultNumWorkers,
	}
}

// Load reads a config record from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: could not read %s: %w", path, err)
	}
	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: could not decode %s: %w", path, err)
	}
	c.ConfigFile = path
	return c, nil
}

// Save writes the config to path atomically (temp file, fsync, rename)
// and records path in the config itself.
func (c *Config) Save(path string) error {
	if c == nil {
		return ErrNilConfig
	}
	c.ConfigFile = path

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: could not encode: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("config: could not write %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("config: could not write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("config: could not sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: could not close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: could not commit %s: %w", path, err)
	}

	dir, err := os.Open(filepath.Dir(path))
	if err != nil {
		return nil
	}
	defer dir.Close()
	return dir.Sync()
}
