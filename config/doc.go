// Package config holds the flat JSON record shared between the CLI and the
// daemon, plus the advisory lock file that marks a live daemon.
package config
