package ddevil

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf, slog.LevelInfo)
	log.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, slog.LevelInfo)
	log.WithFile("reads.fasta").WithSeqID("A").Info("ingested")
	out := buf.String()
	assert.Contains(t, out, `"file":"reads.fasta"`)
	assert.Contains(t, out, `"seq_id":"A"`)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewTextLogger(&buf, slog.LevelWarn)
	log.Info("quiet")
	assert.Empty(t, buf.String())
	log.Warn("loud")
	assert.NotEmpty(t, buf.String())
}

func TestNoopLogger(t *testing.T) {
	// Must not panic and must not write anywhere visible.
	NoopLogger().WithColour(3).WithPid(1).Error("dropped")
}

func TestNewLoggerNilHandler(t *testing.T) {
	assert.NotNil(t, NewLogger(nil).Logger)
}
