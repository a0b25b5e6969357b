package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddevil "github.com/will-rowe/ddevil"
	"github.com/will-rowe/ddevil/bigsi"
	"github.com/will-rowe/ddevil/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.WatchDir = t.TempDir()
	cfg.WorkingDir = t.TempDir()
	cfg.NumWorkers = 2

	// Small filters keep the freeze fast in tests.
	cfg.BloomMaxElements = 100
	cfg.BloomFPRate = 0.01
	cfg.KSize = 5
	cfg.SketchSize = 8
	return cfg
}

func (p *Pipeline) colours() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx.Colours()
}

func TestPipelineBuildsIndexFromWatchedFiles(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, ddevil.NoopLogger())
	require.NoError(t, err)
	assert.False(t, p.SearchMode())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	fasta := []byte(">A\nACGTGCATTTACGGATCC\n>B\nGGGTTTCCCAAATTTGGG\n")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WatchDir, "reads.fasta"), fasta, 0o644))

	// Wait for the workers to ingest both sequences.
	require.Eventually(t, func() bool { return p.colours() == 2 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	// Shutdown froze and persisted the index.
	idx, err := bigsi.Load(filepath.Join(cfg.WorkingDir, IndexDirName))
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, 2, idx.Colours())

	id, err := idx.LookupColour(0)
	require.NoError(t, err)
	assert.Equal(t, "A", id)
}

func TestPipelineLoadsExistingIndex(t *testing.T) {
	cfg := testConfig(t)

	// First run: build an index from one file.
	p, err := New(cfg, ddevil.NoopLogger())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	fasta := []byte(">ref\nACGTGCATTTACGGATCCAGATTACA\n")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WatchDir, "ref.fasta"), fasta, 0o644))
	require.Eventually(t, func() bool { return p.colours() == 1 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// Second run: the index is found and the pipeline flips to search mode.
	p2, err := New(cfg, ddevil.NoopLogger())
	require.NoError(t, err)
	assert.True(t, p2.SearchMode())

	ctx2, cancel2 := context.WithCancel(context.Background())
	done2 := make(chan error, 1)
	go func() { done2 <- p2.Run(ctx2) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WatchDir, "query.fasta"), fasta, 0o644))
	time.Sleep(200 * time.Millisecond)

	cancel2()
	select {
	case err := <-done2:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

func TestPipelineRejectsMismatchedConfig(t *testing.T) {
	cfg := testConfig(t)

	p, err := New(cfg, ddevil.NoopLogger())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WatchDir, "ref.fasta"),
		[]byte(">ref\nACGTGCATTTACGGATCC\n"), 0o644))
	require.Eventually(t, func() bool { return p.colours() == 1 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// A different Bloom geometry cannot serve the persisted index.
	cfg.BloomMaxElements = 5000
	_, err = New(cfg, ddevil.NoopLogger())
	assert.Error(t, err)
}
