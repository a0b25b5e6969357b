package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	ddevil "github.com/will-rowe/ddevil"
	"github.com/will-rowe/ddevil/bigsi"
	"github.com/will-rowe/ddevil/bitvector"
	"github.com/will-rowe/ddevil/config"
	"github.com/will-rowe/ddevil/sketch"
)

// IndexDirName is the index directory inside the daemon's working directory.
const IndexDirName = "index"

// watcherEventsPerSec bounds how fast filesystem notifications reach the
// worker pool.
const watcherEventsPerSec = 50

// Pipeline binds the directory watcher to the worker pool. Each watched
// sequence file becomes a task: in build mode the file's sketches are added
// to an index under construction, in search mode they are queried against
// the loaded index.
type Pipeline struct {
	cfg      *config.Config
	log      *ddevil.Logger
	sketcher *sketch.Sketcher

	pool    *WorkerPool
	watcher *Watcher

	// mu serialises Add calls; the index build is single-threaded by
	// contract even though tasks run on many workers.
	mu         sync.Mutex
	idx        *bigsi.BIGSI
	searchMode bool
}

// New prepares a pipeline. If an index already exists in the working
// directory it is loaded and the pipeline runs in search mode; otherwise a
// fresh index is started and watched files are ingested into it.
func New(cfg *config.Config, log *ddevil.Logger) (*Pipeline, error) {
	sketcher, err := sketch.NewSketcher(cfg.KSize, cfg.SketchSize, cfg.BloomMaxElements, cfg.BloomFPRate)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		log:      log,
		sketcher: sketcher,
	}

	indexDir := filepath.Join(cfg.WorkingDir, IndexDirName)
	if _, err := os.Stat(filepath.Join(indexDir, bigsi.MetadataFileName)); err == nil {
		idx, err := bigsi.Load(indexDir)
		if err != nil {
			return nil, err
		}
		if idx.NumBits() != sketcher.NumBits() || idx.NumHashes() != sketcher.NumHashes() {
			idx.Close()
			return nil, fmt.Errorf("pipeline: config sketch parameters do not match the existing index (%d bits/%d hashes vs %d/%d)",
				sketcher.NumBits(), sketcher.NumHashes(), idx.NumBits(), idx.NumHashes())
		}
		p.idx = idx
		p.searchMode = true
		log.Info("loaded existing index", "dir", indexDir, "colours", idx.Colours())
		return p, nil
	}

	idx, err := bigsi.New(sketcher.NumBits(), sketcher.NumHashes(), indexDir)
	if err != nil {
		return nil, err
	}
	p.idx = idx
	log.Info("starting new index", "dir", indexDir)
	return p, nil
}

// SearchMode reports whether the pipeline queries an existing index rather
// than building one.
func (p *Pipeline) SearchMode() bool { return p.searchMode }

// Run watches the configured directory and processes events until ctx is
// cancelled, then drains the pool and finalises the index.
func (p *Pipeline) Run(ctx context.Context) error {
	watcher, err := NewWatcher(p.cfg.WatchDir, watcherEventsPerSec)
	if err != nil {
		return err
	}
	p.watcher = watcher
	p.pool = NewWorkerPool(p.cfg.NumWorkers)
	p.log.Info("pipeline running",
		"watch_dir", p.cfg.WatchDir,
		"workers", p.cfg.NumWorkers,
		"search_mode", p.searchMode,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(ctx, p.enqueue)
	})
	runErr := g.Wait()

	// Shutdown order: stop the event source, drain in-flight work, then
	// finalise the index.
	if err := p.watcher.Close(); err != nil {
		p.log.Error("could not close the directory watcher", "error", err)
	}
	p.pool.Wait()
	p.pool.Close()

	if err := p.finalise(); err != nil {
		p.log.Error("could not finalise the index", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// enqueue hands a watched file to the pool.
func (p *Pipeline) enqueue(path string) {
	err := p.pool.Submit(func() {
		if p.searchMode {
			p.search(path)
		} else {
			p.ingest(path)
		}
	})
	if err != nil {
		p.log.WithFile(path).Warn("dropping event, pool is shutting down")
	}
}

// ingest sketches every sequence in a file and adds the resulting Bloom
// filters to the index under construction. A failure is logged but does
// not bring the pipeline down.
func (p *Pipeline) ingest(path string) {
	log := p.log.WithFile(path)

	id2bf, n, err := p.sketcher.File(path)
	if err != nil {
		log.Error("could not sketch file", "error", err)
		return
	}

	p.mu.Lock()
	err = p.idx.Add(id2bf, n)
	colours := p.idx.Colours()
	p.mu.Unlock()
	if err != nil {
		log.Error("could not add sketches to index", "error", err)
		return
	}
	log.Info("file ingested", "sequences", n, "colours", colours)
}

// search queries every sequence in a file against the loaded index and
// logs the matching colours with their hit counts.
func (p *Pipeline) search(path string) {
	log := p.log.WithFile(path)

	records, err := sketch.ReadFile(path)
	if err != nil {
		log.Error("could not read file", "error", err)
		return
	}

	for _, rec := range records {
		recLog := log.WithSeqID(rec.ID)
		_, minima, err := p.sketcher.Sequence(rec.Seq)
		if err != nil {
			recLog.Warn("could not sketch sequence", "error", err)
			continue
		}

		matches := roaring.New()
		hits := make(map[uint32]int)
		for _, m := range minima {
			result := bitvector.New(p.idx.Colours())
			if err := p.idx.Query(p.sketcher.QueryHashes(m), result); err != nil {
				recLog.Error("query failed", "error", err)
				break
			}
			for colour := 0; colour < result.Capacity(); colour++ {
				if set, _ := result.Get(colour); set {
					matches.Add(uint32(colour))
					hits[uint32(colour)]++
				}
			}
		}

		if matches.IsEmpty() {
			recLog.Debug("no index matches", "sketch_size", len(minima))
			continue
		}
		it := matches.Iterator()
		for it.HasNext() {
			colour := it.Next()
			seqID, err := p.idx.LookupColour(int(colour))
			if err != nil {
				recLog.Error("could not resolve colour", "colour", colour, "error", err)
				continue
			}
			recLog.Info("index match",
				"match", seqID,
				"colour", colour,
				"hits", hits[colour],
				"sketch_size", len(minima),
			)
		}
	}
}

// finalise freezes a built index so it persists, or just closes a loaded
// one. An empty build is discarded.
func (p *Pipeline) finalise() error {
	if p.idx == nil {
		return nil
	}
	if !p.searchMode && p.idx.Colours() > 0 {
		if err := p.idx.Index(); err != nil {
			p.idx.Close()
			return err
		}
		p.log.Info("index built", "colours", p.idx.Colours(), "dir", p.idx.Dir())
	}
	return p.idx.Close()
}
