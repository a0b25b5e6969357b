package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// sequenceSuffixes are the file endings the watcher reacts to.
var sequenceSuffixes = []string{
	".fasta", ".fa", ".fastq", ".fq",
	".fasta.gz", ".fa.gz", ".fastq.gz", ".fq.gz",
}

// Watcher turns filesystem notifications for one directory into file-path
// callbacks. Events are rate limited so a burst of notifications for the
// same write cannot flood the pool.
type Watcher struct {
	dir     string
	fsw     *fsnotify.Watcher
	limiter *rate.Limiter
}

// NewWatcher starts watching dir. eventsPerSec bounds the callback rate;
// a non-positive value disables limiting.
func NewWatcher(dir string, eventsPerSec float64) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("pipeline: could not create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("pipeline: could not watch %s: %w", dir, err)
	}

	limit := rate.Inf
	if eventsPerSec > 0 {
		limit = rate.Limit(eventsPerSec)
	}
	return &Watcher{
		dir:     dir,
		fsw:     fsw,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Run delivers events to handle until ctx is cancelled or the watcher
// fails. Only create and write events for sequence files are delivered.
func (w *Watcher) Run(ctx context.Context, handle func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isSequenceFile(event.Name) {
				continue
			}
			if !w.limiter.Allow() {
				continue
			}
			handle(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("pipeline: watcher error: %w", err)
		}
	}
}

// Close stops the watcher and releases its native resources.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func isSequenceFile(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range sequenceSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
