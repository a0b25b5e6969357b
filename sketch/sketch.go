package sketch

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/will-rowe/ddevil/bloom"
)

var (
	// ErrBadKSize is returned for a non-positive k-mer size.
	ErrBadKSize = errors.New("sketch: k-mer size must be positive")

	// ErrBadSketchSize is returned for a non-positive sketch size.
	ErrBadSketchSize = errors.New("sketch: sketch size must be positive")

	// ErrNoKmers is returned when a sequence yields no valid k-mers.
	ErrNoKmers = errors.New("sketch: sequence contains no valid k-mers")
)

// Sketcher turns sequences into bottom-k minhash sketches and Bloom
// filters with a fixed geometry, so every filter it produces is compatible
// with the same index.
type Sketcher struct {
	k          int
	sketchSize int
	numBits    int
	numHashes  int
}

// NewSketcher creates a Sketcher for k-mers of size k, sketches of
// sketchSize minima, and Bloom filters sized for maxElements keys at
// fpRate.
func NewSketcher(k, sketchSize, maxElements int, fpRate float64) (*Sketcher, error) {
	if k <= 0 {
		return nil, ErrBadKSize
	}
	if sketchSize <= 0 {
		return nil, ErrBadSketchSize
	}
	probe, err := bloom.NewWithEstimates(maxElements, fpRate)
	if err != nil {
		return nil, err
	}
	return &Sketcher{
		k:          k,
		sketchSize: sketchSize,
		numBits:    probe.NumBits(),
		numHashes:  probe.NumHashes(),
	}, nil
}

// K returns the k-mer size.
func (s *Sketcher) K() int { return s.k }

// SketchSize returns the number of minima retained per sketch.
func (s *Sketcher) SketchSize() int { return s.sketchSize }

// NumBits returns the Bloom filter size produced by this Sketcher.
func (s *Sketcher) NumBits() int { return s.numBits }

// NumHashes returns the Bloom hash count produced by this Sketcher.
func (s *Sketcher) NumHashes() int { return s.numHashes }

// Sequence sketches one sequence and returns the Bloom filter holding the
// sketch minima, plus the minima themselves.
func (s *Sketcher) Sequence(seq []byte) (*bloom.Filter, []uint64, error) {
	mh := NewMinHash(s.sketchSize)
	kmerHashes(seq, s.k, mh.Add)
	if mh.Len() == 0 {
		return nil, nil, ErrNoKmers
	}

	f, err := bloom.New(s.numBits, s.numHashes)
	if err != nil {
		return nil, nil, err
	}
	minima := mh.Values()
	for _, hv := range minima {
		f.Add(keyBytes(hv))
	}
	return f, minima, nil
}

// File sketches every sequence in a FASTA/FASTQ file and returns a map of
// sequence ID to Bloom filter plus the sequence count. Sequence IDs must
// be unique within the file.
func (s *Sketcher) File(path string) (map[string]*bloom.Filter, int, error) {
	records, err := ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	id2bf := make(map[string]*bloom.Filter, len(records))
	for _, rec := range records {
		if _, ok := id2bf[rec.ID]; ok {
			return nil, 0, fmt.Errorf("sketch: duplicate sequence ID in %s (%s)", path, rec.ID)
		}
		f, _, err := s.Sequence(rec.Seq)
		if err != nil {
			return nil, 0, fmt.Errorf("sketch: could not sketch %s: %w", rec.ID, err)
		}
		id2bf[rec.ID] = f
	}
	return id2bf, len(id2bf), nil
}

// QueryHashes derives the index query hash values for one sketch minimum.
// It uses the same derivation as Bloom filter insertion, so a minimum
// queried against an index built by this Sketcher probes the same rows its
// filter set.
func (s *Sketcher) QueryHashes(minimum uint64) []uint64 {
	return bloom.HashValues(keyBytes(minimum), s.numHashes)
}

func keyBytes(hv uint64) []byte {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], hv)
	return key[:]
}
