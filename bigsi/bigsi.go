package bigsi

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/will-rowe/ddevil/bitvector"
	"github.com/will-rowe/ddevil/bloom"
)

// MaxColours bounds the colour space. It is chosen so a colour always fits
// the 4-byte capacity field of the bit-vector encoding.
const MaxColours = 1<<31 - 1

// BIGSI is a bit-sliced signature index over a set of Bloom filters.
//
// Each added sequence is assigned a colour. Once Index has run, row i of
// the index is a bit vector across colours with bit c set iff colour c's
// Bloom filter has bit i set, so the rows selected by a query k-mer's hash
// values AND together into the set of matching colours.
//
// Build (Add) is single-threaded; queries after Index or Load are safe for
// concurrent readers.
type BIGSI struct {
	numBits   int
	numHashes int
	dir       string

	colourIterator int
	indexed        bool

	// Build-phase state, released at Index.
	idChecker   map[string]int
	buildRows   []*bitvector.BitVector
	colourTable []string

	// Open after Index or Load.
	rows    Store
	colours Store
}

// New creates an empty, unindexed BIGSI that will persist to dir.
func New(numBits, numHashes int, dir string) (*BIGSI, error) {
	if numBits <= 0 || numHashes <= 0 {
		return nil, fmt.Errorf("bigsi: bits and hashes must be positive (%d, %d)", numBits, numHashes)
	}
	return &BIGSI{
		numBits:   numBits,
		numHashes: numHashes,
		dir:       dir,
		idChecker: make(map[string]int),
	}, nil
}

// NumBits returns the Bloom filter size shared by every colour.
func (b *BIGSI) NumBits() int { return b.numBits }

// NumHashes returns the hash count shared by every colour.
func (b *BIGSI) NumHashes() int { return b.numHashes }

// Colours returns the number of colours assigned so far.
func (b *BIGSI) Colours() int { return b.colourIterator }

// Indexed reports whether Index has run.
func (b *BIGSI) Indexed() bool { return b.indexed }

// Dir returns the index storage directory.
func (b *BIGSI) Dir() string { return b.dir }

// Add assigns colours to the supplied sequence IDs and records their Bloom
// filter bit vectors for indexing. Colours are assigned in lexicographic
// order of sequence ID within the batch. expected must equal the batch
// size; a mismatch, a duplicate ID, or an empty or incompatible filter
// aborts the call. Colours accepted before the failure are retained, so a
// caller that cannot tolerate partial state should Close the BIGSI.
//
// Add must not be called concurrently, and not after Index.
func (b *BIGSI) Add(id2bf map[string]*bloom.Filter, expected int) error {
	if id2bf == nil {
		return ErrNilArgument
	}
	if b.indexed {
		return ErrIndexed
	}

	seqIDs := make([]string, 0, len(id2bf))
	for id := range id2bf {
		seqIDs = append(seqIDs, id)
	}
	sort.Strings(seqIDs)

	accepted := 0
	for _, seqID := range seqIDs {
		if _, ok := b.idChecker[seqID]; ok {
			return &DuplicateIDError{ID: seqID}
		}

		bf := id2bf[seqID]
		if bf == nil {
			return fmt.Errorf("%w: bloom filter for %s", ErrNilArgument, seqID)
		}
		if bf.Count() == 0 {
			return &EmptyFilterError{ID: seqID}
		}
		if bf.NumHashes() != b.numHashes || bf.NumBits() != b.numBits {
			return &IncompatibleFilterError{
				ID:         seqID,
				NumBits:    bf.NumBits(),
				NumHashes:  bf.NumHashes(),
				WantBits:   b.numBits,
				WantHashes: b.numHashes,
			}
		}
		if b.colourIterator+1 >= MaxColours {
			return ErrColourLimit
		}

		b.buildRows = append(b.buildRows, bf.BitVector().Clone())
		b.idChecker[seqID] = b.colourIterator
		b.colourTable = append(b.colourTable, seqID)
		b.colourIterator++
		accepted++
	}

	if accepted != expected {
		return &CountMismatchError{Expected: expected, Actual: accepted}
	}
	return nil
}

// Index transposes the recorded per-colour bit vectors into per-row bit
// vectors, persists rows and colours to the stores, and releases the build
// state. It runs exactly once; afterwards the BIGSI is queryable.
func (b *BIGSI) Index() error {
	if b.colourIterator < 1 {
		return ErrNoColours
	}
	if b.indexed {
		return ErrIndexed
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("bigsi: could not create index directory: %w", err)
	}
	rows, err := openStore(filepath.Join(b.dir, BitVectorsDBName), true)
	if err != nil {
		return err
	}
	colours, err := openStore(filepath.Join(b.dir, ColoursDBName), true)
	if err != nil {
		rows.Close()
		return err
	}
	b.rows = rows
	b.colours = colours

	// Pivot column-major build vectors into row-major index vectors, one
	// row at a time so the dense matrix is never held twice.
	for i := 0; i < b.numBits; i++ {
		row := bitvector.New(b.colourIterator)
		for colour := 0; colour < b.colourIterator; colour++ {
			set, err := b.buildRows[colour].Get(i)
			if err != nil {
				return fmt.Errorf("bigsi: could not access bit %d of colour %d: %w", i, colour, err)
			}
			if !set {
				continue
			}
			if err := row.Set(colour, true); err != nil {
				return fmt.Errorf("bigsi: could not set bit for colour %d in row %d: %w", colour, i, err)
			}
		}
		data, err := row.MarshalBinary()
		if err != nil {
			return fmt.Errorf("bigsi: could not serialise row %d: %w", i, err)
		}
		if err := b.rows.Put(uint32(i), data); err != nil {
			return fmt.Errorf("bigsi: could not store row %d: %w", i, err)
		}
	}

	// Sequence IDs are stored zero-terminated.
	for colour, seqID := range b.colourTable {
		value := append([]byte(seqID), 0)
		if err := b.colours.Put(uint32(colour), value); err != nil {
			return fmt.Errorf("bigsi: could not store colour %d -> %s: %w", colour, seqID, err)
		}
	}

	b.buildRows = nil
	b.colourTable = nil
	b.idChecker = nil
	b.indexed = true

	return b.check()
}

// Query fetches the index row for each hash value, ANDs the rows together
// and leaves the matching colours set in result. result must be an empty
// vector with capacity equal to the colour count. An annihilated AND chain
// returns early with an all-zero result and no error.
func (b *BIGSI) Query(hashValues []uint64, result *bitvector.BitVector) error {
	if hashValues == nil || result == nil {
		return ErrNilArgument
	}
	if !b.indexed {
		return ErrUnindexed
	}
	if len(hashValues) != b.numHashes {
		return &HashCountMismatchError{Expected: b.numHashes, Actual: len(hashValues)}
	}
	if result.Capacity() != b.colourIterator {
		return &CapacityMismatchError{Expected: b.colourIterator, Actual: result.Capacity()}
	}

	for i, hv := range hashValues {
		pos := uint32(hv % uint64(b.numBits))
		data, err := b.rows.Get(pos)
		if err != nil {
			return fmt.Errorf("bigsi: could not retrieve row %d: %w", pos, err)
		}
		row := bitvector.New(0)
		if err := row.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("bigsi: could not decode row %d: %w", pos, err)
		}

		// An empty row annihilates the AND chain.
		if row.Count() == 0 {
			result.Reset()
			return nil
		}

		if i == 0 {
			if err := bitvector.Or(result, row, result); err != nil {
				return fmt.Errorf("bigsi: could not merge row %d: %w", pos, err)
			}
			continue
		}
		if err := result.And(row); err != nil {
			return fmt.Errorf("bigsi: could not intersect row %d: %w", pos, err)
		}
		if result.Count() == 0 {
			return nil
		}
	}
	return nil
}

// LookupColour resolves a colour to the sequence ID it was assigned at
// build time.
func (b *BIGSI) LookupColour(colour int) (string, error) {
	if !b.indexed {
		return "", ErrUnindexed
	}
	if colour < 0 || colour >= b.colourIterator {
		return "", &ColourRangeError{Colour: colour, Colours: b.colourIterator}
	}
	value, err := b.colours.Get(uint32(colour))
	if err != nil {
		return "", fmt.Errorf("bigsi: could not retrieve colour %d: %w", colour, err)
	}
	if n := len(value); n > 0 && value[n-1] == 0 {
		value = value[:n-1]
	}
	return string(value), nil
}

// Close releases the BIGSI. Before Index it just drops the transient build
// state. After Index it persists the metadata sidecar and closes both
// stores, which flushes them to disk.
func (b *BIGSI) Close() error {
	if b == nil {
		return ErrNilArgument
	}
	if !b.indexed {
		b.buildRows = nil
		b.colourTable = nil
		b.idChecker = nil
		b.colourIterator = 0
		return nil
	}

	m := newMetadata(b.dir, b.numBits, b.numHashes, b.colourIterator)
	if err := m.save(); err != nil {
		return err
	}

	var firstErr error
	for _, s := range []Store{b.colours, b.rows} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.rows = nil
	b.colours = nil
	return firstErr
}

// Load opens an indexed BIGSI from dir. The metadata sidecar and both
// store files must be present and read/writable. The loaded index is
// checked with a probe query before being returned.
func Load(dir string) (*BIGSI, error) {
	m, err := loadMetadata(dir)
	if err != nil {
		return nil, err
	}

	for _, path := range []string{m.BitVectorsDB, m.ColoursDB} {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("bigsi: could not access index file: %w", err)
		}
		f.Close()
	}

	b := &BIGSI{
		numBits:        m.NumBits,
		numHashes:      m.NumHashes,
		dir:            dir,
		colourIterator: m.ColourIterator,
		indexed:        true,
	}
	rows, err := openStore(m.BitVectorsDB, false)
	if err != nil {
		return nil, err
	}
	colours, err := openStore(m.ColoursDB, false)
	if err != nil {
		rows.Close()
		return nil, err
	}
	b.rows = rows
	b.colours = colours

	if err := b.check(); err != nil {
		b.rows.Close()
		b.colours.Close()
		return nil, err
	}
	return b, nil
}

// check probes the highest rows of the store; any non-error query result,
// including an empty one, means the store is healthy.
func (b *BIGSI) check() error {
	hvs := make([]uint64, b.numHashes)
	for i := range hvs {
		hvs[i] = uint64(b.numBits - 1 - i)
	}
	result := bitvector.New(b.colourIterator)
	if err := b.Query(hvs, result); err != nil {
		return fmt.Errorf("bigsi: store check failed: %w", err)
	}
	return nil
}
