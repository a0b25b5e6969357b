package bigsi

import (
	"encoding/binary"
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"
)

// Store is an ordered key-value table with integer keys and opaque values.
// It is the persistence surface the index writes rows and colours through.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key uint32) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(key uint32, value []byte) error

	// Close flushes and releases the underlying file.
	Close() error
}

const storeBucket = "index"

// boltStore backs a Store with a single-bucket bbolt file. Keys are encoded
// big-endian so byte order matches integer order in the B-tree.
type boltStore struct {
	db *bolt.DB
}

// openStore opens (or, with create, creates) a bbolt-backed store at path.
// A freshly created store runs unsynced for bulk loading; Close syncs it.
func openStore(path string, create bool) (*boltStore, error) {
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("bigsi: store file not accessible: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("bigsi: could not open store %s: %w", path, err)
	}
	if create {
		db.NoSync = true
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists([]byte(storeBucket))
			return err
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("bigsi: could not create store bucket in %s: %w", path, err)
		}
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Get(key uint32) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(storeBucket))
		if b == nil {
			return fmt.Errorf("bigsi: store bucket missing")
		}
		v := b.Get(encodeKey(key))
		if v == nil {
			return fmt.Errorf("%w: %d", ErrKeyNotFound, key)
		}
		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *boltStore) Put(key uint32, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(storeBucket))
		if b == nil {
			return fmt.Errorf("bigsi: store bucket missing")
		}
		return b.Put(encodeKey(key), value)
	})
}

func (s *boltStore) Close() error {
	if s.db.NoSync {
		s.db.NoSync = false
		if err := s.db.Sync(); err != nil {
			s.db.Close()
			return fmt.Errorf("bigsi: store sync failed: %w", err)
		}
	}
	return s.db.Close()
}

func encodeKey(key uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], key)
	return k[:]
}
