package bigsi

import (
	"fmt"
	"os"

	bolt "go.etcd.io/bbolt"
)

// Compact rewrites both store files in an index directory, copying live
// pages into fresh files and renaming them into place. Rows and colours
// are preserved byte for byte; only dead B-tree pages are shed. The index
// must not be open elsewhere while compacting.
func Compact(dir string) error {
	m, err := loadMetadata(dir)
	if err != nil {
		return err
	}
	for _, path := range []string{m.BitVectorsDB, m.ColoursDB} {
		if err := compactFile(path); err != nil {
			return err
		}
	}
	return nil
}

func compactFile(path string) error {
	src, err := bolt.Open(path, 0o644, &bolt.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("bigsi: could not open %s for compaction: %w", path, err)
	}
	defer src.Close()

	tmp := path + ".compact"
	dst, err := bolt.Open(tmp, 0o644, nil)
	if err != nil {
		return fmt.Errorf("bigsi: could not create %s: %w", tmp, err)
	}

	err = dst.Update(func(dtx *bolt.Tx) error {
		return src.View(func(stx *bolt.Tx) error {
			sb := stx.Bucket([]byte(storeBucket))
			if sb == nil {
				return fmt.Errorf("bigsi: store bucket missing in %s", path)
			}
			db, err := dtx.CreateBucketIfNotExists([]byte(storeBucket))
			if err != nil {
				return err
			}
			return sb.ForEach(func(k, v []byte) error {
				return db.Put(k, v)
			})
		})
	})
	if err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("bigsi: could not compact %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("bigsi: could not close %s: %w", tmp, err)
	}
	if err := src.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("bigsi: could not close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("bigsi: could not replace %s: %w", path, err)
	}
	return nil
}
