// Package store persists artifact cache records and run progress in a
// BoltDB database under the cache directory. Both record families expose
// atomic single-key operations, so concurrent orchestrator workers never
// need cross-entry locking.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketArtifacts = []byte("artifacts")
	bucketProgress  = []byte("progress")
)

// Store implements the artifact cache and the progress tracker on BoltDB.
type Store struct {
	db  *bolt.DB
	dir string // cache root; artifacts live in dir/artifacts
}

// Open opens (or creates) the store under the given cache directory.
func Open(cacheDir string) (*Store, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(filepath.Join(cacheDir, "artifacts"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "modfetch.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketArtifacts, bucketProgress} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dir: cacheDir}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// artifactsDir returns the directory artifact files are linked into.
func (s *Store) artifactsDir() string {
	return filepath.Join(s.dir, "artifacts")
}

// === Generic helpers ===

func (s *Store) get(bucket []byte, key string, dest interface{}) bool {
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (s *Store) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *Store) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *Store) deletePrefix(bucket []byte, prefix string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) scanPrefix(bucket []byte, prefix string, fn func(key string, value []byte)) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			fn(string(k), v)
		}
		return nil
	})
}
