package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modfetch/modfetch/internal/domain"
)

// CacheRecord is a cached artifact: an entry in the artifacts bucket plus a
// verified file on disk.
type CacheRecord struct {
	Key       string          `json:"key"`
	Filename  string          `json:"filename"`
	Path      string          `json:"path"`
	Checksum  domain.Checksum `json:"checksum"`
	Target    string          `json:"target"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// CacheKey builds the cache key for an artifact. Records are scoped by the
// platform target: a hit for another target is never valid.
func CacheKey(id string, target domain.Target) string {
	return id + "|" + target.Key()
}

// GetArtifact returns the cache record for key, or domain.ErrCacheMiss.
// A record whose file is missing or no longer matches its checksum is
// removed and reported as a miss, so the cache self-heals.
func (s *Store) GetArtifact(key string, target domain.Target) (*CacheRecord, error) {
	var rec CacheRecord
	if !s.get(bucketArtifacts, key, &rec) {
		return nil, domain.ErrCacheMiss
	}
	if rec.Target != target.Key() {
		return nil, domain.ErrCacheMiss
	}

	data, err := os.ReadFile(rec.Path)
	if err != nil {
		s.evict(key, rec.Path)
		return nil, domain.ErrCacheMiss
	}
	if err := rec.Checksum.Verify(data); err != nil {
		s.evict(key, rec.Path)
		return nil, domain.ErrCacheMiss
	}

	return &rec, nil
}

// PutArtifact verifies data against the checksum and writes it into the
// cache. The artifact is written to a temporary file and only renamed into
// its addressable path after the checksum verifies and the bytes are synced,
// so a crash mid-write never leaves a corrupt entry visible.
func (s *Store) PutArtifact(key, filename string, target domain.Target, data []byte, sum domain.Checksum) (*CacheRecord, error) {
	if err := sum.Verify(data); err != nil {
		return nil, err
	}

	finalPath := filepath.Join(s.artifactsDir(), filename)

	tmp, err := os.CreateTemp(s.artifactsDir(), filename+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to link artifact into cache: %w", err)
	}

	rec := &CacheRecord{
		Key:       key,
		Filename:  filename,
		Path:      finalPath,
		Checksum:  sum,
		Target:    target.Key(),
		FetchedAt: time.Now(),
	}
	if err := s.set(bucketArtifacts, key, rec); err != nil {
		return nil, fmt.Errorf("failed to index artifact: %w", err)
	}

	return rec, nil
}

// InvalidateAll drops every cache record and artifact file.
func (s *Store) InvalidateAll() error {
	if err := s.deletePrefix(bucketArtifacts, ""); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.artifactsDir())
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			os.Remove(filepath.Join(s.artifactsDir(), e.Name()))
		}
	}
	return nil
}

// evict drops a corrupt or orphaned record. Errors are ignored; the next
// Get simply misses again.
func (s *Store) evict(key, path string) {
	s.delete(bucketArtifacts, key)
	if path != "" {
		os.Remove(path)
	}
}
