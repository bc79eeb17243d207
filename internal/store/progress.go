package store

import (
	"time"

	"github.com/modfetch/modfetch/internal/domain"
)

// Progress records are keyed (profile, target, filename) so switching game
// version or loader never reports entries from another target as done.

func progressPrefix(profileID string, target domain.Target) string {
	return profileID + "|" + target.Key() + "|"
}

// LoadProgress returns the set of filenames already materialized for the
// profile and target.
func (s *Store) LoadProgress(profileID string, target domain.Target) (map[string]bool, error) {
	done := make(map[string]bool)
	prefix := progressPrefix(profileID, target)
	err := s.scanPrefix(bucketProgress, prefix, func(key string, _ []byte) {
		done[key[len(prefix):]] = true
	})
	if err != nil {
		return nil, err
	}
	return done, nil
}

// MarkDone records a successful materialization. Idempotent: marking the
// same filename twice is a no-op.
func (s *Store) MarkDone(profileID string, target domain.Target, filename string) error {
	key := progressPrefix(profileID, target) + filename
	return s.set(bucketProgress, key, time.Now().UTC().Format(time.RFC3339))
}

// ResetProgress clears all progress for the profile and target.
func (s *Store) ResetProgress(profileID string, target domain.Target) error {
	return s.deletePrefix(bucketProgress, progressPrefix(profileID, target))
}
