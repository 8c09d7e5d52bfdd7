package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// KVEntry is a stored key/value pair.
type KVEntry struct {
	Key       string `badgerhold:"key"`
	Value     string
	UpdatedAt time.Time
}

// KVStorage provides string key/value storage, used for API keys and
// small operational settings.
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a key/value storage backed by BadgerDB
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) *KVStorage {
	return &KVStorage{db: db, logger: logger}
}

// Get returns the value for a key, or empty string when absent.
func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var entry KVEntry
	if err := s.db.Store().Get(key, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set stores a value under a key, overwriting any existing value.
func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	entry := &KVEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.Store().Upsert(key, entry); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.Store().Delete(key, &KVEntry{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
