package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/respondeo/internal/models"
)

// ArtifactStorage is the storage collaborator contract for published
// output documents. Put returns a stable reference for the artifact.
type ArtifactStorage interface {
	Put(ctx context.Context, name string, content []byte, contentType string) (string, error)
	Get(ctx context.Context, name string) (*models.Artifact, error)
	List(ctx context.Context, prefix string) ([]*models.Artifact, error)
	Delete(ctx context.Context, name string) error

	// DeleteOlderThan removes artifacts created before the cutoff and
	// returns how many were removed. Used by the retention sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// KeyValueStorage holds small configuration values and API keys that
// should not live in the config file.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageManager owns the database connection and hands out the typed
// storage views. Close releases the underlying connection.
type StorageManager interface {
	ArtifactStorage() ArtifactStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
