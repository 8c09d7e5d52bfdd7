package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Manager owns the Badger connection and hands out the typed storage
// views.
type Manager struct {
	db        *BadgerDB
	artifacts *ArtifactStorage
	kv        *KVStorage
	logger    arbor.ILogger
}

// NewManager opens the database and wires the storage views.
func NewManager(config *common.BadgerConfig, logger arbor.ILogger) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:        db,
		artifacts: NewArtifactStorage(db, logger),
		kv:        NewKVStorage(db, logger),
		logger:    logger,
	}, nil
}

// ArtifactStorage returns the artifact storage view.
func (m *Manager) ArtifactStorage() interfaces.ArtifactStorage {
	return m.artifacts
}

// KeyValueStorage returns the key/value storage view.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage manager")
	return m.db.Close()
}
