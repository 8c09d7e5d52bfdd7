package badger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/respondeo/internal/models"
)

// ArtifactStorage persists published response documents keyed by
// artifact name.
type ArtifactStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArtifactStorage creates an artifact storage backed by BadgerDB
func NewArtifactStorage(db *BadgerDB, logger arbor.ILogger) *ArtifactStorage {
	return &ArtifactStorage{db: db, logger: logger}
}

// Put stores an artifact, overwriting any existing one with the same
// name, and returns the name as the stable reference.
func (s *ArtifactStorage) Put(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("artifact name cannot be empty")
	}

	artifact := &models.Artifact{
		Name:        name,
		ContentType: contentType,
		Size:        len(content),
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.db.Store().Upsert(name, artifact); err != nil {
		return "", fmt.Errorf("failed to store artifact %s: %w", name, err)
	}

	s.logger.Debug().
		Str("name", name).
		Str("content_type", contentType).
		Int("size", len(content)).
		Msg("Artifact stored")
	return name, nil
}

// Get retrieves an artifact by name.
func (s *ArtifactStorage) Get(ctx context.Context, name string) (*models.Artifact, error) {
	var artifact models.Artifact
	if err := s.db.Store().Get(name, &artifact); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("artifact %s not found", name)
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", name, err)
	}
	return &artifact, nil
}

// List returns artifacts whose name carries the prefix, newest first.
// Content is cleared so listings stay cheap.
func (s *ArtifactStorage) List(ctx context.Context, prefix string) ([]*models.Artifact, error) {
	var all []models.Artifact
	if err := s.db.Store().Find(&all, badgerhold.Where("Name").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	artifacts := make([]*models.Artifact, 0, len(all))
	for i := range all {
		if prefix != "" && !strings.HasPrefix(all[i].Name, prefix) {
			continue
		}
		entry := all[i]
		entry.Content = nil
		artifacts = append(artifacts, &entry)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// Delete removes an artifact by name.
func (s *ArtifactStorage) Delete(ctx context.Context, name string) error {
	if err := s.db.Store().Delete(name, &models.Artifact{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("artifact %s not found", name)
		}
		return fmt.Errorf("failed to delete artifact %s: %w", name, err)
	}
	return nil
}

// DeleteOlderThan removes artifacts created before the cutoff and
// returns how many were removed.
func (s *ArtifactStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []models.Artifact
	if err := s.db.Store().Find(&stale, badgerhold.Where("CreatedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find stale artifacts: %w", err)
	}

	deleted := 0
	for i := range stale {
		if err := s.db.Store().Delete(stale[i].Name, &models.Artifact{}); err != nil {
			s.logger.Warn().Err(err).Str("name", stale[i].Name).Msg("Failed to delete stale artifact")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info().
			Int("deleted", deleted).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Stale artifacts removed")
	}
	return deleted, nil
}
