package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/handlers"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/pipeline"
	"github.com/ternarybob/respondeo/internal/services/llm"
	"github.com/ternarybob/respondeo/internal/services/retention"
	"github.com/ternarybob/respondeo/internal/services/search"
	"github.com/ternarybob/respondeo/internal/storage/badger"
)

// App holds the wired application: configuration, storage, the
// external collaborators and the pipeline, plus the HTTP handlers the
// server mounts.
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager
	Search  interfaces.SearchService
	LLM     interfaces.LLMService

	Pipeline  interfaces.Pipeline
	Hub       *handlers.ProgressHub
	DDQ       *handlers.DDQHandler
	Documents *handlers.DocumentHandler
	Health    *handlers.HealthHandler

	sweeper *retention.Sweeper
}

// New wires the application bottom-up: storage, search, LLM, then the
// pipeline and its handlers. Partially constructed collaborators are
// closed on failure.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	storageManager, err := badger.NewManager(&cfg.Storage.Badger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = storageManager

	searchService, err := search.NewSearchService(cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize search service: %w", err)
	}
	a.Search = searchService

	llmService, err := llm.NewLLMService(cfg, storageManager.KeyValueStorage(), logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.LLM = llmService

	a.Hub = handlers.NewProgressHub(logger)
	a.Pipeline = pipeline.NewRunner(cfg, a.Search, a.LLM, storageManager.ArtifactStorage(), a.Hub, logger)

	a.DDQ = handlers.NewDDQHandler(a.Pipeline, logger)
	a.Documents = handlers.NewDocumentHandler(storageManager.ArtifactStorage(), logger)
	a.Health = handlers.NewHealthHandler(a.Search, cfg.LLM.DefaultProvider, logger)

	if cfg.Retention.Enabled {
		sweeper, err := retention.NewSweeper(&cfg.Retention, storageManager.ArtifactStorage(), logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize retention sweeper: %w", err)
		}
		if err := sweeper.Start(cfg.Retention.Schedule); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start retention sweeper: %w", err)
		}
		a.sweeper = sweeper
	}

	logger.Info().
		Str("search_mode", cfg.Search.Mode).
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Bool("retention", cfg.Retention.Enabled).
		Msg("Application initialized")
	return a, nil
}

// Close releases collaborators in reverse initialization order.
func (a *App) Close() error {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.LLM != nil {
		if err := a.LLM.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
	if a.Search != nil {
		if err := a.Search.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close search service")
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
			return err
		}
	}
	return nil
}
