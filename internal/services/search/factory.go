package search

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// NewSearchService creates the search backend selected by search.mode.
func NewSearchService(cfg *common.Config, logger arbor.ILogger) (interfaces.SearchService, error) {
	logger.Info().Str("mode", cfg.Search.Mode).Msg("Initializing search service")

	switch cfg.Search.Mode {
	case "elastic":
		return NewElasticService(&cfg.Search, logger)
	case "bleve":
		return NewBleveService(&cfg.Search, logger)
	case "disabled":
		return NewDisabledService(logger), nil
	default:
		return nil, fmt.Errorf("unsupported search mode '%s': must be 'elastic', 'bleve', or 'disabled'", cfg.Search.Mode)
	}
}
