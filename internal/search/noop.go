package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/fleetline/minutes-scanner/internal/scanner"
)

// Noop is the provider used when web search is disabled or its
// dependency is unavailable. Every query degrades to an empty result
// set with a logged warning; a scan over a city list still completes.
type Noop struct {
	logger *zap.Logger
}

// NewNoop builds a Noop provider.
func NewNoop(logger *zap.Logger) *Noop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Noop{logger: logger}
}

// Search implements scanner.SearchProvider.
func (n *Noop) Search(_ context.Context, query string, _ int) ([]scanner.SearchHit, error) {
	n.logger.Warn("search provider disabled, returning empty results",
		zap.String("query", query),
	)
	return nil, nil
}
