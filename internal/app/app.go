// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/zap"

	"github.com/fleetline/minutes-scanner/internal/clock/system"
	"github.com/fleetline/minutes-scanner/internal/config"
	"github.com/fleetline/minutes-scanner/internal/extract"
	collyfetcher "github.com/fleetline/minutes-scanner/internal/fetcher/colly"
	"github.com/fleetline/minutes-scanner/internal/id/uuid"
	memorypublisher "github.com/fleetline/minutes-scanner/internal/publisher/memory"
	pubsubpublisher "github.com/fleetline/minutes-scanner/internal/publisher/pubsub"
	"github.com/fleetline/minutes-scanner/internal/ratelimit"
	"github.com/fleetline/minutes-scanner/internal/scanner"
	"github.com/fleetline/minutes-scanner/internal/search"
	memorystore "github.com/fleetline/minutes-scanner/internal/store/memory"
	postgresstore "github.com/fleetline/minutes-scanner/internal/store/postgres"
)

// App holds the shared, long-lived services for the scanner. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	store        scanner.Store
	orchestrator *scanner.Orchestrator

	pgStore      *postgresstore.Store
	pubsubClient *gcppubsub.Client
}

// Store exposes the configured job/result store.
func (a *App) Store() scanner.Store {
	return a.store
}

// Orchestrator exposes the scan orchestrator.
func (a *App) Orchestrator() *scanner.Orchestrator {
	return a.orchestrator
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// New creates and initializes an App from configuration. It is the
// central point for service selection (store backend, search provider,
// PDF capability, completion publisher) and fails fast if any critical
// service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	switch cfg.Store.Provider {
	case "postgres":
		logger.Info("using postgres store")
		pg, err := postgresstore.New(ctx, postgresstore.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres store: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		a.pgStore = pg
		a.store = pg
	default:
		logger.Info("using in-memory store")
		a.store = memorystore.New()
	}

	var provider scanner.SearchProvider
	switch cfg.Search.Provider {
	case "noop":
		provider = search.NewNoop(logger)
	default:
		provider = search.NewDuckDuckGo(search.Config{
			Endpoint:  cfg.Search.Endpoint,
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		}, logger)
	}

	var pdfReader extract.PDFReader = extract.NoopPDF{}
	if cfg.PDF.Enabled {
		pdfReader = extract.LedongPDF{}
	} else {
		logger.Info("pdf extraction disabled, pdf documents will be skipped")
	}

	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	matcher, err := scanner.NewMatcher(cfg.Scanner.Keywords, scanner.MatcherConfig{
		ContextChars:    cfg.Scanner.SnippetContext,
		SnippetMaxLen:   cfg.Scanner.SnippetMaxLen,
		DateWindowChars: cfg.Scanner.DateWindowChars,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	urlFilter, err := scanner.NewURLFilter(cfg.Scanner.URLFilterTerms)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orchestrator = scanner.NewOrchestrator(
		a.store,
		provider,
		collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		}),
		extract.New(pdfReader),
		matcher,
		urlFilter,
		ratelimit.New(cfg.RequestDelay()),
		publisher,
		system.New(),
		uuid.New(),
		scanner.OrchestratorConfig{
			MaxSearchResults: cfg.Scanner.MaxSearchResults,
			MaxURLsPerCity:   cfg.Scanner.MaxURLsPerCity,
		},
		logger,
	)
	return a, nil
}

func (a *App) buildPublisher(ctx context.Context) (scanner.Publisher, error) {
	if !a.cfg.PubSub.Enabled {
		return memorypublisher.New(), nil
	}
	a.logger.Info("publishing completion events to Pub/Sub",
		zap.String("topic", a.cfg.PubSub.TopicID),
	)
	client, err := gcppubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("initialize pubsub client: %w", err)
	}
	a.pubsubClient = client
	return pubsubpublisher.New(client.Publisher(a.cfg.PubSub.TopicID)), nil
}

// Close releases long-lived resources.
func (a *App) Close() {
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("close pubsub client", zap.Error(err))
		}
	}
}
