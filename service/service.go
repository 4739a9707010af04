package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dnldd/impulse/api"
	"github.com/dnldd/impulse/chart"
	"github.com/dnldd/impulse/database"
	"github.com/dnldd/impulse/fetch"
	"github.com/dnldd/impulse/metrics"
	"github.com/dnldd/impulse/params"
	"github.com/dnldd/impulse/shared"
	"github.com/dnldd/impulse/tracing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// Market data sources.
const (
	FMPSource     = "fmp"
	PolygonSource = "polygon"
	FileSource    = "file"
)

// Sources lists the supported market data sources.
var Sources = []string{FMPSource, PolygonSource, FileSource}

// Version is the service version.
const Version = "0.1.0"

// ServiceConfig represents the configuration struct for the impulse service.
type ServiceConfig struct {
	// Markets represents the screened watchlist.
	Markets []string
	// Source is the market data source.
	Source string
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// PolygonAPIKey is the polygon service API key.
	PolygonAPIKey string
	// HistoricDataFilePath is the filepath to historic data served by the file source.
	HistoricDataFilePath string
	// CachePath is the sqlite bar cache path, no caching when empty.
	CachePath string
	// ParamsFilePath is the parameter file path.
	ParamsFilePath string
	// DBEndpoint is the rqlite endpoint, no persistence when empty.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// HTTPAddr is the address the api listens on.
	HTTPAddr string
	// Schedule is the screener cron expression.
	Schedule string
	// Tracing enables span export to stdout.
	Tracing bool
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *ServiceConfig) Validate() error {
	var errs error

	if !slices.Contains(Sources, cfg.Source) {
		errs = errors.Join(errs, fmt.Errorf("unknown source '%s', available sources: %v", cfg.Source, Sources))
	}
	switch cfg.Source {
	case FMPSource:
		if cfg.FMPAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
		}
	case PolygonSource:
		if cfg.PolygonAPIKey == "" {
			errs = errors.Join(errs, fmt.Errorf("polygon api key cannot be an empty string"))
		}
	case FileSource:
		if cfg.HistoricDataFilePath == "" {
			errs = errors.Join(errs, fmt.Errorf("historic data filepath cannot be an empty string"))
		}
	}
	if cfg.ParamsFilePath == "" {
		errs = errors.Join(errs, fmt.Errorf("params filepath cannot be an empty string"))
	}
	if cfg.HTTPAddr == "" {
		errs = errors.Join(errs, fmt.Errorf("http address cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Service represents the impulse indicator and scoring service.
type Service struct {
	cfg      *ServiceConfig
	cache    *fetch.Cache
	db       *database.Database
	tracer   *tracing.Tracer
	analyzer *Analyzer
	screener *Screener
	server   *api.Server
	logger   *zerolog.Logger
	wg       sync.WaitGroup
}

// newFetcher creates the configured market data source.
func newFetcher(cfg *ServiceConfig, loc *time.Location, logger *zerolog.Logger) (shared.SeriesFetcher, error) {
	fetcherLogger := logger.With().Str("component", cfg.Source).Logger()

	switch cfg.Source {
	case FMPSource:
		return fetch.NewFMPClient(&fetch.FMPConfig{
			APIKey:   cfg.FMPAPIKey,
			Location: loc,
			Logger:   &fetcherLogger,
		}), nil

	case PolygonSource:
		return fetch.NewPolygonClient(&fetch.PolygonConfig{
			APIKey:   cfg.PolygonAPIKey,
			Location: loc,
			Logger:   &fetcherLogger,
		}), nil

	case FileSource:
		return fetch.NewHistoricData(&fetch.HistoricDataConfig{
			FilePath: cfg.HistoricDataFilePath,
			Location: loc,
			Logger:   &fetcherLogger,
		})

	default:
		return nil, fmt.Errorf("unknown source '%s'", cfg.Source)
	}
}

// NewService initializes a new impulse service.
func NewService(ctx context.Context, cfg *ServiceConfig) (*Service, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "impulse").Logger()

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		return nil, fmt.Errorf("fetching new york time: %v", err)
	}

	fetcher, err := newFetcher(cfg, loc, &logger)
	if err != nil {
		return nil, fmt.Errorf("creating %s fetcher: %v", cfg.Source, err)
	}

	var cache *fetch.Cache
	if cfg.CachePath != "" {
		cacheLogger := logger.With().Str("component", "cache").Logger()
		cache, err = fetch.NewCache(&fetch.CacheConfig{
			Path:     cfg.CachePath,
			Fetcher:  fetcher,
			Location: loc,
			Logger:   &cacheLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating bar cache: %v", err)
		}
		fetcher = cache
	}

	storeLogger := logger.With().Str("component", "params").Logger()
	store, err := params.NewStore(&params.StoreConfig{
		Path:   cfg.ParamsFilePath,
		Logger: &storeLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating params store: %v", err)
	}

	var db *database.Database
	var reports database.ReportStorer
	var snapshots database.ParamsStorer
	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %v", err)
		}
		reports, snapshots = db, db

		current := store.Params()
		latest, ok, err := db.LatestParams(ctx)
		switch {
		case err != nil:
			logger.Error().Msgf("fetching latest parameter snapshot: %v", err)
		case !ok || latest != current:
			err = db.PersistParams(ctx, current)
			if err != nil {
				logger.Error().Msgf("snapshotting parameters: %v", err)
			}
		}
	}

	tracer, err := tracing.NewTracer(&tracing.TracerConfig{
		Enabled: cfg.Tracing,
		Version: Version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tracer: %v", err)
	}

	m := metrics.NewMetrics()

	rendererLogger := logger.With().Str("component", "chart").Logger()
	renderer := chart.NewRenderer(&chart.RendererConfig{Logger: &rendererLogger})

	analyzerLogger := logger.With().Str("component", "analyzer").Logger()
	analyzer, err := NewAnalyzer(&AnalyzerConfig{
		Fetcher:  fetcher,
		Params:   store,
		Renderer: renderer,
		Metrics:  m,
		Tracer:   tracer,
		Logger:   &analyzerLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating analyzer: %v", err)
	}

	var screener *Screener
	var history api.History
	if len(cfg.Markets) > 0 {
		screenerLogger := logger.With().Str("component", "screener").Logger()
		screener, err = NewScreener(&ScreenerConfig{
			Markets:  cfg.Markets,
			Schedule: cfg.Schedule,
			Review:   analyzer.Review,
			Reports:  reports,
			Metrics:  m,
			Location: loc,
			Logger:   &screenerLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating screener: %v", err)
		}
		history = screener
	}

	serverLogger := logger.With().Str("component", "api").Logger()
	server, err := api.NewServer(&api.ServerConfig{
		Address:         cfg.HTTPAddr,
		Analyzer:        analyzer,
		Params:          store,
		ParamsSnapshots: snapshots,
		Reports:         reports,
		History:         history,
		Metrics:         m.Handler(),
		Logger:          &serverLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating api server: %v", err)
	}

	service := &Service{
		cfg:      cfg,
		cache:    cache,
		db:       db,
		tracer:   tracer,
		analyzer: analyzer,
		screener: screener,
		server:   server,
		logger:   &logger,
	}

	return service, nil
}

// Run handles the lifecycle processes of the impulse service.
func (s *Service) Run(ctx context.Context) {
	if s.screener != nil {
		s.wg.Add(1)
		go func() {
			s.screener.Run(ctx)
			s.wg.Done()
		}()

		// Screen the watchlist once at startup.
		s.screener.ScreenAll()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.server.Run(ctx)
		if err != nil {
			s.logger.Error().Msgf("running api server: %v", err)
			s.cfg.Cancel()
		}
	}()

	s.wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second*5)
	defer cancel()

	err := s.tracer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Error().Msgf("shutting down tracer: %v", err)
	}

	if s.cache != nil {
		err = s.cache.Close()
		if err != nil {
			s.logger.Error().Msgf("closing bar cache: %v", err)
		}
	}

	if s.screener != nil {
		reviewed, failed := s.screener.Stats()
		s.logger.Info().Msgf("impulse service stopped, %d reviews, %d failed", reviewed, failed)
	}
}
