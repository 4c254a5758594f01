package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"masterimage/internal/attachment"
	"masterimage/internal/config"
	"masterimage/internal/db"
	"masterimage/internal/files"
	"masterimage/internal/image"
	"masterimage/internal/ingest"
	"masterimage/internal/logging"
	"masterimage/internal/metrics"
	"masterimage/internal/records"
	"masterimage/internal/render"
	"masterimage/internal/services"
	"masterimage/internal/storage"
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	conn     *sql.DB
	cache    *files.TempCache
	registry *prometheus.Registry
	service  *services.ImageService
}

func newApp(ctx context.Context) (*app, error) {
	bootstrap := logging.Setup(os.Getenv("LOG_LEVEL"), "console", os.Stderr)
	cfg, err := config.Load(bootstrap)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	repo := records.NewRepository(conn)
	if err := repo.CheckSchema(ctx, &cfg.Storage); err != nil {
		conn.Close()
		return nil, err
	}

	cache, err := files.NewTempCache(cfg.TempDir, logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("temp cache: %w", err)
	}

	registry := prometheus.NewRegistry()
	engine := image.NewProcessor()
	fetcher := files.NewHTTPFetcher(&http.Client{}, cfg.Storage.MaxSourceBytes, logger)
	deps := attachment.Deps{
		Config:    &cfg.Storage,
		Store:     storage.New(&cfg.Storage),
		Ingestor:  ingest.NewIngestor(engine, fetcher, cfg.Storage.FetchTimeout, logger),
		Pipeline:  render.NewPipeline(engine, cfg.Storage.JPGQuality),
		TempCache: cache,
		Assets:    files.NewAssetLoader(cfg.Storage.BasePath),
		Metrics:   metrics.New(registry),
		Logger:    logger.With().Str("component", "attachment").Logger(),
	}

	logger.Debug().Str("db", cfg.DBPath).Str("format", string(cfg.Storage.StorageFormat)).
		Bool("blob", cfg.Storage.Columns.Blob).Int("workers", cfg.Workers).Msg("components ready")

	return &app{
		cfg:      cfg,
		logger:   logger,
		conn:     conn,
		cache:    cache,
		registry: registry,
		service:  services.NewImageService(deps, repo, cfg.Workers, logger),
	}, nil
}

func (a *app) Close() error {
	return a.conn.Close()
}

// logMetrics writes the counters collected during the command at debug level.
func (a *app) logMetrics() {
	if a.logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn().Err(err).Msg("gather metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			ev := a.logger.Debug().Str("metric", mf.GetName())
			for _, lp := range m.GetLabel() {
				ev = ev.Str(lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				ev = ev.Float64("value", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				ev = ev.Float64("value", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				ev = ev.Uint64("count", m.GetHistogram().GetSampleCount()).
					Float64("sum", m.GetHistogram().GetSampleSum())
			}
			ev.Msg("metric")
		}
	}
}
