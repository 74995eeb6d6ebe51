package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/flood-sensor-etl/internal/adapter/chrome"
	httpadapter "github.com/couchcryptid/flood-sensor-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-sensor-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flood-sensor-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/flood-sensor-etl/internal/adapter/tablefile"
	"github.com/couchcryptid/flood-sensor-etl/internal/config"
	"github.com/couchcryptid/flood-sensor-etl/internal/domain"
	"github.com/couchcryptid/flood-sensor-etl/internal/observability"
	"github.com/couchcryptid/flood-sensor-etl/internal/pipeline"
	"github.com/couchcryptid/flood-sensor-etl/internal/store"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	taxonomy, err := config.LoadTaxonomy(cfg.TaxonomyFile)
	if err != nil {
		logger.Error("failed to load taxonomy", "error", err)
		os.Exit(1)
	}
	logTaxonomy(logger, taxonomy)

	snapshots := store.New(taxonomy)
	p := pipeline.New(newRenderer(cfg, logger), domain.NewClassifier(taxonomy), snapshots, pipeline.Options{
		SourceURL:       cfg.SourceURL,
		ReadySelector:   cfg.ReadySelector,
		PageLoadTimeout: cfg.PageLoadTimeout,
		Interval:        cfg.PollInterval,
		RetryDelay:      cfg.RetryDelay,
		MaxAttempts:     cfg.RetryAttempts,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, snapshots, p, cfg.CORSAllowedOrigins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mirrors and recovery sources. Recovery prefers the archive over the file dump.
	var (
		sources []pipeline.SnapshotSource
		archive *sqlite.Archive
		pub     *kafkaadapter.Publisher
	)
	files := store.NewFileMirror(cfg.SnapshotJSONPath, cfg.RawCSVPath)
	if cfg.ArchivePath != "" {
		archive, err = sqlite.NewArchive(logger, cfg.ArchivePath, cfg.ArchiveMaxAge)
		if err != nil {
			logger.Error("snapshot archive disabled", "path", cfg.ArchivePath, "error", err)
		} else {
			sources = append(sources, archive)
			srv.AddComponent("archive", func(ctx context.Context) (string, error) {
				n, err := archive.Count(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%d snapshots archived", n), nil
			})
		}
	}
	sources = append(sources, files)

	if cfg.MirrorEnabled {
		p.AddMirror(files)
		if archive != nil {
			p.AddMirror(archive)
		}
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub = kafkaadapter.NewPublisher(cfg, logger)
		p.AddMirror(pub)
		logger.Info("kafka snapshot publishing enabled", "topic", cfg.KafkaTopic)
	}

	if _, ok := p.Recover(ctx, sources...); !ok {
		logger.Info("no persisted snapshot, serving empty snapshot until first cycle")
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start poller.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("poller error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("poller did not stop before shutdown timeout")
	}
	if archive != nil {
		if err := archive.Close(); err != nil {
			logger.Error("snapshot archive close error", "error", err)
		}
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func newRenderer(cfg *config.Config, logger *slog.Logger) pipeline.Renderer {
	if cfg.Renderer == config.RendererFile {
		logger.Info("using table fixture renderer", "path", cfg.RendererFixture)
		return tablefile.NewRenderer(cfg.RendererFixture)
	}
	return chrome.NewRenderer(cfg.ChromePath, logger)
}

func logTaxonomy(logger *slog.Logger, t *domain.Taxonomy) {
	attrs := make([]any, 0, 2*len(t.Categories())+2)
	shared := make(map[string]bool)
	for _, c := range t.Categories() {
		attrs = append(attrs, string(c.Name), len(c.Sensors))
		for _, id := range c.Sensors {
			if len(t.CategoriesOf(id)) > 1 {
				shared[strings.ToLower(id)] = true
			}
		}
	}
	attrs = append(attrs, "shared_sensors", len(shared))
	logger.Info("taxonomy loaded", attrs...)
}
