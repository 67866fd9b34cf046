// Package server initializes and runs the receiver daemon. It wires the
// session feed, the content cache and reassembly pipeline, the snapshot
// store, the periodic reclaimer sweep and the metrics endpoint, and handles
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsbattig/share-things-sub002/internal/assembler"
	"github.com/jsbattig/share-things-sub002/internal/cache"
	"github.com/jsbattig/share-things-sub002/internal/cryptox"
	"github.com/jsbattig/share-things-sub002/internal/logging"
	"github.com/jsbattig/share-things-sub002/internal/models"
	"github.com/jsbattig/share-things-sub002/internal/progress"
	"github.com/jsbattig/share-things-sub002/internal/reclaimer"
	"github.com/jsbattig/share-things-sub002/internal/server/config"
	"github.com/jsbattig/share-things-sub002/internal/services"
	"github.com/jsbattig/share-things-sub002/internal/snapshot"
	"github.com/jsbattig/share-things-sub002/internal/storage/diskcache"
	"github.com/jsbattig/share-things-sub002/internal/storage/s3store"
	"github.com/jsbattig/share-things-sub002/internal/transport"
)

// passphraseEnv names the environment variable carrying the shared session
// passphrase. Interactive entry belongs to the CLI, not the daemon.
const passphraseEnv = "SHARETHINGS_PASSPHRASE"

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	if os.Getenv(passphraseEnv) == "" {
		return nil, fmt.Errorf("%s is not set", passphraseEnv)
	}

	return &App{config: c, logger: logger}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// logSink is the daemon's artifact presentation: text is logged, binary
// artifacts are referenced by their cache key. It doubles as the display
// tracker, so late fragments for content already presented are sweepable.
type logSink struct {
	mu        sync.Mutex
	presented map[string]struct{}
	logger    logging.Logger
}

func newLogSink(logger logging.Logger) *logSink {
	return &logSink{presented: make(map[string]struct{}), logger: logger}
}

func (s *logSink) Present(ctx context.Context, a *models.RenderedArtifact) error {
	s.mu.Lock()
	s.presented[a.ContentID] = struct{}{}
	s.mu.Unlock()

	if a.IsBinary() {
		s.logger.Info(ctx, "content received", "contentId", a.ContentID,
			"from", a.SenderName, "type", a.ContentType, "size", a.Size, "cacheKey", a.StorageKey)
	} else {
		s.logger.Info(ctx, "content received", "contentId", a.ContentID,
			"from", a.SenderName, "type", a.ContentType, "size", a.Size, "text", a.Text)
	}
	return nil
}

func (s *logSink) AllFragmentsProcessed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.presented[id]
	return ok
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	cfg := app.config
	logger := app.logger

	logger.Info(ctx, "starting receiver daemon", "sessionId", cfg.SessionID)
	app.initSignalHandler(cancelFunc)

	key := cryptox.DeriveSessionKey([]byte(os.Getenv(passphraseEnv)), []byte(cfg.SessionID))

	registry := prometheus.NewRegistry()

	var cacheOpts []cache.Option
	cacheOpts = append(cacheOpts, cache.WithMetrics(registry))
	if cfg.ReconcileIDs {
		cacheOpts = append(cacheOpts, cache.WithIDReconciliation())
	}
	contentCache, err := cache.NewContentCache(logger, cacheOpts...)
	if err != nil {
		return fmt.Errorf("cache init error: %w", err)
	}
	tracker := progress.NewTracker(contentCache, logger)

	blobs, err := diskcache.New(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("cache dir init error: %w", err)
	}

	s3, err := s3store.New(ctx, s3store.Config{
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
	})
	if err != nil {
		return fmt.Errorf("s3 init error: %w", err)
	}

	sink := newLogSink(logger)
	engine, err := assembler.NewEngine(contentCache, tracker,
		func() []byte { return key }, sink, blobs, logger,
		assembler.WithMetrics(registry))
	if err != nil {
		return fmt.Errorf("engine init error: %w", err)
	}

	rec, err := reclaimer.New(contentCache, tracker, sink, engine, logger,
		reclaimer.WithInterval(cfg.SweepInterval),
		reclaimer.WithMetrics(registry))
	if err != nil {
		return fmt.Errorf("reclaimer init error: %w", err)
	}

	snap, err := snapshot.Open(cfg.SnapshotPath, logger)
	if err != nil {
		return fmt.Errorf("snapshot init error: %w", err)
	}
	defer snap.Close()

	nc, err := nats.Connect(cfg.NATSURL, nats.Name("sharethings-"+cfg.SessionID))
	if err != nil {
		return fmt.Errorf("nats connect error: %w", err)
	}
	defer nc.Drain()

	sender := transport.NewSender(nc, cfg.SessionID, logger)

	service := services.NewContentService(uuid.NewString(), cfg.SenderName,
		contentCache, tracker, engine, rec, func() []byte { return key }, logger,
		services.WithSnapshot(snap),
		services.WithPublisher(sender),
		services.WithPresigner(s3))

	receiver := transport.NewReceiver(nc, cfg.SessionID, service, logger)
	if err := receiver.Start(ctx); err != nil {
		return fmt.Errorf("session subscribe error: %w", err)
	}
	defer receiver.Stop()

	if refetch, err := service.Restore(ctx); err != nil {
		logger.Warn(ctx, "snapshot restore failed", "error", err)
	} else if len(refetch) > 0 {
		logger.Info(ctx, "snapshot entries need refetch from session", "contentIds", refetch)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		rec.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.serveMetrics(ctx, registry)
	}()

	wg.Wait()
	logger.Info(ctx, "receiver daemon stopped")
	return nil
}

func (app *App) serveMetrics(ctx context.Context, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "metrics endpoint listening", "addr", app.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, "metrics server error", "error", err)
	}
}
