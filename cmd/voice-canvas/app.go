package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jclarke67/voice-canvas-scribe/internal/audio"
	"github.com/jclarke67/voice-canvas-scribe/internal/config"
	"github.com/jclarke67/voice-canvas-scribe/internal/database"
	"github.com/jclarke67/voice-canvas-scribe/internal/logging"
	"github.com/jclarke67/voice-canvas-scribe/internal/metrics"
	"github.com/jclarke67/voice-canvas-scribe/internal/notes"
	"github.com/jclarke67/voice-canvas-scribe/internal/server"
	"github.com/jclarke67/voice-canvas-scribe/internal/storage"
	"github.com/jclarke67/voice-canvas-scribe/internal/summary"
)

const shutdownTimeout = 10 * time.Second

// application holds the collaborators shared by every command.
type application struct {
	config     config.AppConfig
	logger     *zap.Logger
	store      storage.Store
	repository *notes.Repository
	scheduler  *summary.Scheduler
	realtime   *server.RealtimeDispatcher
	metrics    *metrics.Registry
}

func loadApplication(ctx context.Context) (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}

	app, err := newApplication(ctx, appConfig, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return app, nil
}

func newApplication(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (*application, error) {
	ids, err := notes.NewIDProvider(appConfig.IDKind)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, appConfig, ids, logger)
	if err != nil {
		return nil, err
	}
	gateway, err := storage.NewGateway(store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := metrics.NewRegistry()
	realtime := server.NewRealtimeDispatcher()
	repository, err := notes.Open(ctx, notes.RepositoryConfig{
		Gateway:    gateway,
		Clock:      time.Now,
		IDProvider: ids,
		Notifier:   notes.MultiNotifier(notes.NewLogNotifier(logger), realtime),
		Logger:     logger,
		Prober:     audio.NewDefaultProber(),
		Metrics:    registry,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	scheduler, err := summary.NewScheduler(summary.SchedulerConfig{
		Repository: repository,
		Settings:   summary.NewSettingsStore(gateway, summary.Settings{Enabled: appConfig.SummaryEnabled}),
		Clock:      time.Now,
		Location:   time.Local,
		Interval:   appConfig.SummaryInterval,
		Logger:     logger,
		Metrics:    registry,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &application{
		config:     appConfig,
		logger:     logger,
		store:      store,
		repository: repository,
		scheduler:  scheduler,
		realtime:   realtime,
		metrics:    registry,
	}, nil
}

func openStore(ctx context.Context, appConfig config.AppConfig, ids notes.IDProvider, logger *zap.Logger) (storage.Store, error) {
	switch appConfig.StorageDriver {
	case config.StorageDriverRedis:
		store, err := storage.NewRedisStore(ctx, appConfig.RedisURL, appConfig.RedisPrefix)
		if err != nil {
			return nil, err
		}
		logger.Info("redis store connected", zap.String("prefix", appConfig.RedisPrefix))
		return store, nil
	case config.StorageDriverSQLite:
		db, err := database.OpenSQLite(appConfig.DatabasePath, ids, logger)
		if err != nil {
			return nil, err
		}
		return storage.NewSQLStore(db)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", appConfig.StorageDriver)
	}
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func runServer(ctx context.Context) error {
	signalCtx, stop := signal.NotifyContext(contextOrBackground(ctx), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := loadApplication(signalCtx)
	if err != nil {
		return err
	}
	defer app.Close()

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Repository:        app.repository,
		Scheduler:         app.scheduler,
		Realtime:          app.realtime,
		Metrics:           app.metrics,
		Logger:            app.logger,
		AllowedOrigins:    app.config.AllowedOrigins,
		HeartbeatInterval: app.config.HeartbeatInterval,
	})
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(signalCtx)

	// Event streams end with groupCtx so Shutdown does not wait on them.
	httpServer := &http.Server{
		Addr:              app.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return groupCtx },
	}

	group.Go(func() error {
		return app.scheduler.Run(groupCtx)
	})

	group.Go(func() error {
		app.logger.Info("server starting", zap.String("address", app.config.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		app.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("server shutdown failed", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		app.logger.Error("service stopped with error", zap.Error(err))
		return err
	}
	app.logger.Info("service stopped")
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
