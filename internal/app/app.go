// Package app aggregates configuration and shared dependencies for the CLI
// commands, and hosts the long-running service loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"

	"price-notifier/internal/config"
	"price-notifier/internal/metrics"
	"price-notifier/internal/notify"
	"price-notifier/internal/pricesource"
	"price-notifier/internal/product"
	"price-notifier/internal/refresh"
	"price-notifier/internal/scheduler"
	"price-notifier/internal/server"
	"price-notifier/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config:  cfg,
		Logger:  logger.With().Str("component", "app").Logger(),
		Metrics: metrics.New(),
	}
}

func (a *App) newSourceClient() *pricesource.Client {
	return pricesource.NewClient(pricesource.Options{
		BaseURL:    a.Config.Source.BaseURL,
		SearchPath: a.Config.Source.SearchPath,
		DirectPath: a.Config.Source.DirectPath,
		Timeout:    a.Config.Source.RequestTimeout,
		UserAgent:  a.Config.Source.UserAgent,
	}, a.Metrics, a.Logger)
}

// newDispatcher builds the configured queue backend. The returned closer
// flushes pending deliveries and releases transport resources.
func (a *App) newDispatcher(ctx context.Context) (notify.Dispatcher, func(), error) {
	cfg := a.Config.Notifier
	switch cfg.Backend {
	case config.BackendKafka:
		dispatcher := notify.NewKafkaDispatcher(notify.KafkaOptions{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Topic,
		}, a.Metrics, a.Logger)
		closer := func() {
			if err := dispatcher.Close(); err != nil {
				a.Logger.Error().Err(err).Msg("closing kafka writer")
			}
		}
		return dispatcher, closer, nil

	case config.BackendPubSub:
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("create pub/sub client: %w", err)
		}
		topic := client.Topic(cfg.Topic)
		dispatcher := notify.NewPubSubDispatcher(topic, a.Metrics, a.Logger)
		closer := func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				a.Logger.Error().Err(err).Msg("closing pub/sub client")
			}
		}
		return dispatcher, closer, nil

	default:
		a.Logger.Warn().Msg("notifier.backend not configured; notifications go to the log")
		return notify.NewLogDispatcher(a.Metrics, a.Logger), func() {}, nil
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn is not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newRefresher(store *storage.Store, dispatcher notify.Dispatcher) *refresh.Refresher {
	return refresh.New(store, a.newSourceClient(), dispatcher, a.Metrics, a.Config.Refresh.BatchSize, a.Logger)
}

// Serve runs the HTTP API and, when enabled, the periodic refresh scheduler,
// until the context is cancelled or a termination signal arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	dispatcher, closeDispatcher, err := a.newDispatcher(ctx)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	refresher := a.newRefresher(store, dispatcher)
	products := product.NewService(store, a.newSourceClient(), a.Logger)

	srv := server.New(a.Config.Server, products, refresher, a.Metrics.Handler(), store.Ping, a.Logger)
	httpServer := srv.HTTPServer()

	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if a.Config.Scheduler.Enabled {
		sched := scheduler.New(scheduler.Options{
			Interval:     a.Config.Scheduler.Interval,
			StartupDelay: a.Config.Scheduler.StartupDelay,
		}, a.Logger)
		go sched.Run(ctx, refresher.Run)
	} else {
		a.Logger.Info().Msg("scheduler disabled; refresh runs only via the cron endpoint")
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownTimeout := a.Config.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("http server shutdown")
	}

	a.Logger.Info().Msg("service stopped")
	return nil
}

// RunBatch executes a single refresh batch and returns how many observations
// were processed.
func (a *App) RunBatch(ctx context.Context) (int, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return 0, err
	}
	defer closeStore()

	dispatcher, closeDispatcher, err := a.newDispatcher(ctx)
	if err != nil {
		return 0, err
	}
	defer closeDispatcher()

	return a.newRefresher(store, dispatcher).Run(ctx)
}

// ExportOptions hold parameters for exporting an observation's history.
type ExportOptions struct {
	ObservationID int64
	OwnerEmail    string
	PNGPath       string
	CSVPath       string
	MaxPoints     int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	ObservationID int64
	OwnerEmail    string
	Limit         int
}
