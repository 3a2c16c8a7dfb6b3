package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"museum-stream-backend/config"
	"museum-stream-backend/internal/api"
	"museum-stream-backend/internal/broker"
	"museum-stream-backend/internal/consumer"
	"museum-stream-backend/internal/db"
	"museum-stream-backend/internal/logging"
	"museum-stream-backend/internal/lookup"
	"museum-stream-backend/internal/notification"
	"museum-stream-backend/internal/router"
	"museum-stream-backend/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	var logFile string
	var seedRatings bool
	flag.StringVar(&logFile, "log_file", "", "write logs to this file instead of stderr")
	flag.StringVar(&logFile, "l", "", "shorthand for -log_file")
	flag.BoolVar(&seedRatings, "seed-ratings", false, "insert the default rating rows and exit")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		return 1
	}

	logger, logCloser, err := logging.New(cfg.Log, logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		return 1
	}
	defer logCloser.Close()
	logger.Info().Str("path", configPath).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Init(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		return 1
	}
	appStore := store.NewGormStore(gormDB)

	if seedRatings {
		inserted, err := appStore.SeedRatings(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("failed to seed ratings")
			db.Close(gormDB)
			return 1
		}
		logger.Info().Int64("inserted", inserted).Msg("rating reference data seeded")
		db.Close(gormDB)
		return 0
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Error().Err(err).Msg("failed to get sql.DB")
		return 1
	}

	ratings := lookup.NewRatingCache(appStore, cfg.Lookup.Refresh)
	var server *http.Server
	var pool *notification.WorkerPool

	var webpushOptions *webpush.Options
	var alerter router.Alerter
	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()
	if cfg.Push.Enabled {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, logger)
		pool.Start(poolCtx)
		alerter = pool
		logger.Info().Int("workers", cfg.WorkerPool.Size).Msg("staff alerts enabled")
	}

	client, err := broker.New(&cfg.Broker, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create broker client")
		db.Close(gormDB)
		return 1
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Strs("brokers", cfg.Broker.Brokers).Msg("no seed broker reachable yet")
	}
	cancelPing()

	// The consumer closes the pool last; HTTP requests and queued alerts still use it.
	dbCloser := &shutdownDB{DB: sqlDB, before: []func(){
		func() { shutdownServer(server, logger) },
		func() {
			if pool != nil {
				pool.Close()
				pool.Wait()
			}
		},
	}}

	svc := consumer.NewService(cfg, consumer.Deps{
		Source:  client,
		Router:  router.New(ratings, appStore, alerter),
		Ratings: ratings,
		DB:      dbCloser,
		Log:     logger,
		Echo:    echoWriter(cfg.Log),
	})

	if cfg.Server.Enabled {
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: api.NewRouter(&cfg.Server, appStore, ratings, svc, webpushOptions),
		}
		go func() {
			logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("HTTP server stopped")
			}
		}()
	}

	runErr := svc.Run(ctx)
	stopPool()

	if runErr != nil {
		logger.Error().Err(runErr).Msg("consumer exited with error")
		return 1
	}
	logger.Info().Msg("consumer stopped")
	return 0
}

// shutdownDB runs the before steps once, then closes the pool.
type shutdownDB struct {
	*sql.DB
	before []func()
}

func (d *shutdownDB) Close() error {
	for _, step := range d.before {
		step()
	}
	d.before = nil
	return d.DB.Close()
}

func shutdownServer(server *http.Server, logger zerolog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown")
	}
}

// echoWriter prints accepted records to stdout at info level and below.
func echoWriter(cfg config.LogConfig) io.Writer {
	if cfg.Level == "warn" || cfg.Level == "error" {
		return io.Discard
	}
	return os.Stdout
}
