package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"podnews/internal/blob"
	"podnews/internal/config"
	"podnews/internal/publisher"
	"podnews/internal/scheduler"
	"podnews/internal/server"
	"podnews/internal/service"
	"podnews/internal/source"
	"podnews/internal/storage/postgres"
	"podnews/internal/tts"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	blobStore, err := blob.New(blob.Config{
		Endpoint:  cfg.Blob.Endpoint,
		AccessKey: cfg.Blob.AccessKey,
		SecretKey: cfg.Blob.SecretKey,
		UseSSL:    cfg.Blob.UseSSL,
	}, logger)
	if err != nil {
		logger.Error("failed to create blob store", "error", err)
		os.Exit(1)
	}

	gateway := tts.New(tts.Config{
		BaseURL:   cfg.TTS.BaseURL,
		APIKey:    cfg.TTS.APIKey,
		OutputURI: cfg.TTS.OutputURI,
		Timeout:   cfg.TTS.Timeout,
	}, logger)

	articleStore := postgres.NewArticleStore(db)
	sourceStore := postgres.NewSourceStore(db)
	audioStore := postgres.NewAudioFileStore(db)
	configStore := postgres.NewTtsConfigStore(db)
	txManager := postgres.NewTransactionManager(db)

	factory := source.NewFactory(source.ClientConfig{
		Timeout:        cfg.Fetch.HTTPTimeout,
		MaxAttempts:    cfg.Fetch.Retry.MaxAttempts,
		InitialBackoff: cfg.Fetch.Retry.InitialBackoff,
		MaxBackoff:     cfg.Fetch.Retry.MaxBackoff,
	}, logger)

	aggregator := service.NewAggregator(
		sourceStore,
		articleStore,
		factory,
		rabbitMQ,
		logger,
		cfg.Fetch.Concurrency,
	)

	audioService := service.NewAudioService(
		articleStore,
		audioStore,
		configStore,
		gateway,
		blobStore,
		rabbitMQ,
		logger,
	)

	configService := service.NewTtsConfigService(configStore, txManager, logger)

	sched := scheduler.NewScheduler(aggregator, cfg.Fetch.Interval, cfg.Fetch.HealthInterval, logger)

	srv := server.New(aggregator, audioService, configService, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler error", "error", err)
		}
	}()

	go func() {
		logger.Info("starting http server", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
