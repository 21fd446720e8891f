package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pricewatch/pricewatch/logging"
	"github.com/pricewatch/pricewatch/pkg/config"
	"github.com/pricewatch/pricewatch/pkg/database"
	"github.com/pricewatch/pricewatch/pkg/endpoint"
	"github.com/pricewatch/pricewatch/pkg/etl"
	"github.com/pricewatch/pricewatch/pkg/forecast"
	"github.com/pricewatch/pricewatch/pkg/marketconfig"
	"github.com/pricewatch/pricewatch/pkg/metrics"
	"github.com/pricewatch/pricewatch/pkg/parser"
	"github.com/pricewatch/pricewatch/pkg/repository"
	"github.com/pricewatch/pricewatch/pkg/scheduler"
	"github.com/pricewatch/pricewatch/pkg/service"
	httptransport "github.com/pricewatch/pricewatch/pkg/transport/http"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	viper.AutomaticEnv()

	cfg := config.LoadConfig()

	logger := logging.SetupLogger(cfg.LogFile)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db, err := database.NewDB(cfg.DatabaseURL, database.DefaultOptions(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(database.DefaultOptions().MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := marketconfig.NewLoader(db.DB, cfg.ConfigFilePath, cfg.RequiredFieldsFilePath, logger)
	snapshot, err := loader.Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load marketplace configuration", zap.Error(err))
	}
	logger.Info("Loaded marketplace configurations", zap.Strings("marketplaces", snapshot.Names()))

	parserOpts := parser.Options{
		FetchTimeout: cfg.FetchTimeout,
		FetchRetries: cfg.FetchRetries,
	}

	repo := repository.NewProductRepository(db.DB, logger)
	etlPipeline := etl.NewPipeline(loader, repo,
		etl.Options{PageSize: cfg.PageSize, ParserOptions: parserOpts},
		metrics.NewSimpleCollector(logger), logger)
	forecastPipeline := forecast.NewPipeline(repo,
		forecast.Options{PageSize: cfg.PageSize},
		metrics.NewSimpleCollector(logger), logger)

	sched := scheduler.New(
		etlPipeline.Run,
		func(ctx context.Context) error { return forecastPipeline.Run(ctx, cfg.ForecastHorizon) },
		cfg.RunInterval,
		logger,
	)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if cfg.ETLDailyAt != "" {
			if err := sched.RunDailyAt(ctx, cfg.ETLDailyAt); err != nil {
				logger.Error("Daily scheduler failed to start", zap.Error(err))
			}
			return
		}
		sched.Run(ctx)
	}()

	svc := service.NewService(parser.New(snapshot, parserOpts, logger), db, logger)
	endpoints := endpoint.MakeEndpoints(svc)
	handler := httptransport.NewHTTPHandler(endpoints)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: handler,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	wg.Wait()
	logger.Info("Graceful shutdown complete")
}
