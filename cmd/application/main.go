package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gomarketplace_hub/config"
	"gomarketplace_hub/internal/app"
	"gomarketplace_hub/internal/core/adapters"
	"gomarketplace_hub/internal/core/brands"
	"gomarketplace_hub/internal/core/imageproxy"
	"gomarketplace_hub/internal/core/importer"
	"gomarketplace_hub/internal/core/jobs"
	"gomarketplace_hub/internal/core/suppliers"
	"gomarketplace_hub/internal/marketplaces/ozon"
	"gomarketplace_hub/internal/marketplaces/wildberries"
	"gomarketplace_hub/internal/marketplaces/yandex"
	"gomarketplace_hub/internal/suppliers/rs24"
	"gomarketplace_hub/migrations/infrastructure"
	"gomarketplace_hub/pkg/credentials"
	"gomarketplace_hub/pkg/dbconnect"
	"gomarketplace_hub/pkg/dbconnect/migration"
	"gomarketplace_hub/pkg/dbconnect/postgres"
	"gomarketplace_hub/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog, err := logger.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat, cfg.App.Name)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLog.Sync()

	if err := run(cfg, zapLog); err != nil {
		zapLog.Fatal("Application stopped with error", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, zapLog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cipher, err := credentials.New(credentials.Config{Secret: cfg.Credentials.Secret, Environment: cfg.App.Environment})
	if err != nil {
		return err
	}

	var pg dbconnect.Database = postgres.NewPgConnector(&cfg.Postgres, zapLog)
	db, err := pg.Connect()
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := migration.Apply(db, zapLog, infrastructure.Migrations()...); err != nil {
		return err
	}

	registry := newRegistry(cfg.Adapters, zapLog)
	supplierStore := suppliers.NewStore(db, cipher, registry, zapLog)
	brandRepo := brands.NewRepository(db)
	resolver := brands.NewResolver(brandRepo, zapLog)

	var (
		rdb         redis.UniversalClient
		locker      importer.Locker
		statusStore jobs.StatusStore
		imageCache  imageproxy.Cache
	)
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		locker = importer.NewRedisLocker(rdb)
		statusStore = jobs.NewRedisStatusStore(rdb)
		imageCache = imageproxy.NewRedisCache(rdb)
	} else {
		zapLog.Warn("Redis is disabled: no import locking, image cache or job queue")
	}

	engine := importer.NewEngine(db, supplierStore, resolver, brandRepo, locker,
		importer.EngineConfig{StockChunkSize: cfg.Importer.StockChunkSize, LockTTL: cfg.Importer.LockTTL}, zapLog)
	runner := jobs.NewRunner(engine, statusStore, zapLog)
	defer runner.Shutdown()

	images := imageproxy.NewHandler(imageproxy.NewTokens(cipher), imageCache,
		imageproxy.HandlerConfig{CacheTTL: cfg.HTTP.ImageCacheTTL, FetchTimeout: cfg.HTTP.FetchTimeout}, zapLog)

	deps := app.Dependencies{
		Images:    images,
		Imports:   runner,
		Brands:    resolver,
		Suppliers: supplierStore,
		JobQueue:  cfg.Importer.JobQueue,
	}

	wg := sync.WaitGroup{}
	if rdb != nil {
		deps.Producer = jobs.NewProducer(rdb)
		worker := jobs.NewWorker(rdb, cfg.Importer.JobQueue, engine, zapLog)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	zapLog.Info("Started app", zap.String("environment", cfg.App.Environment),
		zap.Strings("adapters", typeNames(registry.Registered())))

	err = app.NewServer(cfg.HTTP.Addr, deps, zapLog).Run(ctx)
	stop()
	wg.Wait()
	return err
}

func newRegistry(cfg config.AdaptersConfig, zapLog *zap.Logger) *adapters.Registry {
	options := func(e config.EndpointConfig) adapters.ClientOptions {
		return adapters.ClientOptions{
			BaseURL:       e.BaseURL,
			Timeout:       e.Timeout,
			RatePerSecond: e.RatePerSecond,
			Burst:         e.Burst,
			Log:           zapLog,
		}
	}
	return adapters.NewRegistry(zapLog).
		MustRegister(adapters.TypeRS24, rs24.NewConstructor(options(cfg.RS24))).
		MustRegister(adapters.TypeOzon, ozon.NewConstructor(options(cfg.Ozon))).
		MustRegister(adapters.TypeWildberries, wildberries.NewConstructor(options(cfg.Wildberries))).
		MustRegister(adapters.TypeYandex, yandex.NewConstructor(options(cfg.Yandex)))
}

func typeNames(types []adapters.Type) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.String())
	}
	return out
}
