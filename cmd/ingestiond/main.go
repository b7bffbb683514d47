// Command ingestiond runs the scheduled dataset ingestion service: it
// loads dataset specs from a directory, fires each on its cron schedule,
// and publishes the packed artifact and control record to the configured
// destination. See DESIGN.md for how the pieces below are wired.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/leapstack-labs/ingestiond/internal/certprovider"
	"github.com/leapstack-labs/ingestiond/internal/connstring"
	"github.com/leapstack-labs/ingestiond/internal/dataset"
	"github.com/leapstack-labs/ingestiond/internal/datasource"
	"github.com/leapstack-labs/ingestiond/internal/execstore"
	"github.com/leapstack-labs/ingestiond/internal/hostconfig"
	"github.com/leapstack-labs/ingestiond/internal/pipeline"
	"github.com/leapstack-labs/ingestiond/internal/scheduler"
	"github.com/leapstack-labs/ingestiond/internal/statusapi"
	"github.com/leapstack-labs/ingestiond/internal/transform"
	"github.com/leapstack-labs/ingestiond/internal/upload/factory"
	"github.com/leapstack-labs/ingestiond/internal/vaultclient"
)

const envPrefix = "INGESTIOND_"

var defaultConfig = map[string]any{
	"environment":                  "production",
	"datasets.dir":                 "./datasets",
	"datasets.pollIntervalSeconds": 60,
	"datasets.watch":               true,
	"execstore.path":               "./ingestiond.db",
	"statusapi.enabled":            true,
	"statusapi.addr":               "127.0.0.1:8090",
	"shutdown.gracePeriodSeconds":  30,
	"vault.provider":               "backend-a",
	"certs.dir":                    "./certs",
	"upload.blob.enabled":          false,
}

func main() {
	configPath := flag.String("config", os.Getenv("INGESTIOND_CONFIG"), "path to the host configuration YAML file")
	flag.Parse()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("startup failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("ingestiond stopped")
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if os.Getenv("INGESTIOND_ENV") == "development" {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		// zap.NewProductionConfig().Build() only fails on a broken sink,
		// which stderr never is; fall back rather than leave logging dark.
		logger = zap.NewNop()
	}
	return logger
}

func run(configPath string, logger *zap.Logger) error {
	cfg, err := hostconfig.Load(configPath, envPrefix, defaultConfig)
	if err != nil {
		return fmt.Errorf("loading host configuration: %w", err)
	}

	certs := certprovider.NewStaticProvider(cfg.StringOr("certs.dir", "./certs"))

	vault, err := vaultclient.New(vaultclient.Config{
		Provider:        cfg.StringOr("vault.provider", "backend-a"),
		BaseURL:         cfg.String("vault.baseUrl"),
		BearerToken:     cfg.String("vault.bearerToken"),
		MTLSEnabled:     cfg.Bool("vault.mtlsEnabled"),
		CertThumbprint:  cfg.String("vault.certThumbprint"),
		CertSubjectName: cfg.String("vault.certSubjectName"),
		CertStoreName:   cfg.String("vault.certStoreName"),
		CertStoreLoc:    cfg.String("vault.certStoreLocation"),
		APIKey:          cfg.String("vault.apiKey"),
	}, certs)
	if err != nil {
		return fmt.Errorf("constructing vault client: %w", err)
	}

	resolver := connstring.New(vault)
	connTemplates := make(map[string]string)
	for _, tmpl := range cfg.ConnectionTemplates() {
		connTemplates[tmpl.Name] = tmpl.Template
	}

	sourceFactory := datasource.NewFactory()

	registry := transform.NewRegistry(logger)
	registry.Freeze()
	transformEngine := transform.NewEngine(registry, cfg.Environment(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var gcsClient *storage.Client
	if cfg.Bool("upload.blob.enabled") {
		gcsClient, err = storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("constructing cloud storage client: %w", err)
		}
		defer func() { _ = gcsClient.Close() }()
	}
	providers := factory.New(gcsClient)

	engine := pipeline.NewEngine(
		&pipeline.ExtractStage{Factory: sourceFactory},
		&pipeline.TransformStage{Engine: transformEngine},
		&pipeline.PackStage{},
		&pipeline.GenerateControlStage{},
		&pipeline.PublishStage{Providers: providers, Logger: logger},
		logger,
	)

	store, err := execstore.Open(cfg.StringOr("execstore.path", "./ingestiond.db"))
	if err != nil {
		return fmt.Errorf("opening execution store: %w", err)
	}
	defer func() { _ = store.Close() }()

	loader := dataset.New(cfg.DatasetsDir(), logger, registry)

	sched := scheduler.New(scheduler.Deps{
		Loader:   loader,
		Resolver: resolver,
		ConnTemplate: func(key string) (string, bool) {
			tmpl, ok := connTemplates[key]
			return tmpl, ok
		},
		Engine:       engine,
		Store:        store,
		Logger:       logger,
		PollInterval: time.Duration(cfg.IntOr("datasets.pollIntervalSeconds", 60)) * time.Second,
		Watch:        cfg.Bool("datasets.watch"),
	})

	if err := sched.Start(ctx); err != nil {
		logger.Warn("scheduler start reported an error, continuing with an empty schedule", zap.Error(err))
	}

	if cfg.Bool("statusapi.enabled") {
		router := statusapi.New(logger)
		statusapi.Register(router, sched, store)
		addr := cfg.StringOr("statusapi.addr", "127.0.0.1:8090")
		go func() {
			if err := router.Start(addr); err != nil {
				logger.Warn("status api server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("ingestiond started",
		zap.String("environment", cfg.Environment()),
		zap.String("datasets_dir", cfg.DatasetsDir()))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	gracePeriod := time.Duration(cfg.IntOr("shutdown.gracePeriodSeconds", 30)) * time.Second
	sched.Stop(gracePeriod)
	return nil
}
