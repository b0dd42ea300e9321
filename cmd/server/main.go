package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	quoteapp "github.com/OtmaneZ/btp-automation-system/internal/application/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/application/numbering"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/cache"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/logger"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/persistence"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/printing"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/scheduler"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/signing"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/telemetry"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/handler"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
		Env:        cfg.App.Env,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel, log := setupTelemetry(ctx, cfg, logCfg, log)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting quote service",
		zap.String("port", cfg.App.Port),
		zap.String("version", handler.Version),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         dbSystem(cfg.Database.Driver),
			WithoutVariables: true,
		}, log)
		if err := plugin.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	if err := prepareSchema(ctx, cfg, db, log); err != nil {
		log.Fatal("Failed to prepare database schema", zap.Error(err))
	}

	// Initialize repositories
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	signatureRepo := persistence.NewGormSignatureRepository(db.DB)
	serviceTypeRepo := persistence.NewGormServiceTypeRepository(db.DB)
	numberStore := persistence.NewGormQuoteNumberStore(db.DB)

	// Redis backed counter and rate limit store. Without Redis there is no
	// counter and rate limits are kept in process.
	factory := cache.NewCounterFactory(cfg.Redis, cache.WithLogger(log), cache.WithInMemoryFallback(!cfg.IsProduction()))
	counter, err := factory.CreateCounter()
	if err != nil {
		log.Fatal("Failed to create sequence counter", zap.Error(err))
	}
	defer closeIfCloser(counter, log)

	rateLimitStore, err := factory.CreateRateLimitStore()
	if err != nil {
		log.Fatal("Failed to create rate limit store", zap.Error(err))
	}
	defer closeIfCloser(rateLimitStore, log)

	authority := numbering.NewAuthority(numberStore,
		numbering.WithCounter(counter),
		numbering.WithMaxAttempts(cfg.Numbering.MaxAttempts),
		numbering.WithLogger(log),
	)

	engine := printing.NewEngine(printing.EngineConfig{
		Company: companyProfile(cfg.Company),
		Bank:    printing.BankDetails{Name: cfg.Bank.Name, IBAN: cfg.Bank.IBAN, BIC: cfg.Bank.BIC},
		Logger:  log,
	})

	if tel.quoteMetrics != nil {
		authority.SetMetrics(tel.quoteMetrics)
		engine.SetMetrics(tel.quoteMetrics)
	}

	opts := []quoteapp.Option{quoteapp.WithMetrics(tel.quoteMetrics)}

	archive, cleaner, err := newArchive(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize PDF archive", zap.Error(err))
	}
	if archive != nil {
		opts = append(opts, quoteapp.WithArchive(archive, cfg.Storage.Backend))
	}

	links, err := signing.NewLinkIssuer(cfg.Signature)
	if err != nil {
		log.Fatal("Failed to initialize signature links", zap.Error(err))
	}
	if signing.HasEphemeralSecret(cfg.Signature) {
		log.Warn("No signature secret configured, links will not survive a restart")
	}
	opts = append(opts, quoteapp.WithLinkIssuer(links))

	emails, err := quoteapp.NewEmailComposer(quoteapp.EmailSender{
		Team:  cfg.Company.Name,
		Phone: cfg.Company.Phone,
		Email: cfg.Company.Email,
	})
	if err != nil {
		log.Fatal("Failed to parse email templates", zap.Error(err))
	}
	opts = append(opts, quoteapp.WithEmailComposer(emails))

	quoteService := quoteapp.NewService(quoteRepo, signatureRepo, serviceTypeRepo, authority, engine, log, opts...)

	// Archive retention
	var retention *scheduler.RetentionWorker
	if cleaner != nil {
		retention, err = scheduler.NewRetentionWorker(scheduler.DefaultRetentionConfig(), cleaner, log)
		if err != nil {
			log.Fatal("Failed to create retention worker", zap.Error(err))
		}
		if err := retention.Start(ctx); err != nil {
			log.Fatal("Failed to start retention worker", zap.Error(err))
		}
	}

	// Initialize handlers
	checks := []handler.HealthCheck{{Name: "database", Ping: db.Ping}}
	if pinger, ok := counter.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: pinger.Ping})
	}

	httpEngine := router.NewEngine(router.Dependencies{
		Config:         cfg,
		Logger:         log,
		MeterProvider:  tel.meterProvider,
		RateLimitStore: rateLimitStore,
	}, router.Handlers{
		Quotes:     handler.NewQuoteHandler(quoteService),
		Signatures: handler.NewSignatureHandler(quoteService),
		Catalog:    handler.NewCatalogHandler(quoteService),
		System:     handler.NewSystemHandler(cfg.App.Name, checks...),
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if retention != nil {
		if err := retention.Stop(shutdownCtx); err != nil {
			log.Warn("Retention worker did not stop cleanly", zap.Error(err))
		}
	}
	tel.shutdown(shutdownCtx, log)

	log.Info("Server exited gracefully")
}
