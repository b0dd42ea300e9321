package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/logger"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/migration"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/persistence"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/printing"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/scheduler"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/storage"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/telemetry"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/handler"
	"github.com/OtmaneZ/btp-automation-system/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// telemetryStack holds the OpenTelemetry providers started by setupTelemetry
type telemetryStack struct {
	tracerProvider *telemetry.TracerProvider
	meterProvider  *telemetry.MeterProvider
	loggerProvider *telemetry.LoggerProvider
	quoteMetrics   *telemetry.QuoteMetrics
}

// setupTelemetry starts tracing, metrics and the log bridge. When the log
// bridge is on, the returned logger also ships records to the collector.
// Failures are logged and the service runs without the failing signal.
func setupTelemetry(ctx context.Context, cfg *config.Config, logCfg *logger.Config, log *zap.Logger) (*telemetryStack, *zap.Logger) {
	tel := &telemetryStack{}
	t := cfg.Telemetry

	if t.LogsEnabled {
		lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
			Enabled:           true,
			CollectorEndpoint: t.CollectorEndpoint,
			ServiceName:       t.ServiceName,
			ServiceVersion:    handler.Version,
			Insecure:          t.Insecure,
		}, log)
		if err != nil {
			log.Warn("Failed to start OpenTelemetry log bridge", zap.Error(err))
		} else {
			tel.loggerProvider = lp
			otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
				ServiceName:    t.ServiceName,
				LoggerProvider: lp,
				Level:          logger.ParseLevel(cfg.Log.Level),
			})
			if bridged, err := logger.New(logCfg, otelCore); err == nil {
				log = bridged
			}
		}
	}

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		ServiceVersion:    handler.Version,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Warn("Failed to start tracing", zap.Error(err))
	} else {
		tel.tracerProvider = tp
	}

	if t.MetricsEnabled {
		mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
			Enabled:           true,
			CollectorEndpoint: t.CollectorEndpoint,
			ServiceName:       t.ServiceName,
			ServiceVersion:    handler.Version,
			Insecure:          t.Insecure,
		}, log)
		if err != nil {
			log.Warn("Failed to start metrics", zap.Error(err))
			return tel, log
		}
		tel.meterProvider = mp

		qm, err := telemetry.NewQuoteMetrics(telemetry.QuoteMetricsConfig{
			Meter:  mp.Meter("btp-devis/quote"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Failed to create quote metrics", zap.Error(err))
		} else {
			tel.quoteMetrics = qm
		}
	}
	return tel, log
}

// shutdown flushes and stops every started provider
func (t *telemetryStack) shutdown(ctx context.Context, log *zap.Logger) {
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			log.Warn("Failed to stop metrics", zap.Error(err))
		}
	}
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			log.Warn("Failed to stop tracing", zap.Error(err))
		}
	}
	if t.loggerProvider != nil {
		if err := t.loggerProvider.Shutdown(ctx); err != nil {
			log.Warn("Failed to stop log bridge", zap.Error(err))
		}
	}
}

// prepareSchema brings the schema up to date. Postgres runs the embedded SQL
// migrations; sqlite is auto-migrated from the models and gets the default
// service types the last Postgres migration seeds.
func prepareSchema(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if cfg.Database.Driver == config.DriverSQLite {
		if err := db.AutoMigrate(); err != nil {
			return err
		}
		return persistence.NewGormServiceTypeRepository(db.DB).Seed(ctx, quote.DefaultServiceTypes())
	}

	// golang-migrate closes the connection it is given
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	m, err := migration.NewEmbedded(sqlDB, migrations.Files, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

// newArchive builds the configured PDF archive. The cleaner is nil when
// archived documents are kept forever.
func newArchive(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (printing.Archive, scheduler.ArchiveCleaner, error) {
	var (
		archive interface {
			printing.Archive
			scheduler.ArchiveCleaner
		}
		err error
	)

	switch cfg.Backend {
	case config.StorageNone, "":
		log.Info("PDF archive disabled")
		return nil, nil, nil
	case config.StorageFilesystem:
		archive, err = printing.NewFileSystemArchive(&printing.FileSystemArchiveConfig{
			BasePath:      cfg.BasePath,
			BaseURL:       cfg.BaseURL,
			RetentionDays: cfg.RetentionDays,
			Logger:        log,
		})
	case config.StorageS3:
		var s3 *storage.S3Archive
		s3, err = storage.NewS3Archive(ctx, &cfg, storage.WithLogger(log))
		if err == nil {
			err = s3.EnsureBucket(ctx)
		}
		archive = s3
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, nil, err
	}

	log.Info("PDF archive enabled",
		zap.String("backend", cfg.Backend),
		zap.Int("retention_days", cfg.RetentionDays),
	)
	if cfg.RetentionDays <= 0 {
		return archive, nil, nil
	}
	return archive, archive, nil
}

func companyProfile(c config.CompanyConfig) printing.CompanyProfile {
	return printing.CompanyProfile{
		Name:     c.Name,
		Address:  c.Address,
		Phone:    c.Phone,
		Email:    c.Email,
		SIRET:    c.SIRET,
		RCS:      c.RCS,
		TVA:      c.TVA,
		APE:      c.APE,
		Capital:  c.Capital,
		LogoPath: c.LogoPath,
	}
}

func dbSystem(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite"
	}
	return "postgresql"
}

func closeIfCloser(v any, log *zap.Logger) {
	if c, ok := v.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn("Failed to close resource", zap.Error(err))
		}
	}
}
