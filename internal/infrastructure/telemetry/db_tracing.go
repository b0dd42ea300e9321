package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures query spans
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound values in span statements. Client names and
	// emails end up in the trace backend, so leave it off outside development.
	LogFullSQL       bool
	SlowQueryThresh  time.Duration
	DBSystem         string
	WithoutVariables bool
}

// DefaultDBTracingConfig returns tracing off, 200ms slow threshold, values stripped
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin adds otelgorm spans plus slow query and conflict annotations
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type contextKey string

const queryStartTimeKey contextKey = "quote_db_query_start"

// RegisterOtelGorm installs otelgorm on db, then the timing and annotation
// callbacks around every statement kind.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL || p.config.WithoutVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	hooks := []struct {
		op       string
		register func(name, target string, before bool, fn func(*gorm.DB)) error
	}{
		{"create", func(name, target string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Create().Before(target).Register(name, fn)
			}
			return cb.Create().After(target).Register(name, fn)
		}},
		{"query", func(name, target string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Query().Before(target).Register(name, fn)
			}
			return cb.Query().After(target).Register(name, fn)
		}},
		{"update", func(name, target string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Update().Before(target).Register(name, fn)
			}
			return cb.Update().After(target).Register(name, fn)
		}},
		{"delete", func(name, target string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Delete().Before(target).Register(name, fn)
			}
			return cb.Delete().After(target).Register(name, fn)
		}},
		{"row", func(name, target string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Row().Before(target).Register(name, fn)
			}
			return cb.Row().After(target).Register(name, fn)
		}},
		{"raw", func(name, target string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Raw().Before(target).Register(name, fn)
			}
			return cb.Raw().After(target).Register(name, fn)
		}},
	}
	for _, h := range hooks {
		target := "gorm:" + h.op
		if err := h.register("quote_db:start_"+h.op, target, true, markQueryStart); err != nil {
			return err
		}
		if err := h.register("quote_db:annotate_"+h.op, target, false, p.annotate); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.String("db_system", p.config.DBSystem),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.Bool("log_full_sql", p.config.LogFullSQL),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// annotate runs after each statement. A duplicate key on the reservation
// ledger is the normal signal that another caller won a number, so it is
// recorded as an event and the span is left OK.
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}

	switch {
	case db.Error == nil, errors.Is(db.Error, gorm.ErrRecordNotFound):
	case errors.Is(db.Error, gorm.ErrDuplicatedKey) && db.Statement.Table == "quote_numbers":
		span.AddEvent("quote_number_conflict")
	default:
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
