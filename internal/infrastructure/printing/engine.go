package printing

import (
	"context"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// EngineConfig contains configuration for the quote rendering engine
type EngineConfig struct {
	Company CompanyProfile
	Bank    BankDetails
	// Measurer defaults to the core font metrics
	Measurer TextMeasurer
	Logger   *zap.Logger
}

// RenderedDocument is a complete quote PDF
type RenderedDocument struct {
	Number    quote.Number
	PDF       []byte
	PageCount int
	Totals    quote.Totals
	// Fallback is set when Number was synthesized from the record id
	Fallback bool
	Layout   *Document
}

// FileName is the download name of the document
func (d *RenderedDocument) FileName() string {
	return "devis_" + d.Number.String() + ".pdf"
}

// Engine renders quotes to PDF. Each Render call is independent and
// synchronous; the engine keeps no per-document state.
type Engine struct {
	layout  *Layout
	painter *Painter
	logger  *zap.Logger
	metrics *telemetry.QuoteMetrics
}

// NewEngine creates an engine. A configured logo that cannot be loaded is
// logged and the header falls back to text only.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	measurer := cfg.Measurer
	if measurer == nil {
		measurer = NewFontMetrics()
	}

	var logo *Logo
	if cfg.Company.LogoPath == "" {
		logger.Info("No company logo configured, using text-only header")
	} else {
		loaded, err := LoadLogo(cfg.Company.LogoPath)
		if err != nil {
			logger.Warn("Company logo unavailable, using text-only header",
				zap.String("path", cfg.Company.LogoPath),
				zap.Error(err),
			)
		} else {
			logo = loaded
		}
	}

	return &Engine{
		layout:  NewLayout(measurer, cfg.Company, cfg.Bank, logo, logger),
		painter: NewPainter(PainterConfig{Author: cfg.Company.Name}),
		logger:  logger,
	}
}

// SetMetrics sets the metrics collector
func (e *Engine) SetMetrics(m *telemetry.QuoteMetrics) {
	e.metrics = m
}

// HasLogo reports whether page headers carry the company logo
func (e *Engine) HasLogo() bool {
	return e.layout.logo != nil
}

// CheckFit validates q and checks that every part of it fits the page
// geometry. Callers run it before allocating a number.
func (e *Engine) CheckFit(q *quote.Quote) error {
	if q == nil {
		return NewRenderError(ErrCodeInvalidInput, "quote is nil", nil)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	return e.layout.CheckFit(q)
}

// Render lays out and encodes q. A zero number means "use the quote's own
// number", falling back to the identifier derived from the record id.
// Either the complete PDF is returned or an error and no bytes.
func (e *Engine) Render(ctx context.Context, q *quote.Quote, number quote.Number) (*RenderedDocument, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote_pdf", "render")
	defer span.End()
	start := time.Now()

	if err := e.CheckFit(q); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	fallback := false
	if number.IsZero() {
		number, fallback = q.DocumentNumber()
		if fallback {
			e.logger.Info("Quote has no stored number, using fallback identifier",
				zap.Int64("quote_id", q.ID),
				zap.String("number", number.String()),
			)
		}
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteNumber, number.String(),
		telemetry.SpanAttrLineCount, len(q.Lines),
	)

	rendered, err := e.render(q, number, fallback)
	if err != nil {
		telemetry.RecordError(span, err)
		e.record(ctx, start, 0, fallback, err)
		e.logger.Error("Quote rendering failed", zap.String("number", number.String()), zap.Error(err))
		return nil, err
	}

	e.record(ctx, start, rendered.PageCount, fallback, nil)
	telemetry.SetAttributes(span, telemetry.SpanAttrPageCount, rendered.PageCount)
	e.logger.Debug("Quote rendered",
		zap.String("number", number.String()),
		zap.Int("pages", rendered.PageCount),
		zap.Int("bytes", len(rendered.PDF)),
	)
	return rendered, nil
}

func (e *Engine) render(q *quote.Quote, number quote.Number, fallback bool) (*RenderedDocument, error) {
	doc, err := e.layout.Compose(q, number, fallback)
	if err != nil {
		return nil, err
	}
	pdf, err := e.painter.Paint(doc, q.IssuedAt())
	if err != nil {
		return nil, err
	}
	return &RenderedDocument{
		Number:    number,
		PDF:       pdf,
		PageCount: doc.PageCount(),
		Totals:    doc.Totals,
		Fallback:  fallback,
		Layout:    doc,
	}, nil
}

func (e *Engine) record(ctx context.Context, start time.Time, pages int, fallback bool, err error) {
	if e.metrics != nil {
		e.metrics.RecordRender(ctx, time.Since(start), pages, fallback, err)
	}
}
