package router

import (
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/logger"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/telemetry"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/handler"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Quotes     *handler.QuoteHandler
	Signatures *handler.SignatureHandler
	Catalog    *handler.CatalogHandler
	System     *handler.SystemHandler
}

// Dependencies is what the middleware stack needs
type Dependencies struct {
	Config         *config.Config
	Logger         *zap.Logger
	MeterProvider  *telemetry.MeterProvider // nil when metrics are off
	RateLimitStore middleware.RateLimitStore
}

// NewEngine builds the gin engine with the middleware stack, the versioned
// API and /health.
//
// Middleware order:
//  1. RequestID
//  2. Recovery
//  3. tracing (otelgin, attributes, error status)
//  4. request logger
//  5. HTTP metrics
//  6. security headers
//  7. CORS
//  8. body size limit
func NewEngine(deps Dependencies, h Handlers) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.TracingAttributeInjector())
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: deps.MeterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.Env == "production"
	engine.Use(middleware.SecureWithConfig(security))
	engine.Use(middleware.CORSWithConfig(middleware.CORSFromConfig(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	for _, group := range apiGroups(deps, h) {
		r.Register(group)
		log.Debug("Route group registered",
			zap.String("group", group.Name()),
			zap.String("prefix", r.BasePath()+group.Prefix()),
			zap.Int("routes", group.RouteCount()),
		)
	}
	r.Setup()

	if cfg.HTTP.RateLimitRequests > 0 {
		log.Info("Rate limiting enabled on signature routes",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	return engine
}

func apiGroups(deps Dependencies, h Handlers) []*DomainGroup {
	quotes := NewDomainGroup("quotes", "/quotes").
		POST("", h.Quotes.Create).
		GET("", h.Quotes.List).
		GET("/:id", h.Quotes.Get).
		PATCH("/:id/status", h.Quotes.ChangeStatus).
		GET("/:id/pdf", h.Quotes.DownloadPDF).
		POST("/:id/signature-link", h.Quotes.CreateSignatureLink)
	quotes.Group("email", "/:id/email").
		GET("/:template", h.Quotes.RenderEmail)

	// Public routes reached from the link sent to the client
	signatures := NewDomainGroup("signatures", "/signatures").
		Use(middleware.RateLimit(deps.RateLimitStore, middleware.RateLimitConfig{
			Limit:  deps.Config.HTTP.RateLimitRequests,
			Window: deps.Config.HTTP.RateLimitWindow,
			Scope:  "signatures",
		}, deps.Logger)).
		GET("/:token", h.Signatures.View).
		POST("/:token", h.Signatures.Sign)

	catalog := NewDomainGroup("catalog", "").
		GET("/service-types", h.Catalog.ServiceTypes).
		GET("/email-templates", h.Catalog.EmailTemplates)

	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	return []*DomainGroup{quotes, signatures, catalog, system}
}
