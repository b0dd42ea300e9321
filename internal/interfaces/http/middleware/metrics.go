package middleware

import (
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsConfig configures HTTPMetrics
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
}

// Request and response bodies: quote payloads are small, PDF downloads are
// tens to hundreds of kilobytes.
var (
	requestSizeBuckets  = []float64{128, 512, 1024, 4096, 16384, 65536, 262144, 1048576}
	responseSizeBuckets = []float64{256, 1024, 8192, 32768, 131072, 524288, 2097152, 8388608}
)

type serverInstruments struct {
	requests     *telemetry.Counter
	latency      *telemetry.Histogram
	requestSize  *telemetry.Histogram
	responseSize *telemetry.Histogram
	inFlight     metric.Int64UpDownCounter
}

func newServerInstruments(meter metric.Meter) (*serverInstruments, error) {
	requests, err := telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests served", "{request}")
	if err != nil {
		return nil, err
	}

	hists := make([]*telemetry.Histogram, 3)
	for i, opts := range []telemetry.HistogramOpts{
		{Name: "http_server_request_duration_seconds", Description: "HTTP request latency", Unit: "s", Boundaries: telemetry.HTTPDurationBuckets},
		{Name: "http_server_request_size_bytes", Description: "HTTP request body size", Unit: "By", Boundaries: requestSizeBuckets},
		{Name: "http_server_response_size_bytes", Description: "HTTP response body size", Unit: "By", Boundaries: responseSizeBuckets},
	} {
		if hists[i], err = telemetry.NewHistogram(meter, opts); err != nil {
			return nil, err
		}
	}

	inFlight, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &serverInstruments{
		requests:     requests,
		latency:      hists[0],
		requestSize:  hists[1],
		responseSize: hists[2],
		inFlight:     inFlight,
	}, nil
}

func passThrough(c *gin.Context) { c.Next() }

// HTTPMetrics records request count, latency, body sizes and in-flight
// requests. It is a no-op when metrics export is off.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter is HTTPMetrics over an existing meter
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passThrough
	}
	inst, err := newServerInstruments(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		inst.inFlight.Add(ctx, 1)

		c.Next()

		inst.inFlight.Add(ctx, -1)
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(routeLabel(c)),
		}
		inst.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
		inst.latency.RecordDuration(ctx, time.Since(start), attrs...)
		if n := c.Request.ContentLength; n > 0 {
			inst.requestSize.Record(ctx, float64(n), attrs...)
		}
		if n := c.Writer.Size(); n > 0 {
			inst.responseSize.Record(ctx, float64(n), attrs...)
		}
	}
}

// routeLabel is the matched route pattern, so /quotes/1 and /quotes/2 share
// one series. Unmatched paths collapse into "unknown".
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
