package router

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	quoteapp "github.com/OtmaneZ/btp-automation-system/internal/application/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/cache"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/config"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/handler"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeQuotes serves quote 1 and nothing else
type fakeQuotes struct{}

func (fakeQuotes) Create(context.Context, quoteapp.CreateQuoteRequest) (*quoteapp.CreateQuoteResponse, error) {
	return &quoteapp.CreateQuoteResponse{QuoteResponse: quoteapp.QuoteResponse{ID: 1, Number: "DEV-2025-0001"}}, nil
}

func (fakeQuotes) Get(_ context.Context, id int64) (*quoteapp.QuoteResponse, error) {
	if id != 1 {
		return nil, shared.ErrNotFound
	}
	return &quoteapp.QuoteResponse{ID: 1, Number: "DEV-2025-0001"}, nil
}

func (fakeQuotes) List(context.Context, quoteapp.ListQuotesRequest) (*quoteapp.ListQuotesResponse, error) {
	return &quoteapp.ListQuotesResponse{Page: 1, PageSize: 20}, nil
}

func (fakeQuotes) ChangeStatus(context.Context, int64, quoteapp.ChangeStatusRequest) (*quoteapp.QuoteResponse, error) {
	return &quoteapp.QuoteResponse{ID: 1, Status: "envoye"}, nil
}

func (fakeQuotes) RenderPDF(context.Context, int64) (*quoteapp.PDFDocument, error) {
	return &quoteapp.PDFDocument{Number: "DEV-2025-0001", FileName: "DEV-2025-0001.pdf", Data: []byte("%PDF"), PageCount: 1}, nil
}

func (fakeQuotes) CreateSignatureLink(context.Context, int64) (*quoteapp.SignatureLinkResponse, error) {
	return &quoteapp.SignatureLinkResponse{QuoteID: 1, Token: "tok"}, nil
}

func (fakeQuotes) RenderEmail(_ context.Context, _ int64, templateID string) (*quoteapp.RenderedEmailResponse, error) {
	return &quoteapp.RenderedEmailResponse{Template: templateID}, nil
}

func (fakeQuotes) ViewSignature(context.Context, string) (*quoteapp.SignatureViewResponse, error) {
	return &quoteapp.SignatureViewResponse{}, nil
}

func (fakeQuotes) Sign(context.Context, string, quoteapp.SignRequest, string) (*quoteapp.SignResponse, error) {
	return &quoteapp.SignResponse{QuoteID: 1, Status: "accepte"}, nil
}

func (fakeQuotes) ServiceTypes(context.Context) ([]quoteapp.ServiceTypeResponse, error) {
	return []quoteapp.ServiceTypeResponse{}, nil
}

func (fakeQuotes) EmailTemplates() []quoteapp.EmailTemplateResponse {
	return []quoteapp.EmailTemplateResponse{{ID: "standard"}}
}

func testEngine(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	store := cache.NewInMemoryRateLimitStore()
	t.Cleanup(func() { _ = store.Close() })

	svc := fakeQuotes{}
	return NewEngine(Dependencies{
		Config:         cfg,
		Logger:         zaptest.NewLogger(t),
		RateLimitStore: store,
	}, Handlers{
		Quotes:     handler.NewQuoteHandler(svc),
		Signatures: handler.NewSignatureHandler(svc),
		Catalog:    handler.NewCatalogHandler(svc),
		System:     handler.NewSystemHandler("BTP Devis API"),
	})
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "btp-devis", Env: "test"},
		HTTP: config.HTTPConfig{
			MaxBodySize:       1 << 20,
			RateLimitRequests: 2,
			RateLimitWindow:   time.Minute,
		},
	}
}

func TestNewEngine_Routes(t *testing.T) {
	engine := testEngine(t, testConfig())

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/v1/system/ping", http.StatusOK},
		{"GET", "/api/v1/system/info", http.StatusOK},
		{"GET", "/api/v1/quotes", http.StatusOK},
		{"GET", "/api/v1/quotes/1", http.StatusOK},
		{"GET", "/api/v1/quotes/2", http.StatusNotFound},
		{"GET", "/api/v1/quotes/1/pdf", http.StatusOK},
		{"POST", "/api/v1/quotes/1/signature-link", http.StatusCreated},
		{"GET", "/api/v1/quotes/1/email/standard", http.StatusOK},
		{"GET", "/api/v1/signatures/tok", http.StatusOK},
		{"GET", "/api/v1/service-types", http.StatusOK},
		{"GET", "/api/v1/email-templates", http.StatusOK},
		{"GET", "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.status, get(engine, tt.method, tt.path).Code)
		})
	}
}

func TestNewEngine_MiddlewareStack(t *testing.T) {
	engine := testEngine(t, testConfig())

	w := get(engine, "GET", "/api/v1/quotes/1")

	assert.Len(t, w.Header().Get(middleware.RequestIDHeader), 36)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestNewEngine_SignatureRateLimit(t *testing.T) {
	engine := testEngine(t, testConfig())

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, get(engine, "GET", "/api/v1/signatures/tok").Code)
	}
	w := get(engine, "GET", "/api/v1/signatures/tok")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Quote routes keep their own budget
	assert.Equal(t, http.StatusOK, get(engine, "GET", "/api/v1/quotes/1").Code)
}

func TestNewEngine_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.MaxBodySize = 64
	engine := testEngine(t, cfg)

	body := `{"client":{"last_name":"` + strings.Repeat("x", 200) + `"}}`
	req := httptestRequest("POST", "/api/v1/quotes", body)
	w := serveRequest(engine, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
