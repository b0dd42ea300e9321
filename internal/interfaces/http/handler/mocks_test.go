package handler

import (
	"context"

	quoteapp "github.com/OtmaneZ/btp-automation-system/internal/application/quote"
	"github.com/stretchr/testify/mock"
)

// mockQuoteService implements QuoteService, SignatureService and
// CatalogService for testing
type mockQuoteService struct {
	mock.Mock
}

func (m *mockQuoteService) Create(ctx context.Context, req quoteapp.CreateQuoteRequest) (*quoteapp.CreateQuoteResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.CreateQuoteResponse), args.Error(1)
}

func (m *mockQuoteService) Get(ctx context.Context, id int64) (*quoteapp.QuoteResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.QuoteResponse), args.Error(1)
}

func (m *mockQuoteService) List(ctx context.Context, req quoteapp.ListQuotesRequest) (*quoteapp.ListQuotesResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.ListQuotesResponse), args.Error(1)
}

func (m *mockQuoteService) ChangeStatus(ctx context.Context, id int64, req quoteapp.ChangeStatusRequest) (*quoteapp.QuoteResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.QuoteResponse), args.Error(1)
}

func (m *mockQuoteService) RenderPDF(ctx context.Context, id int64) (*quoteapp.PDFDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.PDFDocument), args.Error(1)
}

func (m *mockQuoteService) CreateSignatureLink(ctx context.Context, id int64) (*quoteapp.SignatureLinkResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.SignatureLinkResponse), args.Error(1)
}

func (m *mockQuoteService) RenderEmail(ctx context.Context, id int64, templateID string) (*quoteapp.RenderedEmailResponse, error) {
	args := m.Called(ctx, id, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.RenderedEmailResponse), args.Error(1)
}

func (m *mockQuoteService) ViewSignature(ctx context.Context, token string) (*quoteapp.SignatureViewResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.SignatureViewResponse), args.Error(1)
}

func (m *mockQuoteService) Sign(ctx context.Context, token string, req quoteapp.SignRequest, clientIP string) (*quoteapp.SignResponse, error) {
	args := m.Called(ctx, token, req, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quoteapp.SignResponse), args.Error(1)
}

func (m *mockQuoteService) ServiceTypes(ctx context.Context) ([]quoteapp.ServiceTypeResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]quoteapp.ServiceTypeResponse), args.Error(1)
}

func (m *mockQuoteService) EmailTemplates() []quoteapp.EmailTemplateResponse {
	args := m.Called()
	return args.Get(0).([]quoteapp.EmailTemplateResponse)
}
