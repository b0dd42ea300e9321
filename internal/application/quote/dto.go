package quote

import (
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Quote DTOs
// =============================================================================

// ClientInput is the client block of a new quote
type ClientInput struct {
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Address   string `json:"address" binding:"max=1000"`
	Phone     string `json:"phone" binding:"max=30"`
	Email     string `json:"email" binding:"omitempty,email,max=255"`
}

// LineInput is one priced row of a new quote. LineTotal is optional; when
// absent it is computed as quantity × unit price rounded to cents.
type LineInput struct {
	Description   string           `json:"description" binding:"required,max=2000"`
	Quantity      decimal.Decimal  `json:"quantity"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	LineTotal     *decimal.Decimal `json:"line_total"`
	ServiceTypeID *int64           `json:"service_type_id" binding:"omitempty,min=1"`
}

// CreateQuoteRequest represents a request to create and number a quote
type CreateQuoteRequest struct {
	Client          ClientInput `json:"client" binding:"required"`
	Lines           []LineInput `json:"lines" binding:"max=500,dive"`
	PaymentMode     string      `json:"payment_mode" binding:"max=20"`
	PaymentDeadline string      `json:"payment_deadline" binding:"max=20"`
}

// ChangeStatusRequest represents a status change
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=brouillon envoye accepte refuse"`
}

// ListQuotesRequest represents a history page request
type ListQuotesRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status    string `form:"status" binding:"omitempty,oneof=brouillon envoye accepte refuse"`
	Year      int    `form:"year" binding:"omitempty,min=1000,max=9999"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=created_at number status total"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// ClientResponse is the client block of a quote
type ClientResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// LineResponse is one row of a quote
type LineResponse struct {
	Position      int               `json:"position"`
	Description   string            `json:"description"`
	Quantity      string            `json:"quantity"`
	UnitPrice     valueobject.Money `json:"unit_price"`
	LineTotal     valueobject.Money `json:"line_total"`
	ServiceTypeID *int64            `json:"service_type_id,omitempty"`
}

// QuoteResponse represents a stored quote
type QuoteResponse struct {
	ID              int64             `json:"id"`
	Number          string            `json:"number"`
	NumberFallback  bool              `json:"number_fallback,omitempty"`
	Client          ClientResponse    `json:"client"`
	Lines           []LineResponse    `json:"lines"`
	PaymentMode     string            `json:"payment_mode"`
	PaymentDeadline string            `json:"payment_deadline"`
	Status          string            `json:"status"`
	Subtotal        valueobject.Money `json:"subtotal"`
	Tax             valueobject.Money `json:"tax"`
	Total           valueobject.Money `json:"total"`
	Signed          bool              `json:"signed"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// CreateQuoteResponse is returned once a quote is numbered, stored and rendered
type CreateQuoteResponse struct {
	QuoteResponse
	FileName   string `json:"file_name"`
	PageCount  int    `json:"page_count"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

// QuoteSummaryResponse is one row of the history
type QuoteSummaryResponse struct {
	ID          int64             `json:"id"`
	Number      string            `json:"number"`
	ClientName  string            `json:"client_name"`
	ClientEmail string            `json:"client_email"`
	Subtotal    valueobject.Money `json:"subtotal"`
	Tax         valueobject.Money `json:"tax"`
	Total       valueobject.Money `json:"total"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ListQuotesResponse is a history page
type ListQuotesResponse struct {
	Items    []QuoteSummaryResponse `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

// PDFDocument is a rendered quote ready to be served
type PDFDocument struct {
	Number    string
	FileName  string
	Data      []byte
	PageCount int
	Fallback  bool
}

// =============================================================================
// Signature DTOs
// =============================================================================

// SignatureLinkResponse is an issued signing link
type SignatureLinkResponse struct {
	QuoteID   int64     `json:"quote_id"`
	Number    string    `json:"number"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignatureViewResponse is what the client sees before signing
type SignatureViewResponse struct {
	Quote    QuoteResponse `json:"quote"`
	Signed   bool          `json:"signed"`
	SignedAt *time.Time    `json:"signed_at,omitempty"`
}

// SignRequest carries the captured signature
type SignRequest struct {
	Signature string `json:"signature" binding:"required,max=2000000"`
}

// SignResponse is returned once a signature is recorded
type SignResponse struct {
	QuoteID      int64     `json:"quote_id"`
	Number       string    `json:"number"`
	Status       string    `json:"status"`
	DocumentHash string    `json:"document_hash"`
	SignedAt     time.Time `json:"signed_at"`
}

// =============================================================================
// Catalog and email DTOs
// =============================================================================

// ServiceTypeResponse is one catalog entry
type ServiceTypeResponse struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Unit      string            `json:"unit"`
	UnitPrice valueobject.Money `json:"unit_price"`
}

// EmailTemplateResponse describes an email template
type EmailTemplateResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RenderedEmailResponse is a template filled in for one quote
type RenderedEmailResponse struct {
	Template string `json:"template"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}
