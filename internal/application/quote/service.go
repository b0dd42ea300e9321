// Package quote implements the quote use cases: numbering and storing new
// quotes, rendering their PDF, the history, client signatures and the
// customer email templates.
package quote

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared/valueobject"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/printing"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/signing"
	"github.com/OtmaneZ/btp-automation-system/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// Signature link error codes
const (
	CodeInvalidSignatureLink = "INVALID_SIGNATURE_LINK"
	CodeExpiredSignatureLink = "SIGNATURE_LINK_EXPIRED"
	CodeUnknownEmailTemplate = "UNKNOWN_EMAIL_TEMPLATE"
)

var (
	// ErrInvalidSignatureLink is returned for a forged, malformed or mismatched link
	ErrInvalidSignatureLink = shared.NewDomainError(CodeInvalidSignatureLink, "Invalid signature link")

	// ErrExpiredSignatureLink is returned for a link past its expiry
	ErrExpiredSignatureLink = shared.NewDomainError(CodeExpiredSignatureLink, "Signature link has expired")

	// ErrUnknownEmailTemplate is returned for a template id outside the catalog
	ErrUnknownEmailTemplate = shared.NewDomainError(CodeUnknownEmailTemplate, "Unknown email template")

	// ErrSignatureDisabled is returned when no link issuer is configured
	ErrSignatureDisabled = shared.ErrInvalidState.WithMessage("Signature links are not enabled")
)

// NumberAllocator hands out quote numbers
type NumberAllocator interface {
	Allocate(ctx context.Context, year int) (quote.Number, error)
}

// Renderer turns a quote into a PDF
type Renderer interface {
	// CheckFit rejects, as an invalid record, content the page layout
	// cannot hold
	CheckFit(q *quote.Quote) error
	Render(ctx context.Context, q *quote.Quote, number quote.Number) (*printing.RenderedDocument, error)
}

// LinkIssuer issues and verifies signature link tokens
type LinkIssuer interface {
	Issue(quoteID int64, number quote.Number) (*signing.Link, error)
	Verify(token string) (*signing.Claims, error)
}

// Service handles quote business operations
type Service struct {
	quotes       quote.QuoteRepository
	signatures   quote.SignatureRepository
	serviceTypes quote.ServiceTypeRepository
	allocator    NumberAllocator
	renderer     Renderer
	archive      printing.Archive
	links        LinkIssuer
	emails       *EmailComposer
	validate     *validator.Validate
	logger       *zap.Logger
	metrics      *telemetry.QuoteMetrics
	backend      string
}

// Option configures a Service
type Option func(*Service)

// WithArchive stores a copy of every new quote PDF. backend names the
// archive in metrics and logs.
func WithArchive(a printing.Archive, backend string) Option {
	return func(s *Service) {
		s.archive = a
		s.backend = backend
	}
}

// WithLinkIssuer enables signature links
func WithLinkIssuer(l LinkIssuer) Option {
	return func(s *Service) {
		s.links = l
	}
}

// WithEmailComposer replaces the default email templates sender block
func WithEmailComposer(c *EmailComposer) Option {
	return func(s *Service) {
		if c != nil {
			s.emails = c
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *telemetry.QuoteMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new quote Service
func NewService(
	quotes quote.QuoteRepository,
	signatures quote.SignatureRepository,
	serviceTypes quote.ServiceTypeRepository,
	allocator NumberAllocator,
	renderer Renderer,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(jsonFieldName)

	s := &Service{
		quotes:       quotes,
		signatures:   signatures,
		serviceTypes: serviceTypes,
		allocator:    allocator,
		renderer:     renderer,
		validate:     v,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.emails == nil {
		// the built-in templates are constant and always parse
		s.emails, _ = NewEmailComposer(EmailSender{})
	}
	return s
}

// =============================================================================
// Quote Operations
// =============================================================================

// Create validates the request and checks it fits the page layout, then
// allocates the next number of the current year, renders the PDF and stores
// the quote. Rendering happens before the insert so that a render failure
// leaves no record behind; the reserved number is then skipped.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest) (*CreateQuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "create")
	defer span.End()

	if err := s.validateStruct(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	q, err := quote.NewQuote(toClient(req.Client), toLines(req.Lines), quote.NewPayment(req.PaymentMode, req.PaymentDeadline))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrLineCount, len(q.Lines))
	if err := s.renderer.CheckFit(q); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	number, err := s.allocator.Allocate(ctx, q.IssuedAt().Year())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := q.AssignNumber(number); err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteNumber, number.String())

	doc, err := s.renderer.Render(ctx, q, number)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Quote number skipped after render failure",
			zap.String("number", number.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.quotes.Save(ctx, q); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save quote %s: %w", number, err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteID, q.ID)

	resp := &CreateQuoteResponse{
		QuoteResponse: toQuoteResponse(q),
		FileName:      doc.FileName(),
		PageCount:     doc.PageCount,
	}
	resp.ArchiveURL = s.archiveDocument(ctx, doc)

	if s.metrics != nil {
		s.metrics.RecordQuoteCreated(ctx, string(q.Payment.Mode))
	}
	s.logger.Info("Quote created",
		zap.Int64("quote_id", q.ID),
		zap.String("number", number.String()),
		zap.String("total", q.Totals.Total.String()),
		zap.Int("pages", doc.PageCount),
	)
	return resp, nil
}

// archiveDocument stores the PDF when an archive is configured. Archiving is
// best effort: the quote exists and can be re-rendered at any time.
func (s *Service) archiveDocument(ctx context.Context, doc *printing.RenderedDocument) string {
	if s.archive == nil {
		return ""
	}
	result, err := s.archive.Store(ctx, &printing.StoreRequest{Number: doc.Number, PDFData: doc.PDF})
	if err != nil {
		s.logger.Warn("Failed to archive quote PDF",
			zap.String("number", doc.Number.String()),
			zap.String("backend", s.backend),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordArchiveFailure(ctx, s.backend)
		}
		return ""
	}
	return result.URL
}

// Get returns a quote with its signature state
func (s *Service) Get(ctx context.Context, id int64) (*QuoteResponse, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toQuoteResponse(q)
	sig, err := s.findSignature(ctx, id)
	if err != nil {
		return nil, err
	}
	resp.Signed = sig != nil
	return &resp, nil
}

// List returns a page of the history, newest first
func (s *Service) List(ctx context.Context, req ListQuotesRequest) (*ListQuotesResponse, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	filter := quote.ListFilter{
		Page:      req.Page,
		PageSize:  req.PageSize,
		Status:    quote.Status(req.Status),
		Year:      req.Year,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	summaries, total, err := s.quotes.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]QuoteSummaryResponse, len(summaries))
	for i, sum := range summaries {
		items[i] = toSummaryResponse(sum)
	}
	page, size := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	return &ListQuotesResponse{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// defaultPageSize mirrors the repository default for the response echo
const defaultPageSize = 20

// ChangeStatus moves a quote to another status
func (s *Service) ChangeStatus(ctx context.Context, id int64, req ChangeStatusRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "change_status",
		telemetry.WithAttribute(telemetry.SpanAttrQuoteID, id))
	defer span.End()

	status := quote.Status(req.Status)
	if !status.IsValid() {
		return nil, quote.ErrInvalidStatus.WithMessage(fmt.Sprintf("unknown quote status %q", req.Status))
	}
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := q.Status
	if err := q.ChangeStatus(status); err != nil {
		return nil, err
	}
	if err := s.quotes.UpdateStatus(ctx, id, status); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordStatusChange(ctx, string(status))
	}
	s.logger.Info("Quote status changed",
		zap.Int64("quote_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)

	return s.Get(ctx, id)
}

// RenderPDF re-renders a stored quote. The stored number is reused; legacy
// rows without one print the identifier derived from their id.
func (s *Service) RenderPDF(ctx context.Context, id int64) (*PDFDocument, error) {
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.renderer.Render(ctx, q, quote.Number{})
	if err != nil {
		return nil, err
	}
	return &PDFDocument{
		Number:    doc.Number.String(),
		FileName:  doc.FileName(),
		Data:      doc.PDF,
		PageCount: doc.PageCount,
		Fallback:  doc.Fallback,
	}, nil
}

// =============================================================================
// Signature Operations
// =============================================================================

// CreateSignatureLink issues a link the client can sign the quote with
func (s *Service) CreateSignatureLink(ctx context.Context, id int64) (*SignatureLinkResponse, error) {
	if s.links == nil {
		return nil, ErrSignatureDisabled
	}
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sig, err := s.findSignature(ctx, id)
	if err != nil {
		return nil, err
	}
	if sig != nil {
		return nil, quote.ErrAlreadySigned.WithMessage(fmt.Sprintf("Quote %d is already signed", id))
	}

	number, _ := q.DocumentNumber()
	link, err := s.links.Issue(q.ID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to issue signature link: %w", err)
	}
	return &SignatureLinkResponse{
		QuoteID:   q.ID,
		Number:    number.String(),
		Token:     link.Token,
		URL:       link.URL,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

// ViewSignature returns the quote behind a link and whether it is signed
func (s *Service) ViewSignature(ctx context.Context, token string) (*SignatureViewResponse, error) {
	q, err := s.resolveLink(ctx, token)
	if err != nil {
		return nil, err
	}
	sig, err := s.findSignature(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	resp := &SignatureViewResponse{Quote: toQuoteResponse(q)}
	if sig != nil {
		signedAt := sig.SignedAt
		resp.Signed = true
		resp.Quote.Signed = true
		resp.SignedAt = &signedAt
	}
	return resp, nil
}

// Sign records the client's signature and accepts the quote. The signature
// is bound to the BLAKE2b-256 digest of the document as rendered now.
func (s *Service) Sign(ctx context.Context, token string, req SignRequest, clientIP string) (*SignResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "sign")
	defer span.End()

	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	q, err := s.resolveLink(ctx, token)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrQuoteID, q.ID)

	doc, err := s.renderer.Render(ctx, q, quote.Number{})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	digest := blake2b.Sum256(doc.PDF)

	sig, err := quote.NewSignature(q.ID, req.Signature, clientIP, hex.EncodeToString(digest[:]))
	if err != nil {
		return nil, err
	}
	if err := s.signatures.Record(ctx, sig); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordStatusChange(ctx, string(quote.StatusAccepted))
	}
	s.logger.Info("Quote signed",
		zap.Int64("quote_id", q.ID),
		zap.String("number", doc.Number.String()),
		zap.String("signer_ip", clientIP),
	)

	return &SignResponse{
		QuoteID:      q.ID,
		Number:       doc.Number.String(),
		Status:       string(quote.StatusAccepted),
		DocumentHash: sig.DocumentHash,
		SignedAt:     sig.SignedAt,
	}, nil
}

// resolveLink verifies the token and loads its quote. A token carrying a
// number that no longer matches the quote is rejected.
func (s *Service) resolveLink(ctx context.Context, token string) (*quote.Quote, error) {
	if s.links == nil {
		return nil, ErrSignatureDisabled
	}
	claims, err := s.links.Verify(token)
	if err != nil {
		if errors.Is(err, signing.ErrExpiredToken) {
			return nil, ErrExpiredSignatureLink
		}
		return nil, ErrInvalidSignatureLink
	}
	id, err := claims.QuoteID()
	if err != nil {
		return nil, ErrInvalidSignatureLink
	}
	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claims.Number != "" {
		if number, _ := q.DocumentNumber(); number.String() != claims.Number {
			s.logger.Warn("Signature link number does not match quote",
				zap.Int64("quote_id", id),
				zap.String("link_number", claims.Number),
				zap.String("quote_number", number.String()),
			)
			return nil, ErrInvalidSignatureLink
		}
	}
	return q, nil
}

// findSignature returns nil when the quote is not signed
func (s *Service) findSignature(ctx context.Context, quoteID int64) (*quote.Signature, error) {
	sig, err := s.signatures.FindByQuoteID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sig, nil
}

// =============================================================================
// Catalog and Email Operations
// =============================================================================

// ServiceTypes returns the service catalog ordered by name
func (s *Service) ServiceTypes(ctx context.Context) ([]ServiceTypeResponse, error) {
	types, err := s.serviceTypes.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ServiceTypeResponse, len(types))
	for i, t := range types {
		out[i] = ServiceTypeResponse{ID: t.ID, Name: t.Name, Unit: t.Unit, UnitPrice: t.UnitPrice}
	}
	return out, nil
}

// EmailTemplates lists the customer email templates
func (s *Service) EmailTemplates() []EmailTemplateResponse {
	return s.emails.Templates()
}

// RenderEmail fills a template for a quote. Templates that embed a signature
// link get a freshly issued one when links are enabled.
func (s *Service) RenderEmail(ctx context.Context, id int64, templateID string) (*RenderedEmailResponse, error) {
	needLink, ok := s.emails.needsLink(templateID)
	if !ok {
		return nil, ErrUnknownEmailTemplate.WithMessage(fmt.Sprintf("Unknown email template %q", templateID))
	}
	if needLink && templateID == EmailSignature && s.links == nil {
		return nil, ErrSignatureDisabled
	}

	q, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	number, _ := q.DocumentNumber()
	data := emailData{
		FirstName: q.Client.FirstName,
		LastName:  q.Client.LastName,
		Number:    number.String(),
		Amount:    q.Totals.Total.String(),
		Date:      q.IssuedAt().Format("02/01/2006"),
	}

	sig, err := s.findSignature(ctx, id)
	if err != nil {
		return nil, err
	}
	if sig != nil {
		data.SignedDate = sig.SignedAt.Format("02/01/2006 à 15:04")
	}
	if needLink && sig == nil && s.links != nil {
		link, err := s.links.Issue(q.ID, number)
		if err != nil {
			return nil, fmt.Errorf("failed to issue signature link: %w", err)
		}
		data.SignatureLink = link.URL
	}
	if templateID == EmailSignature && sig != nil {
		return nil, quote.ErrAlreadySigned.WithMessage(fmt.Sprintf("Quote %d is already signed", id))
	}

	subject, body, _, err := s.emails.compose(templateID, data)
	if err != nil {
		return nil, err
	}
	return &RenderedEmailResponse{
		Template: templateID,
		To:       q.Client.Email,
		Subject:  subject,
		Body:     body,
	}, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return quote.ErrInvalidRecord.WithMessage(err.Error())
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	return quote.ErrInvalidRecord.WithMessage(strings.Join(messages, "; "))
}

// jsonFieldName reports fields by their JSON or form name
func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func toClient(in ClientInput) quote.Client {
	return quote.Client{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Address:   in.Address,
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
	}
}

func toLines(in []LineInput) []quote.LineItem {
	lines := make([]quote.LineItem, len(in))
	for i, l := range in {
		var total *valueobject.Money
		if l.LineTotal != nil {
			t := valueobject.NewMoney(*l.LineTotal)
			total = &t
		}
		lines[i] = quote.NewLineItem(l.Description, l.Quantity, valueobject.NewMoney(l.UnitPrice), total)
		lines[i].ServiceTypeID = l.ServiceTypeID
	}
	return lines
}

func toQuoteResponse(q *quote.Quote) QuoteResponse {
	number, fallback := q.DocumentNumber()
	resp := QuoteResponse{
		ID:             q.ID,
		Number:         number.String(),
		NumberFallback: fallback,
		Client: ClientResponse{
			ID:        q.Client.ID,
			FirstName: q.Client.FirstName,
			LastName:  q.Client.LastName,
			Address:   q.Client.Address,
			Phone:     q.Client.Phone,
			Email:     q.Client.Email,
		},
		Lines:           make([]LineResponse, len(q.Lines)),
		PaymentMode:     string(q.Payment.Mode),
		PaymentDeadline: string(q.Payment.Deadline),
		Status:          string(q.Status),
		Subtotal:        q.Totals.Subtotal,
		Tax:             q.Totals.Tax,
		Total:           q.Totals.Total,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
	for i, l := range q.Lines {
		resp.Lines[i] = LineResponse{
			Position:      i + 1,
			Description:   l.Description,
			Quantity:      l.FormatQuantity(),
			UnitPrice:     l.UnitPrice,
			LineTotal:     l.LineTotal,
			ServiceTypeID: l.ServiceTypeID,
		}
	}
	return resp
}

func toSummaryResponse(sum quote.Summary) QuoteSummaryResponse {
	number := sum.Number
	if number.IsZero() {
		number = quote.FallbackNumber(sum.CreatedAt.Year(), sum.ID)
	}
	return QuoteSummaryResponse{
		ID:          sum.ID,
		Number:      number.String(),
		ClientName:  sum.ClientName,
		ClientEmail: sum.ClientEmail,
		Subtotal:    sum.Totals.Subtotal,
		Tax:         sum.Totals.Tax,
		Total:       sum.Totals.Total,
		Status:      string(sum.Status),
		CreatedAt:   sum.CreatedAt,
	}
}
