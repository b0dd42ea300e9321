package handler

import (
	"context"
	"net/http"
	"strconv"

	quoteapp "github.com/OtmaneZ/btp-automation-system/internal/application/quote"
	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// QuoteService is the part of quoteapp.Service used by QuoteHandler
type QuoteService interface {
	Create(ctx context.Context, req quoteapp.CreateQuoteRequest) (*quoteapp.CreateQuoteResponse, error)
	Get(ctx context.Context, id int64) (*quoteapp.QuoteResponse, error)
	List(ctx context.Context, req quoteapp.ListQuotesRequest) (*quoteapp.ListQuotesResponse, error)
	ChangeStatus(ctx context.Context, id int64, req quoteapp.ChangeStatusRequest) (*quoteapp.QuoteResponse, error)
	RenderPDF(ctx context.Context, id int64) (*quoteapp.PDFDocument, error)
	CreateSignatureLink(ctx context.Context, id int64) (*quoteapp.SignatureLinkResponse, error)
	RenderEmail(ctx context.Context, id int64, templateID string) (*quoteapp.RenderedEmailResponse, error)
}

// QuoteHandler handles the quote endpoints
type QuoteHandler struct {
	BaseHandler
	quotes QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// Create handles POST /quotes. The response carries the allocated number
// and the totals.
func (h *QuoteHandler) Create(c *gin.Context) {
	var req quoteapp.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.quotes.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Location", "/api/v1/quotes/"+strconv.FormatInt(resp.ID, 10))
	h.Created(c, resp)
}

// Get handles GET /quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	resp, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /quotes, newest first
func (h *QuoteHandler) List(c *gin.Context) {
	var req quoteapp.ListQuotesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.quotes.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp.Items, resp.Total, resp.Page, resp.PageSize)
}

// ChangeStatus handles PATCH /quotes/:id/status
func (h *QuoteHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}
	var req quoteapp.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.quotes.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DownloadPDF handles GET /quotes/:id/pdf. The document is rendered again
// from the stored record. ?inline=true asks the browser to display it.
func (h *QuoteHandler) DownloadPDF(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	doc, err := h.quotes.RenderPDF(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	disposition := "attachment"
	if inline, _ := strconv.ParseBool(c.Query("inline")); inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition+"; filename=\""+doc.FileName+"\"")
	c.Header("X-Quote-Number", doc.Number)
	c.Header("X-Page-Count", strconv.Itoa(doc.PageCount))
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}

// CreateSignatureLink handles POST /quotes/:id/signature-link
func (h *QuoteHandler) CreateSignatureLink(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	resp, err := h.quotes.CreateSignatureLink(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RenderEmail handles GET /quotes/:id/email/:template
func (h *QuoteHandler) RenderEmail(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	resp, err := h.quotes.RenderEmail(c.Request.Context(), id, c.Param("template"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *QuoteHandler) quoteID(c *gin.Context) (int64, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid quote ID")
		return 0, false
	}
	return req.ID, true
}
