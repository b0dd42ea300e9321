package handler

import (
	"context"

	quoteapp "github.com/OtmaneZ/btp-automation-system/internal/application/quote"
	"github.com/gin-gonic/gin"
)

// SignatureService is the part of quoteapp.Service behind the public
// signature pages
type SignatureService interface {
	ViewSignature(ctx context.Context, token string) (*quoteapp.SignatureViewResponse, error)
	Sign(ctx context.Context, token string, req quoteapp.SignRequest, clientIP string) (*quoteapp.SignResponse, error)
}

// SignatureHandler serves the links sent to clients. The token is the only
// credential.
type SignatureHandler struct {
	BaseHandler
	signatures SignatureService
}

// NewSignatureHandler creates a new SignatureHandler
func NewSignatureHandler(signatures SignatureService) *SignatureHandler {
	return &SignatureHandler{signatures: signatures}
}

// View handles GET /signatures/:token
func (h *SignatureHandler) View(c *gin.Context) {
	resp, err := h.signatures.ViewSignature(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Sign handles POST /signatures/:token
func (h *SignatureHandler) Sign(c *gin.Context) {
	var req quoteapp.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.signatures.Sign(c.Request.Context(), c.Param("token"), req, c.ClientIP())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
