package handler

import (
	"context"

	quoteapp "github.com/OtmaneZ/btp-automation-system/internal/application/quote"
	"github.com/gin-gonic/gin"
)

// CatalogService lists the reference data used to compose quotes
type CatalogService interface {
	ServiceTypes(ctx context.Context) ([]quoteapp.ServiceTypeResponse, error)
	EmailTemplates() []quoteapp.EmailTemplateResponse
}

// CatalogHandler handles the service type and email template listings
type CatalogHandler struct {
	BaseHandler
	catalog CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ServiceTypes handles GET /service-types
func (h *CatalogHandler) ServiceTypes(c *gin.Context) {
	types, err := h.catalog.ServiceTypes(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, types)
}

// EmailTemplates handles GET /email-templates
func (h *CatalogHandler) EmailTemplates(c *gin.Context) {
	h.Success(c, h.catalog.EmailTemplates())
}
