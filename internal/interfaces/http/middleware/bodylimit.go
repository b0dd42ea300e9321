package middleware

import (
	"fmt"
	"net/http"

	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies at maxBytes; zero or less disables it.
// A declared Content-Length over the cap is refused before the handler
// runs. Otherwise the body is wrapped so binding fails once the cap is
// crossed, which BaseHandler.BindError reports as 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	message := fmt.Sprintf("Request body exceeds %d bytes", maxBytes)

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(dto.ErrCodePayloadTooLarge, message, GetRequestID(c)))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
