package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/OtmaneZ/btp-automation-system/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes gin's validator report JSON (or form) field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("uri"), ",", 2)[0]
			}
			return name
		})
	}
}

// FormatValidationErrors lists every invalid field of err. Messages name
// the field the way domain validation does ("client.last_name is required").
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := fieldPath(e)
			details = append(details, dto.ValidationDetail{
				Field:   field,
				Message: field + " " + constraintText(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// fieldPath drops the root struct name: CreateQuoteRequest.client.email
// becomes client.email
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func constraintText(e validator.FieldError) string {
	kind := e.Type().Kind()
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min", "gte":
		switch kind {
		case reflect.String:
			return "must be at least " + e.Param() + " characters"
		case reflect.Slice:
			return "must contain at least " + e.Param() + " items"
		}
		return "must be at least " + e.Param()
	case "max", "lte":
		switch kind {
		case reflect.String:
			return "must be at most " + e.Param() + " characters"
		case reflect.Slice:
			return "must contain at most " + e.Param() + " items"
		}
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
