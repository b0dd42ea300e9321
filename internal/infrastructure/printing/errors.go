package printing

import "errors"

// ErrRenderFailure matches every composition or encoding failure with
// errors.Is. Archive failures do not match it.
var ErrRenderFailure = errors.New("quote rendering failed")

// Failure codes carried by RenderError
const (
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidInput  = "INVALID_RENDER_INPUT"
	ErrCodeStorageFailed = "STORAGE_FAILED"
)

// RenderError is returned by the engine and the PDF archives
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

// NewRenderError builds a RenderError; cause may be nil
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

func (e *RenderError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *RenderError) Unwrap() error { return e.Cause }

// Is compares codes against another RenderError
func (e *RenderError) Is(target error) bool {
	switch t := target.(type) {
	case *RenderError:
		return t.Code == e.Code
	default:
		return target == ErrRenderFailure && e.Code != ErrCodeStorageFailed
	}
}

// IsStorageFailure reports whether err came from a PDF archive
func IsStorageFailure(err error) bool {
	var re *RenderError
	return errors.As(err, &re) && re.Code == ErrCodeStorageFailed
}
