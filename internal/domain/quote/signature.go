package quote

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Signature is a client's electronic acceptance of a quote
type Signature struct {
	ID           uuid.UUID
	QuoteID      int64
	Data         string // captured signature, usually a data URL
	ClientIP     string
	DocumentHash string // hex digest of the PDF the client accepted
	SignedAt     time.Time
}

// NewSignature creates a signature for the quote
func NewSignature(quoteID int64, data, clientIP, documentHash string) (*Signature, error) {
	if quoteID <= 0 {
		return nil, invalid("quote id is required")
	}
	if strings.TrimSpace(data) == "" {
		return nil, invalid("signature data is required")
	}
	return &Signature{
		ID:           uuid.New(),
		QuoteID:      quoteID,
		Data:         data,
		ClientIP:     clientIP,
		DocumentHash: documentHash,
		SignedAt:     time.Now(),
	}, nil
}
