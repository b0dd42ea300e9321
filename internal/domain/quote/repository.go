package quote

import (
	"context"
	"time"
)

// SequenceStore is the persistent state behind number allocation
type SequenceStore interface {
	// MaxSequence returns the highest sequence reserved in the year, 0 if none
	MaxSequence(ctx context.Context, year int) (int, error)

	// Reserve records the number if it is free. It returns ErrNumberTaken when
	// another caller holds it; any other error is a store failure.
	Reserve(ctx context.Context, n Number) error
}

// ListFilter is the paging and filtering input of the history listing
type ListFilter struct {
	Page      int
	PageSize  int
	Status    Status
	Year      int
	// SortBy is a column name; unknown columns fall back to creation date
	SortBy    string
	SortOrder string
}

// Summary is one row of the quote history
type Summary struct {
	ID          int64
	Number      Number
	ClientName  string
	ClientEmail string
	Totals      Totals
	Status      Status
	CreatedAt   time.Time
}

// QuoteRepository persists quotes with their client and lines
type QuoteRepository interface {
	// Save inserts a new quote, its client and its lines in one transaction
	// and assigns their ids
	Save(ctx context.Context, q *Quote) error

	// FindByID loads a quote with its client and ordered lines
	FindByID(ctx context.Context, id int64) (*Quote, error)

	// List returns a page of summaries, newest first, and the total count
	List(ctx context.Context, filter ListFilter) ([]Summary, int64, error)

	// UpdateStatus changes the status of a quote
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

// SignatureRepository persists client signatures
type SignatureRepository interface {
	// FindByQuoteID returns the signature of a quote, or shared.ErrNotFound
	FindByQuoteID(ctx context.Context, quoteID int64) (*Signature, error)

	// Record stores the signature and marks the quote accepted atomically.
	// It returns ErrAlreadySigned if the quote already has a signature.
	Record(ctx context.Context, s *Signature) error
}

// ServiceTypeRepository reads the service catalog
type ServiceTypeRepository interface {
	// List returns all catalog entries ordered by name
	List(ctx context.Context) ([]ServiceType, error)
}
