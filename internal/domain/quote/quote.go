package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared"
	"github.com/OtmaneZ/btp-automation-system/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TaxRate is the flat VAT rate applied to every quote
var TaxRate = decimal.New(20, -2)

// TaxRatePercent is TaxRate as printed on documents
const TaxRatePercent = 20

// Status is the commercial state of a quote
type Status string

const (
	StatusDraft    Status = "brouillon"
	StatusSent     Status = "envoye"
	StatusAccepted Status = "accepte"
	StatusRefused  Status = "refuse"
)

// IsValid checks if the Status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// AllStatuses returns all valid Status values
func AllStatuses() []Status {
	return []Status{StatusDraft, StatusSent, StatusAccepted, StatusRefused}
}

// Client is the recipient of a quote
type Client struct {
	ID        int64
	FirstName string
	LastName  string
	Address   string
	Phone     string
	Email     string
}

// FullName returns "first last", as printed on the document
func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// AddressLines splits the free-text address on explicit line breaks,
// dropping blank lines
func (c Client) AddressLines() []string {
	return SplitLines(c.Address)
}

// SplitLines splits text on \n (tolerating \r\n) and drops blank lines
func SplitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(strings.TrimSuffix(l, "\r"))
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// LineItem is one priced row of a quote
type LineItem struct {
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     valueobject.Money
	LineTotal     valueobject.Money
	ServiceTypeID *int64
}

// NewLineItem creates a line item. When lineTotal is nil it is computed as
// quantity × unit price rounded to cents; otherwise the caller's value is kept.
func NewLineItem(description string, quantity decimal.Decimal, unitPrice valueobject.Money, lineTotal *valueobject.Money) LineItem {
	item := LineItem{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}
	if lineTotal != nil {
		item.LineTotal = *lineTotal
	} else {
		item.LineTotal = unitPrice.Multiply(quantity).RoundCents()
	}
	return item
}

// FormatQuantity prints the quantity in its shortest decimal form ("10", "2.5")
func (l LineItem) FormatQuantity() string {
	return l.Quantity.String()
}

// Totals are the summary amounts of a quote
type Totals struct {
	Subtotal valueobject.Money // total HT
	Tax      valueobject.Money // TVA
	Total    valueobject.Money // total TTC
}

// ComputeTotals sums the line totals and applies the flat tax rate:
// subtotal = Σ lineTotal, tax = round(subtotal × 0.20, 2), total = subtotal + tax
func ComputeTotals(lines []LineItem) Totals {
	subtotal := valueobject.Zero()
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	return TotalsFor(subtotal)
}

// TotalsFor derives tax and total from an already accumulated subtotal
func TotalsFor(subtotal valueobject.Money) Totals {
	tax := subtotal.Multiply(TaxRate).RoundCents()
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Quote is the aggregate root for a priced proposal
type Quote struct {
	shared.BaseEntity
	Number  Number
	Client  Client
	Lines   []LineItem
	Payment Payment
	Status  Status
	Totals  Totals
}

// NewQuote creates a draft quote, validating it and computing its totals.
// The number is assigned later by the numbering service.
func NewQuote(client Client, lines []LineItem, payment Payment) (*Quote, error) {
	q := &Quote{
		BaseEntity: shared.NewBaseEntity(),
		Client:     client,
		Lines:      lines,
		Payment:    payment,
		Status:     StatusDraft,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.Recalculate()
	return q, nil
}

// Validate checks the fields the document cannot be produced without.
// Prices are not checked; the caller is trusted for numeric correctness.
func (q *Quote) Validate() error {
	if strings.TrimSpace(q.Client.LastName) == "" {
		return invalid("client last name is required")
	}
	for i, l := range q.Lines {
		if l.Quantity.IsNegative() {
			return invalid(fmt.Sprintf("line %d: quantity cannot be negative", i+1))
		}
	}
	return nil
}

// Recalculate refreshes the totals from the current lines
func (q *Quote) Recalculate() {
	q.Totals = ComputeTotals(q.Lines)
}

// AssignNumber sets the document number. A number is assigned exactly once.
func (q *Quote) AssignNumber(n Number) error {
	if !q.Number.IsZero() {
		return ErrNumberAlreadyAssigned
	}
	if n.IsZero() {
		return invalid("cannot assign an empty quote number")
	}
	q.Number = n
	q.Touch()
	return nil
}

// DocumentNumber returns the assigned number, or the deterministic fallback
// derived from the record id and creation year when none was stored.
// The boolean reports whether the fallback was used.
func (q *Quote) DocumentNumber() (Number, bool) {
	if !q.Number.IsZero() {
		return q.Number, false
	}
	return FallbackNumber(q.IssuedAt().Year(), q.ID), true
}

// IssuedAt returns the date printed on the document
func (q *Quote) IssuedAt() time.Time {
	if q.CreatedAt.IsZero() {
		return time.Now()
	}
	return q.CreatedAt
}

// ChangeStatus moves the quote to the given status
func (q *Quote) ChangeStatus(s Status) error {
	if !s.IsValid() {
		return ErrInvalidStatus.WithMessage(fmt.Sprintf("unknown quote status %q", s))
	}
	q.Status = s
	q.Touch()
	return nil
}
