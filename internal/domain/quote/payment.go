package quote

// PaymentMode is how the client settles the quote
type PaymentMode string

const (
	PaymentTransfer PaymentMode = "transfer" // virement
	PaymentCheck    PaymentMode = "check"    // chèque
	PaymentCash     PaymentMode = "cash"     // espèces
	PaymentCard     PaymentMode = "card"     // carte bancaire
)

// DefaultPaymentMode applies when the record carries no mode
const DefaultPaymentMode = PaymentTransfer

// DefaultPaymentModeLabel is printed for a mode outside the known set
const DefaultPaymentModeLabel = "Virement - Chèque"

// IsValid checks if the PaymentMode is a known value
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentTransfer, PaymentCheck, PaymentCash, PaymentCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMode
func (m PaymentMode) String() string {
	return string(m)
}

// Label returns the French label printed in the general conditions.
// For an unknown mode it returns DefaultPaymentModeLabel and false.
func (m PaymentMode) Label() (string, bool) {
	switch m {
	case PaymentTransfer:
		return "Virement bancaire", true
	case PaymentCheck:
		return "Chèque", true
	case PaymentCash:
		return "Espèces", true
	case PaymentCard:
		return "Carte bancaire", true
	default:
		return DefaultPaymentModeLabel, false
	}
}

// AllPaymentModes returns all valid PaymentMode values
func AllPaymentModes() []PaymentMode {
	return []PaymentMode{PaymentTransfer, PaymentCheck, PaymentCash, PaymentCard}
}

// PaymentDeadline is when payment is due
type PaymentDeadline string

const (
	DeadlineOnReceipt PaymentDeadline = "on-receipt"
	Deadline15Days    PaymentDeadline = "15d"
	Deadline30Days    PaymentDeadline = "30d"
	Deadline45Days    PaymentDeadline = "45d"
	Deadline60Days    PaymentDeadline = "60d"
)

// DefaultPaymentDeadline applies when the record carries no deadline
const DefaultPaymentDeadline = Deadline30Days

// DefaultPaymentDeadlineLabel is printed for a deadline outside the known set
const DefaultPaymentDeadlineLabel = "comptant à réception"

// IsValid checks if the PaymentDeadline is a known value
func (d PaymentDeadline) IsValid() bool {
	switch d {
	case DeadlineOnReceipt, Deadline15Days, Deadline30Days, Deadline45Days, Deadline60Days:
		return true
	}
	return false
}

// String returns the string representation of PaymentDeadline
func (d PaymentDeadline) String() string {
	return string(d)
}

// Label returns the French label completing "Nos prestations sont payables ...".
// For an unknown deadline it returns DefaultPaymentDeadlineLabel and false.
func (d PaymentDeadline) Label() (string, bool) {
	switch d {
	case DeadlineOnReceipt:
		return "comptant à réception", true
	case Deadline15Days:
		return "à 15 jours", true
	case Deadline30Days:
		return "à 30 jours", true
	case Deadline45Days:
		return "à 45 jours", true
	case Deadline60Days:
		return "à 60 jours", true
	default:
		return DefaultPaymentDeadlineLabel, false
	}
}

// AllPaymentDeadlines returns all valid PaymentDeadline values
func AllPaymentDeadlines() []PaymentDeadline {
	return []PaymentDeadline{DeadlineOnReceipt, Deadline15Days, Deadline30Days, Deadline45Days, Deadline60Days}
}

// Payment holds the payment terms of a quote
type Payment struct {
	Mode     PaymentMode
	Deadline PaymentDeadline
}

// NewPayment builds payment terms, substituting the defaults for absent values.
// Unknown values are kept as given; they print with the default label.
func NewPayment(mode, deadline string) Payment {
	p := Payment{Mode: PaymentMode(mode), Deadline: PaymentDeadline(deadline)}
	if p.Mode == "" {
		p.Mode = DefaultPaymentMode
	}
	if p.Deadline == "" {
		p.Deadline = DefaultPaymentDeadline
	}
	return p
}

// DefaultPayment returns transfer / 30 days
func DefaultPayment() Payment {
	return Payment{Mode: DefaultPaymentMode, Deadline: DefaultPaymentDeadline}
}

// RequiresBankDetails reports whether the bank block is printed
func (p Payment) RequiresBankDetails() bool {
	return p.Mode == PaymentTransfer
}
