package quote

import "github.com/OtmaneZ/btp-automation-system/internal/domain/shared"

// Error codes
const (
	CodeAllocationExhausted = "ALLOCATION_EXHAUSTED"
	CodeInvalidRecord       = "INVALID_RECORD"
	CodeNumberTaken         = "NUMBER_TAKEN"
	CodeNumberAssigned      = "NUMBER_ALREADY_ASSIGNED"
	CodeAlreadySigned       = "ALREADY_SIGNED"
	CodeInvalidStatus       = "INVALID_STATUS"
)

var (
	// ErrAllocationExhausted is returned when no free number could be reserved
	// within the retry ceiling, or the year partition has no 4-digit sequence left.
	ErrAllocationExhausted = shared.NewDomainError(CodeAllocationExhausted, "Unable to allocate a unique quote number")

	// ErrInvalidRecord is returned when a quote is missing a required field or
	// carries a malformed one. Use WithMessage for the field-specific detail.
	ErrInvalidRecord = shared.NewDomainError(CodeInvalidRecord, "Quote record is invalid")

	// ErrNumberTaken is returned by a SequenceStore when the proposed number
	// has already been reserved by another caller.
	ErrNumberTaken = shared.NewDomainError(CodeNumberTaken, "Quote number already reserved")

	// ErrNumberAlreadyAssigned is returned when assigning a number to a quote that has one
	ErrNumberAlreadyAssigned = shared.NewDomainError(CodeNumberAssigned, "Quote number is immutable once assigned")

	// ErrAlreadySigned is returned when a quote already carries a signature
	ErrAlreadySigned = shared.NewDomainError(CodeAlreadySigned, "Quote already signed")

	// ErrInvalidStatus is returned for an unknown status value
	ErrInvalidStatus = shared.NewDomainError(CodeInvalidStatus, "Unknown quote status")
)

func invalid(message string) error {
	return ErrInvalidRecord.WithMessage(message)
}
