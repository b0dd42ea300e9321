// Package quote contains the quote ("devis") aggregate: the client, the
// ordered line items, the payment terms, the computed totals and the
// year-scoped document number that identifies the quote once issued.
//
// Numbers have the stable form DEV-YYYY-NNNN. They are allocated once per
// quote by the numbering service and never change afterwards.
package quote
