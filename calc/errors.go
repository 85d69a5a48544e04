package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrorNoTargetInvoice    = errors.New("no target invoice selected for bill to bill settlement")
	ErrorNonPositivePayment = errors.New("payment amount must be greater than zero")
)

// InvalidLineItemError reports a rejected line item input, naming the
// offending field. Index is the zero based position of the item inside an
// invoice computation, or -1 when a single item was computed on its own.
type InvalidLineItemError struct {
	Index int
	Field string
	Value decimal.Decimal
}

func (e *InvalidLineItemError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("line item %d: %s %s out of range", e.Index, e.Field, e.Value.String())
	}
	return fmt.Sprintf("line item: %s %s out of range", e.Field, e.Value.String())
}

// InvalidInvoiceInputError reports a rejected invoice level input
// (discount, rounding mode, tax mode) outside any single line item.
type InvalidInvoiceInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInvoiceInputError) Error() string {
	return fmt.Sprintf("invalid invoice input %s: %s", e.Field, e.Reason)
}

// AllocationOverflowError reports a plan that would allocate more than an
// invoice's balance as known to the engine. It means the caller handed in
// a stale or malformed outstanding snapshot; the engine never clamps the
// amount down silently.
type AllocationOverflowError struct {
	InvoiceId int
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *AllocationOverflowError) Error() string {
	return fmt.Sprintf("invoice %d: requested allocation %s exceeds available balance %s",
		e.InvoiceId, e.Requested.String(), e.Available.String())
}

// InconsistentTotalsError reports a failed post condition, e.g. an
// allocation plan that does not conserve the payment amount. This class
// is a programming error, not user input trouble.
type InconsistentTotalsError struct {
	Check  string
	Detail string
}

func (e *InconsistentTotalsError) Error() string {
	return fmt.Sprintf("inconsistent totals on %s: %s", e.Check, e.Detail)
}
