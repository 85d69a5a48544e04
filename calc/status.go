package calc

import (
	"time"

	"github.com/shopspring/decimal"
)

// LifecycleState is the one way Draft to Final editability gate. Items,
// discounts and tax mode freeze on Final; only payments may move the paid
// amount, balance and status afterwards.
type LifecycleState string

const (
	LifecycleStateDraft LifecycleState = "Draft"
	LifecycleStateFinal LifecycleState = "Final"
)

var lifecycleStates = map[string]LifecycleState{
	"Draft": LifecycleStateDraft,
	"Final": LifecycleStateFinal,
}

func (s LifecycleState) Valid() bool {
	_, ok := lifecycleStates[string(s)]
	return ok
}

func ParseLifecycleState(s string) (LifecycleState, bool) {
	l, ok := lifecycleStates[s]
	return l, ok
}

// InvoiceStatus is the derived payment status of an invoice. Pending is a
// legacy value still present on imported rows; the resolver accepts it as
// input but never emits it, it resolves like Unpaid.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "Draft"
	InvoiceStatusPending   InvoiceStatus = "Pending"
	InvoiceStatusUnpaid    InvoiceStatus = "Unpaid"
	InvoiceStatusPartial   InvoiceStatus = "Partial"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusOverdue   InvoiceStatus = "Overdue"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
)

// OverdueAfterDays is the credit period. An unpaid balance older than
// this flips the status to Overdue on resolution.
const OverdueAfterDays = 30

// StatusSnapshot is the slice of invoice state the resolver reads.
type StatusSnapshot struct {
	LifecycleState LifecycleState
	CurrentStatus  InvoiceStatus
	InvoiceDate    time.Time
	GrandTotal     decimal.Decimal
	BalanceDue     decimal.Decimal
}

// ResolveInvoiceStatus derives the status for a snapshot at a given day.
// Pure function; the caller persists the result. Cancelled is sticky and
// set externally, the resolver never computes it away. Overdue overrides
// Unpaid and Partial only, never Paid or Cancelled.
func ResolveInvoiceStatus(snap StatusSnapshot, today time.Time) InvoiceStatus {
	if snap.CurrentStatus == InvoiceStatusCancelled {
		return InvoiceStatusCancelled
	}
	if snap.LifecycleState != LifecycleStateFinal {
		return InvoiceStatusDraft
	}
	if snap.BalanceDue.Sign() <= 0 && snap.GrandTotal.IsPositive() {
		return InvoiceStatusPaid
	}
	status := InvoiceStatusUnpaid
	if snap.BalanceDue.IsPositive() && snap.BalanceDue.LessThan(snap.GrandTotal) {
		status = InvoiceStatusPartial
	}
	if snap.BalanceDue.IsPositive() && today.After(snap.InvoiceDate.AddDate(0, 0, OverdueAfterDays)) {
		return InvoiceStatusOverdue
	}
	return status
}
