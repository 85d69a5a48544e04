package calc

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// SettlementMode selects how a payment is spread over the party's
// outstanding invoices.
type SettlementMode string

const (
	SettlementModeBillToBill SettlementMode = "Bill to Bill"
	SettlementModeFifo       SettlementMode = "FIFO"
	SettlementModeDirect     SettlementMode = "Direct"
)

var settlementModes = map[string]SettlementMode{
	"Bill to Bill": SettlementModeBillToBill,
	"FIFO":         SettlementModeFifo,
	"Direct":       SettlementModeDirect,
}

func (m SettlementMode) Valid() bool {
	_, ok := settlementModes[string(m)]
	return ok
}

func ParseSettlementMode(s string) (SettlementMode, bool) {
	m, ok := settlementModes[s]
	return m, ok
}

// OutstandingInvoice is one open invoice as the storage layer supplies
// it: finalized, not cancelled, balance due greater than zero.
type OutstandingInvoice struct {
	Id         int
	Date       time.Time
	GrandTotal decimal.Decimal
	BalanceDue decimal.Decimal
}

// Allocation earmarks part of a payment against one invoice.
type Allocation struct {
	InvoiceId int
	Amount    decimal.Decimal
}

// AllocationResult is the plan AllocatePayment returns. The engine never
// writes anything; the caller applies the plan in one transaction and
// must treat it as provisional until committed.
type AllocationResult struct {
	Allocations   []Allocation
	AdvanceAmount decimal.Decimal
}

// AllocatePayment distributes amount over the outstanding invoices under
// the selected settlement mode and returns the plan.
//
// Bill to Bill allocates min(amount, balance) to the target invoice and
// the rest to advance; with no outstanding invoices at all the whole
// amount is advance and no target is needed. FIFO walks the invoices
// oldest first (date, then id) in a single pass and stops as soon as the
// amount runs out. Direct skips invoices entirely and credits the full
// amount as advance.
//
// Every returned plan satisfies sum(allocations) + advance == amount
// exactly, each allocation is positive and no allocation exceeds the
// balance the engine was shown. A violation comes back as
// *InconsistentTotalsError instead of a bad plan.
func AllocatePayment(amount decimal.Decimal, outstanding []OutstandingInvoice, mode SettlementMode, targetInvoiceId *int) (AllocationResult, error) {
	if !amount.IsPositive() {
		return AllocationResult{}, ErrorNonPositivePayment
	}
	for _, inv := range outstanding {
		if !inv.BalanceDue.IsPositive() {
			return AllocationResult{}, &AllocationOverflowError{InvoiceId: inv.Id, Requested: amount, Available: inv.BalanceDue}
		}
	}

	result := AllocationResult{AdvanceAmount: decimal.Zero}
	switch mode {
	case SettlementModeBillToBill:
		if len(outstanding) == 0 {
			result.AdvanceAmount = amount
			break
		}
		if targetInvoiceId == nil {
			return AllocationResult{}, ErrorNoTargetInvoice
		}
		var target *OutstandingInvoice
		for i := range outstanding {
			if outstanding[i].Id == *targetInvoiceId {
				target = &outstanding[i]
				break
			}
		}
		if target == nil {
			return AllocationResult{}, &AllocationOverflowError{InvoiceId: *targetInvoiceId, Requested: amount, Available: decimal.Zero}
		}
		alloc := decimal.Min(amount, target.BalanceDue)
		result.Allocations = append(result.Allocations, Allocation{InvoiceId: target.Id, Amount: alloc})
		result.AdvanceAmount = amount.Sub(alloc)

	case SettlementModeFifo:
		sorted := make([]OutstandingInvoice, len(outstanding))
		copy(sorted, outstanding)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Date.Equal(sorted[j].Date) {
				return sorted[i].Id < sorted[j].Id
			}
			return sorted[i].Date.Before(sorted[j].Date)
		})
		remaining := amount
		for _, inv := range sorted {
			if !remaining.IsPositive() {
				break
			}
			alloc := decimal.Min(remaining, inv.BalanceDue)
			result.Allocations = append(result.Allocations, Allocation{InvoiceId: inv.Id, Amount: alloc})
			remaining = remaining.Sub(alloc)
		}
		result.AdvanceAmount = remaining

	case SettlementModeDirect:
		result.AdvanceAmount = amount

	default:
		return AllocationResult{}, &InvalidInvoiceInputError{Field: "settlement_mode", Reason: "unknown mode " + string(mode)}
	}

	if err := verifyAllocationPlan(amount, outstanding, result); err != nil {
		return AllocationResult{}, err
	}
	return result, nil
}

// verifyAllocationPlan re-checks the post conditions before the plan
// leaves the engine: conservation to the smallest currency unit, positive
// allocations, nothing above the known balance, advance never negative.
func verifyAllocationPlan(amount decimal.Decimal, outstanding []OutstandingInvoice, result AllocationResult) error {
	balances := make(map[int]decimal.Decimal, len(outstanding))
	for _, inv := range outstanding {
		balances[inv.Id] = inv.BalanceDue
	}
	if result.AdvanceAmount.IsNegative() {
		return &InconsistentTotalsError{Check: "advance", Detail: "advance amount " + result.AdvanceAmount.String() + " is negative"}
	}
	total := result.AdvanceAmount
	for _, alloc := range result.Allocations {
		if !alloc.Amount.IsPositive() {
			return &InconsistentTotalsError{Check: "allocation", Detail: "non positive allocation on invoice " + strconv.Itoa(alloc.InvoiceId)}
		}
		balance, ok := balances[alloc.InvoiceId]
		if !ok || alloc.Amount.GreaterThan(balance) {
			return &AllocationOverflowError{InvoiceId: alloc.InvoiceId, Requested: alloc.Amount, Available: balance}
		}
		total = total.Add(alloc.Amount)
	}
	if total.Cmp(amount) != 0 {
		return &InconsistentTotalsError{Check: "conservation", Detail: "allocated " + total.String() + " of payment " + amount.String()}
	}
	return nil
}
