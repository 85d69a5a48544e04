// Package calc is the billing computation core: line item math, invoice
// totals, payment allocation and status resolution as pure functions over
// in-memory snapshots. Nothing in this package reads or writes storage;
// callers apply the returned values inside their own transactions.
package calc

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TaxMode decides how the accumulated tax is attributed on a GST invoice.
type TaxMode string

const (
	TaxModeSameState  TaxMode = "Same State"
	TaxModeOtherState TaxMode = "Other State"
	TaxModeNonGst     TaxMode = "Non-GST"
)

var taxModes = map[string]TaxMode{
	"Same State":  TaxModeSameState,
	"Other State": TaxModeOtherState,
	"Non-GST":     TaxModeNonGst,
}

func (m TaxMode) Valid() bool {
	_, ok := taxModes[string(m)]
	return ok
}

func ParseTaxMode(s string) (TaxMode, bool) {
	m, ok := taxModes[s]
	return m, ok
}

// DiscountType distinguishes a percent discount ("P") from a flat
// amount ("A").
type DiscountType string

const (
	DiscountTypePercent DiscountType = "P"
	DiscountTypeAmount  DiscountType = "A"
)

// InvoiceDiscount is the invoice level discount applied on top of per
// item discounts. A percent discount is computed against the subtotal net
// of item discounts; a flat discount is taken literally. The zero value
// means no discount.
type InvoiceDiscount struct {
	Value decimal.Decimal
	Type  DiscountType
}

// InvoiceTotals is the immutable totals snapshot for one invoice. The
// engine returns it by value and never touches the invoice itself; the
// caller assigns it.
//
// Invariants: GrandTotal = Subtotal - TotalDiscount + TotalTax +
// OtherCharges + RoundOffAmount, exactly; TotalTax = Cgst + Sgst + Igst,
// exactly, with only one of the cgst/sgst pair and igst populated
// depending on the tax mode.
type InvoiceTotals struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	ItemDiscountTotal     decimal.Decimal `json:"item_discount_total"`
	InvoiceDiscountAmount decimal.Decimal `json:"invoice_discount_amount"`
	TotalDiscount         decimal.Decimal `json:"total_discount"`
	Cgst                  decimal.Decimal `json:"cgst"`
	Sgst                  decimal.Decimal `json:"sgst"`
	Igst                  decimal.Decimal `json:"igst"`
	TotalTax              decimal.Decimal `json:"total_tax"`
	OtherCharges          decimal.Decimal `json:"other_charges"`
	RoundOffAmount        decimal.Decimal `json:"round_off_amount"`
	GrandTotal            decimal.Decimal `json:"grand_total"`
	IsInterstate          bool            `json:"is_interstate"`
	IsNonGst              bool            `json:"is_non_gst"`
	ItemCount             int             `json:"item_count"`
}

// CalculateInvoiceTotals aggregates the line items, applies the invoice
// level discount and other charges, splits the tax per tax mode and
// rounds the grand total under the selected rounding mode.
//
// The cgst/sgst split happens at the aggregate, not per item: cgst is the
// half of the total tax rounded at the 4 decimal ledger precision, sgst
// is the exact remainder, so the two always add back to the full tax and
// nothing leaks into the round off.
//
// An empty item slice is valid and yields all zero totals. The first
// failing line item aborts the whole computation with its index attached.
// A grand total below zero is rejected: balances derived from it must
// never go negative.
func CalculateInvoiceTotals(items []LineItem, taxMode TaxMode, discount InvoiceDiscount, otherCharges decimal.Decimal, rounding RoundingMode) (InvoiceTotals, error) {
	if !taxMode.Valid() {
		return InvoiceTotals{}, &InvalidInvoiceInputError{Field: "tax_mode", Reason: "unknown mode " + string(taxMode)}
	}
	if !rounding.Valid() {
		return InvoiceTotals{}, &InvalidInvoiceInputError{Field: "rounding_mode", Reason: "unknown mode " + string(rounding)}
	}

	subtotal := decimal.Zero
	itemDiscountTotal := decimal.Zero
	taxTotal := decimal.Zero
	for i, item := range items {
		result, err := CalculateLineItem(item)
		if err != nil {
			var lineErr *InvalidLineItemError
			if errors.As(err, &lineErr) {
				lineErr.Index = i
			}
			return InvoiceTotals{}, err
		}
		subtotal = subtotal.Add(result.ItemSubtotal)
		itemDiscountTotal = itemDiscountTotal.Add(result.DiscountAmount)
		taxTotal = taxTotal.Add(result.TaxAmount)
	}

	cgst, sgst, igst := decimal.Zero, decimal.Zero, decimal.Zero
	switch taxMode {
	case TaxModeNonGst:
		// Non-GST bills carry no tax by policy, whatever the item rates say.
		taxTotal = decimal.Zero
	case TaxModeOtherState:
		igst = taxTotal
	case TaxModeSameState:
		cgst = taxTotal.DivRound(decimalTwo, 4)
		sgst = taxTotal.Sub(cgst)
	}

	invoiceDiscountAmount := decimal.Zero
	switch {
	case discount.Type == DiscountTypePercent:
		if discount.Value.IsNegative() || discount.Value.GreaterThan(decimalOneHundred) {
			return InvoiceTotals{}, &InvalidInvoiceInputError{Field: "invoice_discount", Reason: "percent " + discount.Value.String() + " out of range"}
		}
		invoiceDiscountAmount = percentOf(subtotal.Sub(itemDiscountTotal), discount.Value)
	case discount.Type == DiscountTypeAmount:
		if discount.Value.IsNegative() {
			return InvoiceTotals{}, &InvalidInvoiceInputError{Field: "invoice_discount", Reason: "flat amount " + discount.Value.String() + " is negative"}
		}
		invoiceDiscountAmount = discount.Value
	case discount.Type == "" && discount.Value.IsZero():
		// no invoice level discount
	default:
		return InvoiceTotals{}, &InvalidInvoiceInputError{Field: "invoice_discount", Reason: "unknown discount type " + string(discount.Type)}
	}

	totalDiscount := itemDiscountTotal.Add(invoiceDiscountAmount)
	totalTax := cgst.Add(sgst).Add(igst)
	rawTotal := subtotal.Sub(totalDiscount).Add(totalTax).Add(otherCharges)
	grandTotal, roundOff, err := ApplyRounding(rawTotal, rounding)
	if err != nil {
		return InvoiceTotals{}, err
	}
	if grandTotal.IsNegative() {
		// A discount or negative charge beyond the taxed subtotal would
		// persist a negative balance due downstream.
		return InvoiceTotals{}, &InvalidInvoiceInputError{Field: "grand_total", Reason: "discounts and charges drive the total to " + grandTotal.String()}
	}

	return InvoiceTotals{
		Subtotal:              subtotal,
		ItemDiscountTotal:     itemDiscountTotal,
		InvoiceDiscountAmount: invoiceDiscountAmount,
		TotalDiscount:         totalDiscount,
		Cgst:                  cgst,
		Sgst:                  sgst,
		Igst:                  igst,
		TotalTax:              totalTax,
		OtherCharges:          otherCharges,
		RoundOffAmount:        roundOff,
		GrandTotal:            grandTotal,
		IsInterstate:          taxMode == TaxModeOtherState,
		IsNonGst:              taxMode == TaxModeNonGst,
		ItemCount:             len(items),
	}, nil
}
