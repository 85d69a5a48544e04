package calc

import (
	"github.com/shopspring/decimal"
)

// LineItem carries the raw inputs for one invoice line. Quantity and Rate
// are free precision decimals; both percent fields run 0 to 100.
type LineItem struct {
	Quantity        decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal
}

// LineItemResult is the derived money breakdown for one line. It is
// recomputed from the raw inputs whenever any of them changes and is
// never edited in place.
type LineItemResult struct {
	ItemSubtotal   decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	LineTotal      decimal.Decimal
}

// CalculateLineItem computes one line's discount, taxable amount and tax
// at full decimal precision. Negative inputs and percents above 100 are
// rejected with *InvalidLineItemError, never clamped.
func CalculateLineItem(item LineItem) (LineItemResult, error) {
	if err := validateLineItem(item, -1); err != nil {
		return LineItemResult{}, err
	}
	itemSubtotal := item.Quantity.Mul(item.Rate)
	discountAmount := percentOf(itemSubtotal, item.DiscountPercent)
	taxableAmount := itemSubtotal.Sub(discountAmount)
	taxAmount := percentOf(taxableAmount, item.TaxPercent)
	return LineItemResult{
		ItemSubtotal:   itemSubtotal,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxableAmount,
		TaxAmount:      taxAmount,
		LineTotal:      taxableAmount.Add(taxAmount),
	}, nil
}

func validateLineItem(item LineItem, index int) error {
	switch {
	case item.Quantity.IsNegative():
		return &InvalidLineItemError{Index: index, Field: "quantity", Value: item.Quantity}
	case item.Rate.IsNegative():
		return &InvalidLineItemError{Index: index, Field: "rate", Value: item.Rate}
	case item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(decimalOneHundred):
		return &InvalidLineItemError{Index: index, Field: "discount_percent", Value: item.DiscountPercent}
	case item.TaxPercent.IsNegative() || item.TaxPercent.GreaterThan(decimalOneHundred):
		return &InvalidLineItemError{Index: index, Field: "tax_percent", Value: item.TaxPercent}
	}
	return nil
}
