package calc_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/taxnova/gstbill_backend/calc"
)

func TestCalculateLineItem_Basic(t *testing.T) {
	result, err := calc.CalculateLineItem(calc.LineItem{
		Quantity:        decimal.NewFromInt(2),
		Rate:            decimal.NewFromInt(100),
		DiscountPercent: decimal.NewFromInt(10),
		TaxPercent:      decimal.NewFromInt(18),
	})
	if err != nil {
		t.Fatalf("CalculateLineItem: %v", err)
	}
	assertDecimal(t, "item_subtotal", result.ItemSubtotal, "200")
	assertDecimal(t, "discount_amount", result.DiscountAmount, "20")
	assertDecimal(t, "taxable_amount", result.TaxableAmount, "180")
	assertDecimal(t, "tax_amount", result.TaxAmount, "32.4")
	assertDecimal(t, "line_total", result.LineTotal, "212.4")
}

func TestCalculateLineItem_FullPrecisionNoPerLineRounding(t *testing.T) {
	result, err := calc.CalculateLineItem(calc.LineItem{
		Quantity:        decimal.RequireFromString("1.5"),
		Rate:            decimal.RequireFromString("99.99"),
		DiscountPercent: decimal.RequireFromString("2.5"),
		TaxPercent:      decimal.NewFromInt(18),
	})
	if err != nil {
		t.Fatalf("CalculateLineItem: %v", err)
	}
	assertDecimal(t, "item_subtotal", result.ItemSubtotal, "149.985")
	assertDecimal(t, "discount_amount", result.DiscountAmount, "3.749625")
	assertDecimal(t, "taxable_amount", result.TaxableAmount, "146.235375")
	assertDecimal(t, "tax_amount", result.TaxAmount, "26.3223675")
	assertDecimal(t, "line_total", result.LineTotal, "172.5577425")
}

func TestCalculateLineItem_ZeroQuantityAndFullDiscountAreValid(t *testing.T) {
	result, err := calc.CalculateLineItem(calc.LineItem{
		Quantity:   decimal.Zero,
		Rate:       decimal.NewFromInt(500),
		TaxPercent: decimal.NewFromInt(12),
	})
	if err != nil {
		t.Fatalf("zero quantity: %v", err)
	}
	if !result.LineTotal.IsZero() {
		t.Fatalf("zero quantity line total = %s, want 0", result.LineTotal)
	}

	result, err = calc.CalculateLineItem(calc.LineItem{
		Quantity:        decimal.NewFromInt(3),
		Rate:            decimal.NewFromInt(40),
		DiscountPercent: decimal.NewFromInt(100),
		TaxPercent:      decimal.NewFromInt(18),
	})
	if err != nil {
		t.Fatalf("full discount: %v", err)
	}
	assertDecimal(t, "discount_amount", result.DiscountAmount, "120")
	if !result.TaxableAmount.IsZero() || !result.TaxAmount.IsZero() {
		t.Fatalf("full discount taxable = %s tax = %s, want both 0", result.TaxableAmount, result.TaxAmount)
	}
}

func TestCalculateLineItem_RejectsOutOfRangeInputs(t *testing.T) {
	cases := []struct {
		name  string
		item  calc.LineItem
		field string
	}{
		{"negative quantity", calc.LineItem{Quantity: decimal.NewFromInt(-1), Rate: decimal.NewFromInt(10)}, "quantity"},
		{"negative rate", calc.LineItem{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(-10)}, "rate"},
		{"negative discount", calc.LineItem{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10), DiscountPercent: decimal.NewFromInt(-1)}, "discount_percent"},
		{"discount above hundred", calc.LineItem{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10), DiscountPercent: decimal.RequireFromString("100.01")}, "discount_percent"},
		{"negative tax", calc.LineItem{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10), TaxPercent: decimal.NewFromInt(-5)}, "tax_percent"},
		{"tax above hundred", calc.LineItem{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10), TaxPercent: decimal.NewFromInt(101)}, "tax_percent"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := calc.CalculateLineItem(tc.item)
			var lineErr *calc.InvalidLineItemError
			if !errors.As(err, &lineErr) {
				t.Fatalf("error = %v, want *InvalidLineItemError", err)
			}
			if lineErr.Field != tc.field {
				t.Fatalf("field = %q, want %q", lineErr.Field, tc.field)
			}
			if lineErr.Index != -1 {
				t.Fatalf("index = %d, want -1 for single item computation", lineErr.Index)
			}
		})
	}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if got.Cmp(decimal.RequireFromString(want)) != 0 {
		t.Fatalf("%s = %s, want %s", name, got.String(), want)
	}
}
