package calc_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/taxnova/gstbill_backend/calc"
)

func singleItem(qty, rate, discountPct, taxPct string) []calc.LineItem {
	return []calc.LineItem{{
		Quantity:        decimal.RequireFromString(qty),
		Rate:            decimal.RequireFromString(rate),
		DiscountPercent: decimal.RequireFromString(discountPct),
		TaxPercent:      decimal.RequireFromString(taxPct),
	}}
}

func TestCalculateInvoiceTotals_DiscountLayering(t *testing.T) {
	// 1000 with 10% item discount leaves 900; a further 5% invoice
	// discount is computed on the 900, so the discounts stack to 145.
	totals, err := calc.CalculateInvoiceTotals(
		singleItem("1", "1000", "10", "0"),
		calc.TaxModeSameState,
		calc.InvoiceDiscount{Value: decimal.NewFromInt(5), Type: calc.DiscountTypePercent},
		decimal.Zero,
		calc.RoundingModeNone,
	)
	if err != nil {
		t.Fatalf("CalculateInvoiceTotals: %v", err)
	}
	assertDecimal(t, "subtotal", totals.Subtotal, "1000")
	assertDecimal(t, "item_discount_total", totals.ItemDiscountTotal, "100")
	assertDecimal(t, "invoice_discount_amount", totals.InvoiceDiscountAmount, "45")
	assertDecimal(t, "total_discount", totals.TotalDiscount, "145")
	assertDecimal(t, "grand_total", totals.GrandTotal, "855")
}

func TestCalculateInvoiceTotals_FlatInvoiceDiscountIsLiteral(t *testing.T) {
	totals, err := calc.CalculateInvoiceTotals(
		singleItem("1", "1000", "10", "0"),
		calc.TaxModeSameState,
		calc.InvoiceDiscount{Value: decimal.RequireFromString("45.50"), Type: calc.DiscountTypeAmount},
		decimal.Zero,
		calc.RoundingModeNone,
	)
	if err != nil {
		t.Fatalf("CalculateInvoiceTotals: %v", err)
	}
	assertDecimal(t, "invoice_discount_amount", totals.InvoiceDiscountAmount, "45.50")
	assertDecimal(t, "total_discount", totals.TotalDiscount, "145.50")
	assertDecimal(t, "grand_total", totals.GrandTotal, "854.50")
}

func TestCalculateInvoiceTotals_TaxModeExclusivity(t *testing.T) {
	items := []calc.LineItem{
		{Quantity: decimal.NewFromInt(2), Rate: decimal.NewFromInt(250), TaxPercent: decimal.NewFromInt(18)},
		{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(100), TaxPercent: decimal.NewFromInt(5)},
	}
	// 2x250 @18% = 90 tax, 1x100 @5% = 5 tax.
	wantTax := decimal.NewFromInt(95)

	sameState, err := calc.CalculateInvoiceTotals(items, calc.TaxModeSameState, calc.InvoiceDiscount{}, decimal.Zero, calc.RoundingModeNone)
	if err != nil {
		t.Fatalf("same state: %v", err)
	}
	if sameState.Cgst.IsZero() || sameState.Sgst.IsZero() || !sameState.Igst.IsZero() {
		t.Fatalf("same state split cgst=%s sgst=%s igst=%s, want cgst/sgst only", sameState.Cgst, sameState.Sgst, sameState.Igst)
	}
	if sameState.Cgst.Add(sameState.Sgst).Cmp(wantTax) != 0 {
		t.Fatalf("cgst+sgst = %s, want %s", sameState.Cgst.Add(sameState.Sgst), wantTax)
	}
	if sameState.IsInterstate || sameState.IsNonGst {
		t.Fatalf("same state flags interstate=%v nonGst=%v", sameState.IsInterstate, sameState.IsNonGst)
	}

	otherState, err := calc.CalculateInvoiceTotals(items, calc.TaxModeOtherState, calc.InvoiceDiscount{}, decimal.Zero, calc.RoundingModeNone)
	if err != nil {
		t.Fatalf("other state: %v", err)
	}
	if !otherState.Cgst.IsZero() || !otherState.Sgst.IsZero() {
		t.Fatalf("other state leaked cgst=%s sgst=%s", otherState.Cgst, otherState.Sgst)
	}
	if otherState.Igst.Cmp(wantTax) != 0 || !otherState.IsInterstate {
		t.Fatalf("igst = %s interstate=%v, want %s true", otherState.Igst, otherState.IsInterstate, wantTax)
	}

	nonGst, err := calc.CalculateInvoiceTotals(items, calc.TaxModeNonGst, calc.InvoiceDiscount{}, decimal.Zero, calc.RoundingModeNone)
	if err != nil {
		t.Fatalf("non gst: %v", err)
	}
	if !nonGst.Cgst.IsZero() || !nonGst.Sgst.IsZero() || !nonGst.Igst.IsZero() || !nonGst.TotalTax.IsZero() {
		t.Fatalf("non gst carried tax: cgst=%s sgst=%s igst=%s total=%s", nonGst.Cgst, nonGst.Sgst, nonGst.Igst, nonGst.TotalTax)
	}
	if !nonGst.IsNonGst {
		t.Fatal("non gst flag not set")
	}
	assertDecimal(t, "non gst grand total", nonGst.GrandTotal, "600")
}

func TestCalculateInvoiceTotals_SameStateSplitConservesOddTax(t *testing.T) {
	// Tax of 0.0025 cannot bisect at 4 decimals: cgst takes the rounded
	// half, sgst the exact remainder, and the two sum back losslessly.
	totals, err := calc.CalculateInvoiceTotals(
		singleItem("1", "0.05", "0", "5"),
		calc.TaxModeSameState,
		calc.InvoiceDiscount{},
		decimal.Zero,
		calc.RoundingModeNone,
	)
	if err != nil {
		t.Fatalf("CalculateInvoiceTotals: %v", err)
	}
	assertDecimal(t, "total_tax", totals.TotalTax, "0.0025")
	assertDecimal(t, "cgst", totals.Cgst, "0.0013")
	assertDecimal(t, "sgst", totals.Sgst, "0.0012")
	if totals.Cgst.Add(totals.Sgst).Cmp(totals.TotalTax) != 0 {
		t.Fatalf("cgst %s + sgst %s != total tax %s", totals.Cgst, totals.Sgst, totals.TotalTax)
	}
}

func TestCalculateInvoiceTotals_RoundOffIdentityForEveryMode(t *testing.T) {
	// raw total: 100 - 0 + 18 + 0.60 = 118.60
	items := singleItem("1", "100", "0", "18")
	other := decimal.RequireFromString("0.60")

	cases := []struct {
		mode      calc.RoundingMode
		wantTotal string
		wantOff   string
	}{
		{calc.RoundingModeNone, "118.60", "0"},
		{calc.RoundingModeHalfUp, "119", "0.40"},
		{calc.RoundingModeDown, "118", "-0.60"},
		{calc.RoundingModeUp, "119", "0.40"},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			totals, err := calc.CalculateInvoiceTotals(items, calc.TaxModeSameState, calc.InvoiceDiscount{}, other, tc.mode)
			if err != nil {
				t.Fatalf("CalculateInvoiceTotals: %v", err)
			}
			assertDecimal(t, "grand_total", totals.GrandTotal, tc.wantTotal)
			assertDecimal(t, "round_off_amount", totals.RoundOffAmount, tc.wantOff)

			raw := totals.Subtotal.Sub(totals.TotalDiscount).Add(totals.TotalTax).Add(totals.OtherCharges)
			if totals.GrandTotal.Cmp(raw.Add(totals.RoundOffAmount)) != 0 {
				t.Fatalf("grand_total %s != raw %s + round_off %s", totals.GrandTotal, raw, totals.RoundOffAmount)
			}
		})
	}
}

func TestCalculateInvoiceTotals_IdempotentForIdenticalInputs(t *testing.T) {
	items := []calc.LineItem{
		{Quantity: decimal.RequireFromString("2.5"), Rate: decimal.RequireFromString("199.99"), DiscountPercent: decimal.RequireFromString("7.5"), TaxPercent: decimal.NewFromInt(28)},
		{Quantity: decimal.NewFromInt(3), Rate: decimal.RequireFromString("33.33"), TaxPercent: decimal.NewFromInt(12)},
	}
	discount := calc.InvoiceDiscount{Value: decimal.RequireFromString("2.25"), Type: calc.DiscountTypePercent}
	other := decimal.RequireFromString("-1.05")

	first, err := calc.CalculateInvoiceTotals(items, calc.TaxModeSameState, discount, other, calc.RoundingModeHalfUp)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := calc.CalculateInvoiceTotals(items, calc.TaxModeSameState, discount, other, calc.RoundingModeHalfUp)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}

	pairs := []struct {
		name string
		a, b decimal.Decimal
	}{
		{"subtotal", first.Subtotal, second.Subtotal},
		{"item_discount_total", first.ItemDiscountTotal, second.ItemDiscountTotal},
		{"invoice_discount_amount", first.InvoiceDiscountAmount, second.InvoiceDiscountAmount},
		{"total_discount", first.TotalDiscount, second.TotalDiscount},
		{"cgst", first.Cgst, second.Cgst},
		{"sgst", first.Sgst, second.Sgst},
		{"igst", first.Igst, second.Igst},
		{"total_tax", first.TotalTax, second.TotalTax},
		{"other_charges", first.OtherCharges, second.OtherCharges},
		{"round_off_amount", first.RoundOffAmount, second.RoundOffAmount},
		{"grand_total", first.GrandTotal, second.GrandTotal},
	}
	for _, p := range pairs {
		if p.a.String() != p.b.String() {
			t.Fatalf("%s differs between identical computations: %s vs %s", p.name, p.a, p.b)
		}
	}
}

func TestCalculateInvoiceTotals_EmptyItemsIsValid(t *testing.T) {
	totals, err := calc.CalculateInvoiceTotals(nil, calc.TaxModeSameState, calc.InvoiceDiscount{}, decimal.Zero, calc.RoundingModeNone)
	if err != nil {
		t.Fatalf("CalculateInvoiceTotals: %v", err)
	}
	if !totals.GrandTotal.IsZero() || !totals.Subtotal.IsZero() || !totals.TotalTax.IsZero() {
		t.Fatalf("empty invoice totals not zero: %+v", totals)
	}
	if totals.ItemCount != 0 {
		t.Fatalf("item_count = %d, want 0", totals.ItemCount)
	}
}

func TestCalculateInvoiceTotals_FirstBadItemAbortsWithIndex(t *testing.T) {
	items := []calc.LineItem{
		{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(10)},
		{Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(-10)},
		{Quantity: decimal.NewFromInt(-1), Rate: decimal.NewFromInt(10)},
	}
	_, err := calc.CalculateInvoiceTotals(items, calc.TaxModeSameState, calc.InvoiceDiscount{}, decimal.Zero, calc.RoundingModeNone)
	var lineErr *calc.InvalidLineItemError
	if !errors.As(err, &lineErr) {
		t.Fatalf("error = %v, want *InvalidLineItemError", err)
	}
	if lineErr.Index != 1 || lineErr.Field != "rate" {
		t.Fatalf("error = index %d field %q, want index 1 field rate", lineErr.Index, lineErr.Field)
	}
}

func TestCalculateInvoiceTotals_RejectsBadInvoiceInputs(t *testing.T) {
	items := singleItem("1", "100", "0", "18")

	_, err := calc.CalculateInvoiceTotals(items, calc.TaxMode("Union Territory"), calc.InvoiceDiscount{}, decimal.Zero, calc.RoundingModeNone)
	assertInvoiceInputError(t, err, "tax_mode")

	_, err = calc.CalculateInvoiceTotals(items, calc.TaxModeSameState, calc.InvoiceDiscount{}, decimal.Zero, calc.RoundingMode("Bankers"))
	assertInvoiceInputError(t, err, "rounding_mode")

	_, err = calc.CalculateInvoiceTotals(items, calc.TaxModeSameState,
		calc.InvoiceDiscount{Value: decimal.NewFromInt(120), Type: calc.DiscountTypePercent}, decimal.Zero, calc.RoundingModeNone)
	assertInvoiceInputError(t, err, "invoice_discount")

	_, err = calc.CalculateInvoiceTotals(items, calc.TaxModeSameState,
		calc.InvoiceDiscount{Value: decimal.NewFromInt(-5), Type: calc.DiscountTypeAmount}, decimal.Zero, calc.RoundingModeNone)
	assertInvoiceInputError(t, err, "invoice_discount")

	_, err = calc.CalculateInvoiceTotals(items, calc.TaxModeSameState,
		calc.InvoiceDiscount{Value: decimal.NewFromInt(5), Type: calc.DiscountType("X")}, decimal.Zero, calc.RoundingModeNone)
	assertInvoiceInputError(t, err, "invoice_discount")
}

func TestCalculateInvoiceTotals_RejectsNegativeGrandTotal(t *testing.T) {
	items := singleItem("1", "100", "0", "0")

	// flat discount bigger than the whole bill
	_, err := calc.CalculateInvoiceTotals(items, calc.TaxModeNonGst,
		calc.InvoiceDiscount{Value: decimal.NewFromInt(500), Type: calc.DiscountTypeAmount}, decimal.Zero, calc.RoundingModeNone)
	assertInvoiceInputError(t, err, "grand_total")

	// a negative adjustment can sink the total just the same
	_, err = calc.CalculateInvoiceTotals(items, calc.TaxModeNonGst,
		calc.InvoiceDiscount{}, decimal.NewFromInt(-200), calc.RoundingModeNone)
	assertInvoiceInputError(t, err, "grand_total")

	// discounting down to exactly zero stays a valid invoice
	totals, err := calc.CalculateInvoiceTotals(items, calc.TaxModeNonGst,
		calc.InvoiceDiscount{Value: decimal.NewFromInt(100), Type: calc.DiscountTypeAmount}, decimal.Zero, calc.RoundingModeNone)
	if err != nil {
		t.Fatalf("CalculateInvoiceTotals: %v", err)
	}
	assertDecimal(t, "grand_total", totals.GrandTotal, "0")

	// -0.4 rounds to zero under Half Up, so the stored total never dips
	totals, err = calc.CalculateInvoiceTotals(items, calc.TaxModeNonGst,
		calc.InvoiceDiscount{Value: decimal.RequireFromString("100.4"), Type: calc.DiscountTypeAmount}, decimal.Zero, calc.RoundingModeHalfUp)
	if err != nil {
		t.Fatalf("CalculateInvoiceTotals: %v", err)
	}
	assertDecimal(t, "grand_total", totals.GrandTotal, "0")
	assertDecimal(t, "round_off_amount", totals.RoundOffAmount, "0.4")
}

func assertInvoiceInputError(t *testing.T, err error, field string) {
	t.Helper()
	var inputErr *calc.InvalidInvoiceInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("error = %v, want *InvalidInvoiceInputError", err)
	}
	if inputErr.Field != field {
		t.Fatalf("field = %q, want %q", inputErr.Field, field)
	}
}
