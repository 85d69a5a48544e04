package calc_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/taxnova/gstbill_backend/calc"
)

func TestApplyRounding(t *testing.T) {
	cases := []struct {
		mode    calc.RoundingMode
		raw     string
		want    string
		wantOff string
	}{
		{calc.RoundingModeNone, "299.37", "299.37", "0"},
		{calc.RoundingModeHalfUp, "299.37", "299", "-0.37"},
		{calc.RoundingModeHalfUp, "299.50", "300", "0.50"},
		{calc.RoundingModeHalfUp, "299.62", "300", "0.38"},
		{calc.RoundingModeDown, "299.99", "299", "-0.99"},
		{calc.RoundingModeUp, "299.01", "300", "0.99"},
		{calc.RoundingModeUp, "299", "299", "0"},
		{calc.RoundingModeDown, "-10.10", "-11", "-0.90"},
		{calc.RoundingModeUp, "-10.90", "-10", "0.90"},
		{calc.RoundingModeHalfUp, "-10.50", "-11", "-0.50"},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode)+" "+tc.raw, func(t *testing.T) {
			raw := decimal.RequireFromString(tc.raw)
			rounded, off, err := calc.ApplyRounding(raw, tc.mode)
			if err != nil {
				t.Fatalf("ApplyRounding: %v", err)
			}
			assertDecimal(t, "rounded", rounded, tc.want)
			assertDecimal(t, "round_off", off, tc.wantOff)
			if rounded.Cmp(raw.Add(off)) != 0 {
				t.Fatalf("rounded %s != raw %s + off %s", rounded, raw, off)
			}
		})
	}
}

func TestApplyRounding_UnknownModeIsAnError(t *testing.T) {
	_, _, err := calc.ApplyRounding(decimal.NewFromInt(10), calc.RoundingMode("Bankers"))
	var inputErr *calc.InvalidInvoiceInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("error = %v, want *InvalidInvoiceInputError", err)
	}
}

func TestEnumParsers(t *testing.T) {
	if _, ok := calc.ParseRoundingMode("Half Up"); !ok {
		t.Fatal("Half Up did not parse")
	}
	if _, ok := calc.ParseRoundingMode("half up"); ok {
		t.Fatal("rounding mode parse is not exact match")
	}
	if m, ok := calc.ParseTaxMode("Non-GST"); !ok || m != calc.TaxModeNonGst {
		t.Fatalf("ParseTaxMode = %q %v", m, ok)
	}
	if m, ok := calc.ParseSettlementMode("Bill to Bill"); !ok || m != calc.SettlementModeBillToBill {
		t.Fatalf("ParseSettlementMode = %q %v", m, ok)
	}
	if s, ok := calc.ParseLifecycleState("Final"); !ok || s != calc.LifecycleStateFinal {
		t.Fatalf("ParseLifecycleState = %q %v", s, ok)
	}
	if !calc.RoundingModeDown.Valid() || calc.RoundingMode("Floor").Valid() {
		t.Fatal("RoundingMode.Valid misbehaves")
	}
}
