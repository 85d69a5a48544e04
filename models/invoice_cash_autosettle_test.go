package models_test

import (
	"testing"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/calc"
	"bitbucket.org/taxnova/gstbill_backend/models"
	"github.com/shopspring/decimal"
)

func TestCashInvoice_AutoSettlesOnFinalize(t *testing.T) {
	ctx := setupBillingTest(t)
	party := createTestParty(t, ctx, "Walk In Counter")

	rate, _ := decimal.NewFromString("99.50")
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		PartyId:        party.ID,
		InvoiceDate:    time.Now(),
		TaxMode:        calc.TaxModeSameState,
		BillType:       models.BillTypeCash,
		RoundingMode:   calc.RoundingModeHalfUp,
		LifecycleState: calc.LifecycleStateFinal,
		Items: []models.NewInvoiceItem{
			{Name: "Pipe Fitting", Quantity: decimal.NewFromInt(3), Rate: rate, TaxPercent: decimal.NewFromInt(18)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// 298.50 + 53.73 tax = 352.23, rounded half up to 352
	if invoice.GrandTotal.Cmp(decimal.NewFromInt(352)) != 0 {
		t.Fatalf("expected grand total 352; got %s", invoice.GrandTotal)
	}
	wantRoundOff, _ := decimal.NewFromString("-0.23")
	if invoice.RoundOffAmount.Cmp(wantRoundOff) != 0 {
		t.Fatalf("expected round off -0.23; got %s", invoice.RoundOffAmount)
	}

	// the settling payment lands in the same transaction
	if invoice.LifecycleState != calc.LifecycleStateFinal {
		t.Fatalf("expected Final; got %s", invoice.LifecycleState)
	}
	if invoice.CurrentStatus != calc.InvoiceStatusPaid {
		t.Fatalf("expected a cash bill to come out Paid; got %s", invoice.CurrentStatus)
	}
	if !invoice.BalanceDue.IsZero() {
		t.Fatalf("expected zero balance; got %s", invoice.BalanceDue)
	}
	if invoice.PaidAmount.Cmp(invoice.GrandTotal) != 0 {
		t.Fatalf("expected paid amount %s; got %s", invoice.GrandTotal, invoice.PaidAmount)
	}

	settling, err := models.GetInvoicePayments(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoicePayments: %v", err)
	}
	if len(settling) != 1 {
		t.Fatalf("expected exactly one settling payment; got %d", len(settling))
	}
	payment := settling[0]
	if payment.Mode != "Cash" {
		t.Fatalf("expected mode Cash; got %s", payment.Mode)
	}
	if payment.SettlementMode != calc.SettlementModeBillToBill {
		t.Fatalf("expected bill to bill; got %s", payment.SettlementMode)
	}
	if payment.Amount.Cmp(invoice.GrandTotal) != 0 {
		t.Fatalf("expected payment %s; got %s", invoice.GrandTotal, payment.Amount)
	}
	if !payment.AdvanceAmount.IsZero() {
		t.Fatalf("expected no advance on an exact settle; got %s", payment.AdvanceAmount)
	}
	if len(payment.Allocations) != 1 || payment.Allocations[0].InvoiceId != invoice.ID {
		t.Fatalf("expected one allocation on the invoice; got %+v", payment.Allocations)
	}
}

func TestCashInvoice_AutoSettleDisabled(t *testing.T) {
	ctx := setupBillingTest(t)
	t.Setenv("DISABLE_CASH_AUTOSETTLE", "true")
	party := createTestParty(t, ctx, "Walk In Counter")

	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		PartyId:        party.ID,
		InvoiceDate:    time.Now(),
		TaxMode:        calc.TaxModeNonGst,
		BillType:       models.BillTypeCash,
		RoundingMode:   calc.RoundingModeNone,
		LifecycleState: calc.LifecycleStateFinal,
		Items: []models.NewInvoiceItem{
			{Name: "Service", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(500)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if invoice.CurrentStatus != calc.InvoiceStatusUnpaid {
		t.Fatalf("expected Unpaid with auto settle off; got %s", invoice.CurrentStatus)
	}
	if invoice.BalanceDue.Cmp(decimal.NewFromInt(500)) != 0 {
		t.Fatalf("expected full balance; got %s", invoice.BalanceDue)
	}

	settling, err := models.GetInvoicePayments(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoicePayments: %v", err)
	}
	if len(settling) != 0 {
		t.Fatalf("expected no payments; got %d", len(settling))
	}
}

func TestCashInvoice_ZeroTotalSkipsSettle(t *testing.T) {
	ctx := setupBillingTest(t)
	party := createTestParty(t, ctx, "Walk In Counter")

	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		PartyId:        party.ID,
		InvoiceDate:    time.Now(),
		TaxMode:        calc.TaxModeNonGst,
		BillType:       models.BillTypeCash,
		RoundingMode:   calc.RoundingModeNone,
		LifecycleState: calc.LifecycleStateFinal,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if !invoice.GrandTotal.IsZero() {
		t.Fatalf("expected zero grand total; got %s", invoice.GrandTotal)
	}
	// zero total bills never count as Paid and never settle
	if invoice.CurrentStatus != calc.InvoiceStatusUnpaid {
		t.Fatalf("expected Unpaid; got %s", invoice.CurrentStatus)
	}

	settling, err := models.GetInvoicePayments(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoicePayments: %v", err)
	}
	if len(settling) != 0 {
		t.Fatalf("expected no payments on a zero bill; got %d", len(settling))
	}
}
