package models_test

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/calc"
	"bitbucket.org/taxnova/gstbill_backend/models"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/shopspring/decimal"
)

func TestPartyValidation(t *testing.T) {
	ctx := setupBillingTest(t)

	party, err := models.CreateParty(ctx, &models.NewParty{
		Name:  "Sharma Electricals",
		Gstin: "29aabct1332l1zu",
	})
	if err != nil {
		t.Fatalf("CreateParty: %v", err)
	}
	if party.Gstin != "29AABCT1332L1ZU" {
		t.Fatalf("expected gstin stored uppercase; got %s", party.Gstin)
	}
	if party.StateCode != "29" {
		t.Fatalf("expected state code derived from gstin; got %q", party.StateCode)
	}

	cases := []struct {
		name  string
		input models.NewParty
		want  string
	}{
		{"duplicate name", models.NewParty{Name: "Sharma Electricals"}, "duplicate name"},
		{"bad gstin", models.NewParty{Name: "Gupta Traders", Gstin: "29AABCT1332L1XU"}, "invalid gstin"},
		{"state mismatch", models.NewParty{Name: "Gupta Traders", Gstin: "29AABCT1332L1ZU", StateCode: "27"}, "state code does not match gstin"},
		{"bad email", models.NewParty{Name: "Gupta Traders", Email: "not-an-email"}, "invalid email"},
	}
	for _, c := range cases {
		input := c.input
		_, err := models.CreateParty(ctx, &input)
		if err == nil || err.Error() != c.want {
			t.Fatalf("%s: expected %q; got %v", c.name, c.want, err)
		}
	}

	if _, err := models.CreateParty(ctx, &models.NewParty{Name: "Gupta Traders", Phone: "12"}); err == nil {
		t.Fatal("expected a phone validation error")
	}

	// a party keeps its own name on update
	updated, err := models.UpdateParty(ctx, party.ID, &models.NewParty{
		Name:  "Sharma Electricals",
		Gstin: "29AABCT1332L1ZU",
		Phone: "9876543210",
	})
	if err != nil {
		t.Fatalf("UpdateParty: %v", err)
	}
	if updated.Phone != "9876543210" {
		t.Fatalf("expected phone updated; got %s", updated.Phone)
	}
}

func TestDeleteParty_Guards(t *testing.T) {
	ctx := setupBillingTest(t)

	billed := createTestParty(t, ctx, "Billed Party")
	createFinalInvoice(t, ctx, billed.ID, time.Now(), 100)
	if _, err := models.DeleteParty(ctx, billed.ID); !errors.Is(err, models.ErrorPartyHasRecords) {
		t.Fatalf("expected ErrorPartyHasRecords for a billed party; got %v", err)
	}

	paid := createTestParty(t, ctx, "Paid Party")
	_, err := models.CreatePayment(ctx, &models.NewPayment{
		PartyId:        paid.ID,
		Amount:         decimal.NewFromInt(50),
		PaymentDate:    time.Now(),
		Mode:           "Cash",
		SettlementMode: calc.SettlementModeDirect,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if _, err := models.DeleteParty(ctx, paid.ID); !errors.Is(err, models.ErrorPartyHasRecords) {
		t.Fatalf("expected ErrorPartyHasRecords for a party with payments; got %v", err)
	}

	clean := createTestParty(t, ctx, "Clean Party")
	if _, err := models.DeleteParty(ctx, clean.ID); err != nil {
		t.Fatalf("DeleteParty: %v", err)
	}
	if _, err := models.GetParty(ctx, clean.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected deleted party to be gone; got %v", err)
	}
}

func TestToggleActiveParty(t *testing.T) {
	ctx := setupBillingTest(t)
	party := createTestParty(t, ctx, "Seasonal Buyer")

	toggled, err := models.ToggleActiveParty(ctx, party.ID, false)
	if err != nil {
		t.Fatalf("ToggleActiveParty: %v", err)
	}
	if toggled.IsActive == nil || *toggled.IsActive {
		t.Fatal("expected party inactive")
	}

	active, err := models.GetParties(ctx, nil, utils.NewTrue())
	if err != nil {
		t.Fatalf("GetParties: %v", err)
	}
	for _, p := range active {
		if p.ID == party.ID {
			t.Fatal("inactive party listed among active parties")
		}
	}

	all, err := models.GetParties(ctx, nil, nil)
	if err != nil {
		t.Fatalf("GetParties: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected the inactive party in the unfiltered list; got %d rows", len(all))
	}
}

func TestProductValidation(t *testing.T) {
	ctx := setupBillingTest(t)

	if _, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Copper Wire", SaleRate: decimal.NewFromInt(250), TaxPercent: decimal.NewFromInt(18), HsnCode: "8544"}); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	cases := []struct {
		name  string
		input models.NewProduct
		want  string
	}{
		{"duplicate name", models.NewProduct{Name: "Copper Wire"}, "duplicate name"},
		{"bad hsn", models.NewProduct{Name: "PVC Conduit", HsnCode: "12345"}, "invalid hsn code"},
		{"negative rate", models.NewProduct{Name: "PVC Conduit", SaleRate: decimal.NewFromInt(-1)}, "sale rate cannot be negative"},
		{"tax above 100", models.NewProduct{Name: "PVC Conduit", TaxPercent: decimal.NewFromInt(101)}, "tax percent must be between 0 and 100"},
	}
	for _, c := range cases {
		input := c.input
		_, err := models.CreateProduct(ctx, &input)
		if err == nil || err.Error() != c.want {
			t.Fatalf("%s: expected %q; got %v", c.name, c.want, err)
		}
	}
}

func TestDeleteProduct_Guards(t *testing.T) {
	ctx := setupBillingTest(t)
	party := createTestParty(t, ctx, "Sharma Electricals")
	product := createTestProduct(t, ctx, "Copper Wire", 250, 18)

	// a draft is enough to pin the product, its lines already reference it
	_, err := models.CreateInvoice(ctx, &models.NewInvoice{
		PartyId:      party.ID,
		InvoiceDate:  time.Now(),
		TaxMode:      calc.TaxModeSameState,
		BillType:     models.BillTypeCredit,
		RoundingMode: calc.RoundingModeNone,
		Items: []models.NewInvoiceItem{
			{ProductId: product.ID, Name: product.Name, Quantity: decimal.NewFromInt(2), Rate: product.SaleRate, TaxPercent: product.TaxPercent},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if _, err := models.DeleteProduct(ctx, product.ID); !errors.Is(err, models.ErrorProductInUse) {
		t.Fatalf("expected ErrorProductInUse; got %v", err)
	}

	spare := createTestProduct(t, ctx, "Spare Fuse", 10, 0)
	if _, err := models.DeleteProduct(ctx, spare.ID); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if _, err := models.GetProduct(ctx, spare.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected deleted product to be gone; got %v", err)
	}
}
