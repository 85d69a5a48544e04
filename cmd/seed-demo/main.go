// seed-demo fills an empty database with a demo company, a few parties
// and products, and a handful of invoices and payments so the desktop
// GUI has realistic data to render during development.
//
// The tool refuses to run against a database that already has a company,
// so it is safe to leave in a dev loop:
//
//	DB_PATH=gstbill.db go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/calc"
	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/models"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/shopspring/decimal"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "could not connect to database")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := context.Background()

	// Sequence counters and list caches from a previous database file
	// would collide with the fresh rows.
	config.ConnectRedisIfConfigured()
	if err := config.ClearRedis(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to clear redis:", err)
		os.Exit(1)
	}

	existing, err := models.GetCompanies(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to check for existing companies:", err)
		os.Exit(1)
	}
	if len(existing) > 0 {
		fmt.Printf("database already has %d company(ies), nothing to do\n", len(existing))
		os.Exit(0)
	}

	company, err := models.CreateCompany(ctx, &models.NewCompany{
		Name:    "Shree Ganesh Traders",
		Gstin:   "27AAPFU0939F1ZV",
		Address: "14 MG Road, Pune, Maharashtra",
		Phone:   "9822012345",
		Email:   "accounts@shreeganesh.example",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create company:", err)
		os.Exit(1)
	}
	fmt.Printf("company created: %s (%s)\n", company.Name, company.ID)

	ctx = utils.SetCompanyIdInContext(ctx, company.ID.String())

	parties := []models.NewParty{
		{Name: "Mehta Hardware", Gstin: "27AAPFU0939F1ZV", Phone: "9876543210", Address: "Shukrawar Peth, Pune"},
		{Name: "Karnataka Pipes & Fittings", Gstin: "29AABCT1332L1ZU", Email: "sales@kpf.example"},
		{Name: "Cash Counter", Notes: "walk-in sales"},
	}
	partyIds := make([]int, 0, len(parties))
	for _, input := range parties {
		party, err := models.CreateParty(ctx, &input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create party %q: %v\n", input.Name, err)
			os.Exit(1)
		}
		fmt.Printf("party created: %s (id=%d)\n", party.Name, party.ID)
		partyIds = append(partyIds, party.ID)
	}

	products := []models.NewProduct{
		{Name: "Copper Wire 1.5mm", HsnCode: "8544", Unit: "mtr", SaleRate: decimal.NewFromInt(42), TaxPercent: decimal.NewFromInt(18)},
		{Name: "PVC Pipe 2in", HsnCode: "3917", Unit: "pcs", SaleRate: decimal.NewFromInt(180), TaxPercent: decimal.NewFromInt(18)},
		{Name: "Wall Putty 20kg", HsnCode: "3214", Unit: "bag", SaleRate: decimal.NewFromFloat(650.50), TaxPercent: decimal.NewFromInt(28)},
		{Name: "Loose Nails", Unit: "kg", SaleRate: decimal.NewFromInt(95), TaxPercent: decimal.Zero},
	}
	items := make([]models.NewInvoiceItem, 0, len(products))
	for _, input := range products {
		product, err := models.CreateProduct(ctx, &input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create product %q: %v\n", input.Name, err)
			os.Exit(1)
		}
		fmt.Printf("product created: %s (id=%d)\n", product.Name, product.ID)
		items = append(items, models.NewInvoiceItem{
			ProductId:  product.ID,
			Name:       product.Name,
			HsnCode:    product.HsnCode,
			Unit:       product.Unit,
			Quantity:   decimal.NewFromInt(10),
			Rate:       product.SaleRate,
			TaxPercent: product.TaxPercent,
		})
	}

	now := time.Now()
	percent := calc.DiscountTypePercent
	invoices := []models.NewInvoice{
		{
			PartyId:        partyIds[0],
			InvoiceDate:    now.AddDate(0, 0, -45),
			TaxMode:        calc.TaxModeSameState,
			BillType:       models.BillTypeCredit,
			RoundingMode:   calc.RoundingModeHalfUp,
			LifecycleState: calc.LifecycleStateFinal,
			Items:          items[:2],
		},
		{
			PartyId:             partyIds[1],
			InvoiceDate:         now.AddDate(0, 0, -12),
			TaxMode:             calc.TaxModeOtherState,
			BillType:            models.BillTypeCredit,
			RoundingMode:        calc.RoundingModeHalfUp,
			LifecycleState:      calc.LifecycleStateFinal,
			InvoiceDiscount:     decimal.NewFromInt(5),
			InvoiceDiscountType: &percent,
			Items:               items[1:3],
		},
		{
			PartyId:        partyIds[2],
			InvoiceDate:    now.AddDate(0, 0, -2),
			TaxMode:        calc.TaxModeNonGst,
			BillType:       models.BillTypeCash,
			RoundingMode:   calc.RoundingModeNone,
			LifecycleState: calc.LifecycleStateFinal,
			Items:          items[3:],
		},
		{
			PartyId:      partyIds[0],
			InvoiceDate:  now,
			TaxMode:      calc.TaxModeSameState,
			BillType:     models.BillTypeCredit,
			RoundingMode: calc.RoundingModeHalfUp,
			OtherCharges: decimal.NewFromInt(120),
			Notes:        "awaiting confirmation",
			Items:        items[:1],
		},
	}
	created := make([]*models.Invoice, 0, len(invoices))
	for _, input := range invoices {
		invoice, err := models.CreateInvoice(ctx, &input)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to create invoice:", err)
			os.Exit(1)
		}
		fmt.Printf("invoice created: %s %s grand=%s status=%s\n",
			invoice.InvoiceNumber, invoice.LifecycleState, invoice.GrandTotal, invoice.CurrentStatus)
		created = append(created, invoice)
	}

	// one part payment against the aged invoice so the ledger shows a
	// partial, and one FIFO payment that rolls across the second party
	payments := []models.NewPayment{
		{
			PartyId:         partyIds[0],
			Amount:          decimal.NewFromInt(200),
			PaymentDate:     now.AddDate(0, 0, -20),
			Mode:            "UPI",
			SettlementMode:  calc.SettlementModeBillToBill,
			TargetInvoiceId: &created[0].ID,
		},
		{
			PartyId:        partyIds[1],
			Amount:         decimal.NewFromInt(3000),
			PaymentDate:    now.AddDate(0, 0, -1),
			Mode:           "Bank Transfer",
			SettlementMode: calc.SettlementModeFifo,
		},
	}
	for _, input := range payments {
		payment, err := models.CreatePayment(ctx, &input)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to create payment:", err)
			os.Exit(1)
		}
		fmt.Printf("payment created: %s %s amount=%s advance=%s\n",
			payment.PaymentNumber, payment.SettlementMode, payment.Amount, payment.AdvanceAmount)
	}

	fmt.Println("\ndemo data seeded")
}
