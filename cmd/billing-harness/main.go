package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/calc"
	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/models"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/shopspring/decimal"
)

// billing-harness drives randomized settlements against a throwaway
// SQLite database and re-checks the money invariants from the stored
// rows after every payment: sum(allocations) + advance == amount to the
// paisa, no invoice balance below zero, no party advance below zero.
//
// Example:
//
//	go run ./cmd/billing-harness --attempts=200 --seed=42
func main() {
	var (
		attempts = flag.Int("attempts", 100, "number of randomized payments")
		parties  = flag.Int("parties", 4, "number of parties to spread invoices over")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "rng seed, printed so a failure can be replayed")
		dbPath   = flag.String("db", "", "database file (default: a temp file, removed on success)")
		keepDb   = flag.Bool("keep-db", false, "keep the database file for inspection")
	)
	flag.Parse()

	path := *dbPath
	if path == "" {
		dir, err := os.MkdirTemp("", "billing-harness")
		if err != nil {
			fmt.Fprintln(os.Stderr, "temp dir:", err)
			os.Exit(1)
		}
		path = filepath.Join(dir, "harness.db")
		if !*keepDb {
			defer os.RemoveAll(dir)
		}
	}
	os.Setenv("DB_PATH", path)
	os.Setenv("REDIS_ADDRESS", "")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	rng := rand.New(rand.NewSource(*seed))
	fmt.Printf("seed=%d db=%s\n", *seed, path)

	company, err := models.CreateCompany(context.Background(), &models.NewCompany{
		Name:  "Harness Traders",
		Gstin: "27AAPFU0939F1ZV",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "seed company:", err)
		os.Exit(1)
	}
	ctx := utils.SetCompanyIdInContext(context.Background(), company.ID.String())

	partyIds := make([]int, 0, *parties)
	for i := 0; i < *parties; i++ {
		party, err := models.CreateParty(ctx, &models.NewParty{Name: fmt.Sprintf("Party %d", i+1)})
		if err != nil {
			fmt.Fprintln(os.Stderr, "seed party:", err)
			os.Exit(1)
		}
		partyIds = append(partyIds, party.ID)
	}

	modes := []calc.SettlementMode{calc.SettlementModeBillToBill, calc.SettlementModeFifo, calc.SettlementModeDirect}
	invoices, payments, advances, violations := 0, 0, 0, 0

	for attempt := 0; attempt < *attempts; attempt++ {
		partyId := partyIds[rng.Intn(len(partyIds))]

		// keep a pool of open invoices around, then pay against it
		if rng.Intn(3) > 0 {
			if err := bookRandomInvoice(ctx, rng, partyId); err != nil {
				fmt.Fprintf(os.Stderr, "attempt %d: invoice: %v\n", attempt, err)
				os.Exit(1)
			}
			invoices++
			continue
		}

		mode := modes[rng.Intn(len(modes))]
		outstanding, err := models.GetOutstandingInvoices(ctx, partyId)
		if err != nil {
			fmt.Fprintf(os.Stderr, "attempt %d: outstanding: %v\n", attempt, err)
			os.Exit(1)
		}

		var target *int
		if mode == calc.SettlementModeBillToBill && len(outstanding) > 0 {
			target = &outstanding[rng.Intn(len(outstanding))].Id
		}

		amount := randomPaymentAmount(rng, outstanding)
		payment, err := models.CreatePayment(ctx, &models.NewPayment{
			PartyId:         partyId,
			Amount:          amount,
			PaymentDate:     time.Now(),
			Mode:            "Harness",
			SettlementMode:  mode,
			TargetInvoiceId: target,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "attempt %d: payment %s %s: %v\n", attempt, mode, amount, err)
			os.Exit(1)
		}
		payments++
		if payment.AdvanceAmount.IsPositive() {
			advances++
		}

		if err := checkInvariants(ctx, payment); err != nil {
			violations++
			fmt.Fprintf(os.Stderr, "attempt %d: INVARIANT: %v\n", attempt, err)
		}
	}

	fmt.Printf("\nRESULT: invoices=%d payments=%d with_advance=%d violations=%d\n",
		invoices, payments, advances, violations)
	if violations > 0 {
		os.Exit(1)
	}
}

var taxRates = []int64{0, 5, 12, 18, 28}

func bookRandomInvoice(ctx context.Context, rng *rand.Rand, partyId int) error {
	taxModes := []calc.TaxMode{calc.TaxModeSameState, calc.TaxModeOtherState, calc.TaxModeNonGst}

	items := make([]models.NewInvoiceItem, 1+rng.Intn(3))
	for i := range items {
		items[i] = models.NewInvoiceItem{
			Name:            fmt.Sprintf("Item %d", i+1),
			Quantity:        decimal.NewFromInt(int64(1 + rng.Intn(20))),
			Rate:            decimal.New(int64(100+rng.Intn(500000)), -2),
			DiscountPercent: decimal.NewFromInt(int64(rng.Intn(21))),
			TaxPercent:      decimal.NewFromInt(taxRates[rng.Intn(len(taxRates))]),
		}
	}

	_, err := models.CreateInvoice(ctx, &models.NewInvoice{
		PartyId:        partyId,
		InvoiceDate:    time.Now().AddDate(0, 0, -rng.Intn(60)),
		TaxMode:        taxModes[rng.Intn(len(taxModes))],
		BillType:       models.BillTypeCredit,
		RoundingMode:   calc.RoundingModeHalfUp,
		LifecycleState: calc.LifecycleStateFinal,
		Items:          items,
	})
	return err
}

// randomPaymentAmount picks something between a paisa and ~1.5x the
// party's total due, so short payments, exact settlements and advances
// all come up.
func randomPaymentAmount(rng *rand.Rand, outstanding []calc.OutstandingInvoice) decimal.Decimal {
	totalDue := decimal.Zero
	for _, inv := range outstanding {
		totalDue = totalDue.Add(inv.BalanceDue)
	}
	if totalDue.IsZero() {
		return decimal.New(int64(1+rng.Intn(100000)), -2)
	}
	if rng.Intn(5) == 0 {
		return totalDue // exact settlement
	}
	ceilingPaise := totalDue.Mul(decimal.New(15, -1)).Shift(2).IntPart()
	return decimal.New(1+rng.Int63n(ceilingPaise), -2)
}

// checkInvariants re-reads everything the payment touched and verifies
// the stored rows, not the in-memory result, still conserve money.
func checkInvariants(ctx context.Context, payment *models.Payment) error {
	stored, err := models.GetPayment(ctx, payment.ID)
	if err != nil {
		return err
	}

	total := stored.AdvanceAmount
	for _, allocation := range stored.Allocations {
		if !allocation.Amount.IsPositive() {
			return fmt.Errorf("payment %d: non positive allocation %s on invoice %d",
				stored.ID, allocation.Amount, allocation.InvoiceId)
		}
		total = total.Add(allocation.Amount)

		invoice, err := models.GetInvoice(ctx, allocation.InvoiceId)
		if err != nil {
			return err
		}
		if invoice.BalanceDue.IsNegative() {
			return fmt.Errorf("invoice %d: balance due went negative: %s", invoice.ID, invoice.BalanceDue)
		}
		if invoice.PaidAmount.Add(invoice.BalanceDue).Cmp(invoice.GrandTotal) != 0 {
			return fmt.Errorf("invoice %d: paid %s + due %s != grand total %s",
				invoice.ID, invoice.PaidAmount, invoice.BalanceDue, invoice.GrandTotal)
		}
	}
	if total.Cmp(stored.Amount) != 0 {
		return fmt.Errorf("payment %d: allocations + advance %s != amount %s", stored.ID, total, stored.Amount)
	}

	party, err := models.GetParty(ctx, stored.PartyId)
	if err != nil {
		return err
	}
	if party.AdvanceBalance.IsNegative() {
		return fmt.Errorf("party %d: advance balance went negative: %s", party.ID, party.AdvanceBalance)
	}
	return nil
}
