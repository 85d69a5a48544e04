// recompute-balances audits the stored money columns against the
// computation core. For every invoice it rebuilds the totals from the
// stored line items, re-derives the paid amount from the allocation rows
// and re-resolves the status; for every party it re-derives the advance
// balance from the payment rows. Drift is printed per row.
//
// By default the tool only reports. With --fix it writes the corrected
// values back:
//
//	DB_PATH=gstbill.db go run ./cmd/recompute-balances --fix
//
// Exits 1 when drift is found and left unfixed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/calc"
	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/models"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/shopspring/decimal"
)

var (
	fix       = flag.Bool("fix", false, "write corrected values instead of only reporting")
	companyId = flag.String("company-id", "", "limit the audit to a single company id")
)

func main() {
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "could not connect to database")
		os.Exit(1)
	}

	ctx := context.Background()

	companies, err := models.GetCompanies(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to list companies:", err)
		os.Exit(1)
	}

	invoicesChecked, partiesChecked, drifted, fixed := 0, 0, 0, 0
	for _, company := range companies {
		if *companyId != "" && company.ID.String() != *companyId {
			continue
		}
		fmt.Printf("auditing %s (%s)\n", company.Name, company.ID)
		companyCtx := utils.SetCompanyIdInContext(ctx, company.ID.String())

		ic, d, f, err := auditInvoices(companyCtx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invoice audit failed:", err)
			os.Exit(1)
		}
		invoicesChecked += ic
		drifted += d
		fixed += f

		pc, d, f, err := auditParties(companyCtx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "party audit failed:", err)
			os.Exit(1)
		}
		partiesChecked += pc
		drifted += d
		fixed += f
	}

	fmt.Printf("\nRESULT: invoices=%d parties=%d drifted=%d fixed=%d\n",
		invoicesChecked, partiesChecked, drifted, fixed)
	if drifted > fixed {
		os.Exit(1)
	}
}

func auditInvoices(ctx context.Context) (checked, drifted, fixed int, err error) {
	db := config.GetDB()
	currentCompanyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || currentCompanyId == "" {
		err = errors.New("company id is required")
		return
	}

	var invoices []models.Invoice
	if err = db.WithContext(ctx).
		Preload("Items").
		Where("company_id = ?", currentCompanyId).
		Order("id").
		Find(&invoices).Error; err != nil {
		return
	}

	for i := range invoices {
		invoice := &invoices[i]
		checked++

		changes, problems, auditErr := auditInvoice(ctx, invoice)
		if auditErr != nil {
			err = auditErr
			return
		}
		if len(problems) == 0 {
			continue
		}
		drifted++
		for _, problem := range problems {
			fmt.Printf("  invoice %s (id=%d): %s\n", invoice.InvoiceNumber, invoice.ID, problem)
		}
		if !*fix {
			continue
		}
		if err = db.WithContext(ctx).Model(invoice).Updates(changes).Error; err != nil {
			return
		}
		fixed++
	}
	return
}

// auditInvoice recomputes everything derivable for one invoice and
// returns the column updates alongside a human readable problem list.
// Both are empty for a clean row.
func auditInvoice(ctx context.Context, invoice *models.Invoice) (map[string]interface{}, []string, error) {
	db := config.GetDB()

	lines := make([]calc.LineItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		lines = append(lines, calc.LineItem{
			Quantity:        item.Quantity,
			Rate:            item.Rate,
			DiscountPercent: item.DiscountPercent,
			TaxPercent:      item.TaxPercent,
		})
	}
	discount := calc.InvoiceDiscount{Value: invoice.InvoiceDiscount}
	if invoice.InvoiceDiscountType != nil {
		discount.Type = *invoice.InvoiceDiscountType
	}
	totals, err := calc.CalculateInvoiceTotals(lines, invoice.TaxMode, discount, invoice.OtherCharges, invoice.RoundingMode)
	if err != nil {
		// stored inputs that no longer compute cannot be auto-fixed
		return nil, []string{fmt.Sprintf("stored inputs fail recomputation: %v", err)}, nil
	}

	var paid decimal.Decimal
	if err := db.WithContext(ctx).Model(&models.Allocation{}).
		Where("invoice_id = ?", invoice.ID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&paid).Error; err != nil {
		return nil, nil, err
	}
	balance := totals.GrandTotal.Sub(paid)

	changes := map[string]interface{}{}
	var problems []string
	check := func(field string, stored, want decimal.Decimal) {
		if stored.Cmp(want) == 0 {
			return
		}
		problems = append(problems, fmt.Sprintf("%s stored=%s computed=%s", field, stored, want))
		changes[field] = want
	}
	check("Subtotal", invoice.Subtotal, totals.Subtotal)
	check("ItemDiscountTotal", invoice.ItemDiscountTotal, totals.ItemDiscountTotal)
	check("InvoiceDiscountAmount", invoice.InvoiceDiscountAmount, totals.InvoiceDiscountAmount)
	check("TotalDiscount", invoice.TotalDiscount, totals.TotalDiscount)
	check("Cgst", invoice.Cgst, totals.Cgst)
	check("Sgst", invoice.Sgst, totals.Sgst)
	check("Igst", invoice.Igst, totals.Igst)
	check("TotalTax", invoice.TotalTax, totals.TotalTax)
	check("RoundOffAmount", invoice.RoundOffAmount, totals.RoundOffAmount)
	check("GrandTotal", invoice.GrandTotal, totals.GrandTotal)
	check("PaidAmount", invoice.PaidAmount, paid)
	check("BalanceDue", invoice.BalanceDue, balance)

	status := calc.ResolveInvoiceStatus(calc.StatusSnapshot{
		LifecycleState: invoice.LifecycleState,
		CurrentStatus:  invoice.CurrentStatus,
		InvoiceDate:    invoice.InvoiceDate,
		GrandTotal:     totals.GrandTotal,
		BalanceDue:     balance,
	}, time.Now())
	if status != invoice.CurrentStatus {
		problems = append(problems, fmt.Sprintf("CurrentStatus stored=%s computed=%s", invoice.CurrentStatus, status))
		changes["CurrentStatus"] = status
	}
	return changes, problems, nil
}

func auditParties(ctx context.Context) (checked, drifted, fixed int, err error) {
	db := config.GetDB()
	currentCompanyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || currentCompanyId == "" {
		err = errors.New("company id is required")
		return
	}

	var parties []models.Party
	if err = db.WithContext(ctx).
		Where("company_id = ?", currentCompanyId).
		Order("id").
		Find(&parties).Error; err != nil {
		return
	}

	for i := range parties {
		party := &parties[i]
		checked++

		var earned decimal.Decimal
		if err = db.WithContext(ctx).Model(&models.Payment{}).
			Where("company_id = ? AND party_id = ?", currentCompanyId, party.ID).
			Select("COALESCE(SUM(advance_amount), 0)").
			Scan(&earned).Error; err != nil {
			return
		}
		if party.AdvanceBalance.Cmp(earned) == 0 {
			continue
		}
		drifted++
		fmt.Printf("  party %s (id=%d): AdvanceBalance stored=%s computed=%s\n",
			party.Name, party.ID, party.AdvanceBalance, earned)
		if !*fix {
			continue
		}
		if err = db.WithContext(ctx).Model(party).Update("AdvanceBalance", earned).Error; err != nil {
			return
		}
		if err = utils.RemoveRedisItem[models.Party](party.ID); err != nil {
			return
		}
		if err = utils.RemoveRedisList[models.Party](currentCompanyId); err != nil {
			return
		}
		fixed++
	}
	return
}
