// status-refresh runs the overdue status sweep once and exits. It walks
// every company (or just the one named with --company-id), recomputes
// the payment status of all finalized invoices against today's date, and
// prints how many rows changed per company.
//
// Intended to be run from cron or a scheduled task once a day:
//
//	DB_PATH=gstbill.db go run ./cmd/status-refresh
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/models"
	"bitbucket.org/taxnova/gstbill_backend/utils"
)

var (
	companyId = flag.String("company-id", "", "limit the sweep to a single company id")
	asOf      = flag.String("as-of", "", "sweep as of this date (YYYY-MM-DD) instead of today")
)

func main() {
	flag.Parse()

	today := time.Now()
	if *asOf != "" {
		parsed, err := time.Parse("2006-01-02", *asOf)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid --as-of date:", err)
			os.Exit(2)
		}
		today = parsed
	}

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

	totalChanged := 0
	swept := 0
	for _, company := range companies {
		if *companyId != "" && company.ID.String() != *companyId {
			continue
		}
		// Days past due are counted against the company's local date.
		asOfDate, err := utils.ConvertToDate(today, company.Timezone)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad timezone for %s (%s): %v\n", company.Name, company.ID, err)
			os.Exit(1)
		}
		companyCtx := utils.SetCompanyIdInContext(ctx, company.ID.String())
		changed, err := models.RefreshOverdueStatuses(companyCtx, asOfDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sweep failed for %s (%s): %v\n", company.Name, company.ID, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d invoice(s) updated\n", company.Name, changed)
		totalChanged += changed
		swept++
	}

	if *companyId != "" && swept == 0 {
		fmt.Fprintln(os.Stderr, "no company matched --company-id", *companyId)
		os.Exit(1)
	}

	fmt.Printf("\nRESULT: companies=%d updated=%d as_of=%s\n", swept, totalChanged, today.Format("2006-01-02"))
}
