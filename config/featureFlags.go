package config

import (
	"os"
	"strings"
)

// AutoSettleCashInvoices controls the CASH bill convention: when a CASH
// invoice is finalized, a bill-to-bill payment for the full grand total
// is written in the same transaction so the balance lands at zero.
//
// On by default. Set via env to turn it off (some shops record the cash
// drawer entry themselves):
// - DISABLE_CASH_AUTOSETTLE=true
func AutoSettleCashInvoices() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DISABLE_CASH_AUTOSETTLE")))
	return !(v == "1" || v == "true" || v == "yes" || v == "y")
}
