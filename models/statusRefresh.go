package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/calc"
	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/utils"
)

// RefreshOverdueStatuses re-resolves the stored status of every open
// finalized invoice against the given day and persists the ones that
// changed. Payment writes already re-resolve the invoices they touch;
// this sweep catches pure date passage, an unpaid invoice crossing the
// credit period flips to Overdue without any other write touching it.
// Legacy Pending rows get normalized on the way. Returns the number of
// rows that changed.
func RefreshOverdueStatuses(ctx context.Context, today time.Time) (int, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return 0, errors.New("company id is required")
	}

	db := config.GetDB()

	var invoices []*Invoice
	err := db.WithContext(ctx).
		Where("company_id = ?", companyId).
		Where("lifecycle_state = ?", calc.LifecycleStateFinal).
		Where("current_status IN ?", []calc.InvoiceStatus{
			calc.InvoiceStatusPending, calc.InvoiceStatusUnpaid, calc.InvoiceStatusPartial,
		}).
		Find(&invoices).Error
	if err != nil {
		return 0, err
	}

	changed := 0
	tx := db.Begin()
	for _, invoice := range invoices {
		resolved := calc.ResolveInvoiceStatus(invoice.statusSnapshot(), today)
		if resolved == invoice.CurrentStatus {
			continue
		}

		err := tx.WithContext(ctx).Model(invoice).Update("CurrentStatus", resolved).Error
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		changed++
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return changed, nil
}
