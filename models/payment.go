package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/calc"
	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is money received from a party. The allocation engine decides
// how it spreads over outstanding invoices; whatever stays unapplied is
// credited to the party as advance. sum(allocations) + advance always
// equals the amount, the transaction aborts otherwise.
type Payment struct {
	ID             int                 `gorm:"primary_key" json:"id"`
	CompanyId      string              `gorm:"index;not null" json:"company_id" binding:"required"`
	PartyId        int                 `gorm:"index;not null" json:"party_id" binding:"required"`
	SequenceNo     decimal.Decimal     `gorm:"type:decimal(15);not null" json:"sequence_no"`
	PaymentNumber  string              `gorm:"size:255;not null" json:"payment_number"`
	PaymentDate    time.Time           `gorm:"index;not null" json:"payment_date" binding:"required"`
	Amount         decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"amount" binding:"required"`
	Mode           string              `gorm:"size:50" json:"mode"`
	SettlementMode calc.SettlementMode `gorm:"size:15;not null" json:"settlement_mode" binding:"required"`
	AdvanceAmount  decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"advance_amount"`
	Notes          string              `gorm:"type:text;default:null" json:"notes"`
	Allocations    []Allocation        `gorm:"foreignKey:PaymentId" json:"allocations"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// Allocation earmarks part of a payment against one invoice. Rows are
// immutable; deleting the payment removes them and restores the
// invoice balances.
type Allocation struct {
	ID        int             `gorm:"primary_key" json:"id"`
	PaymentId int             `gorm:"index;not null" json:"payment_id"`
	InvoiceId int             `gorm:"index;not null" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayment struct {
	PartyId         int                 `json:"party_id" binding:"required"`
	Amount          decimal.Decimal     `json:"amount" binding:"required"`
	PaymentDate     time.Time           `json:"payment_date" binding:"required"`
	Mode            string              `json:"mode"`
	SettlementMode  calc.SettlementMode `json:"settlement_mode" binding:"required"`
	TargetInvoiceId *int                `json:"target_invoice_id"`
	Notes           string              `json:"notes"`
}

type PaymentsEdge Edge[Payment]
type PaymentsConnection struct {
	Edges    []*PaymentsEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

func (payment Payment) GetCursor() string {
	return payment.CreatedAt.String()
}

func (payment Payment) GetId() int {
	return payment.ID
}

func (input *NewPayment) validate(ctx context.Context, companyId string) error {
	// party
	if err := utils.ValidateResourceId[Party](ctx, companyId, input.PartyId); err != nil {
		return errors.New("party not found")
	}
	if !input.Amount.IsPositive() {
		return calc.ErrorNonPositivePayment
	}
	if !input.SettlementMode.Valid() {
		return &calc.InvalidInvoiceInputError{Field: "settlement_mode", Reason: "unknown mode " + string(input.SettlementMode)}
	}
	if input.TargetInvoiceId != nil {
		if err := utils.ValidateResourceId[Invoice](ctx, companyId, *input.TargetInvoiceId); err != nil {
			return errors.New("invoice not found")
		}
	}
	return nil
}

// applyAllocationPlan walks the plan inside the transaction, re-reads
// every target invoice and refuses any allocation the stored balance no
// longer covers; the whole payment rolls back in that case rather than
// overpaying a single invoice.
func applyAllocationPlan(tx *gorm.DB, ctx context.Context, companyId string, plan calc.AllocationResult) ([]Allocation, error) {

	var allocations []Allocation
	for _, planned := range plan.Allocations {
		var invoice Invoice
		if err := tx.WithContext(ctx).Where("company_id = ?", companyId).First(&invoice, planned.InvoiceId).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}

		// the stored balance moved below what the plan assumed
		if planned.Amount.Cmp(invoice.BalanceDue) == 1 {
			return nil, &calc.AllocationOverflowError{
				InvoiceId: invoice.ID,
				Requested: planned.Amount,
				Available: invoice.BalanceDue,
			}
		}

		invoice.PaidAmount = invoice.PaidAmount.Add(planned.Amount)
		invoice.BalanceDue = invoice.BalanceDue.Sub(planned.Amount)
		invoice.CurrentStatus = calc.ResolveInvoiceStatus(invoice.statusSnapshot(), time.Now())

		if err := tx.WithContext(ctx).Save(&invoice).Error; err != nil {
			return nil, err
		}

		allocations = append(allocations, Allocation{
			InvoiceId: planned.InvoiceId,
			Amount:    planned.Amount,
		})
	}
	return allocations, nil
}

// createPaymentInTx runs the whole settlement inside the caller's
// transaction: outstanding snapshot, allocation plan, balance updates,
// advance credit and the closing conservation check. The cash auto
// settle path on invoice finalize calls this too.
func createPaymentInTx(tx *gorm.DB, ctx context.Context, companyId string, input *NewPayment) (*Payment, error) {

	outstanding, err := getOutstandingInvoicesTx(tx, ctx, companyId, input.PartyId)
	if err != nil {
		return nil, err
	}

	plan, err := calc.AllocatePayment(input.Amount, outstanding, input.SettlementMode, input.TargetInvoiceId)
	if err != nil {
		return nil, err
	}

	allocations, err := applyAllocationPlan(tx, ctx, companyId, plan)
	if err != nil {
		return nil, err
	}

	payment := Payment{
		CompanyId:      companyId,
		PartyId:        input.PartyId,
		PaymentDate:    input.PaymentDate,
		Amount:         input.Amount,
		Mode:           input.Mode,
		SettlementMode: input.SettlementMode,
		AdvanceAmount:  plan.AdvanceAmount,
		Notes:          input.Notes,
		Allocations:    allocations,
	}

	seqNo, err := utils.GetSequence[Payment](ctx, companyId)
	if err != nil {
		return nil, err
	}
	company, err := getCompanyByIdTx(tx, companyId)
	if err != nil {
		return nil, err
	}
	payment.SequenceNo = decimal.NewFromInt(seqNo)
	payment.PaymentNumber = company.PaymentPrefix + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	// the unapplied remainder belongs to the party as advance
	if plan.AdvanceAmount.IsPositive() {
		var party Party
		if err := tx.WithContext(ctx).Where("company_id = ?", companyId).First(&party, input.PartyId).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		party.AdvanceBalance = party.AdvanceBalance.Add(plan.AdvanceAmount)
		if err := tx.WithContext(ctx).Save(&party).Error; err != nil {
			return nil, err
		}
		// caching
		if err := utils.RemoveRedisItem[Party](party.ID); err != nil {
			return nil, err
		}
		if err := utils.RemoveRedisList[Party](companyId); err != nil {
			return nil, err
		}
	}

	// conservation: what was written must add back to the payment amount
	total := payment.AdvanceAmount
	for _, allocation := range payment.Allocations {
		total = total.Add(allocation.Amount)
	}
	if total.Cmp(payment.Amount) != 0 {
		return nil, &calc.InconsistentTotalsError{
			Check:  "conservation",
			Detail: "allocations plus advance " + total.String() + " do not equal payment amount " + payment.Amount.String(),
		}
	}

	return &payment, nil
}

func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId); err != nil {
		return nil, err
	}

	// one settlement at a time per company; plans computed against a
	// stale snapshot otherwise slip past the overflow guard
	release, err := utils.CompanyLock(ctx, companyId, "settlementLock", "payment.go", "CreatePayment")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	payment, err := createPaymentInTx(tx, ctx, companyId, input)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return payment, nil
}

// DeletePayment reverses a settlement exactly: every allocation is
// handed back to its invoice, the advance is debited from the party and
// the rows go away. A party that already spent the advance keeps the
// payment on the books.
func DeletePayment(ctx context.Context, id int) (*Payment, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	release, err := utils.CompanyLock(ctx, companyId, "settlementLock", "payment.go", "DeletePayment")
	if err != nil {
		return nil, err
	}
	defer release()

	payment, err := utils.FetchModel[Payment](ctx, companyId, id, "Allocations")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	for _, allocation := range payment.Allocations {
		var invoice Invoice
		if err := tx.WithContext(ctx).Where("company_id = ?", companyId).First(&invoice, allocation.InvoiceId).Error; err != nil {
			tx.Rollback()
			return nil, utils.ErrorRecordNotFound
		}

		remainingPaid := invoice.PaidAmount.Sub(allocation.Amount)
		if remainingPaid.IsNegative() {
			tx.Rollback()
			return nil, &calc.InconsistentTotalsError{
				Check:  "reversal",
				Detail: "invoice " + invoice.InvoiceNumber + " paid amount would go negative",
			}
		}
		invoice.PaidAmount = remainingPaid
		invoice.BalanceDue = decimal.Max(decimal.Zero, invoice.GrandTotal.Sub(remainingPaid))
		invoice.CurrentStatus = calc.ResolveInvoiceStatus(invoice.statusSnapshot(), time.Now())

		if err := tx.WithContext(ctx).Save(&invoice).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if payment.AdvanceAmount.IsPositive() {
		var party Party
		if err := tx.WithContext(ctx).Where("company_id = ?", companyId).First(&party, payment.PartyId).Error; err != nil {
			tx.Rollback()
			return nil, utils.ErrorRecordNotFound
		}
		remaining := party.AdvanceBalance.Sub(payment.AdvanceAmount)
		if remaining.IsNegative() {
			tx.Rollback()
			return nil, ErrorAdvanceConsumed
		}
		party.AdvanceBalance = remaining
		if err := tx.WithContext(ctx).Save(&party).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		// caching
		if err := utils.RemoveRedisItem[Party](party.ID); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := utils.RemoveRedisList[Party](companyId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// using Unscoped() to delete actual records instead of setting null value
	if err := tx.WithContext(ctx).Model(&payment).Association("Allocations").Unscoped().Clear(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	return utils.FetchModel[Payment](ctx, companyId, id, "Allocations")
}

func GetPayments(ctx context.Context, partyId *int) ([]*Payment, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*Payment

	dbCtx := db.WithContext(ctx).Preload("Allocations").Where("company_id = ?", companyId)
	if partyId != nil && *partyId > 0 {
		dbCtx.Where("party_id = ?", *partyId)
	}
	err := dbCtx.Order("payment_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetInvoicePayments lists the payments that currently settle part of
// the invoice, through the allocations join.
func GetInvoicePayments(ctx context.Context, invoiceId int) ([]*Payment, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := utils.ValidateResourceId[Invoice](ctx, companyId, invoiceId); err != nil {
		return nil, errors.New("invoice not found")
	}

	db := config.GetDB()
	var results []*Payment
	err := db.WithContext(ctx).
		Joins("JOIN allocations ON allocations.payment_id = payments.id").
		Where("allocations.invoice_id = ?", invoiceId).
		Where("payments.company_id = ?", companyId).
		Preload("Allocations").
		Order("payments.id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginatePayments(ctx context.Context, limit *int, after *string,
	paymentNumber *string, partyId *int, settlementMode *calc.SettlementMode,
	fromDate *time.Time, toDate *time.Time) (*PaymentsConnection, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Allocations").Where("company_id = ?", companyId)
	if paymentNumber != nil && *paymentNumber != "" {
		dbCtx.Where("payment_number LIKE ?", "%"+*paymentNumber+"%")
	}
	if partyId != nil && *partyId > 0 {
		dbCtx.Where("party_id = ?", *partyId)
	}
	if settlementMode != nil && *settlementMode != "" {
		dbCtx.Where("settlement_mode = ?", *settlementMode)
	}
	if fromDate != nil && !fromDate.IsZero() {
		dbCtx.Where("payment_date >= ?", *fromDate)
	}
	if toDate != nil && !toDate.IsZero() {
		dbCtx.Where("payment_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Payment](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var paymentsConnection PaymentsConnection
	paymentsConnection.PageInfo = pageInfo
	for _, edge := range edges {
		paymentEdge := PaymentsEdge(edge)
		paymentsConnection.Edges = append(paymentsConnection.Edges, &paymentEdge)
	}

	return &paymentsConnection, err
}
