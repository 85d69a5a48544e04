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

// Invoice is the tax invoice aggregate. The totals block is a snapshot
// of what the calc engine returned at the last recompute; Draft invoices
// recompute on every edit, Final ones never change except for the paid
// amount, balance and status, which only settlements move.
type Invoice struct {
	ID                  int                 `gorm:"primary_key" json:"id"`
	CompanyId           string              `gorm:"index;not null" json:"company_id" binding:"required"`
	PartyId             int                 `gorm:"index;not null" json:"party_id" binding:"required"`
	SequenceNo          decimal.Decimal     `gorm:"type:decimal(15);not null" json:"sequence_no"`
	InvoiceNumber       string              `gorm:"size:255;not null" json:"invoice_number"`
	InvoiceDate         time.Time           `gorm:"index;not null" json:"invoice_date" binding:"required"`
	TaxMode             calc.TaxMode        `gorm:"size:15;not null" json:"tax_mode" binding:"required"`
	BillType            BillType            `gorm:"size:10;not null" json:"bill_type" binding:"required"`
	LifecycleState      calc.LifecycleState `gorm:"size:10;not null" json:"lifecycle_state"`
	RoundingMode        calc.RoundingMode   `gorm:"size:10;not null" json:"rounding_mode"`
	InvoiceDiscount     decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"invoice_discount"`
	InvoiceDiscountType *calc.DiscountType  `gorm:"size:1;default:null" json:"invoice_discount_type"`
	Notes               string              `gorm:"type:text;default:null" json:"notes"`
	Items               []InvoiceItem       `gorm:"foreignKey:InvoiceId" json:"items"`

	Subtotal              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	ItemDiscountTotal     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"item_discount_total"`
	InvoiceDiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"invoice_discount_amount"`
	TotalDiscount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_discount"`
	Cgst                  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cgst"`
	Sgst                  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sgst"`
	Igst                  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"igst"`
	TotalTax              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_tax"`
	OtherCharges          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"other_charges"`
	RoundOffAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"round_off_amount"`
	GrandTotal            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grand_total"`
	PaidAmount            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	BalanceDue            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_due"`

	CurrentStatus calc.InvoiceStatus `gorm:"size:15;not null" json:"current_status"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// InvoiceItem is one billed line. Product fields are copied in at
// billing time so later product edits leave the line untouched; the
// money columns are the calc engine's per-line breakdown.
type InvoiceItem struct {
	ID        int    `gorm:"primary_key" json:"id"`
	InvoiceId int    `gorm:"index;not null" json:"invoice_id"`
	ProductId int    `gorm:"index" json:"product_id"`
	Name      string `gorm:"size:100;not null" json:"name" binding:"required"`
	HsnCode   string `gorm:"size:8" json:"hsn_code"`
	Unit      string `gorm:"size:20" json:"unit"`

	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Rate            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_percent"`
	TaxPercent      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_percent"`

	ItemSubtotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"item_subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxableAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"taxable_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	PartyId             int                 `json:"party_id" binding:"required"`
	InvoiceDate         time.Time           `json:"invoice_date" binding:"required"`
	TaxMode             calc.TaxMode        `json:"tax_mode" binding:"required"`
	BillType            BillType            `json:"bill_type" binding:"required"`
	RoundingMode        calc.RoundingMode   `json:"rounding_mode" binding:"required"`
	LifecycleState      calc.LifecycleState `json:"lifecycle_state"`
	InvoiceDiscount     decimal.Decimal     `json:"invoice_discount"`
	InvoiceDiscountType *calc.DiscountType  `json:"invoice_discount_type"`
	OtherCharges        decimal.Decimal     `json:"other_charges"`
	Notes               string              `json:"notes"`
	Items               []NewInvoiceItem    `json:"items"`
}

type NewInvoiceItem struct {
	ProductId       int             `json:"product_id"`
	Name            string          `json:"name" binding:"required"`
	HsnCode         string          `json:"hsn_code"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	Rate            decimal.Decimal `json:"rate"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
}

type InvoicesEdge Edge[Invoice]
type InvoicesConnection struct {
	Edges    []*InvoicesEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

func (invoice Invoice) GetCursor() string {
	return invoice.CreatedAt.String()
}

func (invoice Invoice) GetId() int {
	return invoice.ID
}

func (invoice *Invoice) statusSnapshot() calc.StatusSnapshot {
	return calc.StatusSnapshot{
		LifecycleState: invoice.LifecycleState,
		CurrentStatus:  invoice.CurrentStatus,
		InvoiceDate:    invoice.InvoiceDate,
		GrandTotal:     invoice.GrandTotal,
		BalanceDue:     invoice.BalanceDue,
	}
}

func (invoice *Invoice) applyTotals(totals calc.InvoiceTotals) {
	invoice.Subtotal = totals.Subtotal
	invoice.ItemDiscountTotal = totals.ItemDiscountTotal
	invoice.InvoiceDiscountAmount = totals.InvoiceDiscountAmount
	invoice.TotalDiscount = totals.TotalDiscount
	invoice.Cgst = totals.Cgst
	invoice.Sgst = totals.Sgst
	invoice.Igst = totals.Igst
	invoice.TotalTax = totals.TotalTax
	invoice.OtherCharges = totals.OtherCharges
	invoice.RoundOffAmount = totals.RoundOffAmount
	invoice.GrandTotal = totals.GrandTotal
}

func (input *NewInvoice) validate(ctx context.Context, companyId string, id int) error {
	// party
	if err := utils.ValidateResourceId[Party](ctx, companyId, input.PartyId); err != nil {
		return errors.New("party not found")
	}
	// bill type
	if !input.BillType.Valid() {
		return &calc.InvalidInvoiceInputError{Field: "bill_type", Reason: "unknown type " + string(input.BillType)}
	}
	// lifecycle, empty means Draft
	if input.LifecycleState != "" && !input.LifecycleState.Valid() {
		return &calc.InvalidInvoiceInputError{Field: "lifecycle_state", Reason: "unknown state " + string(input.LifecycleState)}
	}
	// referenced products must exist; free-typed lines carry no product id
	var productIds []int
	for _, item := range input.Items {
		if item.ProductId > 0 {
			productIds = append(productIds, item.ProductId)
		}
	}
	if len(productIds) > 0 {
		rules := []utils.ValidationRule[int]{
			{
				Model:   Product{},
				Ids:     productIds,
				Message: "product not found",
				Filter:  utils.Filter{Cond: "company_id = ?", Values: []interface{}{companyId}},
			},
		}
		if err := utils.MassValidateResourceIds(ctx, rules); err != nil {
			return err
		}
	}
	return nil
}

// computeInvoiceItems runs the calc engine over the input lines and
// returns the line snapshots together with the aggregate totals. Non-GST
// bills zero the per line tax so the stored lines match the aggregate.
func computeInvoiceItems(input *NewInvoice) ([]InvoiceItem, calc.InvoiceTotals, error) {
	lineItems := make([]calc.LineItem, len(input.Items))
	for i, item := range input.Items {
		lineItems[i] = calc.LineItem{
			Quantity:        item.Quantity,
			Rate:            item.Rate,
			DiscountPercent: item.DiscountPercent,
			TaxPercent:      item.TaxPercent,
		}
	}

	discount := calc.InvoiceDiscount{Value: input.InvoiceDiscount}
	if input.InvoiceDiscountType != nil {
		discount.Type = *input.InvoiceDiscountType
	}

	totals, err := calc.CalculateInvoiceTotals(lineItems, input.TaxMode, discount, input.OtherCharges, input.RoundingMode)
	if err != nil {
		return nil, calc.InvoiceTotals{}, err
	}

	invoiceItems := make([]InvoiceItem, len(input.Items))
	for i, item := range input.Items {
		line, err := calc.CalculateLineItem(lineItems[i])
		if err != nil {
			return nil, calc.InvoiceTotals{}, err
		}
		if totals.IsNonGst {
			line.TaxAmount = decimal.Zero
			line.LineTotal = line.TaxableAmount
		}
		invoiceItems[i] = InvoiceItem{
			ProductId:       item.ProductId,
			Name:            item.Name,
			HsnCode:         item.HsnCode,
			Unit:            item.Unit,
			Quantity:        item.Quantity,
			Rate:            item.Rate,
			DiscountPercent: item.DiscountPercent,
			TaxPercent:      item.TaxPercent,
			ItemSubtotal:    line.ItemSubtotal,
			DiscountAmount:  line.DiscountAmount,
			TaxableAmount:   line.TaxableAmount,
			TaxAmount:       line.TaxAmount,
			LineTotal:       line.LineTotal,
		}
	}
	return invoiceItems, totals, nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	// callers asking for Final still get a Draft row first; the
	// finalize transition runs inside the same transaction so cash
	// settlement and numbering follow the one path everywhere.
	requestedState := input.LifecycleState
	if requestedState == "" {
		requestedState = calc.LifecycleStateDraft
	}

	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	items, totals, err := computeInvoiceItems(input)
	if err != nil {
		return nil, err
	}

	company, err := GetCompanyById(ctx, companyId)
	if err != nil {
		return nil, err
	}

	willAutoSettle := requestedState == calc.LifecycleStateFinal &&
		input.BillType == BillTypeCash &&
		config.AutoSettleCashInvoices() &&
		totals.GrandTotal.IsPositive()
	if willAutoSettle {
		release, err := utils.CompanyLock(ctx, companyId, "settlementLock", "invoice.go", "CreateInvoice")
		if err != nil {
			return nil, err
		}
		defer release()
	}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	invoice := Invoice{
		CompanyId:           companyId,
		PartyId:             input.PartyId,
		InvoiceDate:         input.InvoiceDate,
		TaxMode:             input.TaxMode,
		BillType:            input.BillType,
		LifecycleState:      calc.LifecycleStateDraft,
		RoundingMode:        input.RoundingMode,
		InvoiceDiscount:     input.InvoiceDiscount,
		InvoiceDiscountType: input.InvoiceDiscountType,
		Notes:               input.Notes,
		Items:               items,
		PaidAmount:          decimal.Zero,
		BalanceDue:          totals.GrandTotal,
		CurrentStatus:       calc.InvoiceStatusDraft,
	}
	invoice.applyTotals(totals)

	seqNo, err := utils.GetSequence[Invoice](ctx, companyId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	invoice.SequenceNo = decimal.NewFromInt(seqNo)
	invoice.InvoiceNumber = company.InvoicePrefix + fmt.Sprint(seqNo)

	err = tx.WithContext(ctx).Create(&invoice).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if requestedState == calc.LifecycleStateFinal {
		if err := finalizeInvoiceTx(tx, ctx, companyId, &invoice); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &invoice, nil
}

// UpdateInvoice replaces a Draft wholesale: lines are recomputed, the
// totals snapshot is rewritten and the invoice number stays put. Final
// invoices reject every edit.
func UpdateInvoice(ctx context.Context, id int, input *NewInvoice) (*Invoice, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, companyId, id, "Items")
	if err != nil {
		return nil, err
	}
	if invoice.LifecycleState != calc.LifecycleStateDraft {
		return nil, ErrorInvoiceNotDraft
	}

	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}

	items, totals, err := computeInvoiceItems(input)
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

	// using Unscoped() to delete the old lines instead of orphaning them
	if err := tx.WithContext(ctx).Model(&invoice).Association("Items").Unscoped().Clear(); err != nil {
		tx.Rollback()
		return nil, err
	}

	invoice.PartyId = input.PartyId
	invoice.InvoiceDate = input.InvoiceDate
	invoice.TaxMode = input.TaxMode
	invoice.BillType = input.BillType
	invoice.RoundingMode = input.RoundingMode
	invoice.InvoiceDiscount = input.InvoiceDiscount
	invoice.InvoiceDiscountType = input.InvoiceDiscountType
	invoice.Notes = input.Notes
	invoice.Items = items
	invoice.applyTotals(totals)
	invoice.PaidAmount = decimal.Zero
	invoice.BalanceDue = totals.GrandTotal

	if err := tx.WithContext(ctx).Save(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// finalizeInvoiceTx flips Draft to Final inside the caller's
// transaction, resolves the opening status and, for CASH bills with the
// auto settle flag on, records the settling payment in the same
// transaction so the bill never surfaces unpaid.
func finalizeInvoiceTx(tx *gorm.DB, ctx context.Context, companyId string, invoice *Invoice) error {
	if invoice.LifecycleState == calc.LifecycleStateFinal {
		return ErrorInvoiceFinalized
	}

	invoice.LifecycleState = calc.LifecycleStateFinal
	invoice.CurrentStatus = calc.ResolveInvoiceStatus(invoice.statusSnapshot(), time.Now())

	err := tx.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"LifecycleState": invoice.LifecycleState,
		"CurrentStatus":  invoice.CurrentStatus,
	}).Error
	if err != nil {
		return err
	}

	if invoice.BillType == BillTypeCash && config.AutoSettleCashInvoices() && invoice.GrandTotal.IsPositive() {
		payment := NewPayment{
			PartyId:         invoice.PartyId,
			Amount:          invoice.GrandTotal,
			PaymentDate:     invoice.InvoiceDate,
			Mode:            "Cash",
			SettlementMode:  calc.SettlementModeBillToBill,
			TargetInvoiceId: &invoice.ID,
		}
		if _, err := createPaymentInTx(tx, ctx, companyId, &payment); err != nil {
			return err
		}
		// reload, the settlement moved the balance and status
		if err := tx.WithContext(ctx).Preload("Items").First(invoice, invoice.ID).Error; err != nil {
			return err
		}
	}

	return nil
}

func FinalizeInvoice(ctx context.Context, id int) (*Invoice, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, companyId, id, "Items")
	if err != nil {
		return nil, err
	}
	if invoice.LifecycleState == calc.LifecycleStateFinal {
		return nil, ErrorInvoiceFinalized
	}

	willAutoSettle := invoice.BillType == BillTypeCash &&
		config.AutoSettleCashInvoices() &&
		invoice.GrandTotal.IsPositive()
	if willAutoSettle {
		release, err := utils.CompanyLock(ctx, companyId, "settlementLock", "invoice.go", "FinalizeInvoice")
		if err != nil {
			return nil, err
		}
		defer release()
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

	if err := finalizeInvoiceTx(tx, ctx, companyId, invoice); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// CancelInvoice marks a Final invoice Cancelled. The status is sticky:
// refreshes and settlements skip cancelled invoices for good. Payments
// must be deleted first, cancellation never unwinds them implicitly.
func CancelInvoice(ctx context.Context, id int) (*Invoice, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, companyId, id, "Items")
	if err != nil {
		return nil, err
	}
	if invoice.LifecycleState != calc.LifecycleStateFinal {
		return nil, ErrorInvoiceNotFinal
	}
	if invoice.CurrentStatus == calc.InvoiceStatusCancelled {
		return nil, ErrorInvoiceCancelled
	}

	count, err := utils.ResourceCountWhere[Allocation](ctx, "", "invoice_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrorInvoiceHasPayments
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&invoice).Update("CurrentStatus", calc.InvoiceStatusCancelled).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invoice.CurrentStatus = calc.InvoiceStatusCancelled
	return invoice, nil
}

func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	result, err := utils.FetchModel[Invoice](ctx, companyId, id, "Items")
	if err != nil {
		return nil, err
	}
	// a Final invoice stays on the books; cancel it first
	if result.LifecycleState == calc.LifecycleStateFinal && result.CurrentStatus != calc.InvoiceStatusCancelled {
		return nil, ErrorInvoiceNotCancelled
	}

	count, err := utils.ResourceCountWhere[Allocation](ctx, "", "invoice_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrorInvoiceHasPayments
	}

	db := config.GetDB()
	tx := db.Begin()
	// using Unscoped() to delete actual records instead of setting null value
	if err := tx.WithContext(ctx).Model(&result).Association("Items").Unscoped().Clear(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	return utils.FetchModel[Invoice](ctx, companyId, id, "Items")
}

func PaginateInvoices(ctx context.Context, limit *int, after *string,
	invoiceNumber *string, partyId *int, currentStatus *calc.InvoiceStatus,
	billType *BillType, lifecycleState *calc.LifecycleState,
	fromDate *time.Time, toDate *time.Time) (*InvoicesConnection, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Items").Where("company_id = ?", companyId)
	if invoiceNumber != nil && *invoiceNumber != "" {
		dbCtx.Where("invoice_number LIKE ?", "%"+*invoiceNumber+"%")
	}
	if partyId != nil && *partyId > 0 {
		dbCtx.Where("party_id = ?", *partyId)
	}
	if currentStatus != nil && *currentStatus != "" {
		dbCtx.Where("current_status = ?", *currentStatus)
	}
	if billType != nil && *billType != "" {
		dbCtx.Where("bill_type = ?", *billType)
	}
	if lifecycleState != nil && *lifecycleState != "" {
		dbCtx.Where("lifecycle_state = ?", *lifecycleState)
	}
	if fromDate != nil && !fromDate.IsZero() {
		dbCtx.Where("invoice_date >= ?", *fromDate)
	}
	if toDate != nil && !toDate.IsZero() {
		dbCtx.Where("invoice_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Invoice](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var invoicesConnection InvoicesConnection
	invoicesConnection.PageInfo = pageInfo
	for _, edge := range edges {
		invoiceEdge := InvoicesEdge(edge)
		invoicesConnection.Edges = append(invoicesConnection.Edges, &invoiceEdge)
	}

	return &invoicesConnection, err
}

// getOutstandingInvoicesTx reads the party's open invoices through the
// caller's handle so settlement plans always see the transaction's own
// view. Ordering is (invoice_date, id), the FIFO order.
func getOutstandingInvoicesTx(tx *gorm.DB, ctx context.Context, companyId string, partyId int) ([]calc.OutstandingInvoice, error) {
	var rows []*Invoice
	err := tx.WithContext(ctx).
		Where("company_id = ? AND party_id = ?", companyId, partyId).
		Where("lifecycle_state = ?", calc.LifecycleStateFinal).
		Where("current_status <> ?", calc.InvoiceStatusCancelled).
		Where("balance_due > 0").
		Order("invoice_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	outstanding := make([]calc.OutstandingInvoice, len(rows))
	for i, invoice := range rows {
		outstanding[i] = calc.OutstandingInvoice{
			Id:         invoice.ID,
			Date:       invoice.InvoiceDate,
			GrandTotal: invoice.GrandTotal,
			BalanceDue: invoice.BalanceDue,
		}
	}
	return outstanding, nil
}

func GetOutstandingInvoices(ctx context.Context, partyId int) ([]calc.OutstandingInvoice, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := utils.ValidateResourceId[Party](ctx, companyId, partyId); err != nil {
		return nil, errors.New("party not found")
	}

	db := config.GetDB()
	return getOutstandingInvoicesTx(db, ctx, companyId, partyId)
}
