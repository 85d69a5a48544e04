package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/shopspring/decimal"
)

// Product is the item master. Invoice lines snapshot name, hsn and rate
// at billing time, so editing a product never rewrites old invoices.
type Product struct {
	ID         int             `gorm:"primary_key" json:"id"`
	CompanyId  string          `gorm:"index;not null" json:"company_id" binding:"required"`
	Name       string          `gorm:"size:100;not null" json:"name" binding:"required"`
	HsnCode    string          `gorm:"size:8" json:"hsn_code"`
	Unit       string          `gorm:"size:20" json:"unit"`
	SaleRate   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sale_rate"`
	TaxPercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_percent"`
	IsActive   *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name       string          `json:"name" binding:"required"`
	HsnCode    string          `json:"hsn_code"`
	Unit       string          `json:"unit"`
	SaleRate   decimal.Decimal `json:"sale_rate"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
}

type ProductsEdge Edge[Product]
type ProductsConnection struct {
	Edges    []*ProductsEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

func (p Product) GetCursor() string {
	return p.CreatedAt.String()
}

func (p Product) GetId() int {
	return p.ID
}

var hundred = decimal.NewFromInt(100)

func (input *NewProduct) validate(ctx context.Context, companyId string, id int) error {
	if err := utils.ValidateUnique[Product](ctx, companyId, "name", input.Name, id); err != nil {
		return err
	}
	// hsn, when present, is a 4, 6 or 8 digit code
	if input.HsnCode != "" {
		if !utils.IsValidHsnCode(input.HsnCode) {
			return errors.New("invalid hsn code")
		}
	}
	if input.SaleRate.IsNegative() {
		return errors.New("sale rate cannot be negative")
	}
	if input.TaxPercent.IsNegative() || input.TaxPercent.GreaterThan(hundred) {
		return errors.New("tax percent must be between 0 and 100")
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	product := Product{
		CompanyId:  companyId,
		Name:       input.Name,
		HsnCode:    input.HsnCode,
		Unit:       input.Unit,
		SaleRate:   input.SaleRate,
		TaxPercent: input.TaxPercent,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := utils.RemoveRedisList[Product](companyId); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &product, tx.Commit().Error
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&product).Updates(map[string]interface{}{
		"Name":       input.Name,
		"HsnCode":    input.HsnCode,
		"Unit":       input.Unit,
		"SaleRate":   input.SaleRate,
		"TaxPercent": input.TaxPercent,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := utils.RemoveRedisItem[Product](id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.RemoveRedisList[Product](companyId); err != nil {
		tx.Rollback()
		return nil, err
	}
	return product, tx.Commit().Error
}

func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	result, err := utils.FetchModel[Product](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	// invoice items carry no company column, match on product alone
	count, err := utils.ResourceCountWhere[InvoiceItem](ctx, "", "product_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrorProductInUse
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := utils.RemoveRedisItem[Product](id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.RemoveRedisList[Product](companyId); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func ToggleActiveProduct(ctx context.Context, id int, isActive bool) (*Product, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	return ToggleActiveModel[Product](ctx, companyId, id, isActive)
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return GetResource[Product](ctx, id)
}

// GetAllProducts serves the billing screen's item picker, cached per
// company until the next product write.
func GetAllProducts(ctx context.Context) ([]*Product, error) {
	return ListAllResource[Product](ctx, "name")
}

func GetProducts(ctx context.Context, name *string, isActive *bool) ([]*Product, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if isActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", isActive)
	}

	err := dbCtx.Order("name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateProducts(ctx context.Context, limit *int, after *string,
	name *string, hsnCode *string, isActive *bool) (*ProductsConnection, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if hsnCode != nil && *hsnCode != "" {
		dbCtx.Where("hsn_code = ?", *hsnCode)
	}
	if isActive != nil {
		dbCtx.Where("is_active = ?", isActive)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Product](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var productsConnection ProductsConnection
	productsConnection.PageInfo = pageInfo
	for _, edge := range edges {
		productEdge := ProductsEdge(edge)
		productsConnection.Edges = append(productsConnection.Edges, &productEdge)
	}

	return &productsConnection, err
}
