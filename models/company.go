package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is the billing entity. A desktop install normally carries a
// single row; every other table hangs off its id.
type Company struct {
	ID            uuid.UUID `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Gstin         string    `gorm:"size:15" json:"gstin"`
	StateCode     string    `gorm:"size:2" json:"state_code"`
	Address       string    `gorm:"type:text" json:"address"`
	Phone         string    `gorm:"size:20" json:"phone"`
	Email         string    `gorm:"size:255" json:"email"`
	InvoicePrefix string    `gorm:"size:20" json:"invoice_prefix"`
	PaymentPrefix string    `gorm:"size:20" json:"payment_prefix"`
	Timezone      string    `gorm:"size:50" json:"timezone"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompany struct {
	Name          string `json:"name" binding:"required"`
	Gstin         string `json:"gstin"`
	StateCode     string `json:"state_code"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	InvoicePrefix string `json:"invoice_prefix"`
	PaymentPrefix string `json:"payment_prefix"`
	Timezone      string `json:"timezone"`
}

// SoleCompanyKey caches the id of the only company row for requests
// that omit the X-Company-Id header. Creating a company clears it.
const SoleCompanyKey = "Company:sole"

func (company *Company) StoreRedis() error {
	return config.SetRedisObject("Company:"+fmt.Sprint(company.ID), company, 0)
}

func (company *Company) RemoveRedis() error {
	return config.RemoveRedisKey("Company:" + fmt.Sprint(company.ID))
}

func (input *NewCompany) validate(ctx context.Context, id string) error {
	// name
	if err := utils.ValidateUnique[Company](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	// gstin carries the state code in its first two digits
	if input.Gstin != "" {
		if !utils.IsValidGstin(input.Gstin) {
			return errors.New("invalid gstin")
		}
		derived := input.Gstin[:2]
		if input.StateCode == "" {
			input.StateCode = derived
		} else if input.StateCode != derived {
			return errors.New("state code does not match gstin")
		}
	}
	// email
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	// phone
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateCompany(ctx context.Context, input *NewCompany) (*Company, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}
	db := config.GetDB()

	timezone := "Asia/Kolkata"
	if input.Timezone != "" {
		timezone = input.Timezone
	}
	invoicePrefix := input.InvoicePrefix
	if invoicePrefix == "" {
		invoicePrefix = "INV-"
	}
	paymentPrefix := input.PaymentPrefix
	if paymentPrefix == "" {
		paymentPrefix = "PAY-"
	}

	company := Company{
		ID:            uuid.New(),
		Name:          input.Name,
		Gstin:         strings.ToUpper(input.Gstin),
		StateCode:     input.StateCode,
		Address:       input.Address,
		Phone:         input.Phone,
		Email:         input.Email,
		InvoicePrefix: invoicePrefix,
		PaymentPrefix: paymentPrefix,
		Timezone:      timezone,
		IsActive:      utils.NewTrue(),
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := config.RemoveRedisKey(SoleCompanyKey); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &company, tx.Commit().Error
}

func UpdateCompany(ctx context.Context, id string, input *NewCompany) (*Company, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	db := config.GetDB()

	var company Company
	if err := db.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	tx := db.Begin()
	err := tx.WithContext(ctx).Model(&company).Updates(map[string]interface{}{
		"Name":          input.Name,
		"Gstin":         strings.ToUpper(input.Gstin),
		"StateCode":     input.StateCode,
		"Address":       input.Address,
		"Phone":         input.Phone,
		"Email":         input.Email,
		"InvoicePrefix": input.InvoicePrefix,
		"PaymentPrefix": input.PaymentPrefix,
		"Timezone":      input.Timezone,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := company.RemoveRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &company, tx.Commit().Error
}

func GetCompanyById(ctx context.Context, id string) (*Company, error) {

	var result Company

	exists, err := config.GetRedisObject("Company:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.GetDB()
		// db query
		err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// tx-scoped variant for flows that read the company mid transaction
func getCompanyByIdTx(tx *gorm.DB, id string) (*Company, error) {

	var result Company

	exists, err := config.GetRedisObject("Company:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		// db query
		err := tx.Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

func GetCompany(ctx context.Context) (*Company, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	return GetCompanyById(ctx, companyId)
}

func GetCompanies(ctx context.Context, name *string) ([]*Company, error) {

	db := config.GetDB()
	var results []*Company

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
