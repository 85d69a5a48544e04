package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/taxnova/gstbill_backend/config"
	"bitbucket.org/taxnova/gstbill_backend/utils"
	"github.com/shopspring/decimal"
)

// Party is a customer on the billing side. AdvanceBalance holds the
// unapplied portion of payments; only the payment flows move it.
type Party struct {
	ID             int             `gorm:"primary_key" json:"id"`
	CompanyId      string          `gorm:"index;not null" json:"company_id" binding:"required"`
	Name           string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Gstin          string          `gorm:"size:15" json:"gstin"`
	StateCode      string          `gorm:"size:2" json:"state_code"`
	Email          string          `gorm:"size:100" json:"email"`
	Phone          string          `gorm:"size:20" json:"phone"`
	Address        string          `gorm:"type:text" json:"address"`
	Notes          string          `gorm:"type:text;default:null" json:"notes"`
	AdvanceBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"advance_balance"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewParty struct {
	Name      string `json:"name" binding:"required"`
	Gstin     string `json:"gstin"`
	StateCode string `json:"state_code"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
}

type PartiesEdge Edge[Party]
type PartiesConnection struct {
	Edges    []*PartiesEdge `json:"edges"`
	PageInfo *PageInfo      `json:"pageInfo"`
}

func (p Party) GetCursor() string {
	return p.CreatedAt.String()
}

func (p Party) GetId() int {
	return p.ID
}

func (input *NewParty) validate(ctx context.Context, companyId string, id int) error {
	// name
	if err := utils.ValidateUnique[Party](ctx, companyId, "name", input.Name, id); err != nil {
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

func CreateParty(ctx context.Context, input *NewParty) (*Party, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	party := Party{
		CompanyId:      companyId,
		Name:           input.Name,
		Gstin:          strings.ToUpper(input.Gstin),
		StateCode:      input.StateCode,
		Email:          input.Email,
		Phone:          input.Phone,
		Address:        input.Address,
		Notes:          input.Notes,
		AdvanceBalance: decimal.Zero,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&party).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := utils.RemoveRedisList[Party](companyId); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &party, tx.Commit().Error
}

func UpdateParty(ctx context.Context, id int, input *NewParty) (*Party, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}

	party, err := utils.FetchModel[Party](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	// AdvanceBalance is deliberately absent, only settlements move it
	err = tx.WithContext(ctx).Model(&party).Updates(map[string]interface{}{
		"Name":      input.Name,
		"Gstin":     strings.ToUpper(input.Gstin),
		"StateCode": input.StateCode,
		"Email":     input.Email,
		"Phone":     input.Phone,
		"Address":   input.Address,
		"Notes":     input.Notes,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := utils.RemoveRedisItem[Party](id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.RemoveRedisList[Party](companyId); err != nil {
		tx.Rollback()
		return nil, err
	}
	return party, tx.Commit().Error
}

func DeleteParty(ctx context.Context, id int) (*Party, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	result, err := utils.FetchModel[Party](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[Invoice](ctx, companyId, "party_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrorPartyHasRecords
	}

	count, err = utils.ResourceCountWhere[Payment](ctx, companyId, "party_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrorPartyHasRecords
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := utils.RemoveRedisItem[Party](id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := utils.RemoveRedisList[Party](companyId); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func ToggleActiveParty(ctx context.Context, id int, isActive bool) (*Party, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	return ToggleActiveModel[Party](ctx, companyId, id, isActive)
}

func GetParty(ctx context.Context, id int) (*Party, error) {
	return GetResource[Party](ctx, id)
}

func GetParties(ctx context.Context, name *string, isActive *bool) ([]*Party, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*Party

	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if isActive != nil {
		dbCtx.Where("is_active = ?", isActive)
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateParties(ctx context.Context, limit *int, after *string,
	name *string, phone *string, email *string, isActive *bool) (*PartiesConnection, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if phone != nil && *phone != "" {
		dbCtx.Where("phone LIKE ?", "%"+*phone+"%")
	}
	if email != nil && *email != "" {
		dbCtx.Where("email LIKE ?", "%"+*email+"%")
	}
	if isActive != nil {
		dbCtx.Where("is_active = ?", isActive)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Party](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var partiesConnection PartiesConnection
	partiesConnection.PageInfo = pageInfo
	for _, edge := range edges {
		partyEdge := PartiesEdge(edge)
		partiesConnection.Edges = append(partiesConnection.Edges, &partyEdge)
	}

	return &partiesConnection, err
}
