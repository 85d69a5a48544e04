package config

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitbucket.org/taxnova/gstbill_backend/appctx"
)

// CompanyGuardPlugin scopes queries/updates/deletes to the request's
// company_id whenever the model carries a company_id column. One SQLite
// file can hold several companies (imports, year-end copies), and a
// missed WHERE must not bleed one company's invoices into another's
// screens.
//
// NOTE:
// - This does NOT apply to Raw SQL. Those must include company_id manually.
// - Internal ops bypass is explicit via the SkipCompanyScope context flag.
type CompanyGuardPlugin struct{}

func NewCompanyGuardPlugin() *CompanyGuardPlugin { return &CompanyGuardPlugin{} }

func (p *CompanyGuardPlugin) Name() string { return "company_guard" }

func (p *CompanyGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("company_guard:query", companyGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("company_guard:row", companyGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("company_guard:update", companyGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("company_guard:delete", companyGuardCallback); err != nil {
		return err
	}
	return nil
}

func companyGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassCompanyScope(ctx) {
		return
	}
	companyId := companyIdFromContext(ctx)
	if companyId == "" {
		return
	}

	// Only apply if the current model/table includes a company_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasCompanyId := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "company_id") {
			hasCompanyId = true
			break
		}
	}
	if !hasCompanyId {
		return
	}

	// Don't duplicate an explicit company filter.
	if whereHasCompanyId(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "company_id"},
				Value:  companyId,
			},
		},
	})
}

func companyIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyCompanyId).(string); ok && v != "" {
		return v
	}
	return ""
}

func shouldBypassCompanyScope(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeySkipCompanyScope).(bool); ok && v {
		return true
	}
	return false
}

func whereHasCompanyId(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasCompanyId(e) {
			return true
		}
	}
	return false
}

func exprHasCompanyId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsCompanyId(v.Column)
	case clause.Neq:
		return colIsCompanyId(v.Column)
	case clause.Gt:
		return colIsCompanyId(v.Column)
	case clause.Gte:
		return colIsCompanyId(v.Column)
	case clause.Lt:
		return colIsCompanyId(v.Column)
	case clause.Lte:
		return colIsCompanyId(v.Column)
	case clause.IN:
		return colIsCompanyId(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasCompanyId(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasCompanyId(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "company_id")
	default:
		return false
	}
}

func colIsCompanyId(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "company_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "company_id")
	default:
		return false
	}
}
