package models

func (p Party) GetCompanyId() string {
	return p.CompanyId
}

func (p Product) GetCompanyId() string {
	return p.CompanyId
}

func (i Invoice) GetCompanyId() string {
	return i.CompanyId
}

func (p Payment) GetCompanyId() string {
	return p.CompanyId
}
