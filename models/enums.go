package models

// BillType tells whether an invoice is paid on the spot or carried on
// the party's credit. CASH bills can settle themselves on finalize,
// CREDIT bills wait for payments.
type BillType string

const (
	BillTypeCash   BillType = "CASH"
	BillTypeCredit BillType = "CREDIT"
)

var billTypes = map[string]BillType{
	"CASH":   BillTypeCash,
	"CREDIT": BillTypeCredit,
}

func (t BillType) Valid() bool {
	_, ok := billTypes[string(t)]
	return ok
}

func ParseBillType(s string) (BillType, bool) {
	t, ok := billTypes[s]
	return t, ok
}
