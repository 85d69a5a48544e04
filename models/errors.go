package models

import "errors"

// Business-rule rejections the API layer maps to 409 responses. Anything
// typed comes from the calc package, anything else is treated as internal.
var (
	ErrorInvoiceNotDraft     = errors.New("invoice is finalized and can no longer be edited")
	ErrorInvoiceFinalized    = errors.New("invoice is already finalized")
	ErrorInvoiceNotFinal     = errors.New("invoice is not finalized")
	ErrorInvoiceCancelled    = errors.New("invoice is cancelled")
	ErrorInvoiceNotCancelled = errors.New("finalized invoice must be cancelled before delete")
	ErrorInvoiceHasPayments  = errors.New("payments are applied to this invoice, delete them first")
	ErrorAdvanceConsumed     = errors.New("party advance balance has already been spent")
	ErrorPartyHasRecords     = errors.New("party has invoices or payments and cannot be deleted")
	ErrorProductInUse        = errors.New("product is used on invoices and cannot be deleted")
)
