package utils

import "errors"

// ErrorRecordNotFound is the store level miss every Fetch/Validate helper
// returns; the API layer maps it to 404.
var ErrorRecordNotFound = errors.New("record not found")
