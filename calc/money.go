package calc

import (
	"github.com/shopspring/decimal"
)

var (
	decimalTwo        = decimal.NewFromInt(2)
	decimalOneHundred = decimal.NewFromInt(100)
)

// RoundingMode selects how a raw grand total is rounded to the nearest
// whole currency unit. The caller picks one per invoice; there is no
// process wide default and an unknown mode is an error, never a fallback.
type RoundingMode string

const (
	RoundingModeNone   RoundingMode = "None"
	RoundingModeHalfUp RoundingMode = "Half Up"
	RoundingModeDown   RoundingMode = "Down"
	RoundingModeUp     RoundingMode = "Up"
)

var roundingModes = map[string]RoundingMode{
	"None":    RoundingModeNone,
	"Half Up": RoundingModeHalfUp,
	"Down":    RoundingModeDown,
	"Up":      RoundingModeUp,
}

func (m RoundingMode) Valid() bool {
	_, ok := roundingModes[string(m)]
	return ok
}

func ParseRoundingMode(s string) (RoundingMode, bool) {
	m, ok := roundingModes[s]
	return m, ok
}

// percentOf returns amount*(percent/100). The divide by 100 is an
// exponent shift, so line level math never loses digits; rounding to
// currency precision happens only on the invoice aggregate.
func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Shift(-2)
}

// ApplyRounding rounds raw to a whole currency unit under mode and
// returns the rounded total together with the round off that was added.
// rounded == raw + roundOff holds exactly for every mode.
func ApplyRounding(raw decimal.Decimal, mode RoundingMode) (rounded decimal.Decimal, roundOff decimal.Decimal, err error) {
	switch mode {
	case RoundingModeNone:
		rounded = raw
	case RoundingModeHalfUp:
		rounded = raw.Round(0)
	case RoundingModeDown:
		rounded = raw.RoundFloor(0)
	case RoundingModeUp:
		rounded = raw.RoundCeil(0)
	default:
		return decimal.Zero, decimal.Zero, &InvalidInvoiceInputError{Field: "rounding_mode", Reason: "unknown mode " + string(mode)}
	}
	return rounded, rounded.Sub(raw), nil
}
