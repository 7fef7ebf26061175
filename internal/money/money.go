// Package money converts integer minor units (cents) to display amounts.
// Amounts are integers everywhere else; conversion happens only here.
package money

import "github.com/shopspring/decimal"

// MinorUnitExponent is the exponent of the minor unit (cents = 10^-2).
const MinorUnitExponent = -2

// FromMinor returns minor as a decimal amount of major units.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, MinorUnitExponent)
}

// Format renders minor units with two decimals, e.g. 1999 -> "19.99".
func Format(minor int64) string {
	return FromMinor(minor).StringFixed(2)
}
