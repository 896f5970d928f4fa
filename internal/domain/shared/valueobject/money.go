package valueobject

import "github.com/shopspring/decimal"

// RoundHalfUp rounds a monetary amount to two decimal places with half-value
// ties rounding away from zero, so RoundHalfUp(2.005) == 2.01. This is the
// rounding applied to invoice and export totals; intermediate reconciliation
// math stays unrounded.
func RoundHalfUp(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// RoundTo rounds v to the given number of decimal places, half away from
// zero. Export line prices use three places.
func RoundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
