// Package mathutil provides common mathematical utility functions.
package mathutil

import "math"

// decimalPrecision is the precision for currency rounding (2 decimal places).
const decimalPrecision = 100

// Round rounds a value to two decimals, i.e. to represent real currency.
// Monetary values are rounded only at reporting boundaries, never
// mid-computation.
func Round(val float64) float64 {
	return math.Round(val*decimalPrecision) / decimalPrecision
}

// Percentage calculates what percentage value is of total.
func Percentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}

// Improvement returns the relative improvement from prev to curr, e.g. a
// drop from 100 to 98 yields 0.02. Returns 0 when prev is not positive.
func Improvement(prev, curr float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (prev - curr) / prev
}
