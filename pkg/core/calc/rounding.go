package calc

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds to 2 decimal places, half away from zero. Rounding works on the
// shortest decimal representation of v, so 1.005 rounds to 1.01.
func Round2(v float64) float64 {
	return roundTo(v, 2)
}

// RoundWhole rounds to the nearest whole unit, half away from zero
func RoundWhole(v float64) float64 {
	return roundTo(v, 0)
}

func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
