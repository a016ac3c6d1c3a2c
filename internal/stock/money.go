package stock

import (
	"math"

	"github.com/shopspring/decimal"
)

// LineCost is qty*price rounded half away from zero to cents.
func LineCost(qty, price float64) float64 {
	return decimal.NewFromFloat(qty).
		Mul(decimal.NewFromFloat(price)).
		Round(2).
		InexactFloat64()
}

// RoundMoney rounds an accumulated amount to cents.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// SumMoney adds amounts without float drift and rounds the result to cents.
func SumMoney(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Percent is round(part/whole*100); an empty whole counts as complete.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 100
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// VariancePct is the absolute change relative to old, as a fraction.
// It is zero when old is not positive, since no baseline exists.
func VariancePct(oldQty, newQty float64) float64 {
	if oldQty <= 0 {
		return 0
	}
	return math.Abs(newQty-oldQty) / oldQty
}
