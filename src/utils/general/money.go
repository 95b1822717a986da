package general

import "github.com/shopspring/decimal"

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// AffordableQuantity is the largest whole number of shares cash can buy at price.
func AffordableQuantity(cash, price float64) int {
	if price <= 0 || cash <= 0 {
		return 0
	}
	return int(decimal.NewFromFloat(cash).Div(decimal.NewFromFloat(price)).Floor().IntPart())
}
