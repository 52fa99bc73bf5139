package domain

import "math"

// Round округляет до places знаков после запятой (half away from zero).
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
