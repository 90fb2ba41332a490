package reconcile

import (
	"fmt"
	"math"
)

// SafeDiv returns n/d, or 0 when d is 0.
func SafeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}

// Percent returns n as a percentage of d, or 0 when d is 0.
func Percent(n, d int) float64 {
	return SafeDiv(float64(n), float64(d)) * 100
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatPercent renders a percentage with one decimal, e.g. "25.0%".
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}
