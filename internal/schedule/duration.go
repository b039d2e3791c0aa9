package schedule

import (
	"fmt"
	"math"
)

// Method selects how the season duration is derived from temperature.
type Method string

const (
	// MethodCurve uses the cubic filtration curve.
	MethodCurve Method = "curve"
	// MethodHalf runs the pump for half the water temperature, in hours.
	MethodHalf Method = "half"
)

// Cubic filtration curve, hours as a function of water temperature.
const (
	curveA = 0.00335
	curveB = -0.14953
	curveC = 2.43489
	curveD = -10.72859

	// curveFloor keeps the curve on its increasing branch.
	curveFloor = 10.0

	minutesPerDay = 24 * 60
)

// CurveHours evaluates the filtration curve at max(temp, 10) scaled by coeff.
func CurveHours(temp, coeff float64) float64 {
	t := math.Max(temp, curveFloor)
	return (curveA*coeff)*t*t*t + (curveB*coeff)*t*t + (curveC*coeff)*t + curveD*coeff
}

// HalfHours returns temp/2 scaled by coeff.
func HalfHours(temp, coeff float64) float64 {
	return temp / 2.0 * coeff
}

// WinterHours returns temp/3 scaled by coeff, never less than minimum.
func WinterHours(temp, coeff, minimum float64) float64 {
	return math.Max(temp/3.0*coeff, minimum)
}

// Hours dispatches to the strategy selected by m. Unknown methods fall back
// to the curve.
func (m Method) Hours(temp, coeff float64) float64 {
	if m == MethodHalf {
		return HalfHours(temp, coeff)
	}
	return CurveHours(temp, coeff)
}

// ProcessingTime truncates hours to whole minutes, clamps the result to
// [0, 24h] and returns it in seconds along with its "HH:MM" rendering.
func ProcessingTime(hours float64) (seconds int64, display string) {
	minutes := int64(hours * 60)
	if minutes < 0 {
		minutes = 0
	}
	if minutes > minutesPerDay {
		minutes = minutesPerDay
	}
	return minutes * 60, fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
