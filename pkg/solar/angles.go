package solar

import "math"

// degToRad converts an angle from degrees to radians for trigonometric calculations
func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

// radToDeg converts an angle from radians to degrees for human-readable output
func radToDeg(rad float64) float64 {
	return rad * (180.0 / math.Pi)
}

// clampUnit limits x to [-1, 1] so that rounding noise never pushes an
// asin/acos argument out of its domain.
func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

// acosOrZero returns acos(x) in radians, or 0 when the result would be NaN
// (x outside [-1, 1] or x itself NaN).
func acosOrZero(x float64) float64 {
	r := math.Acos(x)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
