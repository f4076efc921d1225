package solar

import (
	"math"
	"time"
)

// Coefficients are the ASHRAE clear-day solar flux constants for one month.
// A is the apparent extraterrestrial flux (W/m²), B the atmospheric
// extinction coefficient and C the diffuse-to-direct ratio.
type Coefficients struct {
	A float64
	B float64
	C float64
}

// ClearSkyCoefficients is the ASHRAE Handbook of Fundamentals table for the
// 21st day of each month. Row 0 is a sentinel and is never addressed.
var ClearSkyCoefficients = [13]Coefficients{
	{0, 0, 0},
	{1230, 0.142, 0.058},
	{1215, 0.144, 0.060},
	{1186, 0.156, 0.071},
	{1136, 0.180, 0.097},
	{1104, 0.196, 0.121},
	{1088, 0.205, 0.134},
	{1085, 0.207, 0.136},
	{1107, 0.201, 0.122},
	{1151, 0.177, 0.092},
	{1192, 0.160, 0.073},
	{1221, 0.149, 0.063},
	{1233, 0.142, 0.057},
}

// CoefficientsFor returns the table row for calendar month m (1-12).
func CoefficientsFor(m time.Month) Coefficients {
	if m < time.January || m > time.December {
		panic("solar: month out of range: " + m.String())
	}
	return ClearSkyCoefficients[m]
}

// Irradiance holds the irradiance components for one grid instant, in W/m².
// The clear-sky model fills everything up to Theoretical; Attenuated and
// Smoothed are set by the forecast pipeline.
type Irradiance struct {
	DirectNormal      float64 `json:"direct_normal"`
	DirectOnPanel     float64 `json:"direct_on_panel"`
	DiffuseHorizontal float64 `json:"diffuse_horizontal"`
	DiffuseOnPanel    float64 `json:"diffuse_on_panel"`
	Reflected         float64 `json:"reflected"`
	Theoretical       float64 `json:"theoretical"`
	Attenuated        float64 `json:"attenuated"`
	Smoothed          float64 `json:"smoothed"`
}

// DirectNormal returns the ASHRAE beam irradiance A·exp(-B/sin(altitude)).
// A sun on (or clamped to) the horizon gives 0 without evaluating -B/0.
func DirectNormal(c Coefficients, altitude float64) float64 {
	if altitude <= 0 {
		return 0
	}
	return c.A * math.Exp(-c.B/math.Sin(degToRad(altitude)))
}

// ClearSkyIrradiance applies the ASHRAE clear-day model to one geometry sample.
func ClearSkyIrradiance(c Coefficients, g GeometrySample, panel Panel, reflectance float64) Irradiance {
	dni := DirectNormal(c, g.Altitude)

	// A panel facing away from the sun receives no beam component.
	cosIncidence := math.Max(0, math.Cos(degToRad(g.IncidenceAngle)))
	direct := dni * cosIncidence

	cosTilt := math.Cos(degToRad(panel.Tilt))
	diffuseH := c.C * dni
	diffuseP := diffuseH * (1 + cosTilt) / 2
	reflected := reflectance * direct * (1 - cosTilt) / 2

	// The leading sin(altitude) tapers the low-sun edges once more.
	total := math.Sin(degToRad(g.Altitude)) * (direct + diffuseP + reflected)

	return Irradiance{
		DirectNormal:      dni,
		DirectOnPanel:     direct,
		DiffuseHorizontal: diffuseH,
		DiffuseOnPanel:    diffuseP,
		Reflected:         reflected,
		Theoretical:       total,
	}
}

// ComputeClearSky evaluates the clear-sky model over the whole grid, indexing
// the coefficient table by each instant's own month.
func ComputeClearSky(grid TimeGrid, geometry []GeometrySample, panel Panel, reflectance float64) []Irradiance {
	n := len(grid.Instants)
	if len(geometry) < n {
		n = len(geometry)
	}
	out := make([]Irradiance, n)
	for i := 0; i < n; i++ {
		out[i] = ClearSkyIrradiance(CoefficientsFor(grid.Instants[i].Month), geometry[i], panel, reflectance)
	}
	return out
}

// Theoretical extracts the theoretical total from a series.
func Theoretical(series []Irradiance) []float64 {
	out := make([]float64, len(series))
	for i, s := range series {
		out[i] = s.Theoretical
	}
	return out
}
