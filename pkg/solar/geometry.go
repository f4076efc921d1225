package solar

import (
	"errors"
	"fmt"
	"math"
)

// ErrGeometryDomain reports a NaN or infinite angle that survived the masking
// rules in ComputeGeometry. It indicates a defect, not a recoverable condition.
var ErrGeometryDomain = errors.New("solar geometry domain error")

// Location is the forecast site, in degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Panel describes the PV panel orientation, in degrees. Declination is the
// panel azimuth offset from the reference direction; Tilt is 0 for a
// horizontal panel.
type Panel struct {
	Declination float64
	Tilt        float64
}

// GeometrySample holds the sun position for one grid instant. Angles are in
// degrees, times in hours.
type GeometrySample struct {
	Declination    float64
	EquationOfTime float64
	LocalSolarTime float64
	HourAngle      float64
	Zenith         float64
	Altitude       float64
	Azimuth        float64
	SurfaceAzimuth float64
	IncidenceAngle float64
}

// Declination returns the sun declination in degrees for day-of-year n.
func Declination(n int) float64 {
	return 23.45 * math.Sin(2*math.Pi/365*float64(284+n))
}

// EquationOfTime returns the drift of solar time from clock time, in hours,
// for day-of-year n.
func EquationOfTime(n int) float64 {
	b := 2 * math.Pi / 365 * float64(n-81)
	return 0.1645*math.Sin(2*b) - 0.1255*math.Cos(b) - 0.025*math.Sin(b)
}

// LocalSolarTime combines the clock hour with the longitude correction, the
// equation of time and the daylight-saving flag.
func LocalSolarTime(clockHour, utcOffsetHours, longitude, eot, dst float64) float64 {
	return clockHour + (1.0/15.0)*(utcOffsetHours*15-longitude) + eot - dst
}

// SunPosition computes the geometry of a single instant.
func SunPosition(in Instant, loc Location, panel Panel, utcOffsetHours float64) GeometrySample {
	decl := Declination(in.DayOfYear)
	eot := EquationOfTime(in.DayOfYear)
	lst := LocalSolarTime(in.ClockHour, utcOffsetHours, loc.Longitude, eot, in.DaylightSaving)
	h := 15 * (lst - 12)

	latRad := degToRad(loc.Latitude)
	declRad := degToRad(decl)
	hRad := degToRad(h)

	cosZenith := clampUnit(math.Cos(latRad)*math.Cos(hRad)*math.Cos(declRad) + math.Sin(latRad)*math.Sin(declRad))
	zenith := radToDeg(math.Acos(cosZenith))

	// Below the horizon the altitude is pinned to 0.
	altitude := radToDeg(math.Asin(cosZenith))
	if altitude < 0 {
		altitude = 0
	}
	altRad := degToRad(altitude)

	// cos(altitude) tends to 0 at the zenith and the ratio can leave [-1, 1];
	// both cases yield an azimuth of 0.
	cosAzimuth := (math.Cos(declRad)*math.Sin(latRad)*math.Cos(hRad) - math.Sin(declRad)*math.Cos(latRad)) / math.Cos(altRad)
	azimuth := radToDeg(acosOrZero(cosAzimuth))

	// The unsigned difference cannot tell apart panels facing opposite
	// directions at the same offset.
	surfaceAzimuth := math.Abs(azimuth - panel.Declination)

	tiltRad := degToRad(panel.Tilt)
	cosTheta := math.Cos(altRad)*math.Cos(degToRad(surfaceAzimuth))*math.Sin(tiltRad) + math.Sin(altRad)*math.Cos(tiltRad)
	incidence := radToDeg(acosOrZero(cosTheta))

	return GeometrySample{
		Declination:    decl,
		EquationOfTime: eot,
		LocalSolarTime: lst,
		HourAngle:      h,
		Zenith:         zenith,
		Altitude:       altitude,
		Azimuth:        azimuth,
		SurfaceAzimuth: surfaceAzimuth,
		IncidenceAngle: incidence,
	}
}

// ComputeGeometry derives the sun position for every instant of the grid.
// Each sample depends only on its own instant and the constant inputs.
func ComputeGeometry(grid TimeGrid, loc Location, panel Panel, utcOffsetHours float64) []GeometrySample {
	out := make([]GeometrySample, len(grid.Instants))
	for i, in := range grid.Instants {
		out[i] = SunPosition(in, loc, panel, utcOffsetHours)
	}
	return out
}

// CheckGeometry returns ErrGeometryDomain if any sample carries a NaN or
// infinite angle.
func CheckGeometry(samples []GeometrySample) error {
	for i, s := range samples {
		for _, v := range []float64{s.Declination, s.EquationOfTime, s.LocalSolarTime, s.HourAngle,
			s.Zenith, s.Altitude, s.Azimuth, s.SurfaceAzimuth, s.IncidenceAngle} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: sample %d: %+v", ErrGeometryDomain, i, s)
			}
		}
	}
	return nil
}
