package solar

import (
	"math"
	"time"
)

// CalculateSunriseSunset returns sunrise and sunset as minutes from midnight UTC
// for the given day-of-year at the specified latitude and longitude.
// Returns (-1, -1, nil) for polar day (sun never sets) or polar night (sun never rises).
func CalculateSunriseSunset(dayOfYear int, latitude, longitude float64) (sunriseMinutes, sunsetMinutes int, err error) {
	declinationRad := degToRad(Declination(dayOfYear))
	latRad := degToRad(latitude)

	// At sunrise/sunset the sun is on the horizon (zenith angle = 90°):
	// cos(H) = -tan(lat) * tan(declination)
	cosH := -math.Tan(latRad) * math.Tan(declinationRad)

	if cosH < -1.0 {
		// Sun never sets (midnight sun / polar day)
		return -1, -1, nil
	}
	if cosH > 1.0 {
		// Sun never rises (polar night)
		return -1, -1, nil
	}

	hourAngleMinutes := radToDeg(math.Acos(cosH)) / 15.0 * 60.0

	// Each degree of longitude is 4 minutes of time; east is earlier in UTC.
	longitudeMinutes := longitude * 4.0
	eotMinutes := EquationOfTime(dayOfYear) * 60.0

	solarNoonUTC := 720.0 - longitudeMinutes - eotMinutes

	sunriseUTC := math.Mod(solarNoonUTC-hourAngleMinutes+1440, 1440)
	sunsetUTC := math.Mod(solarNoonUTC+hourAngleMinutes+1440, 1440)

	return int(math.Round(sunriseUTC)), int(math.Round(sunsetUTC)), nil
}

// FormatSunTime converts UTC minutes from midnight to a 24-hour local clock
// time on the given date, in date's location. Returns "" for the polar sentinel.
func FormatSunTime(utcMinutes int, date time.Time) string {
	if utcMinutes < 0 {
		return ""
	}
	return sunTime(utcMinutes, date).Format("15:04")
}

// LocalSunHour converts UTC minutes from midnight to the local hour of day on
// the given date. Returns -1 for the polar sentinel.
func LocalSunHour(utcMinutes int, date time.Time) int {
	if utcMinutes < 0 {
		return -1
	}
	return sunTime(utcMinutes, date).Hour()
}

func sunTime(utcMinutes int, date time.Time) time.Time {
	y, m, d := date.Date()
	t := time.Date(y, m, d, utcMinutes/60, utcMinutes%60, 0, 0, time.UTC)
	return t.In(date.Location())
}

// DaylightSpan returns the first and last instants whose value is non-zero,
// which is how a forecast series marks its sunrise and sunset. ok is false
// when the whole series is zero.
func DaylightSpan(times []time.Time, values []float64) (first, last time.Time, ok bool) {
	n := len(times)
	if len(values) < n {
		n = len(values)
	}
	lo, hi := -1, -1
	for i := 0; i < n; i++ {
		if values[i] != 0 {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	if lo < 0 {
		return time.Time{}, time.Time{}, false
	}
	return times[lo], times[hi], true
}
