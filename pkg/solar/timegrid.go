package solar

import (
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const secondsPerDay = 86400

// Daylight saving is approximated with fixed calendar cutoffs rather than the
// last-Sunday rule: it is on from 31 March (inclusive) to 27 October (exclusive).
var (
	dstStartMonth, dstStartDay = 3, 31
	dstEndMonth, dstEndDay     = 10, 27
)

// Instant is one point of the forecast time grid.
type Instant struct {
	Time      time.Time
	DayOfYear int
	Month     time.Month
	// ClockHour is the wall-clock time of day in decimal hours (15:45 is 15.75).
	ClockHour float64
	// DaylightSaving is 1 when the instant's calendar day falls in the DST table, 0 otherwise.
	DaylightSaving float64
}

// TimeGrid is the ordered, constant-step sequence of forecast instants.
type TimeGrid struct {
	Start    time.Time
	Step     time.Duration
	Horizon  int
	Instants []Instant
}

// Len returns the number of instants in the grid.
func (g TimeGrid) Len() int {
	return len(g.Instants)
}

// Times returns the timestamps of the grid.
func (g TimeGrid) Times() []time.Time {
	ts := make([]time.Time, len(g.Instants))
	for i, in := range g.Instants {
		ts[i] = in.Time
	}
	return ts
}

// GridLength returns horizonDays*86400/step, the number of instants BuildTimeGrid produces.
func GridLength(step time.Duration, horizonDays int) int {
	stepSecs := int64(step / time.Second)
	if stepSecs < 1 || horizonDays < 1 {
		return 0
	}
	return int(int64(horizonDays) * secondsPerDay / stepSecs)
}

// MidnightOf returns 00:00:00 of t's calendar day in t's own location.
func MidnightOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaylightSavingTable returns a per-day-of-year table for year. Index 0 is
// unused; entry n is 1 for days between the spring and autumn cutoffs.
func DaylightSavingTable(year int) []float64 {
	leap := julian.LeapYearGregorian(year)
	days := 365
	if leap {
		days = 366
	}
	on := julian.DayOfYearGregorian(year, dstStartMonth, dstStartDay)
	off := julian.DayOfYearGregorian(year, dstEndMonth, dstEndDay)

	table := make([]float64, days+1)
	for n := on; n < off; n++ {
		table[n] = 1
	}
	return table
}

// BuildTimeGrid discretizes horizonDays*86400 seconds from midnight(start)
// into instants step apart. Step and horizon are validated by the
// configuration layer. On a day with a zone transition the grid keeps its
// constant step, so it ends an hour past or short of local midnight.
func BuildTimeGrid(start time.Time, step time.Duration, horizonDays int) TimeGrid {
	start = MidnightOf(start)
	n := GridLength(step, horizonDays)

	g := TimeGrid{
		Start:    start,
		Step:     step,
		Horizon:  horizonDays,
		Instants: make([]Instant, n),
	}

	tables := make(map[int][]float64)
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * step)

		// Calendar tags and clock hour come from the wall clock, so they
		// follow the published timestamp across a zone transition.
		y, m, d := t.Date()
		doy := julian.DayOfYearGregorian(y, int(m), d)

		table, ok := tables[y]
		if !ok {
			table = DaylightSavingTable(y)
			tables[y] = table
		}

		g.Instants[i] = Instant{
			Time:           t,
			DayOfYear:      doy,
			Month:          m,
			ClockHour:      wallClock(t).Hours(),
			DaylightSaving: table[doy],
		}
	}

	return g
}

// wallClock returns the time of day shown on t's clock as a duration since
// 00:00, ignoring any zone transition earlier that day.
func wallClock(t time.Time) time.Duration {
	h, m, sec := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(sec)*time.Second + time.Duration(t.Nanosecond())
}
