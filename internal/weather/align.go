package weather

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlignment is returned when a cloud series cannot cover the time grid.
var ErrAlignment = errors.New("cloud forecast alignment error")

// Align upsamples coarse forecast samples, each covering one timeframe, onto
// n grid instants that are step apart. Instant i takes the sample of
// timeframe floor(i*step/timeframe). A coarse series longer than needed is
// truncated. A shorter one is extended by holding its last sample; held
// reports how many instants were filled that way.
func Align(coarse []Sample, n int, step, timeframe time.Duration) (aligned []Sample, held int, err error) {
	if step <= 0 || timeframe <= 0 {
		return nil, 0, fmt.Errorf("%w: invalid step %v or timeframe %v", ErrAlignment, step, timeframe)
	}
	if n == 0 {
		return []Sample{}, 0, nil
	}
	if len(coarse) == 0 {
		return nil, 0, fmt.Errorf("%w: no cloud samples to align onto %d instants", ErrAlignment, n)
	}

	aligned = make([]Sample, n)
	last := len(coarse) - 1
	for i := 0; i < n; i++ {
		k := int(time.Duration(i) * step / timeframe)
		if k > last {
			k = last
			held++
		}
		aligned[i] = coarse[k]
	}
	return aligned, held, nil
}
