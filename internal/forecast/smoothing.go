package forecast

import "gonum.org/v1/gonum/floats"

// Boxcar applies a centred moving average with zero padding. Every output is
// divided by width, so values within width/2 of either end are pulled towards
// zero. The output has the same length as data.
// width must be a positive odd integer
func Boxcar(data []float64, width int) []float64 {
	if width < 1 || width%2 == 0 {
		panic("width must be positive odd integer")
	}
	n := len(data)
	if n == 0 {
		return nil
	}

	half := width / 2
	result := make([]float64, n)

	for i := 0; i < n; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > n {
			hi = n
		}
		// Out-of-range samples contribute zero.
		result[i] = floats.Sum(data[lo:hi]) / float64(width)
	}
	return result
}
