package forecast

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/chrissnell/pvforecast/internal/weather"
)

// drawsPerFactor is the number of Bernoulli trials averaged into each
// attenuation factor. Factors are therefore multiples of 0.1.
const drawsPerFactor = 10

// Sampler turns cloud-cover percentages into stochastic attenuation factors.
// A Sampler is not safe for concurrent use; each pipeline run builds its own.
type Sampler struct {
	src   rand.Source
	draws []float64
}

// NewSampler returns a Sampler seeded with seed, or with the current time
// when seed is nil.
func NewSampler(seed *uint64) *Sampler {
	var s uint64
	if seed != nil {
		s = *seed
	} else {
		s = uint64(time.Now().UnixNano())
	}
	return &Sampler{
		src:   rand.NewPCG(s, s^0x9e3779b97f4a7c15),
		draws: make([]float64, drawsPerFactor),
	}
}

// Factor returns the mean of ten draws that are 1 with probability
// 1-cloudTotalPct/100 and 0 otherwise. The percentage is clamped to [0, 100].
func (s *Sampler) Factor(cloudTotalPct float64) float64 {
	j := cloudTotalPct / 100
	if j < 0 {
		j = 0
	}
	if j > 1 {
		j = 1
	}

	b := distuv.Bernoulli{P: 1 - j, Src: s.src}
	for i := range s.draws {
		s.draws[i] = b.Rand()
	}
	return stat.Mean(s.draws, nil)
}

// Attenuate multiplies each theoretical value by a factor drawn from the
// matching cloud sample. It returns the attenuated series and the factors.
func (s *Sampler) Attenuate(theoretical []float64, clouds []weather.Sample) ([]float64, []float64, error) {
	if len(theoretical) != len(clouds) {
		return nil, nil, fmt.Errorf("%w: %d irradiance values but %d cloud samples",
			weather.ErrAlignment, len(theoretical), len(clouds))
	}

	attenuated := make([]float64, len(theoretical))
	factors := make([]float64, len(theoretical))
	for i, v := range theoretical {
		factors[i] = s.Factor(clouds[i].CloudTotal)
		attenuated[i] = v * factors[i]
	}
	return attenuated, factors, nil
}
