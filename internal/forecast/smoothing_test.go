package forecast

import (
	"math"
	"testing"
)

func TestBoxcar(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		width    int
		expected []float64
	}{
		{
			name:     "width one is identity",
			data:     []float64{1, 5, 3},
			width:    1,
			expected: []float64{1, 5, 3},
		},
		{
			name:     "zero padded edges",
			data:     []float64{3, 3, 3, 3, 3},
			width:    3,
			expected: []float64{2, 3, 3, 3, 2},
		},
		{
			name:     "impulse spreads evenly",
			data:     []float64{0, 0, 9, 0, 0},
			width:    3,
			expected: []float64{0, 3, 3, 3, 0},
		},
		{
			name:     "window wider than data",
			data:     []float64{5, 5},
			width:    5,
			expected: []float64{2, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Boxcar(tt.data, tt.width)
			if len(got) != len(tt.expected) {
				t.Fatalf("length = %d, expected %d", len(got), len(tt.expected))
			}
			for i := range got {
				if math.Abs(got[i]-tt.expected[i]) > 1e-12 {
					t.Errorf("index %d: got %v, expected %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestBoxcarTwentyOneSampleWindow(t *testing.T) {
	data := make([]float64, 40)
	for i := range data {
		data[i] = 1
	}
	got := Boxcar(data, 21)

	if math.Abs(got[0]-11.0/21) > 1e-12 {
		t.Errorf("first sample = %v, expected 11/21", got[0])
	}
	for i := 10; i < 30; i++ {
		if math.Abs(got[i]-1) > 1e-12 {
			t.Errorf("interior sample %d = %v, expected 1", i, got[i])
		}
	}
	if math.Abs(got[39]-11.0/21) > 1e-12 {
		t.Errorf("last sample = %v, expected 11/21", got[39])
	}
}

func TestBoxcarEmpty(t *testing.T) {
	if got := Boxcar(nil, 21); got != nil {
		t.Errorf("Boxcar(nil) = %v, expected nil", got)
	}
}

func TestBoxcarPanicsOnEvenWidth(t *testing.T) {
	for _, width := range []int{0, -3, 4} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("width %d: expected panic", width)
				}
			}()
			Boxcar([]float64{1, 2, 3}, width)
		}()
	}
}
