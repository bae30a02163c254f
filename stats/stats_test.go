package stats

import (
	"math"
	"testing"
)

func TestAverage(t *testing.T) {
	s := new(Average)
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Add(x)
	}
	if s.Count != 8 {
		t.Errorf("count = %v", s.Count)
	}
	if math.Abs(s.Mean-5) > 1e-12 {
		t.Errorf("mean = %v, want 5", s.Mean)
	}
	// sample stddev of the classic example set
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(s.StdDev-want) > 1e-12 {
		t.Errorf("stddev = %v, want %v", s.StdDev, want)
	}
}

func TestAverageSingle(t *testing.T) {
	s := new(Average)
	s.Add(3.5)
	if s.Mean != 3.5 || s.StdDev != 0 {
		t.Errorf("mean = %v stddev = %v", s.Mean, s.StdDev)
	}
}

func TestEMA(t *testing.T) {
	var avg float64
	// first value initialises the average
	avg = EMA(avg).Add(10, 9)
	if avg != 10 {
		t.Errorf("first value: %v", avg)
	}
	avg = EMA(avg).Add(20, 9)
	// k = 0.2 so the new average is 20*0.2 + 10*0.8
	if math.Abs(avg-12) > 1e-12 {
		t.Errorf("second value: %v", avg)
	}
}
