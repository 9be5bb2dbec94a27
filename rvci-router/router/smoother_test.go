package router

import (
	"math"
	"testing"
)

func TestSmootherSnapsOnLargeMove(t *testing.T) {
	s := Smoother{}
	s.Process(0.5)
	if got := s.Process(0.9); got != 0.9 {
		t.Errorf("large move: got %v, want 0.9", got)
	}
}

func TestSmootherFiltersSmallMove(t *testing.T) {
	s := Smoother{}
	s.Process(0.5)
	got := s.Process(0.52)
	want := 0.5 + 0.02*filterGain
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("small move: got %v, want %v", got, want)
	}
}

func TestSmootherConvergesOnHeldValue(t *testing.T) {
	s := Smoother{}
	s.Process(0.5)
	for i := 0; i < 50; i++ {
		s.Process(0.55)
	}
	if got := s.Process(0.55); math.Abs(got-0.55) > 0.001 {
		t.Errorf("held value: got %v, want ~0.55", got)
	}
}

func TestSmootherBoundaryIsSnap(t *testing.T) {
	s := Smoother{}
	s.Process(0.5)
	if got := s.Process(0.5 + snapThreshold); got != 0.5+snapThreshold {
		t.Errorf("exact threshold move should snap, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw, ceiling, want float64
	}{
		{0, 1024, 0},
		{512, 1024, 0.5},
		{1024, 1024, 1},
		{2000, 1024, 1},
		{-10, 1024, 0},
	}
	for _, c := range cases {
		if got := Normalize(c.raw, c.ceiling); got != c.want {
			t.Errorf("Normalize(%v, %v) = %v, want %v", c.raw, c.ceiling, got, c.want)
		}
	}
}
