package mathutil

import "testing"

func TestRound(t *testing.T) {
	cases := []struct {
		input float64
		want  float64
	}{
		{1.004, 1.0},
		{1.006, 1.01},
		{3.14159, 3.14},
		{8800.0, 8800.0},
		{-2.567, -2.57},
		{0, 0},
	}
	for _, tc := range cases {
		if got := Round(tc.input); got != tc.want {
			t.Errorf("Round(%v) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(1000, 9800); got < 10.2 || got > 10.21 {
		t.Errorf("Percentage(1000, 9800) = %v", got)
	}
	if got := Percentage(50, 0); got != 0 {
		t.Errorf("Percentage with zero total = %v, want 0", got)
	}
}

func TestImprovement(t *testing.T) {
	cases := []struct {
		prev, curr, want float64
	}{
		{100, 98, 0.02},
		{950, 940, (950.0 - 940.0) / 950.0},
		{100, 110, -0.1},
		{0, 50, 0},
		{-10, 5, 0},
	}
	for _, tc := range cases {
		got := Improvement(tc.prev, tc.curr)
		if diff := got - tc.want; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("Improvement(%v, %v) = %v, want %v", tc.prev, tc.curr, got, tc.want)
		}
	}
}
