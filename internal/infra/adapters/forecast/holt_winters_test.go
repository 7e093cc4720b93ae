//go:build !integration

package forecast

import (
	"context"
	"math"
	"testing"
)

func TestHoltWinters_ReproducesSeasonalPattern(t *testing.T) {
	pattern := []float64{10, 12, 30, 80, 120, 60, 20, 15, 11, 9, 8, 10}
	var series []float64
	for y := 0; y < 4; y++ {
		series = append(series, pattern...)
	}

	m, err := NewHoltWinters().Fit(context.Background(), series, 12)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	for h := 1; h <= 12; h++ {
		mean, lower, upper := m.Predict(h)
		if math.Abs(mean-pattern[h-1]) > 1e-6 {
			t.Errorf("h=%d: want %v, got %v", h, pattern[h-1], mean)
		}
		if lower > mean || upper < mean {
			t.Errorf("h=%d: band [%v,%v] does not contain %v", h, lower, upper, mean)
		}
	}
}

func TestHoltWinters_ShortSeriesFallsBackToTrend(t *testing.T) {
	m, err := NewHoltWinters().Fit(context.Background(), []float64{1, 2, 3, 4, 5}, 12)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	mean, _, _ := m.Predict(1)
	if math.Abs(mean-6) > 1e-6 {
		t.Fatalf("expected linear continuation 6, got %v", mean)
	}
}

func TestHoltWinters_NeverNegative(t *testing.T) {
	m, err := NewHoltWinters().Fit(context.Background(), []float64{50, 40, 30, 20, 10, 0}, 0)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	mean, lower, _ := m.Predict(10)
	if mean < 0 || lower < 0 {
		t.Fatalf("negative forecast: mean=%v lower=%v", mean, lower)
	}
}

func TestHoltWinters_TooShort(t *testing.T) {
	if _, err := NewHoltWinters().Fit(context.Background(), []float64{1}, 12); err == nil {
		t.Fatal("expected error for single observation")
	}
}
