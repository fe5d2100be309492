package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 1.235, 1.24},
		{"Round down below midpoint", 1.234, 1.23},
		{"No rounding needed", 1.23, 1.23},
		{"Large payout", 1234567.894, 1234567.89},
		{"Negative number", -1.235, -1.24},
		{"Zero", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRoundShares(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected int64
	}{
		{"Exact share count", 500000.0, 500000},
		{"Round down", 500000.4, 500000},
		{"Round up", 500000.5, 500001},
		{"Fractional conversion", 156249.9, 156250},
		{"Zero", 0.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundShares(tt.input)
			if result != tt.expected {
				t.Errorf("RoundShares(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected bool
	}{
		{"Exactly zero", 0.0, true},
		{"Within tolerance", 0.001, true},
		{"Negative within tolerance", -0.001, true},
		{"Above tolerance", 0.02, false},
		{"Large value", 100.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsZero(tt.input)
			if result != tt.expected {
				t.Errorf("IsZero(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name      string
		val1      float64
		val2      float64
		tolerance float64
		expected  bool
	}{
		{"Equal values", 100.0, 100.0, 0.01, true},
		{"Within one dollar", 1000000.0, 1000000.5, 1.0, true},
		{"Outside tolerance", 100.0, 102.0, 1.0, false},
		{"Negative difference within", 100.0, 99.5, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WithinTolerance(tt.val1, tt.val2, tt.tolerance)
			if result != tt.expected {
				t.Errorf("WithinTolerance(%v, %v, %v) = %v, expected %v",
					tt.val1, tt.val2, tt.tolerance, result, tt.expected)
			}
		})
	}
}

func TestMinMax(t *testing.T) {
	if got := Min(2.0, 3.0); got != 2.0 {
		t.Errorf("Min(2, 3) = %v, expected 2", got)
	}
	if got := Min(3.0, 2.0); got != 2.0 {
		t.Errorf("Min(3, 2) = %v, expected 2", got)
	}
	if got := Max(2.0, 3.0); got != 3.0 {
		t.Errorf("Max(2, 3) = %v, expected 3", got)
	}
	if got := Max(-1.0, -2.0); got != -1.0 {
		t.Errorf("Max(-1, -2) = %v, expected -1", got)
	}
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		total    float64
		expected float64
	}{
		{"Half", 50.0, 100.0, 50.0},
		{"Ownership share", 500000.0, 13000000.0, 3.846153846},
		{"Zero total", 10.0, 0.0, 0.0},
		{"Full", 100.0, 100.0, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculatePercentage(tt.value, tt.total)
			if math.Abs(result-tt.expected) > 0.000001 {
				t.Errorf("CalculatePercentage(%v, %v) = %v, expected %v",
					tt.value, tt.total, result, tt.expected)
			}
		})
	}
}

func TestApplyPercentage(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		percentage float64
		expected   float64
	}{
		{"Half", 100.0, 50.0, 50.0},
		{"Payout from ownership", 10000000.0, 40.0, 4000000.0},
		{"Zero percentage", 100.0, 0.0, 0.0},
		{"Full percentage", 100.0, 100.0, 100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplyPercentage(tt.value, tt.percentage)
			if math.Abs(result-tt.expected) > 0.000001 {
				t.Errorf("ApplyPercentage(%v, %v) = %v, expected %v",
					tt.value, tt.percentage, result, tt.expected)
			}
		})
	}
}
