package joint

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi float64
		expected  float64
	}{
		{-1, 0, 180, 0},
		{181, 0, 180, 180},
		{90, 0, 180, 90},
		{0, 0, 180, 0},
		{180, 0, 180, 180},
		{9, 10, 20, 10},
		{21, 10, 20, 20},
		{math.Inf(1), 0, 180, 180},
		{math.Inf(-1), 0, 180, 0},
		{math.NaN(), 5, 180, 5},
	}

	for _, tt := range tests {
		got := Clamp(tt.v, tt.lo, tt.hi)
		if got != tt.expected {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.expected)
		}
	}
}

func TestClamp_AlwaysInRange(t *testing.T) {
	for v := -1000.0; v <= 1000; v += 7.3 {
		got := Clamp(v, 10, 170)
		if got < 10 || got > 170 {
			t.Fatalf("Clamp(%v, 10, 170) = %v, outside range", v, got)
		}
	}
}

func TestParseClamp(t *testing.T) {
	tests := []struct {
		in       string
		expected float64
	}{
		{"45", 45},
		{" 12.5 ", 12.5},
		{"200", 180},
		{"-3", 0},
		{"abc", 0},
		{"", 0},
		{"1,5", 0},
	}

	for _, tt := range tests {
		got := ParseClamp(tt.in, 0, 180)
		if got != tt.expected {
			t.Errorf("ParseClamp(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

func TestRange_Lerp(t *testing.T) {
	r := Range{Min: 20, Max: 120}

	if got := r.Lerp(0); got != 20 {
		t.Errorf("Lerp(0) = %v, want 20", got)
	}
	if got := r.Lerp(1); got != 120 {
		t.Errorf("Lerp(1) = %v, want 120", got)
	}
	if got := r.LerpReversed(0); got != 120 {
		t.Errorf("LerpReversed(0) = %v, want 120", got)
	}
	if got := r.LerpReversed(0.25); got != 95 {
		t.Errorf("LerpReversed(0.25) = %v, want 95", got)
	}
}

func TestRange_Validate(t *testing.T) {
	if err := DefaultRange().Validate(); err != nil {
		t.Errorf("default range invalid: %v", err)
	}
	if err := (Range{Min: 10, Max: 5}).Validate(); err == nil {
		t.Error("inverted range should be rejected")
	}
	if err := (Range{Min: math.NaN(), Max: 5}).Validate(); err == nil {
		t.Error("NaN range should be rejected")
	}
}

func TestAngles_ClampAndSub(t *testing.T) {
	a := Angles{A1: -5, A2: 200, A3: 33.3}.Clamp()
	if a != (Angles{A1: 0, A2: 180, A3: 33.3}) {
		t.Errorf("Clamp() = %v", a)
	}

	diff := Angles{A1: 10, A2: 20, A3: 30}.Sub(Angles{A1: 1, A2: 2, A3: 3})
	if diff != (Angles{A1: 9, A2: 18, A3: 27}) {
		t.Errorf("Sub() = %v", diff)
	}
}
