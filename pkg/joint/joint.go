// Package joint holds joint-angle triples and the clamp guard applied to
// every value that can reach an actuator.
package joint

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default safe range for every joint, in degrees.
const (
	DefaultMin = 0.0
	DefaultMax = 180.0
)

// Clamp limits v to [lo, hi]. NaN is treated as unusable input and yields lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// ClampDefault clamps v to [0, 180].
func ClampDefault(v float64) float64 {
	return Clamp(v, DefaultMin, DefaultMax)
}

// ParseClamp parses s as a number and clamps it. Unparsable input yields lo.
func ParseClamp(s string, lo, hi float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return lo
	}
	return Clamp(v, lo, hi)
}

// Range is an inclusive [Min, Max] interval in degrees.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultRange returns [0, 180].
func DefaultRange() Range {
	return Range{Min: DefaultMin, Max: DefaultMax}
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return Clamp(v, r.Min, r.Max)
}

// Lerp maps t in [0, 1] onto the range. t is not clamped.
func (r Range) Lerp(t float64) float64 {
	return r.Min + (r.Max-r.Min)*t
}

// LerpReversed maps t = 0 to Max and t = 1 to Min.
func (r Range) LerpReversed(t float64) float64 {
	return r.Max - (r.Max-r.Min)*t
}

// Validate reports an inverted or non-finite range.
func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
		return fmt.Errorf("range [%v, %v] is not finite", r.Min, r.Max)
	}
	if r.Min > r.Max {
		return fmt.Errorf("range [%v, %v] is inverted", r.Min, r.Max)
	}
	return nil
}

// Angles is an ordered (a1, a2, a3) triple in degrees.
type Angles struct {
	A1 float64 `json:"a1"`
	A2 float64 `json:"a2"`
	A3 float64 `json:"a3"`
}

// Home is the neutral pose used at startup.
func Home() Angles {
	return Angles{A1: 90, A2: 90, A3: 90}
}

// Clamp clamps each joint to [0, 180].
func (a Angles) Clamp() Angles {
	return Angles{
		A1: ClampDefault(a.A1),
		A2: ClampDefault(a.A2),
		A3: ClampDefault(a.A3),
	}
}

// Sub returns a - b per joint.
func (a Angles) Sub(b Angles) Angles {
	return Angles{A1: a.A1 - b.A1, A2: a.A2 - b.A2, A3: a.A3 - b.A3}
}

// Slice returns the angles in joint order.
func (a Angles) Slice() []float64 {
	return []float64{a.A1, a.A2, a.A3}
}

func (a Angles) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", a.A1, a.A2, a.A3)
}
