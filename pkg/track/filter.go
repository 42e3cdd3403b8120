// Package track turns a noisy stream of pixel centroids into bounded joint
// targets: deadband, exponential smoothing, pixel-to-angle mapping and a
// per-tick rate limit.
package track

import (
	"math"

	"github.com/gwillem/visiontwin/pkg/vision"
)

// Defaults used when the configuration leaves a value unset.
const (
	DefaultDeadbandPx = 6.0
	DefaultAlpha      = 0.25
	DefaultMaxStep    = 2.0
)

// Smoother is a per-axis exponential moving average, initialised lazily
// from its first sample.
type Smoother struct {
	Alpha float64

	value vision.Centroid
	set   bool
}

// Step folds c into the average and returns the new value.
func (s *Smoother) Step(c vision.Centroid) vision.Centroid {
	if !s.set {
		s.value = c
		s.set = true
		return s.value
	}
	s.value = vision.Centroid{
		X: (1-s.Alpha)*s.value.X + s.Alpha*c.X,
		Y: (1-s.Alpha)*s.value.Y + s.Alpha*c.Y,
	}
	return s.value
}

// Value returns the current average, if initialised.
func (s *Smoother) Value() (vision.Centroid, bool) {
	return s.value, s.set
}

// Reset forgets the average.
func (s *Smoother) Reset() {
	s.value = vision.Centroid{}
	s.set = false
}

// CentroidFilter suppresses jitter before a centroid drives a motor.
// The first observation only seeds the deadband reference and produces no
// update, so the arm does not jump on the first frame.
type CentroidFilter struct {
	DeadbandPx float64

	smoother Smoother
	last     vision.Centroid
	lastSet  bool
}

// NewCentroidFilter creates a filter. A negative deadband or an alpha outside
// (0, 1) falls back to the defaults.
func NewCentroidFilter(deadbandPx, alpha float64) *CentroidFilter {
	if deadbandPx < 0 {
		deadbandPx = DefaultDeadbandPx
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	return &CentroidFilter{
		DeadbandPx: deadbandPx,
		smoother:   Smoother{Alpha: alpha},
	}
}

// Update feeds a raw centroid. It returns the smoothed centroid and true when
// the input moved at least DeadbandPx on either axis since the last accepted
// point; otherwise it returns false and leaves all state untouched.
func (f *CentroidFilter) Update(c vision.Centroid) (vision.Centroid, bool) {
	if !f.lastSet {
		f.last = c
		f.lastSet = true
		return vision.Centroid{}, false
	}
	if math.Abs(c.X-f.last.X) < f.DeadbandPx && math.Abs(c.Y-f.last.Y) < f.DeadbandPx {
		return vision.Centroid{}, false
	}
	f.last = c
	return f.smoother.Step(c), true
}

// Smoothed returns the current smoothed centroid, if any.
func (f *CentroidFilter) Smoothed() (vision.Centroid, bool) {
	return f.smoother.Value()
}

// Reset clears the reference point and the smoothing state.
func (f *CentroidFilter) Reset() {
	f.last = vision.Centroid{}
	f.lastSet = false
	f.smoother.Reset()
}
