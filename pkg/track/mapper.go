package track

import (
	"math"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/vision"
)

// Mapper converts a smoothed pixel centroid into (a1, a2).
// Left to right increases a1. Pixel y grows downward while a2 grows upward,
// so a2 is inverted.
type Mapper struct {
	CamW, CamH int
	A1, A2     joint.Range
}

// Map returns the clamped joint angles for c.
func (m Mapper) Map(c vision.Centroid) (a1, a2 float64) {
	w := math.Max(1, float64(m.CamW))
	h := math.Max(1, float64(m.CamH))

	a1 = m.A1.Clamp(m.A1.Lerp(c.X / w))
	a2 = m.A2.Clamp(m.A2.LerpReversed(c.Y / h))
	return a1, a2
}
