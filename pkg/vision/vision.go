// Package vision defines what the control loop consumes from a camera:
// at most one pixel centroid per tick for the selected detection mode.
package vision

import "fmt"

// Centroid is a point in camera pixel space.
type Centroid struct {
	X, Y float64
}

func (c Centroid) String() string {
	return fmt.Sprintf("(%.0f, %.0f)", c.X, c.Y)
}

// Rot90 rotates c counter-clockwise inside a w-wide frame, matching how the
// camera preview is displayed.
func (c Centroid) Rot90(w int) Centroid {
	return Centroid{X: c.Y, Y: float64(w-1) - c.X}
}

// Mode selects the detection strategy.
type Mode int

const (
	// ModeMotion tracks whatever moves in front of the camera.
	ModeMotion Mode = iota
	// ModeMarker tracks a coloured marker.
	ModeMarker
)

func (m Mode) String() string {
	switch m {
	case ModeMotion:
		return "MOTION"
	case ModeMarker:
		return "MARKER"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Toggle switches between motion and marker detection.
func (m Mode) Toggle() Mode {
	if m == ModeMotion {
		return ModeMarker
	}
	return ModeMotion
}

// Source yields the centroid for the current tick. It must not block:
// when no new frame is ready it reports false.
type Source interface {
	Centroid(mode Mode) (Centroid, bool)
}

// Detection is the result of processing one frame with both strategies.
type Detection struct {
	Motion    *Centroid
	Marker    *Centroid
	FrameSize [2]int
}

// For returns the centroid for mode, if any.
func (d Detection) For(mode Mode) (Centroid, bool) {
	var c *Centroid
	if mode == ModeMarker {
		c = d.Marker
	} else {
		c = d.Motion
	}
	if c == nil {
		return Centroid{}, false
	}
	return *c, true
}
