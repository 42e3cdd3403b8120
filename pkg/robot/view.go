package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/gwillem/visiontwin/pkg/joint"
)

const DefaultCalibrationFile = "calibration.json"

// ViewCalibration describes how the virtual arm is drawn. Only the
// presentation layer reads it.
type ViewCalibration struct {
	Base struct {
		XRatio  float64 `json:"x_ratio"`
		YMargin float64 `json:"y_margin"`
	} `json:"base"`
	VisualZeroDeg   joint.Angles `json:"visual_zero_deg"`
	LinkLengthsPx   LinkLengths  `json:"link_lengths_px"`
	// ViewModeDefault and UI are not read here; kept for file compatibility.
	ViewModeDefault string `json:"view_mode_default"`
	UI              struct {
		ShowWorldAxes bool `json:"show_world_axes"`
		ShowRobotAxes bool `json:"show_robot_axes"`
		ShowEETrace   bool `json:"show_ee_trace"`
	} `json:"ui"`
}

// LinkLengths are the drawn lengths of the three links.
type LinkLengths struct {
	L1 float64 `json:"l1"`
	L2 float64 `json:"l2"`
	L3 float64 `json:"l3"`
}

// DefaultViewCalibration returns the built-in view calibration.
func DefaultViewCalibration() ViewCalibration {
	var cal ViewCalibration
	cal.Base.XRatio = 0.5
	cal.Base.YMargin = 30
	cal.LinkLengthsPx = LinkLengths{L1: 160, L2: 120, L3: 90}
	cal.ViewModeDefault = "SIDE"
	cal.UI.ShowWorldAxes = true
	cal.UI.ShowRobotAxes = true
	cal.UI.ShowEETrace = true
	return cal
}

// LoadViewCalibration reads path. It always returns a usable calibration:
// on any failure the defaults come back together with the error, which the
// caller may log but should not treat as fatal.
func LoadViewCalibration(path string) (ViewCalibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultViewCalibration(), fmt.Errorf("read view calibration: %w", err)
	}
	cal := DefaultViewCalibration()
	if err := json.Unmarshal(data, &cal); err != nil {
		return DefaultViewCalibration(), fmt.Errorf("parse view calibration: %w", err)
	}
	return cal, nil
}

// Save writes the calibration to path.
func (c ViewCalibration) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Point is a 2D position in screen units, y growing downward.
type Point struct {
	X, Y float64
}

// SidePoints computes the planar side view of the arm: the base, the two
// intermediate joints and the end effector. Angles are in degrees, each
// relative to the previous link.
func SidePoints(a joint.Angles, l LinkLengths, base Point) [4]Point {
	t1 := a.A1 * math.Pi / 180
	t2 := t1 + a.A2*math.Pi/180
	t3 := t2 + a.A3*math.Pi/180

	p0 := base
	p1 := Point{X: p0.X + l.L1*math.Cos(t1), Y: p0.Y - l.L1*math.Sin(t1)}
	p2 := Point{X: p1.X + l.L2*math.Cos(t2), Y: p1.Y - l.L2*math.Sin(t2)}
	p3 := Point{X: p2.X + l.L3*math.Cos(t3), Y: p2.Y - l.L3*math.Sin(t3)}
	return [4]Point{p0, p1, p2, p3}
}

// EndEffector applies the visual zero offsets and returns the drawn end
// effector position for the actual angles.
func (c ViewCalibration) EndEffector(actual joint.Angles, width, height float64) Point {
	visual := joint.Angles{
		A1: actual.A1 + c.VisualZeroDeg.A1,
		A2: actual.A2 + c.VisualZeroDeg.A2,
		A3: actual.A3 + c.VisualZeroDeg.A3,
	}
	base := Point{X: width * c.Base.XRatio, Y: height - c.Base.YMargin}
	return SidePoints(visual, c.LinkLengthsPx, base)[3]
}
