package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/gwillem/visiontwin/pkg/joint"
)

// MotorCalibration maps a servo's raw position range onto [0, 180] degrees.
type MotorCalibration struct {
	ID int `json:"id"`
	// DriveMode 1 inverts the direction of the servo.
	DriveMode int `json:"drive_mode"`
	RangeMin  int `json:"range_min"`
	RangeMax  int `json:"range_max"`
}

// ServoCalibration holds calibration data for all servos, keyed by joint.
type ServoCalibration map[JointName]MotorCalibration

// DefaultServoCalibration assumes STS servos with IDs 1-3 centred at 2048
// and 180 degrees spanning 2048 steps.
func DefaultServoCalibration() ServoCalibration {
	cal := make(ServoCalibration, 3)
	for i, name := range AllJoints() {
		cal[name] = MotorCalibration{ID: i + 1, RangeMin: 1024, RangeMax: 3072}
	}
	return cal
}

// LoadServoCalibration loads servo calibration data from a JSON file.
func LoadServoCalibration(path string) (ServoCalibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var raw map[string]MotorCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	cal := make(ServoCalibration, len(raw))
	for name, mc := range raw {
		cal[JointName(name)] = mc
	}
	return cal, nil
}

// ToDegrees converts a raw servo position to an angle in [0, 180].
func (c MotorCalibration) ToDegrees(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	deg := float64(raw-c.RangeMin) / rangeSize * joint.DefaultMax
	if c.DriveMode == 1 {
		deg = joint.DefaultMax - deg
	}
	return joint.ClampDefault(deg)
}

// FromDegrees converts an angle to a raw servo position. The angle is
// clamped first so the servo never leaves its calibrated range.
func (c MotorCalibration) FromDegrees(deg float64) int {
	deg = joint.ClampDefault(deg)
	if c.DriveMode == 1 {
		deg = joint.DefaultMax - deg
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(math.Round(deg/joint.DefaultMax*rangeSize)) + c.RangeMin
}

// MotorIDs returns the servo IDs for all joints in the calibration.
func (c ServoCalibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllJoints() to ensure consistent ordering
	for _, name := range AllJoints() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns joint name and calibration for a given servo ID.
func (c ServoCalibration) ByID(id int) (JointName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}
