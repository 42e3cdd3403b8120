// Package robot holds everything specific to the physical arm: deployment
// configuration, the view calibration used to draw it, and a direct servo
// driver for arms without a line-protocol controller.
package robot

// JointName identifies a joint of the 3-axis arm.
type JointName string

// Joint names, in command order (a1, a2, a3).
const (
	Base     JointName = "base"
	Shoulder JointName = "shoulder"
	Elbow    JointName = "elbow"
)

// AllJoints returns all joint names in order (matching servo IDs 1-3).
func AllJoints() []JointName {
	return []JointName{
		Base,
		Shoulder,
		Elbow,
	}
}
