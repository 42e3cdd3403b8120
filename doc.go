// Package visiontwin drives a 3-axis arm from a camera: a tracked object or
// coloured marker is turned into joint targets that are sent over a serial
// link and compared against the angles the controller reports back.
//
// # Installation
//
//	go install github.com/gwillem/visiontwin/cmd/visiontwin@latest
//
// # Usage
//
// First, run setup to pick the serial port (or calibrate feetech servos):
//
//	visiontwin setup
//
// Then start tracking:
//
//	visiontwin run
//
// Without hardware, use the simulated controller and no camera:
//
//	visiontwin run --port sim --no-camera
//
// Plot target against actual angles from the newest run log:
//
//	visiontwin plot
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/visiontwin: CLI with setup, run, info and plot commands
//   - pkg/joint: Joint angle triples and clamping
//   - pkg/vision: Centroids, detection modes and the camera handoff
//   - pkg/vision/opencv: Camera capture with motion and marker detection
//   - pkg/track: Smoothing, angle mapping and rate limiting
//   - pkg/link: Line protocol, framing, serial ports and link health
//   - pkg/robot: Configuration, view calibration and the feetech driver
//   - pkg/runlog: Run logs in CSV or SQLite, and plots
//   - pkg/teleop: The control loop
package visiontwin
