package teleop

import (
	"time"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/robot"
	"github.com/gwillem/visiontwin/pkg/track"
	"github.com/gwillem/visiontwin/pkg/vision"
)

// Config holds configuration for the controller.
type Config struct {
	Hz       int
	Tracking track.Config

	VisionEnabled   bool
	Mode            vision.Mode
	SerialEnabled   bool
	FeedbackTimeout time.Duration

	A3Default float64
	A3Step    float64

	// View draws the end effector trace; nil disables it.
	View                  *robot.ViewCalibration
	ViewWidth, ViewHeight float64

	CamTraceMax int
	EETraceMax  int
}

// ConfigFrom derives the controller configuration from the deployment
// configuration and the view calibration.
func ConfigFrom(rc robot.Config, view *robot.ViewCalibration) Config {
	return Config{
		Hz: rc.Hz,
		Tracking: track.Config{
			CamW:       rc.Camera.Width,
			CamH:       rc.Camera.Height,
			A1:         rc.Joints.A1,
			A2:         rc.Joints.A2,
			DeadbandPx: rc.Tracking.DeadbandPx,
			Alpha:      rc.Tracking.EMAAlpha,
			MaxStep:    rc.Tracking.MaxStepDeg,
		},
		VisionEnabled:   rc.Camera.Enabled,
		SerialEnabled:   rc.Serial.Enabled,
		FeedbackTimeout: time.Duration(rc.FeedbackTimeoutSec * float64(time.Second)),
		A3Default:       rc.Joints.A3Default,
		A3Step:          rc.Joints.A3WheelStep,
		View:            view,
		ViewWidth:       820,
		ViewHeight:      500,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.A3Step <= 0 {
		cfg.A3Step = 2
	}
	if cfg.CamTraceMax <= 0 {
		cfg.CamTraceMax = DefaultCamTraceMax
	}
	if cfg.EETraceMax <= 0 {
		cfg.EETraceMax = DefaultEETraceMax
	}
	if cfg.Tracking.A1 == (joint.Range{}) {
		cfg.Tracking.A1 = joint.DefaultRange()
	}
	if cfg.Tracking.A2 == (joint.Range{}) {
		cfg.Tracking.A2 = joint.DefaultRange()
	}
	return cfg
}
