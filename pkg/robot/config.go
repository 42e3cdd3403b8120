package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/link"
	"github.com/gwillem/visiontwin/pkg/track"
)

const DefaultConfigFile = "visiontwin.json"

// Serial drivers.
const (
	DriverLine    = "line"    // T/F text protocol to a microcontroller
	DriverFeetech = "feetech" // STS servos driven directly
)

// Config holds the deployment configuration. It is loaded once and passed
// by value; nothing mutates it at runtime.
type Config struct {
	Serial   SerialConfig   `json:"serial"`
	Camera   CameraConfig   `json:"camera"`
	Joints   JointsConfig   `json:"joints"`
	Tracking TrackingConfig `json:"tracking"`
	Log      LogConfig      `json:"log"`

	Hz int `json:"hz"`
	// FeedbackTimeoutSec is how long feedback may be silent before the link
	// is reported lost.
	FeedbackTimeoutSec float64 `json:"feedback_timeout_s"`

	CalibrationPath string `json:"calibration_path"`
}

// SerialConfig holds the controller link settings.
type SerialConfig struct {
	Enabled bool   `json:"enabled"`
	Port    string `json:"port"`
	Driver  string `json:"driver"`
	link.PortOptions
	// Servos maps joints to servo IDs and raw ranges for the feetech driver.
	Servos ServoCalibration `json:"servos,omitempty"`
}

// CameraConfig holds the capture settings.
type CameraConfig struct {
	Enabled    bool  `json:"enabled"`
	Width      int   `json:"width"`
	Height     int   `json:"height"`
	FPSLimit   int   `json:"fps_limit"`
	Candidates []int `json:"candidates"`

	MotionDiffThresh float64 `json:"motion_diff_thresh"`
	MotionMinArea    float64 `json:"motion_min_area"`
	MotionDownscale  float64 `json:"motion_downscale"`
	MarkerColor      string  `json:"marker_color"`
}

// JointsConfig holds joint limits and operator defaults.
type JointsConfig struct {
	A1          joint.Range `json:"a1"`
	A2          joint.Range `json:"a2"`
	A3Default   float64     `json:"a3_default"`
	A3WheelStep float64     `json:"a3_wheel_step"`
}

// TrackingConfig holds the centroid filter and rate limit tunables.
type TrackingConfig struct {
	DeadbandPx float64 `json:"deadband_px"`
	EMAAlpha   float64 `json:"ema_alpha"`
	MaxStepDeg float64 `json:"max_step_deg"`
}

// LogConfig selects where run logs go.
type LogConfig struct {
	Dir    string `json:"dir"`
	Format string `json:"format"` // "csv" or "sqlite"
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Serial: SerialConfig{
			Enabled:     true,
			Port:        "/dev/ttyUSB0",
			Driver:      DriverLine,
			PortOptions: link.PortOptions{BaudRate: link.DefaultBaudRate},
		},
		Camera: CameraConfig{
			Enabled:          true,
			Width:            360,
			Height:           270,
			FPSLimit:         25,
			Candidates:       []int{0, 1, 2, 3},
			MotionDiffThresh: 25,
			MotionMinArea:    900,
			MotionDownscale:  0.5,
			MarkerColor:      "green",
		},
		Joints: JointsConfig{
			A1:          joint.DefaultRange(),
			A2:          joint.DefaultRange(),
			A3Default:   90,
			A3WheelStep: 2,
		},
		Tracking: TrackingConfig{
			DeadbandPx: track.DefaultDeadbandPx,
			EMAAlpha:   track.DefaultAlpha,
			MaxStepDeg: track.DefaultMaxStep,
		},
		Log: LogConfig{
			Dir:    "logs",
			Format: "csv",
		},
		Hz:                 60,
		FeedbackTimeoutSec: link.DefaultFeedbackTimeout.Seconds(),
		CalibrationPath:    DefaultCalibrationFile,
	}
}

// Validate rejects configurations the control loop cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Hz <= 0 {
		errs = append(errs, fmt.Errorf("hz must be positive, got %d", c.Hz))
	}
	if c.Tracking.EMAAlpha <= 0 || c.Tracking.EMAAlpha >= 1 {
		errs = append(errs, fmt.Errorf("ema_alpha must be in (0, 1), got %v", c.Tracking.EMAAlpha))
	}
	if c.Tracking.DeadbandPx < 0 {
		errs = append(errs, fmt.Errorf("deadband_px must not be negative, got %v", c.Tracking.DeadbandPx))
	}
	if c.Tracking.MaxStepDeg <= 0 {
		errs = append(errs, fmt.Errorf("max_step_deg must be positive, got %v", c.Tracking.MaxStepDeg))
	}
	if c.FeedbackTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("feedback_timeout_s must be positive, got %v", c.FeedbackTimeoutSec))
	}
	if err := c.Joints.A1.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("a1: %w", err))
	}
	if err := c.Joints.A2.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("a2: %w", err))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height))
	}
	switch c.Serial.Driver {
	case DriverLine, DriverFeetech:
	default:
		errs = append(errs, fmt.Errorf("unknown serial driver %q", c.Serial.Driver))
	}
	switch c.Log.Format {
	case "csv", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their default values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
