// Package opencv is the camera source: it captures frames with gocv, runs
// motion and marker detection on a worker goroutine and hands the latest
// result to the control loop without blocking it.
package opencv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/gwillem/visiontwin/pkg/vision"
)

// Logf is the package diagnostic logger.
var Logf func(format string, v ...any) = log.Printf

// Config holds the capture and detection settings.
type Config struct {
	Width, Height int
	FPSLimit      int
	Candidates    []int

	MotionDiffThresh float64
	MotionMinArea    float64
	MotionDownscale  float64
	MarkerColor      string
}

// Camera captures from the first working device index and publishes one
// Detection per frame through a latest-wins handoff.
type Camera struct {
	cfg    Config
	cap    *gocv.VideoCapture
	index  int
	out    *vision.HandoffSource
	motion *MotionDetector
	marker *MarkerDetector

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// Open tries each candidate device in order.
func Open(cfg Config) (*Camera, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid camera resolution %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPSLimit <= 0 {
		cfg.FPSLimit = 25
	}
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = []int{0}
	}
	marker, err := NewMarkerDetector(cfg.MarkerColor)
	if err != nil {
		return nil, err
	}

	for _, idx := range cfg.Candidates {
		vc, err := gocv.VideoCaptureDevice(idx)
		if err != nil {
			continue
		}
		if !vc.IsOpened() {
			vc.Close()
			continue
		}
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		return &Camera{
			cfg:    cfg,
			cap:    vc,
			index:  idx,
			out:    vision.NewHandoffSource(),
			motion: NewMotionDetector(cfg.MotionDiffThresh, cfg.MotionMinArea, cfg.MotionDownscale),
			marker: marker,
		}, nil
	}
	return nil, fmt.Errorf("no camera among devices %v", cfg.Candidates)
}

// Index returns the device index in use.
func (c *Camera) Index() int {
	return c.index
}

// Centroid returns the centroid of the latest unread detection for mode.
func (c *Camera) Centroid(mode vision.Mode) (vision.Centroid, bool) {
	return c.out.Centroid(mode)
}

// Run captures at most FPSLimit frames per second until ctx is done or the
// device stops delivering frames.
func (c *Camera) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("camera closed")
	}
	if c.done != nil {
		c.mu.Unlock()
		return errors.New("camera already running")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()
	defer close(done)

	frame := gocv.NewMat()
	defer frame.Close()
	resized := gocv.NewMat()
	defer resized.Close()
	size := image.Pt(c.cfg.Width, c.cfg.Height)

	ticker := time.NewTicker(time.Second / time.Duration(c.cfg.FPSLimit))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ok := c.cap.Read(&frame); !ok || frame.Empty() {
				Logf("opencv: camera %d stopped delivering frames", c.index)
				return fmt.Errorf("camera %d: read failed", c.index)
			}
			gocv.Resize(frame, &resized, size, 0, 0, gocv.InterpolationArea)
			c.out.Put(vision.Detection{
				Motion:    c.motion.Detect(resized),
				Marker:    c.marker.Detect(resized),
				FrameSize: [2]int{c.cfg.Width, c.cfg.Height},
			})
		}
	}
}

// Close stops Run, waits for it and releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return errors.Join(c.motion.Close(), c.cap.Close())
}
