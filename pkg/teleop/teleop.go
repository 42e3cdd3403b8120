// Package teleop runs the control loop that turns camera centroids into
// joint targets for the arm and reconciles them with its feedback.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/link"
	"github.com/gwillem/visiontwin/pkg/robot"
	"github.com/gwillem/visiontwin/pkg/runlog"
	"github.com/gwillem/visiontwin/pkg/track"
	"github.com/gwillem/visiontwin/pkg/vision"
)

// Status labels shown next to the link state.
const (
	StatusNoFeedback = "NO_FB"
	StatusFeedbackOK = "FB_OK"
	StatusHomeSent   = "HOME_SENT"
	StatusTraceReset = "TRACE_RESET"
	StatusCalSaved   = "CAL_SAVED"
	StatusCalFailed  = "CAL_SAVE_FAIL"
)

// Trace limits and the minimum end effector move that extends its trace.
const (
	DefaultCamTraceMax = 600
	DefaultEETraceMax  = 900
	eeMinMoveSq        = 4
)

// State is a snapshot of the control loop published once per tick. Slices
// are copies and may be kept by the receiver.
type State struct {
	Target joint.Angles
	Actual joint.Angles
	Error  joint.Angles
	Health link.State

	// Raw is the centroid seen this tick, Smoothed the filter output when
	// this tick produced one.
	Raw      *vision.Centroid
	Smoothed *vision.Centroid

	Mode     vision.Mode
	VisionOn bool
	Source   string
	Status   string
	Sent     bool

	CamTrace []vision.Centroid
	EETrace  []robot.Point

	Tick      uint64
	Timestamp time.Time
	Err       error
}

// Controller owns the target, the actual angles, the filter state and the
// link for the lifetime of one run. Only the loop goroutine touches them;
// operator commands are queued and applied inside the tick.
type Controller struct {
	cfg      Config
	port     link.Port
	src      vision.Source
	rec      runlog.Recorder
	pipeline *track.Pipeline
	framer   link.Framer
	monitor  *link.Monitor

	target   joint.Angles
	actual   joint.Angles
	mode     vision.Mode
	visionOn bool
	status   string
	camTrace []vision.Centroid
	eeTrace  []robot.Point
	lastEE   *robot.Point
	tick     uint64
	lastRead string

	mu      sync.Mutex
	running bool
	closed  bool
	cmdCh   chan command
	stateCh chan State
	logCh   chan string
}

type command func(c *Controller) bool

// NewController creates a controller. port is nil when the serial link is
// disabled or failed to open; src is nil when there is no camera. A nil
// recorder discards records.
func NewController(cfg Config, port link.Port, src vision.Source, rec runlog.Recorder) *Controller {
	cfg = cfg.withDefaults()
	if rec == nil {
		rec = runlog.Discard{}
	}
	c := &Controller{
		cfg:      cfg,
		port:     port,
		src:      src,
		rec:      rec,
		pipeline: track.NewPipeline(cfg.Tracking),
		framer:   link.Framer{MaxPending: link.DefaultMaxPending},
		monitor:  link.NewMonitor(cfg.SerialEnabled, port != nil, cfg.FeedbackTimeout),
		target: joint.Angles{
			A1: cfg.Tracking.A1.Clamp(90),
			A2: cfg.Tracking.A2.Clamp(90),
			A3: joint.ClampDefault(cfg.A3Default),
		},
		mode:     cfg.Mode,
		visionOn: cfg.VisionEnabled && src != nil,
		status:   StatusNoFeedback,
		cmdCh:    make(chan command, 32),
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}
	return c
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.cfg.Hz
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the control loop until ctx is cancelled or a fatal error
// occurs. Resources are released before it returns.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Control loop started at %d Hz (%s)", c.cfg.Hz, c.monitor.State(time.Now()).Label())

	ticker := time.NewTicker(time.Second / time.Duration(c.cfg.Hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case now := <-ticker.C:
			if err := c.Step(now); err != nil {
				if IsFatal(err) {
					c.log("Fatal: %v", err)
					c.shutdown()
					return err
				}
				c.log("Tick error: %v", err)
			}
		}
	}
}

// Step runs one tick at now: feedback, vision, operator commands, send,
// health. Faults in the first four phases are recovered and returned as a
// plain error; only a FatalError means the loop must stop.
func (c *Controller) Step(now time.Time) error {
	c.tick++
	raw, smoothed, sent, tickErr := c.control(now)

	health := c.monitor.State(now)
	c.pushEETrace()

	source := runlog.SourceIdle
	if c.visionOn {
		source = runlog.SourceVision
	}
	rec := runlog.Record{
		Time:     now,
		Strategy: runlog.StrategyRaw,
		Source:   source,
		Mode:     c.mode.String(),
		Target:   c.target,
		Actual:   c.actual,
		Smoothed: smoothed,
	}
	if err := c.rec.Record(rec); err != nil {
		return Fatal(fmt.Errorf("run log: %w", err))
	}

	c.sendState(State{
		Target:    c.target,
		Actual:    c.actual,
		Error:     c.target.Sub(c.actual),
		Health:    health,
		Raw:       raw,
		Smoothed:  smoothed,
		Mode:      c.mode,
		VisionOn:  c.visionOn,
		Source:    source,
		Status:    c.status,
		Sent:      sent,
		CamTrace:  append([]vision.Centroid(nil), c.camTrace...),
		EETrace:   append([]robot.Point(nil), c.eeTrace...),
		Tick:      c.tick,
		Timestamp: now,
		Err:       tickErr,
	})
	return tickErr
}

// control runs the recoverable phases of a tick.
// A faulted tick applies no feedback.
func (c *Controller) control(now time.Time) (raw, smoothed *vision.Centroid, sent bool, err error) {
	actual, status, monitor := c.actual, c.status, *c.monitor
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick %d: recovered: %v", c.tick, r)
			sent = false
			c.actual, c.status, *c.monitor = actual, status, monitor
		}
	}()

	c.readFeedback(now)

	changed := false
	if c.visionOn && c.src != nil {
		if cen, ok := c.src.Centroid(c.mode); ok {
			raw = &cen
			c.pushCamTrace(cen)
			if next, ok := c.pipeline.Step(c.target, cen); ok {
				c.target = next
				changed = true
				if sm, ok := c.pipeline.Filter.Smoothed(); ok {
					smoothed = &sm
				}
			}
		}
	}

	if c.drainCommands() {
		changed = true
	}

	if changed && c.port != nil {
		sent = link.SendTarget(c.port, c.target)
	}
	return raw, smoothed, sent, nil
}

// readFeedback drains the port and applies the last valid feedback line,
// stamped with now.
func (c *Controller) readFeedback(now time.Time) {
	if c.port == nil {
		return
	}
	data, err := c.port.ReadAvailable()
	if err != nil {
		if msg := err.Error(); msg != c.lastRead {
			c.log("Read error: %v", err)
			c.lastRead = msg
		}
	} else {
		c.lastRead = ""
	}
	if len(data) == 0 {
		return
	}

	var (
		last  joint.Angles
		valid bool
	)
	for _, line := range c.framer.Feed(data) {
		if a, ok := link.DecodeFeedback(line); ok {
			last, valid = a, true
		}
	}
	if !valid {
		return
	}
	if c.monitor.Observe(now) {
		c.actual = last
		c.status = StatusFeedbackOK
	}
}

func (c *Controller) drainCommands() bool {
	changed := false
	for {
		select {
		case cmd := <-c.cmdCh:
			if cmd(c) {
				changed = true
			}
		default:
			return changed
		}
	}
}

func (c *Controller) pushCamTrace(cen vision.Centroid) {
	c.camTrace = append(c.camTrace, cen.Rot90(c.cfg.Tracking.CamW))
	if n := len(c.camTrace) - c.cfg.CamTraceMax; n > 0 {
		c.camTrace = c.camTrace[n:]
	}
}

func (c *Controller) pushEETrace() {
	if c.cfg.View == nil {
		return
	}
	pt := c.cfg.View.EndEffector(c.actual, c.cfg.ViewWidth, c.cfg.ViewHeight)
	if c.lastEE != nil {
		dx, dy := pt.X-c.lastEE.X, pt.Y-c.lastEE.Y
		if dx*dx+dy*dy < eeMinMoveSq {
			return
		}
	}
	c.lastEE = &pt
	c.eeTrace = append(c.eeTrace, pt)
	if n := len(c.eeTrace) - c.cfg.EETraceMax; n > 0 {
		c.eeTrace = c.eeTrace[n:]
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

// Close releases the port, the run log and the camera. It is safe to call
// more than once and is called by Start on exit.
func (c *Controller) Close() error {
	return c.shutdown()
}

func (c *Controller) shutdown() error {
	c.mu.Lock()
	c.running = false
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.framer.Reset()

	var errs []error
	if c.port != nil {
		if err := c.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close port: %w", err))
		}
	}
	if err := c.rec.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close run log: %w", err))
	}
	if cl, ok := c.src.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
	}
	c.log("Control loop stopped")
	return errors.Join(errs...)
}
