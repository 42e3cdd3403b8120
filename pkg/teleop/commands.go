package teleop

import (
	"github.com/gwillem/visiontwin/pkg/joint"
)

// Operator commands. They may be called from any goroutine; each is applied
// at the next tick, after vision and before the send.

func (c *Controller) enqueue(name string, cmd command) {
	select {
	case c.cmdCh <- cmd:
	default:
		c.log("Command %s dropped: queue full", name)
	}
}

// ToggleVision switches vision control on or off.
func (c *Controller) ToggleVision() {
	c.enqueue("vision", func(c *Controller) bool {
		if c.src == nil {
			c.log("Vision unavailable: no camera")
			return false
		}
		c.visionOn = !c.visionOn
		c.log("Vision %s", onOff(c.visionOn))
		return false
	})
}

// ToggleMode switches between motion and marker detection.
func (c *Controller) ToggleMode() {
	c.enqueue("mode", func(c *Controller) bool {
		c.mode = c.mode.Toggle()
		c.log("Mode %s", c.mode)
		return false
	})
}

// AdjustA3 moves joint 3 by steps wheel steps. The change is applied
// directly and sent in the same tick.
func (c *Controller) AdjustA3(steps int) {
	if steps == 0 {
		return
	}
	c.enqueue("a3", func(c *Controller) bool {
		c.target.A3 = joint.ClampDefault(c.target.A3 + float64(steps)*c.cfg.A3Step)
		return true
	})
}

// Home returns joints 1 and 2 to 90 degrees, keeping joint 3.
func (c *Controller) Home() {
	c.enqueue("home", func(c *Controller) bool {
		c.target.A1 = c.cfg.Tracking.A1.Clamp(90)
		c.target.A2 = c.cfg.Tracking.A2.Clamp(90)
		c.status = StatusHomeSent
		c.log("Home %v", c.target)
		return true
	})
}

// ResetTrace clears both traces and restarts the centroid filter.
func (c *Controller) ResetTrace() {
	c.enqueue("reset", func(c *Controller) bool {
		c.camTrace = nil
		c.eeTrace = nil
		c.lastEE = nil
		c.pipeline.Filter.Reset()
		c.status = StatusTraceReset
		return false
	})
}

// SetStatus overrides the status label until the next feedback sample or
// command replaces it.
func (c *Controller) SetStatus(status string) {
	c.enqueue("status", func(c *Controller) bool {
		c.status = status
		return false
	})
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
