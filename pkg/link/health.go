package link

import "time"

// DefaultFeedbackTimeout is how long the link may stay silent before the
// feedback is considered lost.
const DefaultFeedbackTimeout = 1200 * time.Millisecond

// State is the health of the controller link.
type State int

const (
	SerialDisabled State = iota
	SerialFailed
	Waiting
	Connected
	FeedbackLost
)

// Label returns the status line shown to the operator.
func (s State) Label() string {
	switch s {
	case SerialDisabled:
		return "LINK: SERIAL OFF"
	case SerialFailed:
		return "LINK: SERIAL FAIL"
	case Waiting:
		return "LINK: WAITING..."
	case Connected:
		return "LINK: CONNECTED"
	case FeedbackLost:
		return "LINK: FEEDBACK LOST"
	default:
		return "LINK: ?"
	}
}

func (s State) String() string {
	switch s {
	case SerialDisabled:
		return "SERIAL_DISABLED"
	case SerialFailed:
		return "SERIAL_FAILED"
	case Waiting:
		return "WAITING"
	case Connected:
		return "CONNECTED"
	case FeedbackLost:
		return "FEEDBACK_LOST"
	default:
		return "UNKNOWN"
	}
}

// Monitor derives the link state from the serial flags and the time of the
// last accepted feedback sample. It stores no state of its own beyond that
// timestamp.
type Monitor struct {
	Enabled bool
	Open    bool
	Timeout time.Duration

	last time.Time
}

// NewMonitor creates a monitor. A zero timeout means DefaultFeedbackTimeout.
func NewMonitor(enabled, open bool, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = DefaultFeedbackTimeout
	}
	return &Monitor{Enabled: enabled, Open: open, Timeout: timeout}
}

// Observe records a feedback sample taken at ts. Samples older than the last
// accepted one are rejected so the timestamp never goes backwards.
func (m *Monitor) Observe(ts time.Time) bool {
	if !m.last.IsZero() && ts.Before(m.last) {
		return false
	}
	m.last = ts
	return true
}

// LastFeedback returns the time of the last accepted sample, zero if none.
func (m *Monitor) LastFeedback() time.Time {
	return m.last
}

// State evaluates the guards in priority order.
func (m *Monitor) State(now time.Time) State {
	switch {
	case !m.Enabled:
		return SerialDisabled
	case !m.Open:
		return SerialFailed
	case m.last.IsZero():
		return Waiting
	case now.Sub(m.last) >= m.Timeout:
		return FeedbackLost
	default:
		return Connected
	}
}
