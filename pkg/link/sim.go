package link

import (
	"math"
	"sync"
	"time"

	"github.com/gwillem/visiontwin/pkg/joint"
)

// SimName is the port name that selects the simulated controller.
const SimName = "sim"

// Simulator is an in-process stand-in for the arm controller. It accepts T
// commands and reports F feedback, moving each joint toward its commanded
// angle with a first-order lag.
type Simulator struct {
	// Period is the feedback interval.
	Period time.Duration
	// TimeConstant is the lag of each joint.
	TimeConstant time.Duration
	// Now returns the current time.
	Now func() time.Time

	mu        sync.Mutex
	commanded joint.Angles
	actual    joint.Angles
	lastStep  time.Time
	lastSent  time.Time
	closed    bool
}

// NewSimulator creates a simulator resting at the home pose.
func NewSimulator() *Simulator {
	return &Simulator{
		Period:       50 * time.Millisecond,
		TimeConstant: 150 * time.Millisecond,
		Now:          time.Now,
		commanded:    joint.Home(),
		actual:       joint.Home(),
	}
}

// OpenSimulator is an Opener for the simulator.
func OpenSimulator(string, PortOptions) (Port, error) {
	return NewSimulator(), nil
}

// WriteLine accepts a target command. Other lines are ignored like the
// firmware does.
func (s *Simulator) WriteLine(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrPortClosed
	}
	if a, ok := DecodeTarget(string(line)); ok {
		s.commanded = a
	}
	return nil
}

// ReadAvailable returns a feedback line once per Period.
func (s *Simulator) ReadAvailable() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrPortClosed
	}

	now := s.Now()
	s.advance(now)
	if !s.lastSent.IsZero() && now.Sub(s.lastSent) < s.Period {
		return nil, nil
	}
	s.lastSent = now
	return EncodeFeedback(joint.Angles{
		A1: round1(s.actual.A1),
		A2: round1(s.actual.A2),
		A3: round1(s.actual.A3),
	}), nil
}

func (s *Simulator) advance(now time.Time) {
	if s.lastStep.IsZero() {
		s.lastStep = now
		return
	}
	dt := now.Sub(s.lastStep)
	s.lastStep = now
	if s.TimeConstant <= 0 {
		s.actual = s.commanded
		return
	}
	if dt <= 0 {
		return
	}
	k := 1 - math.Exp(-dt.Seconds()/s.TimeConstant.Seconds())
	s.actual = joint.Angles{
		A1: s.actual.A1 + (s.commanded.A1-s.actual.A1)*k,
		A2: s.actual.A2 + (s.commanded.A2-s.actual.A2)*k,
		A3: s.actual.A3 + (s.commanded.A3-s.actual.A3)*k,
	}
}

// round1 keeps feedback lines short, like the firmware's one decimal.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Close stops the simulator.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
