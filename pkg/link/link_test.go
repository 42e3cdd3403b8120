package link

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/gwillem/visiontwin/pkg/joint"
)

func TestEncodeTarget(t *testing.T) {
	tests := []struct {
		in       joint.Angles
		expected string
	}{
		{joint.Angles{A1: 12.5, A2: 90, A3: 33.3}, "T,12.5,90,33.3\n"},
		{joint.Angles{A1: -10, A2: 181, A3: 0}, "T,0,180,0\n"},
		{joint.Home(), "T,90,90,90\n"},
	}
	for _, tt := range tests {
		got := string(EncodeTarget(tt.in))
		if got != tt.expected {
			t.Errorf("EncodeTarget(%v) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestDecodeFeedback(t *testing.T) {
	tests := []struct {
		line string
		want joint.Angles
		ok   bool
	}{
		{"F,12.5,90.0,33.3\n", joint.Angles{A1: 12.5, A2: 90, A3: 33.3}, true},
		{"  F,1,2,3  ", joint.Angles{A1: 1, A2: 2, A3: 3}, true},
		{"F,1,2,3,OK,extra", joint.Angles{A1: 1, A2: 2, A3: 3}, true},
		{"F,1,2\n", joint.Angles{}, false},
		{"X,1,2,3\n", joint.Angles{}, false},
		{"", joint.Angles{}, false},
		{"\r\n", joint.Angles{}, false},
		{"F,1,abc,3", joint.Angles{}, false},
		{"F", joint.Angles{}, false},
		{"T,1,2,3", joint.Angles{}, false},
		{"F,NaN,1,2", joint.Angles{}, false},
		{"F,1,+Inf,2", joint.Angles{}, false},
		{"F,1,2,-inf", joint.Angles{}, false},
	}
	for _, tt := range tests {
		got, ok := DecodeFeedback(tt.line)
		if ok != tt.ok {
			t.Errorf("DecodeFeedback(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("DecodeFeedback(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestDecodeTarget_Clamps(t *testing.T) {
	got, ok := DecodeTarget("T,-4,200,45\n")
	require.True(t, ok)
	assert.Equal(t, joint.Angles{A1: 0, A2: 180, A3: 45}, got)
}

func TestFramer_SplitsAndBuffers(t *testing.T) {
	var f Framer

	lines := f.Feed([]byte("F,1,2,3\nF,4,"))
	assert.Equal(t, []string{"F,1,2,3"}, lines)
	assert.Equal(t, 4, f.Pending())

	lines = f.Feed([]byte("5,6\n\nF,7,8,9\n"))
	assert.Equal(t, []string{"F,4,5,6", "", "F,7,8,9"}, lines)
	assert.Equal(t, 0, f.Pending())
}

func TestFramer_ResyncsOnRunawayLine(t *testing.T) {
	f := Framer{MaxPending: 16}

	lines := f.Feed([]byte(strings.Repeat("x", 40)))
	assert.Empty(t, lines)
	assert.Equal(t, 0, f.Pending())
	assert.Equal(t, 40, f.Dropped())

	lines = f.Feed([]byte("F,1,2,3\n"))
	assert.Equal(t, []string{"F,1,2,3"}, lines)
}

func TestFramer_Reset(t *testing.T) {
	var f Framer
	f.Feed([]byte("F,1,2"))
	f.Reset()
	assert.Equal(t, []string{",3,4,5"}, f.Feed([]byte(",3,4,5\n")))
}

func TestSendTarget(t *testing.T) {
	SetLogger(nil)
	defer SetLogger(t.Logf)

	p := NewTestPort()
	assert.True(t, SendTarget(p, joint.Angles{A1: 12.5, A2: 90, A3: 33.3}))
	assert.Equal(t, []string{"T,12.5,90,33.3\n"}, p.Lines())

	p.WriteError = errors.New("cable pulled")
	assert.False(t, SendTarget(p, joint.Home()))
	assert.Len(t, p.Lines(), 1)

	assert.False(t, SendTarget(nil, joint.Home()))
}

func TestMonitor_States(t *testing.T) {
	t0 := time.Unix(1000, 0)

	m := NewMonitor(true, true, 0)
	assert.Equal(t, Waiting, m.State(t0))

	require.True(t, m.Observe(t0))
	assert.Equal(t, Connected, m.State(t0.Add(500*time.Millisecond)))
	assert.Equal(t, FeedbackLost, m.State(t0.Add(2*time.Second)))
	assert.Equal(t, FeedbackLost, m.State(t0.Add(DefaultFeedbackTimeout)))

	m.Enabled = false
	assert.Equal(t, SerialDisabled, m.State(t0))

	failed := NewMonitor(true, false, time.Second)
	assert.Equal(t, SerialFailed, failed.State(t0))
	failed.Enabled = false
	assert.Equal(t, SerialDisabled, failed.State(t0))
}

func TestMonitor_RejectsOutOfOrderSamples(t *testing.T) {
	t0 := time.Unix(1000, 0)
	m := NewMonitor(true, true, time.Second)

	require.True(t, m.Observe(t0))
	assert.False(t, m.Observe(t0.Add(-time.Millisecond)))
	assert.Equal(t, t0, m.LastFeedback())
	assert.True(t, m.Observe(t0))
}

func TestStateLabels(t *testing.T) {
	assert.Equal(t, "LINK: FEEDBACK LOST", FeedbackLost.Label())
	assert.Equal(t, "SERIAL_DISABLED", SerialDisabled.String())
}

func TestPortOptions_Normalize_Defaults(t *testing.T) {
	got, err := PortOptions{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaudRate, got.BaudRate)
	assert.Equal(t, 8, got.DataBits)
	assert.Equal(t, 1, got.StopBits)
	assert.Equal(t, "N", got.Parity)
	assert.Equal(t, time.Millisecond, got.ReadTimeout)
}

func TestPortOptions_Normalize_Invalid(t *testing.T) {
	for _, opts := range []PortOptions{
		{DataBits: 9},
		{StopBits: 3},
		{Parity: "X"},
	} {
		_, err := opts.Normalize()
		assert.Error(t, err, "%+v", opts)
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 9600, StopBits: 2, Parity: "even"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
}

func TestSimulator_FollowsCommands(t *testing.T) {
	now := time.Unix(0, 0)
	sim := NewSimulator()
	sim.Now = func() time.Time { return now }

	data, err := sim.ReadAvailable()
	require.NoError(t, err)
	a, ok := DecodeFeedback(strings.TrimSpace(string(data)))
	require.True(t, ok)
	assert.Equal(t, joint.Home(), a)

	require.NoError(t, sim.WriteLine(EncodeTarget(joint.Angles{A1: 120, A2: 60, A3: 90})))

	now = now.Add(10 * time.Millisecond)
	data, err = sim.ReadAvailable()
	require.NoError(t, err)
	assert.Empty(t, data, "no feedback before the period elapsed")

	for i := 0; i < 40; i++ {
		now = now.Add(50 * time.Millisecond)
		data, err = sim.ReadAvailable()
		require.NoError(t, err)
	}
	a, ok = DecodeFeedback(string(data))
	require.True(t, ok)
	assert.InDelta(t, 120, a.A1, 0.1)
	assert.InDelta(t, 60, a.A2, 0.1)

	require.NoError(t, sim.Close())
	_, err = sim.ReadAvailable()
	assert.ErrorIs(t, err, ErrPortClosed)
}
