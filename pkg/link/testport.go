package link

import (
	"bytes"
	"strings"
	"sync"
)

// TestPort implements Port with configurable behaviour for testing.
type TestPort struct {
	mu sync.Mutex

	// ReadBuffer holds data returned by ReadAvailable
	ReadBuffer bytes.Buffer

	// Written captures every line passed to WriteLine
	Written []string

	// ReadError is returned by the next ReadAvailable call if set
	ReadError error

	// WriteError is returned by every WriteLine call while set
	WriteError error

	// ReadPanic makes the next ReadAvailable panic with this value
	ReadPanic any

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of ReadAvailable calls
	ReadCalls int
}

// NewTestPort creates an empty TestPort.
func NewTestPort() *TestPort {
	return &TestPort{}
}

// ReadAvailable drains the read buffer.
func (t *TestPort) ReadAvailable() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++
	if t.Closed {
		return nil, ErrPortClosed
	}
	if t.ReadPanic != nil {
		p := t.ReadPanic
		t.ReadPanic = nil
		panic(p)
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return nil, err
	}
	if t.ReadBuffer.Len() == 0 {
		return nil, nil
	}
	out := make([]byte, t.ReadBuffer.Len())
	copy(out, t.ReadBuffer.Bytes())
	t.ReadBuffer.Reset()
	return out, nil
}

// WriteLine records line.
func (t *TestPort) WriteLine(line []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return ErrPortClosed
	}
	if t.WriteError != nil {
		return t.WriteError
	}
	t.Written = append(t.Written, string(line))
	return nil
}

// Close marks the port closed.
func (t *TestPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return nil
}

// AddReadData queues data for the next ReadAvailable.
func (t *TestPort) AddReadData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.WriteString(data)
}

// Lines returns a copy of the written lines.
func (t *TestPort) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.Written...)
}

// Output returns everything written, concatenated.
func (t *TestPort) Output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.Written, "")
}
