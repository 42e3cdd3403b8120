package link

import (
	"errors"
	"log"

	"github.com/gwillem/visiontwin/pkg/joint"
)

var (
	ErrPortClosed = errors.New("port closed")
	ErrShortWrite = errors.New("short write to port")
)

// Logf is the package diagnostic logger. Tests may replace it via SetLogger.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// Port is the channel to the arm controller.
type Port interface {
	// ReadAvailable returns whatever bytes are ready, possibly none. It must
	// not block for longer than a short poll.
	ReadAvailable() ([]byte, error)
	// WriteLine writes one complete line including its newline.
	WriteLine(line []byte) error
	// Close releases the port.
	Close() error
}

// SendTarget encodes a and writes it to p. Failures are logged and reported
// through the return value only; a lost command is not an error for the
// caller.
func SendTarget(p Port, a joint.Angles) bool {
	if p == nil {
		return false
	}
	if err := p.WriteLine(EncodeTarget(a)); err != nil {
		Logf("link: send %v: %v", a, err)
		return false
	}
	return true
}
