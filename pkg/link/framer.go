package link

import "bytes"

// DefaultMaxPending bounds how many bytes the framer keeps while waiting for
// a newline.
const DefaultMaxPending = 4096

// Framer splits a byte stream into newline-terminated lines. A trailing
// partial line stays buffered until the next Feed.
type Framer struct {
	// MaxPending is the buffer size past which an unterminated line is
	// dropped. Zero means DefaultMaxPending.
	MaxPending int

	buf     []byte
	dropped int
}

// Feed appends data and returns every complete line, without the newline.
func (f *Framer) Feed(data []byte) []string {
	f.buf = append(f.buf, data...)

	var lines []string
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(f.buf[:i]))
		f.buf = f.buf[i+1:]
	}

	limit := f.MaxPending
	if limit <= 0 {
		limit = DefaultMaxPending
	}
	if len(f.buf) > limit {
		// Resync: nothing useful can come out of a line this long.
		f.dropped += len(f.buf)
		f.buf = nil
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return lines
}

// Pending returns the number of buffered bytes of an incomplete line.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Dropped returns the total number of bytes discarded by resyncs.
func (f *Framer) Dropped() int {
	return f.dropped
}

// Reset discards any partial line.
func (f *Framer) Reset() {
	f.buf = nil
}
