package vision

// Handoff is a single-slot, latest-wins channel between a capture worker and
// the control tick. Put never blocks; a value not yet taken is replaced.
// There must be exactly one producer.
type Handoff[T any] struct {
	ch chan T
}

// NewHandoff creates an empty handoff.
func NewHandoff[T any]() *Handoff[T] {
	return &Handoff[T]{ch: make(chan T, 1)}
}

// Put stores v, discarding any unread value.
func (h *Handoff[T]) Put(v T) {
	select {
	case h.ch <- v:
	default:
		// Drop the stale value, replace with new
		select {
		case <-h.ch:
		default:
		}
		h.ch <- v
	}
}

// Take returns the pending value, if any, and empties the slot.
func (h *Handoff[T]) Take() (T, bool) {
	select {
	case v := <-h.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// HandoffSource adapts a Detection handoff to a Source.
type HandoffSource struct {
	*Handoff[Detection]
}

// NewHandoffSource creates a source fed through Put.
func NewHandoffSource() *HandoffSource {
	return &HandoffSource{Handoff: NewHandoff[Detection]()}
}

// Centroid consumes the latest detection and returns its centroid for mode.
func (s *HandoffSource) Centroid(mode Mode) (Centroid, bool) {
	d, ok := s.Take()
	if !ok {
		return Centroid{}, false
	}
	return d.For(mode)
}
