package vision

import (
	"sync"
	"testing"
)

func TestHandoff_LatestWins(t *testing.T) {
	h := NewHandoff[int]()

	if _, ok := h.Take(); ok {
		t.Fatal("Take() on empty handoff returned a value")
	}

	h.Put(1)
	h.Put(2)
	h.Put(3)

	v, ok := h.Take()
	if !ok || v != 3 {
		t.Errorf("Take() = %d, %v, want 3, true", v, ok)
	}
	if _, ok := h.Take(); ok {
		t.Error("second Take() should be empty")
	}
}

func TestHandoff_ProducerNeverBlocks(t *testing.T) {
	h := NewHandoff[int]()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			h.Put(i)
		}
	}()
	for i := 0; i < 1000; i++ {
		h.Take()
	}
	wg.Wait()

	v, ok := h.Take()
	if ok && v != 9999 {
		t.Errorf("last value = %d, want 9999", v)
	}
}

func TestHandoffSource(t *testing.T) {
	s := NewHandoffSource()

	if _, ok := s.Centroid(ModeMotion); ok {
		t.Fatal("empty source returned a centroid")
	}

	s.Put(Detection{Motion: &Centroid{X: 10, Y: 20}})
	if _, ok := s.Centroid(ModeMarker); ok {
		t.Error("marker mode should see no centroid")
	}

	s.Put(Detection{Motion: &Centroid{X: 10, Y: 20}, Marker: &Centroid{X: 5, Y: 6}})
	c, ok := s.Centroid(ModeMarker)
	if !ok || c != (Centroid{X: 5, Y: 6}) {
		t.Errorf("Centroid(ModeMarker) = %v, %v", c, ok)
	}
}

func TestMode(t *testing.T) {
	if ModeMotion.Toggle() != ModeMarker || ModeMarker.Toggle() != ModeMotion {
		t.Error("Toggle() does not alternate")
	}
	if ModeMotion.String() != "MOTION" || ModeMarker.String() != "MARKER" {
		t.Errorf("unexpected labels %q, %q", ModeMotion, ModeMarker)
	}
}

func TestCentroid_Rot90(t *testing.T) {
	got := Centroid{X: 0, Y: 10}.Rot90(360)
	if got != (Centroid{X: 10, Y: 359}) {
		t.Errorf("Rot90() = %v", got)
	}
}
