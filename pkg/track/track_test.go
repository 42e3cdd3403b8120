package track

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/vision"
)

func TestCentroidFilter_FirstObservationSeedsOnly(t *testing.T) {
	for _, deadband := range []float64{6, 0} {
		f := NewCentroidFilter(deadband, 0.25)

		_, ok := f.Update(vision.Centroid{X: 100, Y: 100})
		assert.False(t, ok, "deadband %v: first centroid must not produce an update", deadband)

		_, set := f.Smoothed()
		assert.False(t, set, "deadband %v: smoothing state must stay empty after seeding", deadband)
	}

	f := NewCentroidFilter(0, 0.25)
	f.Update(vision.Centroid{X: 10, Y: 10})
	sm, ok := f.Update(vision.Centroid{X: 10, Y: 10})
	require.True(t, ok, "zero deadband accepts the second centroid")
	assert.Equal(t, vision.Centroid{X: 10, Y: 10}, sm)
}

func TestCentroidFilter_Deadband(t *testing.T) {
	f := NewCentroidFilter(6, 0.25)
	f.Update(vision.Centroid{X: 0, Y: 0})

	_, ok := f.Update(vision.Centroid{X: 50, Y: 50})
	require.True(t, ok)
	before, _ := f.Smoothed()

	tests := []vision.Centroid{
		{X: 55, Y: 55},
		{X: 45, Y: 50},
		{X: 50, Y: 44.5},
		{X: 55.9, Y: 44.1},
	}
	for _, c := range tests {
		_, ok := f.Update(c)
		assert.False(t, ok, "centroid %v should be deadbanded", c)
	}

	after, _ := f.Smoothed()
	assert.Equal(t, before, after)
}

func TestCentroidFilter_DeadbandIsPerAxis(t *testing.T) {
	f := NewCentroidFilter(6, 0.25)
	f.Update(vision.Centroid{X: 0, Y: 0})

	// Euclidean distance 7 but neither axis reaches 6.
	_, ok := f.Update(vision.Centroid{X: 4.95, Y: 4.95})
	assert.False(t, ok)

	// One axis reaching the threshold is enough.
	_, ok = f.Update(vision.Centroid{X: 6, Y: 0})
	assert.True(t, ok)
}

func TestCentroidFilter_FirstAcceptedInitialisesSmoothing(t *testing.T) {
	f := NewCentroidFilter(6, 0.25)
	f.Update(vision.Centroid{X: 0, Y: 0})

	sm, ok := f.Update(vision.Centroid{X: 200, Y: 135})
	require.True(t, ok)
	assert.Equal(t, vision.Centroid{X: 200, Y: 135}, sm)

	sm, ok = f.Update(vision.Centroid{X: 100, Y: 135})
	require.True(t, ok)
	assert.InDelta(t, 175, sm.X, 1e-9)
	assert.InDelta(t, 135, sm.Y, 1e-9)
}

func TestCentroidFilter_Reset(t *testing.T) {
	f := NewCentroidFilter(6, 0.25)
	f.Update(vision.Centroid{X: 0, Y: 0})
	f.Update(vision.Centroid{X: 100, Y: 100})
	f.Reset()

	_, set := f.Smoothed()
	assert.False(t, set)
	_, ok := f.Update(vision.Centroid{X: 300, Y: 300})
	assert.False(t, ok, "after Reset the next centroid seeds again")
}

func TestNewCentroidFilter_Defaults(t *testing.T) {
	f := NewCentroidFilter(-1, 1.5)
	assert.Equal(t, DefaultDeadbandPx, f.DeadbandPx)
	assert.Equal(t, DefaultAlpha, f.smoother.Alpha)
}

func TestSmoother_Converges(t *testing.T) {
	target := vision.Centroid{X: 300, Y: 20}

	for _, alpha := range []float64{0.05, 0.25, 0.5, 0.95} {
		s := Smoother{Alpha: alpha}
		s.Step(vision.Centroid{X: 0, Y: 200})

		n := 0
		for ; n < 10000; n++ {
			v := s.Step(target)
			if math.Abs(v.X-target.X) < 0.5 && math.Abs(v.Y-target.Y) < 0.5 {
				break
			}
		}
		assert.Less(t, n, 10000, "alpha %v did not converge", alpha)
	}
}

func TestMapper(t *testing.T) {
	m := Mapper{CamW: 360, CamH: 270, A1: joint.DefaultRange(), A2: joint.DefaultRange()}

	tests := []struct {
		c      vision.Centroid
		a1, a2 float64
	}{
		{vision.Centroid{X: 0, Y: 0}, 0, 180},
		{vision.Centroid{X: 360, Y: 270}, 180, 0},
		{vision.Centroid{X: 180, Y: 135}, 90, 90},
		{vision.Centroid{X: 200, Y: 135}, 100, 90},
		{vision.Centroid{X: -50, Y: 500}, 0, 0},
	}
	for _, tt := range tests {
		a1, a2 := m.Map(tt.c)
		assert.InDelta(t, tt.a1, a1, 1e-9, "a1 for %v", tt.c)
		assert.InDelta(t, tt.a2, a2, 1e-9, "a2 for %v", tt.c)
	}
}

func TestMapper_ZeroDimensions(t *testing.T) {
	m := Mapper{A1: joint.DefaultRange(), A2: joint.DefaultRange()}
	a1, a2 := m.Map(vision.Centroid{X: 0.5, Y: 0.5})
	assert.InDelta(t, 90, a1, 1e-9)
	assert.InDelta(t, 90, a2, 1e-9)
}

func TestMapper_StaysInConfiguredRanges(t *testing.T) {
	m := Mapper{
		CamW: 640, CamH: 480,
		A1: joint.Range{Min: 30, Max: 150},
		A2: joint.Range{Min: 10, Max: 100},
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		c := vision.Centroid{X: rng.Float64() * 640, Y: rng.Float64() * 480}
		a1, a2 := m.Map(c)
		require.True(t, a1 >= 30 && a1 <= 150, "a1 %v out of range for %v", a1, c)
		require.True(t, a2 >= 10 && a2 <= 100, "a2 %v out of range for %v", a2, c)
	}
}

func TestRateLimiter(t *testing.T) {
	r := RateLimiter{MaxStep: 2}

	tests := []struct {
		cur, proposed, expected float64
	}{
		{90, 100, 92},
		{90, 80, 88},
		{90, 91.5, 91.5},
		{179, 200, 180},
		{1, -50, 0},
	}
	for _, tt := range tests {
		got := r.Limit(tt.cur, tt.proposed)
		assert.InDelta(t, tt.expected, got, 1e-9, "Limit(%v, %v)", tt.cur, tt.proposed)
	}
}

func TestRateLimiter_NeverExceedsMaxStep(t *testing.T) {
	r := RateLimiter{MaxStep: 3}
	rng := rand.New(rand.NewSource(7))
	cur := joint.Home()
	for i := 0; i < 1000; i++ {
		next := r.LimitPair(cur, rng.Float64()*400-100, rng.Float64()*400-100)
		require.LessOrEqual(t, math.Abs(next.A1-cur.A1), 3.0+1e-9)
		require.LessOrEqual(t, math.Abs(next.A2-cur.A2), 3.0+1e-9)
		require.Equal(t, cur.A3, next.A3, "a3 must not be touched")
		cur = next
	}
}

func TestPipeline_Step(t *testing.T) {
	p := NewPipeline(Config{
		CamW: 360, CamH: 270,
		A1: joint.DefaultRange(), A2: joint.DefaultRange(),
		DeadbandPx: 6, Alpha: 0.25, MaxStep: 2,
	})
	cur := joint.Home()

	next, ok := p.Step(cur, vision.Centroid{X: 0, Y: 0})
	assert.False(t, ok)
	assert.Equal(t, cur, next)

	next, ok = p.Step(cur, vision.Centroid{X: 200, Y: 135})
	require.True(t, ok)
	assert.InDelta(t, 92, next.A1, 1e-9)
	assert.InDelta(t, 90, next.A2, 1e-9)
	assert.Equal(t, cur.A3, next.A3)
}
