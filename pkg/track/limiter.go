package track

import "github.com/gwillem/visiontwin/pkg/joint"

// RateLimiter bounds how far a target may move in one tick.
type RateLimiter struct {
	MaxStep float64
}

// Limit moves cur toward proposed by at most MaxStep and clamps the result
// to the default joint range.
func (r RateLimiter) Limit(cur, proposed float64) float64 {
	step := joint.Clamp(proposed-cur, -r.MaxStep, r.MaxStep)
	return joint.ClampDefault(cur + step)
}

// LimitPair applies Limit to a1 and a2 of cur; a3 is left alone.
func (r RateLimiter) LimitPair(cur joint.Angles, a1, a2 float64) joint.Angles {
	next := cur
	next.A1 = r.Limit(cur.A1, a1)
	next.A2 = r.Limit(cur.A2, a2)
	return next
}
