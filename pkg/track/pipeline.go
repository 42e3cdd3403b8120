package track

import (
	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/vision"
)

// Config holds the tunables of a Pipeline.
type Config struct {
	CamW, CamH int
	A1, A2     joint.Range
	DeadbandPx float64
	Alpha      float64
	MaxStep    float64
}

// Pipeline chains CentroidFilter, Mapper and RateLimiter.
type Pipeline struct {
	Filter  *CentroidFilter
	Mapper  Mapper
	Limiter RateLimiter
}

// NewPipeline builds a pipeline from cfg.
func NewPipeline(cfg Config) *Pipeline {
	maxStep := cfg.MaxStep
	if maxStep <= 0 {
		maxStep = DefaultMaxStep
	}
	return &Pipeline{
		Filter: NewCentroidFilter(cfg.DeadbandPx, cfg.Alpha),
		Mapper: Mapper{
			CamW: cfg.CamW,
			CamH: cfg.CamH,
			A1:   cfg.A1,
			A2:   cfg.A2,
		},
		Limiter: RateLimiter{MaxStep: maxStep},
	}
}

// Step feeds a raw centroid and returns the next target derived from cur.
// It returns false when the centroid was deadbanded and nothing should be
// sent.
func (p *Pipeline) Step(cur joint.Angles, c vision.Centroid) (joint.Angles, bool) {
	sm, ok := p.Filter.Update(c)
	if !ok {
		return cur, false
	}
	a1, a2 := p.Mapper.Map(sm)
	return p.Limiter.LimitPair(cur, a1, a2), true
}
