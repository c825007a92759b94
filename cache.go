package framegraph

import "github.com/gogpu/framegraph/cache"

// PlanCache caches compiled plans by fingerprint. Rebuilding the same
// graph every frame is the common case in a render loop, and a cache
// hit turns Compile into a hash plus a lookup.
//
// PlanCache is safe for concurrent use.
type PlanCache struct {
	plans *cache.Sharded[uint64, *Plan]
}

// NewPlanCache creates a cache holding up to capacity plans per shard.
// If capacity <= 0 a small default is used.
func NewPlanCache(capacity int) *PlanCache {
	return &PlanCache{
		plans: cache.NewSharded[uint64, *Plan](capacity, cache.Uint64Hasher),
	}
}

// Get returns the plan for a fingerprint, if cached.
func (pc *PlanCache) Get(fingerprint uint64) (*Plan, bool) {
	return pc.plans.Get(fingerprint)
}

// Put stores a compiled plan.
func (pc *PlanCache) Put(fingerprint uint64, plan *Plan) {
	pc.plans.Set(fingerprint, plan)
}

// Stats returns hit and miss counters.
func (pc *PlanCache) Stats() cache.Stats {
	return pc.plans.Stats()
}
