package framegraph

import (
	"sort"

	"github.com/gogpu/framegraph/hal"
)

// Lifetime is the closed interval of schedule positions during which a
// resource is in use.
type Lifetime struct {
	First int
	Last  int
}

// overlaps reports whether two lifetimes share any schedule position.
func (l Lifetime) overlaps(o Lifetime) bool {
	return l.First <= o.Last && o.First <= l.Last
}

// PhysicalAllocation is one backing memory block. Several logical
// resources may occupy it as long as their lifetimes are disjoint and
// their usage and memory class match.
type PhysicalAllocation struct {
	// Size in bytes, the maximum over all occupants.
	Size uint64

	// Class is the memory class shared by all occupants.
	Class hal.MemoryClass

	// Occupants lists the logical resources assigned to this block, in
	// lifetime order.
	Occupants []ResourceID

	// lastEnd is the schedule position after which the block is free
	// again; used only while coloring.
	lastEnd int
}

// allocationKey buckets aliasing candidates. Resources alias only when
// kind, usage flags and memory class all match, since backends may
// require distinct memory types per usage.
type allocationKey struct {
	kind   ResourceKind
	class  hal.MemoryClass
	iUsage hal.TextureUsage
	bUsage hal.BufferUsage
}

func keyFor(r *resource) allocationKey {
	k := allocationKey{kind: r.kind, class: r.memoryClass()}
	if r.kind == ResourceImage {
		k.iUsage = r.image.Usage
	} else {
		k.bUsage = r.buffer.Usage
	}
	return k
}

// allocationMap is the output of the analyzer.
type allocationMap struct {
	// lifetimes[resource] over schedule positions; zero-value First>Last
	// marks an unused resource.
	lifetimes []Lifetime

	// allocations in creation order.
	allocations []PhysicalAllocation

	// assignment[resource] is the allocation index, or -1 when the
	// resource is imported or unused.
	assignment []int
}

// buildAllocations computes lifetimes over the scheduled order and aliases
// transient resources with an interval-coloring sweep. It never fails:
// when no existing block fits, a fresh one is created, so aliasing only
// affects memory footprint, never correctness. The footprint is bounded
// by the peak live set, not by the total resource count.
func buildAllocations(resources []resource, s *schedule) *allocationMap {
	m := &allocationMap{
		lifetimes:  make([]Lifetime, len(resources)),
		assignment: make([]int, len(resources)),
	}

	for i := range resources {
		m.lifetimes[i] = Lifetime{First: len(s.order), Last: -1}
		m.assignment[i] = -1
		for _, ref := range resources[i].accesses {
			pos := s.orderIndex[ref.pass]
			if pos < m.lifetimes[i].First {
				m.lifetimes[i].First = pos
			}
			if pos > m.lifetimes[i].Last {
				m.lifetimes[i].Last = pos
			}
		}
	}

	// Transient, used resources sorted by lifetime start; id breaks ties
	// to keep assignment deterministic.
	order := make([]int, 0, len(resources))
	for i := range resources {
		if resources[i].transient() && m.lifetimes[i].Last >= 0 {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(a, b int) bool {
		la, lb := m.lifetimes[order[a]], m.lifetimes[order[b]]
		if la.First != lb.First {
			return la.First < lb.First
		}
		return order[a] < order[b]
	})

	buckets := make(map[allocationKey][]int)
	log := Logger()

	for _, ri := range order {
		res := &resources[ri]
		life := m.lifetimes[ri]
		need := res.byteSize()
		key := keyFor(res)

		// Smallest free block that fits; creation order breaks size
		// ties.
		best := -1
		for _, ai := range buckets[key] {
			a := &m.allocations[ai]
			if a.lastEnd >= life.First || a.Size < need {
				continue
			}
			if best == -1 || a.Size < m.allocations[best].Size {
				best = ai
			}
		}

		if best == -1 {
			best = len(m.allocations)
			m.allocations = append(m.allocations, PhysicalAllocation{
				Size:    need,
				Class:   res.memoryClass(),
				lastEnd: -1,
			})
			buckets[key] = append(buckets[key], best)
		} else {
			log.Debug("framegraph: aliasing resource into existing allocation",
				"resource", res.label(), "allocation", best)
		}

		a := &m.allocations[best]
		a.Occupants = append(a.Occupants, res.id)
		a.lastEnd = life.Last
		m.assignment[ri] = best
	}

	return m
}
