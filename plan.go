package framegraph

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/gogpu/framegraph/hal"
)

// Plan is a compiled frame: subpass groups in execution order, the
// synchronization points between them, and the physical allocation
// layout. A plan is immutable; it is built once per compile and may be
// executed every frame until the graph's declarations change (compare
// Fingerprint, or let a PlanCache do it).
type Plan struct {
	// Groups in global execution order.
	Groups []SubpassGroup

	// Syncs ordered by schedule position.
	Syncs []SyncPoint

	// Edges of the dependency graph the plan was derived from.
	Edges []DependencyEdge

	// Order is the scheduled pass order.
	Order []PassID

	// Allocations and the per-resource assignment (-1 for imported or
	// unused resources).
	Allocations []PhysicalAllocation
	Assignment  []int

	// Lifetimes per resource over schedule positions.
	Lifetimes []Lifetime

	// SemaphoreCount is the number of cross-queue semaphores the
	// executor must create.
	SemaphoreCount int

	fingerprint uint64
	groupOf     []int // pass id -> group index

	// Immutable snapshots the executor binds against.
	resources []resource
	passes    []pass
	limits    hal.Limits
}

// CompileOptions configures a compile.
type CompileOptions struct {
	// Limits the schedule must respect, normally taken from
	// Device.Limits().
	Limits hal.Limits

	// Cache, when non-nil, is consulted by fingerprint before
	// compiling and updated after.
	Cache *PlanCache
}

// DefaultCompileOptions returns options with default limits and no
// cache.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{Limits: hal.DefaultLimits()}
}

// Compile derives a plan from the builder's declarations: dependency
// graph, deterministic schedule, lifetime-aliased allocations and the
// minimal synchronization set. Compiling the same declarations twice
// yields identical plans.
//
// All failures are fatal to this compile; no partial plan is returned.
func (b *Builder) Compile(opts CompileOptions) (*Plan, error) {
	if opts.Limits.MaxColorAttachments == 0 {
		opts.Limits = hal.DefaultLimits()
	}

	fp := fingerprint(b.resources, b.passes, opts.Limits)
	if opts.Cache != nil {
		if plan, ok := opts.Cache.Get(fp); ok {
			Logger().Debug("framegraph: plan cache hit", "fingerprint", fp)
			return plan, nil
		}
	}

	g, err := buildGraph(b.resources, b.passes)
	if err != nil {
		return nil, err
	}
	s, err := buildSchedule(g, b.passes, opts.Limits)
	if err != nil {
		return nil, err
	}
	allocs := buildAllocations(b.resources, s)
	syncs, semaphores := buildSyncPoints(g, s, b.passes, b.resources)

	plan := &Plan{
		Groups:         s.groups,
		Syncs:          syncs,
		Edges:          g.edges,
		Order:          s.order,
		Allocations:    allocs.allocations,
		Assignment:     allocs.assignment,
		Lifetimes:      allocs.lifetimes,
		SemaphoreCount: semaphores,
		fingerprint:    fp,
		groupOf:        s.groupOf,
		resources:      append([]resource(nil), b.resources...),
		passes:         append([]pass(nil), b.passes...),
		limits:         opts.Limits,
	}

	if err := plan.validate(s); err != nil {
		return nil, err
	}

	Logger().Debug("framegraph: compiled plan",
		"passes", len(plan.passes),
		"groups", len(plan.Groups),
		"edges", len(plan.Edges),
		"syncs", len(plan.Syncs),
		"allocations", len(plan.Allocations))

	if opts.Cache != nil {
		opts.Cache.Put(fp, plan)
	}
	return plan, nil
}

// Fingerprint is a structural hash of the declarations the plan was
// compiled from. Equal fingerprints mean identical declarations.
func (p *Plan) Fingerprint() uint64 { return p.fingerprint }

// validate checks the hazard-coverage and queue-transfer invariants.
// Every edge must be covered by exactly one SyncPoint, and every
// cross-queue boundary must carry both its release and acquire halves.
func (p *Plan) validate(s *schedule) error {
	covered := make([]int, len(p.Edges))
	for _, sp := range p.Syncs {
		for _, ei := range sp.Edges {
			covered[ei]++
		}
	}
	for ei, n := range covered {
		if n != 1 {
			e := p.Edges[ei]
			return fmt.Errorf("framegraph: internal error: edge %d->%d (resource %d) covered %d times",
				e.Producer, e.Consumer, e.Resource, n)
		}
	}

	// Release/acquire pairing per cross-queue edge.
	type half struct{ release, acquire bool }
	halves := make(map[boundary]*half)
	for _, sp := range p.Syncs {
		if !sp.Transfer {
			continue
		}
		key := boundary{src: sp.SrcGroup, dst: sp.DstGroup}
		h, ok := halves[key]
		if !ok {
			h = &half{}
			halves[key] = h
		}
		if sp.Release {
			h.release = true
		} else {
			h.acquire = true
		}
	}
	for _, e := range p.Edges {
		srcG, dstG := s.groupOf[e.Producer], s.groupOf[e.Consumer]
		srcQ, dstQ := p.Groups[srcG].Queue, p.Groups[dstG].Queue
		if srcQ == dstQ {
			continue
		}
		h := halves[boundary{src: srcG, dst: dstG}]
		if h == nil || !h.release || !h.acquire {
			return &MissingQueueTransferError{
				Resource: e.Resource,
				Producer: e.Producer,
				Consumer: e.Consumer,
				SrcQueue: srcQ,
				DstQueue: dstQ,
			}
		}
	}
	return nil
}

// String renders the plan for debugging: one line per sync point and
// group, in execution order. The output is deterministic and is what
// the determinism tests compare.
func (p *Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "plan %016x: %d groups, %d syncs, %d allocations\n",
		p.fingerprint, len(p.Groups), len(p.Syncs), len(p.Allocations))

	si := 0
	for gi := 0; gi <= len(p.Groups); gi++ {
		for si < len(p.Syncs) && p.Syncs[si].DstGroup == gi {
			writeSync(&sb, &p.Syncs[si])
			si++
		}
		if gi == len(p.Groups) {
			break
		}
		g := &p.Groups[gi]
		fmt.Fprintf(&sb, "group %d [%s]:", gi, g.Queue)
		for _, pid := range g.Passes {
			fmt.Fprintf(&sb, " %s", p.passes[pid].label())
		}
		sb.WriteByte('\n')
	}

	for i := range p.Allocations {
		a := &p.Allocations[i]
		fmt.Fprintf(&sb, "allocation %d: %d bytes (%s), resources %v\n",
			i, a.Size, a.Class, a.Occupants)
	}
	return sb.String()
}

func writeSync(sb *strings.Builder, sp *SyncPoint) {
	kind := "barrier"
	if sp.Transfer {
		if sp.Release {
			kind = "release"
		} else {
			kind = "acquire"
		}
	}
	fmt.Fprintf(sb, "  %s [%s] %v(%v) -> %v(%v)",
		kind, sp.Queue, sp.SrcStage, sp.SrcAccess, sp.DstStage, sp.DstAccess)
	for _, t := range sp.Transitions {
		fmt.Fprintf(sb, " [res %d: %s -> %s]", t.Resource, t.Old, t.New)
	}
	sb.WriteByte('\n')
}

// fingerprint hashes the full content of the registries: resource
// descriptors including labels and clear values, pass kinds, names and
// access lists, and the limits compiled against. Everything execution
// reads from the declarations is hashed; only callbacks are excluded.
func fingerprint(resources []resource, passes []pass, limits hal.Limits) uint64 {
	h := fnv.New64a()
	buf := make([]byte, 0, 64)

	u32 := func(v uint32) {
		buf = append(buf[:0], byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		_, _ = h.Write(buf)
	}
	u64 := func(v uint64) {
		u32(uint32(v))
		u32(uint32(v >> 32))
	}
	str := func(s string) {
		u32(uint32(len(s)))
		_, _ = h.Write([]byte(s))
	}

	u32(uint32(len(resources)))
	for i := range resources {
		r := &resources[i]
		u32(uint32(r.kind))
		if r.imported != nil {
			str(r.imported.Label)
			u32(uint32(r.imported.Format))
			u32(r.imported.Width)
			u32(r.imported.Height)
			u32(uint32(r.imported.InitialLayout)<<8 | uint32(r.imported.FinalLayout))
			continue
		}
		if r.kind == ResourceImage {
			str(r.image.Label)
			u32(uint32(r.image.Format))
			u32(r.image.Width)
			u32(r.image.Height)
			u32(uint32(r.image.Usage))
			u32(uint32(r.image.Memory)<<8 | uint32(r.image.Load))
			u64(math.Float64bits(r.image.ClearR))
			u64(math.Float64bits(r.image.ClearG))
			u64(math.Float64bits(r.image.ClearB))
			u64(math.Float64bits(r.image.ClearA))
		} else {
			str(r.buffer.Label)
			u64(r.buffer.Size)
			u32(uint32(r.buffer.Usage))
			u32(uint32(r.buffer.Memory))
		}
	}

	u32(uint32(len(passes)))
	for i := range passes {
		p := &passes[i]
		str(p.name)
		u32(uint32(p.kind))
		u32(uint32(len(p.accesses)))
		for _, a := range p.accesses {
			u32(uint32(a.Resource))
			u32(uint32(a.Mode)<<8 | uint32(a.Layout))
			u32(uint32(a.Stage))
			u32(uint32(a.Access))
		}
	}

	u32(uint32(limits.MaxColorAttachments))
	u64(limits.MaxBufferSize)
	if limits.UnifiedQueue {
		u32(1)
	} else {
		u32(0)
	}

	return h.Sum64()
}
