package framegraph

import (
	"sort"

	"github.com/gogpu/framegraph/hal"
)

// LayoutTransition moves an image between layouts as part of a
// SyncPoint.
type LayoutTransition struct {
	Resource ResourceID
	Old      hal.ImageLayout
	New      hal.ImageLayout
}

// SyncPoint is one barrier or semaphore insertion between two scheduled
// items. Regular barriers sit on the destination group's queue right
// before the group; release halves of queue ownership transfers sit on
// the source queue right after the producing group.
type SyncPoint struct {
	// SrcGroup is the producing group index, or -1 for frame entry
	// (initial layout transitions).
	SrcGroup int

	// DstGroup is the consuming group index, or the group count for
	// frame exit (final layout transitions).
	DstGroup int

	// Queue is the queue stream this SyncPoint is recorded on.
	Queue hal.QueueKind

	SrcStage  hal.PipelineStage
	DstStage  hal.PipelineStage
	SrcAccess hal.Access
	DstAccess hal.Access

	// Transitions carried by this SyncPoint.
	Transitions []LayoutTransition

	// Transfer marks a queue ownership transfer; Release selects the
	// source-queue half. Semaphore indexes the plan's semaphore table
	// (-1 when not cross-queue).
	Transfer  bool
	Release   bool
	SrcQueue  hal.QueueKind
	DstQueue  hal.QueueKind
	Semaphore int

	// Edges lists the dependency edge indices this SyncPoint covers.
	// Each hazard edge is covered by exactly one SyncPoint (the release
	// and acquire halves of a transfer jointly cover their edges).
	Edges []int
}

// boundary identifies a coalescing unit: all edges crossing from one
// group to another merge into a single SyncPoint (one pair for
// cross-queue boundaries) with unioned masks, minimizing driver
// overhead.
type boundary struct {
	src int
	dst int
}

// buildSyncPoints derives the synchronization plan from the hazard edges
// and the schedule.
func buildSyncPoints(g *depGraph, s *schedule, passes []pass, resources []resource) ([]SyncPoint, int) {
	type pending struct {
		sp      SyncPoint
		acquire *SyncPoint // second half for cross-queue boundaries
	}
	pendingAt := make(map[boundary]*pending)
	var order []boundary // first-seen order for determinism

	semaphores := 0

	for ei, e := range g.edges {
		srcG, dstG := s.groupOf[e.Producer], s.groupOf[e.Consumer]
		srcQ, dstQ := s.groups[srcG].Queue, s.groups[dstG].Queue

		key := boundary{src: srcG, dst: dstG}
		p, ok := pendingAt[key]
		if !ok {
			p = &pending{sp: SyncPoint{
				SrcGroup:  srcG,
				DstGroup:  dstG,
				Queue:     dstQ,
				SrcQueue:  srcQ,
				DstQueue:  dstQ,
				Semaphore: -1,
			}}
			if srcQ != dstQ {
				// Ownership transfer: release on the source queue,
				// acquire on the destination queue, ordered by a
				// dedicated semaphore.
				p.sp.Transfer = true
				p.sp.Release = true
				p.sp.Queue = srcQ
				p.sp.Semaphore = semaphores
				acq := p.sp
				acq.Release = false
				acq.Queue = dstQ
				p.acquire = &acq
				semaphores++
			}
			pendingAt[key] = p
			order = append(order, key)
		}

		prodAcc := passes[e.Producer].accesses[e.producerAccess]
		consAcc := passes[e.Consumer].accesses[e.consumerAccess]

		union := func(sp *SyncPoint) {
			sp.SrcStage |= prodAcc.Stage
			sp.DstStage |= consAcc.Stage
			sp.SrcAccess |= prodAcc.Access
			sp.DstAccess |= consAcc.Access
			if resources[e.Resource].kind == ResourceImage && prodAcc.Layout != consAcc.Layout {
				addTransition(sp, LayoutTransition{
					Resource: e.Resource,
					Old:      prodAcc.Layout,
					New:      consAcc.Layout,
				})
			}
		}
		union(&p.sp)
		if p.acquire != nil {
			union(p.acquire)
			// The edge is covered once, by the pair; record it on the
			// release half only.
		}
		p.sp.Edges = append(p.sp.Edges, ei)
	}

	var syncs []SyncPoint
	for _, key := range order {
		p := pendingAt[key]
		syncs = append(syncs, p.sp)
		if p.acquire != nil {
			syncs = append(syncs, *p.acquire)
		}
	}

	syncs = append(syncs, entrySyncPoints(s, passes, resources)...)
	syncs = append(syncs, exitSyncPoints(s, passes, resources)...)

	// Stable position order: by destination group, then source group,
	// release halves before acquire halves of the same boundary.
	sort.SliceStable(syncs, func(i, j int) bool {
		if syncs[i].DstGroup != syncs[j].DstGroup {
			return syncs[i].DstGroup < syncs[j].DstGroup
		}
		if syncs[i].SrcGroup != syncs[j].SrcGroup {
			return syncs[i].SrcGroup < syncs[j].SrcGroup
		}
		return syncs[i].Release && !syncs[j].Release
	})

	return syncs, semaphores
}

// addTransition records a transition, deduplicating per resource. Two
// consumers in one group requesting different layouts cannot both be
// honored without an intra-group barrier; the first consumer's layout
// wins and the conflict is logged.
func addTransition(sp *SyncPoint, t LayoutTransition) {
	for _, have := range sp.Transitions {
		if have.Resource == t.Resource {
			if have.New != t.New {
				Logger().Warn("framegraph: conflicting layout requests in one group",
					"resource", t.Resource, "kept", have.New, "dropped", t.New)
			}
			return
		}
	}
	sp.Transitions = append(sp.Transitions, t)
}

// entrySyncPoints emits initial layout transitions: every image whose
// first-use layout differs from its layout at frame start (undefined for
// transients, the declared initial layout for imports) gets a transition
// from top-of-pipe before its first-using group.
func entrySyncPoints(s *schedule, passes []pass, resources []resource) []SyncPoint {
	byGroup := make(map[int]*SyncPoint)
	var groups []int

	for ri := range resources {
		res := &resources[ri]
		if res.kind != ResourceImage || len(res.accesses) == 0 {
			continue
		}
		first := firstScheduledAccess(res, s)
		acc := passes[first.pass].accesses[first.access]
		if acc.Layout == hal.LayoutUndefined {
			continue
		}
		var from hal.ImageLayout
		if res.imported != nil {
			from = res.imported.InitialLayout
		}
		if from == acc.Layout {
			continue
		}

		gi := s.groupOf[first.pass]
		sp, ok := byGroup[gi]
		if !ok {
			sp = &SyncPoint{
				SrcGroup:  -1,
				DstGroup:  gi,
				Queue:     s.groups[gi].Queue,
				SrcQueue:  s.groups[gi].Queue,
				DstQueue:  s.groups[gi].Queue,
				SrcStage:  hal.StageTopOfPipe,
				Semaphore: -1,
			}
			byGroup[gi] = sp
			groups = append(groups, gi)
		}
		sp.DstStage |= acc.Stage
		sp.DstAccess |= acc.Access
		addTransition(sp, LayoutTransition{Resource: res.id, Old: from, New: acc.Layout})
	}

	sort.Ints(groups)
	syncs := make([]SyncPoint, 0, len(groups))
	for _, gi := range groups {
		syncs = append(syncs, *byGroup[gi])
	}
	return syncs
}

// exitSyncPoints emits final layout transitions for imported images that
// must leave the frame in a declared layout (typically present).
func exitSyncPoints(s *schedule, passes []pass, resources []resource) []SyncPoint {
	byGroup := make(map[int]*SyncPoint)
	var groups []int

	for ri := range resources {
		res := &resources[ri]
		if res.imported == nil || len(res.accesses) == 0 {
			continue
		}
		want := res.imported.FinalLayout
		if want == hal.LayoutUndefined {
			continue
		}
		last := lastScheduledAccess(res, s)
		acc := passes[last.pass].accesses[last.access]
		if acc.Layout == want {
			continue
		}

		gi := s.groupOf[last.pass]
		sp, ok := byGroup[gi]
		if !ok {
			sp = &SyncPoint{
				SrcGroup:  gi,
				DstGroup:  len(s.groups),
				Queue:     s.groups[gi].Queue,
				SrcQueue:  s.groups[gi].Queue,
				DstQueue:  s.groups[gi].Queue,
				DstStage:  hal.StageBottomOfPipe,
				Semaphore: -1,
			}
			byGroup[gi] = sp
			groups = append(groups, gi)
		}
		sp.SrcStage |= acc.Stage
		sp.SrcAccess |= acc.Access
		addTransition(sp, LayoutTransition{Resource: res.id, Old: acc.Layout, New: want})
	}

	sort.Ints(groups)
	syncs := make([]SyncPoint, 0, len(groups))
	for _, gi := range groups {
		syncs = append(syncs, *byGroup[gi])
	}
	return syncs
}

func firstScheduledAccess(res *resource, s *schedule) accessRef {
	best := res.accesses[0]
	for _, ref := range res.accesses[1:] {
		if s.orderIndex[ref.pass] < s.orderIndex[best.pass] {
			best = ref
		}
	}
	return best
}

func lastScheduledAccess(res *resource, s *schedule) accessRef {
	best := res.accesses[0]
	for _, ref := range res.accesses[1:] {
		if s.orderIndex[ref.pass] > s.orderIndex[best.pass] {
			best = ref
		}
	}
	return best
}
