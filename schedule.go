package framegraph

import (
	"github.com/gogpu/framegraph/hal"
)

// SubpassGroup is an ordered cluster of passes merged into one backend
// render pass. All member passes execute on the same queue and share a
// compatible attachment set.
type SubpassGroup struct {
	// Queue the group executes on.
	Queue hal.QueueKind

	// Passes in execution order.
	Passes []PassID

	// Colors lists the distinct color attachments of the group in
	// first-use order; Depth is the depth attachment or -1.
	Colors []ResourceID
	Depth  int32
}

// schedule is the ordered execution layout derived from the dependency
// graph.
type schedule struct {
	// order is the global topological order of all passes.
	order []PassID
	// orderIndex[pass] is the pass's position in order.
	orderIndex []int
	// groups in global execution order.
	groups []SubpassGroup
	// groupOf[pass] is the pass's group index.
	groupOf []int
	// queueOf[pass] is the queue the pass was assigned to.
	queueOf []hal.QueueKind
}

// buildSchedule topologically orders the passes and merges adjacent
// graphics passes into subpass groups.
//
// The topological sort breaks ties by lowest pass id among ready nodes,
// so identical inputs always yield identical plans. Queue assignment
// follows pass capability; when the backend exposes a single unified
// queue every pass lands on the graphics queue.
func buildSchedule(g *depGraph, passes []pass, limits hal.Limits) (*schedule, error) {
	n := len(passes)
	s := &schedule{
		order:      make([]PassID, 0, n),
		orderIndex: make([]int, n),
		groupOf:    make([]int, n),
		queueOf:    make([]hal.QueueKind, n),
	}

	for i := range passes {
		q := passes[i].kind.queue()
		if limits.UnifiedQueue {
			q = hal.QueueGraphics
		}
		s.queueOf[i] = q
	}

	// Kahn's algorithm. Pass counts are small enough that a linear scan
	// for the lowest ready id beats maintaining a heap.
	indegree := append([]int(nil), g.indegree...)
	done := make([]bool, n)
	for len(s.order) < n {
		next := -1
		for p := 0; p < n; p++ {
			if !done[p] && indegree[p] == 0 {
				next = p
				break
			}
		}
		if next == -1 {
			// checkAcyclic already rejected cycles.
			panic("framegraph: no ready pass in acyclic graph")
		}
		done[next] = true
		s.orderIndex[next] = len(s.order)
		s.order = append(s.order, PassID(next))
		for _, ei := range g.successors[next] {
			indegree[g.edges[ei].Consumer]--
		}
	}

	if err := s.buildGroups(g, passes, limits); err != nil {
		return nil, err
	}
	return s, nil
}

// buildGroups greedily merges adjacent graphics passes. A pass joins the
// previous group when both are graphics work on the same queue, no
// dependency edge connects it to a group member (any such hazard needs a
// pipeline barrier, which can only sit between groups), and the merged
// attachment set stays within backend limits.
func (s *schedule) buildGroups(g *depGraph, passes []pass, limits hal.Limits) error {
	// Direct-edge lookup for the merge test.
	connected := make(map[[2]PassID]bool, len(g.edges))
	for _, e := range g.edges {
		connected[[2]PassID{e.Producer, e.Consumer}] = true
	}

	for _, pid := range s.order {
		p := &passes[pid]

		if n := p.colorAttachmentCount(); n > limits.MaxColorAttachments {
			return &UnschedulableGraphError{
				Pass:        pid,
				Attachments: n,
				Limit:       limits.MaxColorAttachments,
			}
		}

		if gi := len(s.groups) - 1; gi >= 0 && s.mergeable(gi, p, connected, passes, limits) {
			grp := &s.groups[gi]
			grp.Passes = append(grp.Passes, pid)
			mergeAttachments(grp, p)
			s.groupOf[pid] = gi
			continue
		}

		grp := SubpassGroup{
			Queue: s.queueOf[pid],
			Depth: -1,
		}
		grp.Passes = append(grp.Passes, pid)
		mergeAttachments(&grp, p)
		s.groupOf[pid] = len(s.groups)
		s.groups = append(s.groups, grp)
	}
	return nil
}

// mergeable reports whether pass p can join group gi.
func (s *schedule) mergeable(gi int, p *pass, connected map[[2]PassID]bool, passes []pass, limits hal.Limits) bool {
	grp := &s.groups[gi]
	if p.kind != PassGraphics || grp.Queue != s.queueOf[p.id] {
		return false
	}
	if passes[grp.Passes[0]].kind != PassGraphics {
		return false
	}
	for _, member := range grp.Passes {
		if connected[[2]PassID{member, p.id}] || connected[[2]PassID{p.id, member}] {
			return false
		}
	}

	// Attachment compatibility: union within limits, at most one depth
	// attachment.
	colors, depth := passAttachments(p)
	union := len(grp.Colors)
	for _, c := range colors {
		if !containsResource(grp.Colors, c) {
			union++
		}
	}
	if union > limits.MaxColorAttachments {
		return false
	}
	if depth >= 0 && grp.Depth >= 0 && depth != grp.Depth {
		return false
	}
	return true
}

// passAttachments extracts the color attachment writes and the depth
// attachment of a pass.
func passAttachments(p *pass) (colors []ResourceID, depth int32) {
	depth = -1
	for _, a := range p.accesses {
		switch a.Layout {
		case hal.LayoutColorAttachment:
			if a.Mode.writes() {
				colors = append(colors, a.Resource)
			}
		case hal.LayoutDepthStencilAttachment:
			depth = int32(a.Resource)
		}
	}
	return colors, depth
}

func mergeAttachments(grp *SubpassGroup, p *pass) {
	colors, depth := passAttachments(p)
	for _, c := range colors {
		if !containsResource(grp.Colors, c) {
			grp.Colors = append(grp.Colors, c)
		}
	}
	if grp.Depth < 0 {
		grp.Depth = depth
	}
}

func containsResource(list []ResourceID, r ResourceID) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}
