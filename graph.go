package framegraph

import (
	"github.com/gogpu/framegraph/internal/parallel"
)

// HazardKind classifies the data dependency between two passes sharing a
// resource.
type HazardKind uint8

const (
	// HazardRAW is a read after a prior write.
	HazardRAW HazardKind = iota
	// HazardWAW is a write after a prior write.
	HazardWAW
	// HazardWAR is a write after a prior read.
	HazardWAR
)

var hazardKindNames = [...]string{
	HazardRAW: "read-after-write",
	HazardWAW: "write-after-write",
	HazardWAR: "write-after-read",
}

// String returns the hazard kind name.
func (k HazardKind) String() string {
	if int(k) < len(hazardKindNames) {
		return hazardKindNames[k]
	}
	return "unknown"
}

// DependencyEdge orders Producer before Consumer because both access
// Resource and at least one of them writes. Edges are derived from
// declaration order, never declared by the caller.
type DependencyEdge struct {
	Producer PassID
	Consumer PassID
	Resource ResourceID
	Kind     HazardKind

	// Access indices into the producer's and consumer's access lists,
	// used by the synchronization planner for masks and layouts.
	producerAccess int
	consumerAccess int
}

// depGraph is the derived pass dependency graph.
type depGraph struct {
	edges []DependencyEdge

	// successors[p] lists edge indices with producer p, in edge order.
	successors [][]int
	// indegree[p] counts edges with consumer p.
	indegree []int
}

// buildGraph derives dependency edges from resource access overlap.
//
// For each resource, accesses are walked in declaration order. A read
// depends on the last write (RAW). A write depends on every read since
// the last write (WAR), or on the last write itself when no read
// intervened (WAW). The caller's declaration order is the source of
// truth for conflicting same-resource accesses: the earlier pass is
// always the producer.
//
// Per-resource scanning is parallel; edges are merged in resource id
// order, so the result is deterministic.
func buildGraph(resources []resource, passes []pass) (*depGraph, error) {
	perResource := make([][]DependencyEdge, len(resources))

	parallel.For(len(resources), func(i int) {
		perResource[i] = resourceEdges(&resources[i], passes)
	})

	g := &depGraph{
		successors: make([][]int, len(passes)),
		indegree:   make([]int, len(passes)),
	}
	for _, edges := range perResource {
		for _, e := range edges {
			idx := len(g.edges)
			g.edges = append(g.edges, e)
			g.successors[e.Producer] = append(g.successors[e.Producer], idx)
			g.indegree[e.Consumer]++
		}
	}

	if err := g.checkAcyclic(len(passes)); err != nil {
		return nil, err
	}
	return g, nil
}

// resourceEdges derives the edges contributed by one resource.
//
// A read of a transient resource declared before its first write reads
// the data that write produces, so the edge runs from the writer to the
// reader even though the reader registered first. Imported resources
// carry meaningful contents before any pass runs; pre-write reads there
// see the imported data and yield ordinary WAR edges instead.
func resourceEdges(res *resource, passes []pass) []DependencyEdge {
	var edges []DependencyEdge

	// lastWrite is the most recent writing access; readsSince are the
	// reading accesses after it.
	var lastWrite *accessRef
	var readsSince []accessRef

	for i := range res.accesses {
		ref := res.accesses[i]
		mode := passes[ref.pass].accesses[ref.access].Mode

		if mode.reads() {
			if lastWrite != nil && lastWrite.pass != ref.pass {
				edges = append(edges, DependencyEdge{
					Producer:       lastWrite.pass,
					Consumer:       ref.pass,
					Resource:       res.id,
					Kind:           HazardRAW,
					producerAccess: lastWrite.access,
					consumerAccess: ref.access,
				})
			}
			readsSince = append(readsSince, ref)
		}

		if mode.writes() {
			if lastWrite == nil && res.transient() {
				// First write; earlier reads consume its output.
				for _, rd := range readsSince {
					if rd.pass == ref.pass {
						continue
					}
					edges = append(edges, DependencyEdge{
						Producer:       ref.pass,
						Consumer:       rd.pass,
						Resource:       res.id,
						Kind:           HazardRAW,
						producerAccess: ref.access,
						consumerAccess: rd.access,
					})
				}
			} else if len(readsSince) > 0 {
				for _, rd := range readsSince {
					if rd.pass == ref.pass {
						continue
					}
					edges = append(edges, DependencyEdge{
						Producer:       rd.pass,
						Consumer:       ref.pass,
						Resource:       res.id,
						Kind:           HazardWAR,
						producerAccess: rd.access,
						consumerAccess: ref.access,
					})
				}
			} else if lastWrite != nil && lastWrite.pass != ref.pass {
				edges = append(edges, DependencyEdge{
					Producer:       lastWrite.pass,
					Consumer:       ref.pass,
					Resource:       res.id,
					Kind:           HazardWAW,
					producerAccess: lastWrite.access,
					consumerAccess: ref.access,
				})
			}
			w := ref
			lastWrite = &w
			readsSince = readsSince[:0]
		}
	}
	return edges
}

// checkAcyclic runs a depth-first traversal and reports the first cycle
// found, naming the resource whose edge closed it and the passes on the
// cycle. Compilation is aborted; no partial plan is produced.
func (g *depGraph) checkAcyclic(numPasses int) error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make([]byte, numPasses)
	parentEdge := make([]int, numPasses)
	for i := range parentEdge {
		parentEdge[i] = -1
	}

	// cycleError reconstructs the cycle closed by backEdge, walking the
	// DFS tree from its producer back to the pass the cycle starts at.
	cycleError := func(backEdge int) *CyclicDependencyError {
		e := g.edges[backEdge]
		cycleStart := int(e.Consumer)
		passes := []PassID{e.Consumer}
		for p := int(e.Producer); p != cycleStart; p = int(g.edges[parentEdge[p]].Producer) {
			passes = append(passes, PassID(p))
		}
		// Reverse into dependency order.
		for i, j := 1, len(passes)-1; i < j; i, j = i+1, j-1 {
			passes[i], passes[j] = passes[j], passes[i]
		}
		return &CyclicDependencyError{Resource: e.Resource, Passes: passes}
	}

	var visit func(p int) *CyclicDependencyError
	visit = func(p int) *CyclicDependencyError {
		color[p] = gray
		for _, ei := range g.successors[p] {
			next := int(g.edges[ei].Consumer)
			switch color[next] {
			case white:
				parentEdge[next] = ei
				if err := visit(next); err != nil {
					return err
				}
			case gray:
				return cycleError(ei)
			}
		}
		color[p] = black
		return nil
	}

	for p := 0; p < numPasses; p++ {
		if color[p] == white {
			if err := visit(p); err != nil {
				return err
			}
		}
	}
	return nil
}
