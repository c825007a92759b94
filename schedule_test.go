package framegraph

import (
	"errors"
	"testing"

	"github.com/gogpu/framegraph/hal"
)

// buildTestSchedule compiles the builder's graph and schedule, failing
// on any error.
func buildTestSchedule(t *testing.T, b *Builder, limits hal.Limits) (*depGraph, *schedule) {
	t.Helper()
	g, err := buildGraph(b.resources, b.passes)
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}
	s, err := buildSchedule(g, b.passes, limits)
	if err != nil {
		t.Fatalf("buildSchedule: %v", err)
	}
	return g, s
}

func TestScheduleRespectsEdges(t *testing.T) {
	b := NewBuilder()
	gbuf := b.DeclareImage(testImage("gbuffer"))
	light := b.DeclareImage(testImage("lighting"))
	final := b.DeclareImage(testImage("final"))

	mustPass(t, b, "geometry", PassGraphics, []Access{WriteColor(gbuf)})
	mustPass(t, b, "lighting", PassGraphics, []Access{SampleTexture(gbuf), WriteColor(light)})
	mustPass(t, b, "tonemap", PassGraphics, []Access{SampleTexture(light), WriteColor(final)})

	g, s := buildTestSchedule(t, b, hal.DefaultLimits())

	if len(s.order) != 3 {
		t.Fatalf("order has %d passes, want 3", len(s.order))
	}
	for _, e := range g.edges {
		if s.orderIndex[e.Producer] >= s.orderIndex[e.Consumer] {
			t.Errorf("edge %d->%d not respected by order %v", e.Producer, e.Consumer, s.order)
		}
	}
}

func TestScheduleTieBreakDeterminism(t *testing.T) {
	build := func() *Builder {
		b := NewBuilder()
		a := b.DeclareImage(testImage("a"))
		c := b.DeclareImage(testImage("c"))
		out := b.DeclareImage(testImage("out"))
		// Two independent roots, then a join. The roots are both ready
		// at the start; the lower id must come first.
		mustPass(t, b, "rootA", PassGraphics, []Access{WriteColor(a)})
		mustPass(t, b, "rootC", PassGraphics, []Access{WriteColor(c)})
		mustPass(t, b, "join", PassGraphics, []Access{SampleTexture(a), SampleTexture(c), WriteColor(out)})
		return b
	}

	_, first := buildTestSchedule(t, build(), hal.DefaultLimits())
	if first.order[0] != 0 || first.order[1] != 1 {
		t.Errorf("ready ties not broken by lowest id: %v", first.order)
	}
	for i := 0; i < 10; i++ {
		_, s := buildTestSchedule(t, build(), hal.DefaultLimits())
		for j := range s.order {
			if s.order[j] != first.order[j] {
				t.Fatalf("run %d produced order %v, want %v", i, s.order, first.order)
			}
		}
	}
}

func TestScheduleMergesIndependentGraphics(t *testing.T) {
	b := NewBuilder()
	a := b.DeclareImage(testImage("a"))
	c := b.DeclareImage(testImage("c"))
	mustPass(t, b, "left", PassGraphics, []Access{WriteColor(a)})
	mustPass(t, b, "right", PassGraphics, []Access{WriteColor(c)})

	_, s := buildTestSchedule(t, b, hal.DefaultLimits())

	if len(s.groups) != 1 {
		t.Fatalf("got %d groups, want 1 merged group", len(s.groups))
	}
	grp := s.groups[0]
	if len(grp.Passes) != 2 {
		t.Errorf("merged group has passes %v, want both", grp.Passes)
	}
	if len(grp.Colors) != 2 {
		t.Errorf("merged group colors = %v, want union of both attachments", grp.Colors)
	}
}

func TestScheduleSplitsOnDependency(t *testing.T) {
	b := NewBuilder()
	img := b.DeclareImage(testImage("color"))
	out := b.DeclareImage(testImage("out"))
	mustPass(t, b, "draw", PassGraphics, []Access{WriteColor(img)})
	mustPass(t, b, "post", PassGraphics, []Access{SampleTexture(img), WriteColor(out)})

	_, s := buildTestSchedule(t, b, hal.DefaultLimits())

	if len(s.groups) != 2 {
		t.Fatalf("got %d groups, want 2 (hazard needs a barrier between groups)", len(s.groups))
	}
}

func TestScheduleQueueAssignment(t *testing.T) {
	b := NewBuilder()
	img := b.DeclareImage(testImage("color"))
	buf := b.DeclareBuffer(testBuffer("particles", 4096))
	mustPass(t, b, "draw", PassGraphics, []Access{WriteColor(img)})
	mustPass(t, b, "simulate", PassCompute, []Access{WriteStorage(buf)})
	mustPass(t, b, "upload", PassTransfer, []Access{TransferDst(buf)})

	t.Run("dedicated queues", func(t *testing.T) {
		_, s := buildTestSchedule(t, b, hal.DefaultLimits())
		if s.queueOf[0] != hal.QueueGraphics {
			t.Errorf("graphics pass on queue %v", s.queueOf[0])
		}
		if s.queueOf[1] != hal.QueueCompute {
			t.Errorf("compute pass on queue %v", s.queueOf[1])
		}
		if s.queueOf[2] != hal.QueueTransfer {
			t.Errorf("transfer pass on queue %v", s.queueOf[2])
		}
	})

	t.Run("unified queue folds everything onto graphics", func(t *testing.T) {
		limits := hal.DefaultLimits()
		limits.UnifiedQueue = true
		_, s := buildTestSchedule(t, b, limits)
		for p, q := range s.queueOf {
			if q != hal.QueueGraphics {
				t.Errorf("pass %d on queue %v, want graphics", p, q)
			}
		}
		for _, grp := range s.groups {
			if grp.Queue != hal.QueueGraphics {
				t.Errorf("group queue %v, want graphics", grp.Queue)
			}
		}
	})
}

func TestScheduleAttachmentLimit(t *testing.T) {
	b := NewBuilder()
	var accesses []Access
	for i := 0; i < 5; i++ {
		img := b.DeclareImage(testImage("mrt"))
		accesses = append(accesses, WriteColor(img))
	}
	mustPass(t, b, "gbuffer", PassGraphics, accesses)

	limits := hal.DefaultLimits()
	limits.MaxColorAttachments = 4

	g, err := buildGraph(b.resources, b.passes)
	if err != nil {
		t.Fatalf("buildGraph: %v", err)
	}
	_, err = buildSchedule(g, b.passes, limits)
	if !errors.Is(err, ErrUnschedulableGraph) {
		t.Fatalf("err = %v, want ErrUnschedulableGraph", err)
	}
	var ue *UnschedulableGraphError
	if !errors.As(err, &ue) {
		t.Fatalf("err %T is not *UnschedulableGraphError", err)
	}
	if ue.Attachments != 5 || ue.Limit != 4 {
		t.Errorf("error reports %d/%d, want 5/4", ue.Attachments, ue.Limit)
	}
}

func TestScheduleMergeAttachmentLimit(t *testing.T) {
	// Two independent passes whose attachment union exceeds the limit
	// stay in separate groups rather than failing.
	b := NewBuilder()
	var first, second []Access
	for i := 0; i < 2; i++ {
		first = append(first, WriteColor(b.DeclareImage(testImage("a"))))
	}
	for i := 0; i < 2; i++ {
		second = append(second, WriteColor(b.DeclareImage(testImage("b"))))
	}
	mustPass(t, b, "left", PassGraphics, first)
	mustPass(t, b, "right", PassGraphics, second)

	limits := hal.DefaultLimits()
	limits.MaxColorAttachments = 3

	_, s := buildTestSchedule(t, b, limits)
	if len(s.groups) != 2 {
		t.Fatalf("got %d groups, want 2 when the union would exceed the limit", len(s.groups))
	}
}
