package framegraph

import (
	"testing"

	"github.com/gogpu/framegraph/hal"
)

func TestLifetimeOverlaps(t *testing.T) {
	tests := []struct {
		a, b Lifetime
		want bool
	}{
		{Lifetime{0, 1}, Lifetime{2, 3}, false},
		{Lifetime{0, 2}, Lifetime{2, 3}, true},
		{Lifetime{0, 5}, Lifetime{1, 2}, true},
		{Lifetime{3, 4}, Lifetime{0, 1}, false},
		{Lifetime{1, 1}, Lifetime{1, 1}, true},
	}
	for _, tt := range tests {
		if got := tt.a.overlaps(tt.b); got != tt.want {
			t.Errorf("%v overlaps %v = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := tt.b.overlaps(tt.a); got != tt.want {
			t.Errorf("overlaps is not symmetric for %v, %v", tt.a, tt.b)
		}
	}
}

func TestAliasingDisjointLifetimes(t *testing.T) {
	b := NewBuilder()
	early := b.DeclareBuffer(testBuffer("early", 1024))
	late := b.DeclareBuffer(testBuffer("late", 1024))

	// early is dead after the second pass; late is first used after
	// that, so the two can share one physical block.
	mustPass(t, b, "produce", PassCompute, []Access{WriteStorage(early)})
	mustPass(t, b, "consume", PassCompute, []Access{ReadStorage(early)})
	mustPass(t, b, "fill", PassCompute, []Access{WriteStorage(late)})
	mustPass(t, b, "drain", PassCompute, []Access{ReadStorage(late)})

	_, s := buildTestSchedule(t, b, hal.DefaultLimits())
	m := buildAllocations(b.resources, s)

	if m.assignment[early] != m.assignment[late] {
		t.Errorf("disjoint equal-size buffers got allocations %d and %d, want shared",
			m.assignment[early], m.assignment[late])
	}
	a := m.allocations[m.assignment[early]]
	if a.Size != 1024 {
		t.Errorf("shared allocation size = %d, want 1024", a.Size)
	}
	if len(a.Occupants) != 2 {
		t.Errorf("occupants = %v, want both buffers", a.Occupants)
	}
}

func TestAliasingOverlappingLifetimes(t *testing.T) {
	b := NewBuilder()
	x := b.DeclareBuffer(testBuffer("x", 1024))
	y := b.DeclareBuffer(testBuffer("y", 1024))

	// Both live during the second pass, so they must not alias.
	mustPass(t, b, "fill", PassCompute, []Access{WriteStorage(x), WriteStorage(y)})
	mustPass(t, b, "reduce", PassCompute, []Access{ReadStorage(x), ReadStorage(y)})

	_, s := buildTestSchedule(t, b, hal.DefaultLimits())
	m := buildAllocations(b.resources, s)

	if m.assignment[x] == m.assignment[y] {
		t.Error("overlapping buffers share an allocation")
	}
	if len(m.allocations) != 2 {
		t.Errorf("got %d allocations, want 2", len(m.allocations))
	}
}

func TestAliasingOccupantsDisjoint(t *testing.T) {
	b := NewBuilder()
	var bufs []ResourceID
	for i := 0; i < 4; i++ {
		bufs = append(bufs, b.DeclareBuffer(testBuffer("scratch", 512)))
	}
	// Chain: each pass reads the previous scratch and writes the next,
	// so consecutive buffers overlap and alternating ones do not.
	mustPass(t, b, "p0", PassCompute, []Access{WriteStorage(bufs[0])})
	for i := 1; i < 4; i++ {
		mustPass(t, b, "p", PassCompute, []Access{ReadStorage(bufs[i-1]), WriteStorage(bufs[i])})
	}

	_, s := buildTestSchedule(t, b, hal.DefaultLimits())
	m := buildAllocations(b.resources, s)

	for ai := range m.allocations {
		occ := m.allocations[ai].Occupants
		for i := 0; i < len(occ); i++ {
			for j := i + 1; j < len(occ); j++ {
				li := m.lifetimes[occ[i]]
				lj := m.lifetimes[occ[j]]
				if li.overlaps(lj) {
					t.Errorf("allocation %d holds overlapping occupants %d %v and %d %v",
						ai, occ[i], li, occ[j], lj)
				}
			}
		}
	}
	if len(m.allocations) >= 4 {
		t.Errorf("got %d allocations for 4 chained buffers, expected aliasing to reuse blocks",
			len(m.allocations))
	}
}

func TestAliasingKindAndUsageBuckets(t *testing.T) {
	b := NewBuilder()
	buf := b.DeclareBuffer(testBuffer("buf", 64*64*4))
	img := b.DeclareImage(testImage("img"))

	// Disjoint lifetimes but different kinds: never aliased.
	mustPass(t, b, "write buffer", PassCompute, []Access{WriteStorage(buf)})
	mustPass(t, b, "write image", PassGraphics, []Access{WriteColor(img)})

	_, s := buildTestSchedule(t, b, hal.DefaultLimits())
	m := buildAllocations(b.resources, s)

	if m.assignment[buf] == m.assignment[img] {
		t.Error("buffer and image share an allocation")
	}
}

func TestAllocationsSkipImportedAndUnused(t *testing.T) {
	b := NewBuilder()
	imported := b.ImportImage(ImportedImage{
		Label:  "swapchain",
		Image:  struct{}{},
		Width:  64,
		Height: 64,
	})
	unused := b.DeclareImage(testImage("never touched"))
	mustPass(t, b, "present", PassGraphics, []Access{WriteColor(imported)})

	_, s := buildTestSchedule(t, b, hal.DefaultLimits())
	m := buildAllocations(b.resources, s)

	if m.assignment[imported] != -1 {
		t.Errorf("imported resource assigned allocation %d, want -1", m.assignment[imported])
	}
	if m.assignment[unused] != -1 {
		t.Errorf("unused resource assigned allocation %d, want -1", m.assignment[unused])
	}
	if len(m.allocations) != 0 {
		t.Errorf("got %d allocations, want none", len(m.allocations))
	}
	if lt := m.lifetimes[unused]; lt.Last >= 0 {
		t.Errorf("unused resource has lifetime %v", lt)
	}
}
