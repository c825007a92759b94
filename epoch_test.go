package framegraph

import "testing"

func TestEpochRetireWaitsForCompletion(t *testing.T) {
	var e epochs

	ep := e.next()
	ran := false
	e.retire(ep, func() { ran = true })
	if ran {
		t.Fatal("destruction ran before its epoch completed")
	}

	e.complete(ep)
	if !ran {
		t.Fatal("destruction did not run on completion")
	}
	if e.completedEpoch() != ep {
		t.Errorf("completedEpoch = %d, want %d", e.completedEpoch(), ep)
	}
}

func TestEpochRetireAfterCompletionRunsImmediately(t *testing.T) {
	var e epochs

	ep := e.next()
	e.complete(ep)

	ran := false
	e.retire(ep, func() { ran = true })
	if !ran {
		t.Fatal("destruction for a completed epoch did not run immediately")
	}
}

func TestEpochCompletionIsMonotonic(t *testing.T) {
	var e epochs

	first := e.next()
	second := e.next()

	e.complete(second)
	if e.completedEpoch() != second {
		t.Fatalf("completedEpoch = %d, want %d", e.completedEpoch(), second)
	}

	// Completing an older epoch must not move completion backwards.
	e.complete(first)
	if e.completedEpoch() != second {
		t.Errorf("completion moved backwards to %d", e.completedEpoch())
	}
}

func TestEpochCompleteReleasesOlderEpochs(t *testing.T) {
	var e epochs

	first := e.next()
	second := e.next()
	third := e.next()

	var ran []Epoch
	e.retire(first, func() { ran = append(ran, first) })
	e.retire(second, func() { ran = append(ran, second) })
	e.retire(third, func() { ran = append(ran, third) })

	e.complete(second)
	if len(ran) != 2 {
		t.Fatalf("completed epoch %d released %d destructions, want 2", second, len(ran))
	}
	e.complete(third)
	if len(ran) != 3 {
		t.Fatalf("got %d destructions after completing all epochs", len(ran))
	}
}

func TestEpochDrain(t *testing.T) {
	var e epochs

	ep := e.next()
	ran := 0
	e.retire(ep, func() { ran++ })
	e.retire(e.next(), func() { ran++ })

	e.drain()
	if ran != 2 {
		t.Fatalf("drain ran %d destructions, want 2", ran)
	}
	if e.completedEpoch() != Epoch(2) {
		t.Errorf("completedEpoch after drain = %d, want 2", e.completedEpoch())
	}
}
