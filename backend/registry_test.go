package backend

import (
	"errors"
	"testing"
)

type fakeBackend struct {
	name    string
	openErr error
	opened  *Opened
	closed  bool
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Open() (*Opened, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.opened, nil
}

func (b *fakeBackend) Close() { b.closed = true }

func TestRegisterAndGet(t *testing.T) {
	fb := &fakeBackend{name: "fake"}
	Register("fake", func() Backend { return fb })
	defer Unregister("fake")

	if !IsRegistered("fake") {
		t.Fatal("registered backend not found")
	}
	if got := Get("fake"); got != fb {
		t.Errorf("Get returned %v", got)
	}
	if Get("missing") != nil {
		t.Error("Get for unknown name returned a backend")
	}

	found := false
	for _, name := range Available() {
		if name == "fake" {
			found = true
		}
	}
	if !found {
		t.Errorf("Available() = %v, missing fake", Available())
	}
}

func TestUnregister(t *testing.T) {
	Register("fake", func() Backend { return &fakeBackend{name: "fake"} })
	Unregister("fake")
	if IsRegistered("fake") {
		t.Error("backend still registered after Unregister")
	}
}

func TestOpenDefaultFallsBack(t *testing.T) {
	opened := &Opened{Device: nil, Allocator: nil}
	Register("fake", func() Backend { return &fakeBackend{name: "fake", opened: opened} })
	defer Unregister("fake")

	got, err := OpenDefault()
	if err != nil {
		t.Fatalf("OpenDefault: %v", err)
	}
	if got != opened {
		t.Errorf("OpenDefault returned %v, want the fake's result", got)
	}
}

func TestOpenDefaultReportsLastError(t *testing.T) {
	fail := errors.New("no adapter")
	Register("fake", func() Backend { return &fakeBackend{name: "fake", openErr: fail} })
	defer Unregister("fake")

	_, err := OpenDefault()
	if err == nil {
		t.Fatal("OpenDefault succeeded with no openable backend")
	}
	if !errors.Is(err, fail) && !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("err = %v, want open failure or ErrBackendNotAvailable", err)
	}
}
