package cache

import (
	"sync"
	"testing"
)

func TestShardedGetSet(t *testing.T) {
	c := NewSharded[uint64, string](8, Uint64Hasher)

	c.Set(1, "gbuffer")

	val, ok := c.Get(1)
	if !ok {
		t.Error("expected key 1 to exist")
	}
	if val != "gbuffer" {
		t.Errorf("expected gbuffer, got %q", val)
	}

	_, ok = c.Get(2)
	if ok {
		t.Error("expected key 2 to not exist")
	}
}

func TestShardedGetOrCreate(t *testing.T) {
	c := NewSharded[uint64, int](8, Uint64Hasher)
	createCalled := 0

	val := c.GetOrCreate(7, func() int {
		createCalled++
		return 100
	})
	if val != 100 {
		t.Errorf("expected 100, got %d", val)
	}
	if createCalled != 1 {
		t.Errorf("expected create called once, got %d", createCalled)
	}

	val = c.GetOrCreate(7, func() int {
		createCalled++
		return 200
	})
	if val != 100 {
		t.Errorf("expected cached 100, got %d", val)
	}
	if createCalled != 1 {
		t.Errorf("expected create called once, got %d", createCalled)
	}
}

func TestShardedEviction(t *testing.T) {
	// Capacity 2 per shard; keys here are multiples of the shard count
	// so they all land in shard 0.
	c := NewSharded[uint64, int](2, Uint64Hasher)

	c.Set(0, 0)
	c.Set(16, 1)
	c.Set(32, 2) // evicts key 0

	if _, ok := c.Get(0); ok {
		t.Error("expected key 0 to be evicted")
	}
	if _, ok := c.Get(16); !ok {
		t.Error("expected key 16 to survive")
	}
	if _, ok := c.Get(32); !ok {
		t.Error("expected key 32 to survive")
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestShardedLRUOrder(t *testing.T) {
	c := NewSharded[uint64, int](2, Uint64Hasher)

	c.Set(0, 0)
	c.Set(16, 1)

	// Touch key 0 so 16 becomes the eviction candidate.
	if _, ok := c.Get(0); !ok {
		t.Fatal("expected key 0")
	}
	c.Set(32, 2)

	if _, ok := c.Get(16); ok {
		t.Error("expected key 16 to be evicted")
	}
	if _, ok := c.Get(0); !ok {
		t.Error("expected key 0 to survive after touch")
	}
}

func TestShardedDelete(t *testing.T) {
	c := NewSharded[uint64, int](8, Uint64Hasher)

	c.Set(5, 50)
	if !c.Delete(5) {
		t.Error("expected Delete to find key 5")
	}
	if c.Delete(5) {
		t.Error("expected second Delete to miss")
	}
	if _, ok := c.Get(5); ok {
		t.Error("expected key 5 to be gone")
	}
}

func TestShardedClear(t *testing.T) {
	c := NewSharded[uint64, int](8, Uint64Hasher)

	for i := uint64(0); i < 100; i++ {
		c.Set(i, int(i))
	}
	if c.Len() != 100 {
		t.Fatalf("expected 100 entries, got %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d", c.Len())
	}
}

func TestShardedConcurrent(t *testing.T) {
	c := NewSharded[uint64, uint64](32, Uint64Hasher)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := uint64(0); i < 200; i++ {
				key := uint64(g)*1000 + i
				c.Set(key, key*2)
				if v, ok := c.Get(key); ok && v != key*2 {
					t.Errorf("key %d: got %d, want %d", key, v, key*2)
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestStringHasherDistribution(t *testing.T) {
	a := StringHasher("shadow")
	b := StringHasher("lighting")
	if a == b {
		t.Error("distinct strings hashed equal")
	}
	if a != StringHasher("shadow") {
		t.Error("hash not stable")
	}
}
