package cache

import "testing"

func TestGetMissThenPutThenHit(t *testing.T) {
	c := New(4)

	if _, _, ok := c.Get(0, 1); ok {
		t.Fatal("Get on empty cache returned ok=true")
	}

	c.Put(0, 1, "value", OpAdd)
	entity, op, ok := c.Get(0, 1)
	if !ok || entity != "value" || op != OpAdd {
		t.Fatalf("Get after Put = (%v, %v, %v), want (value, OpAdd, true)", entity, op, ok)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("Stats = (%d, %d), want (1, 1)", hits, misses)
	}
}

func TestPutDeleteIsNegativeEntry(t *testing.T) {
	c := New(4)
	c.Put(0, 1, nil, OpDelete)

	entity, op, ok := c.Get(0, 1)
	if !ok {
		t.Fatal("Get on a negative entry returned ok=false")
	}
	if entity != nil {
		t.Fatalf("negative entry entity = %v, want nil", entity)
	}
	if op != OpDelete {
		t.Fatalf("negative entry op = %v, want OpDelete", op)
	}
}

func TestEvictionPrefersEmptySlotsThenLRU(t *testing.T) {
	c := New(2)
	c.Put(0, 1, "a", OpAdd)
	c.Put(0, 2, "b", OpAdd)

	// Touch id 1 so id 2 becomes the least-recently-used slot.
	c.Get(0, 1)

	c.Put(0, 3, "c", OpAdd)

	if _, _, ok := c.Get(0, 2); ok {
		t.Fatal("id 2 should have been evicted as the LRU entry")
	}
	if _, _, ok := c.Get(0, 1); !ok {
		t.Fatal("id 1 should still be cached, it was touched more recently")
	}
	if _, _, ok := c.Get(0, 3); !ok {
		t.Fatal("id 3 should be cached, it was just inserted")
	}
}

func TestInvalidateRemovesSingleEntry(t *testing.T) {
	c := New(4)
	c.Put(0, 1, "a", OpAdd)
	c.Put(0, 2, "b", OpAdd)

	c.Invalidate(0, 1)

	if _, _, ok := c.Get(0, 1); ok {
		t.Fatal("invalidated entry still present")
	}
	if _, _, ok := c.Get(0, 2); !ok {
		t.Fatal("unrelated entry was removed by Invalidate")
	}
}

func TestInvalidateAllKeepsStatsButDropsEntries(t *testing.T) {
	c := New(4)
	c.Put(0, 1, "a", OpAdd)
	c.Get(0, 1)
	c.Get(0, 99)

	c.InvalidateAll()

	if _, _, ok := c.Get(0, 1); ok {
		t.Fatal("entry survived InvalidateAll")
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Fatalf("Stats after InvalidateAll = (%d, %d), want (1, 2)", hits, misses)
	}
}

func TestClearResetsStats(t *testing.T) {
	c := New(4)
	c.Put(0, 1, "a", OpAdd)
	c.Get(0, 1)
	c.Get(0, 99)

	c.Clear()

	if _, _, ok := c.Get(0, 1); ok {
		t.Fatal("entry survived Clear")
	}
	hits, misses := c.Stats()
	if hits != 0 || misses != 1 {
		t.Fatalf("Stats after Clear = (%d, %d), want (0, 1) accounting for the Get just above", hits, misses)
	}
}
