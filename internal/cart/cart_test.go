package cart

import (
	"sync"
	"testing"

	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
)

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Product{
		{SKU: "A", Name: "a", Price: 100, Active: true},
		{SKU: "B", Name: "b", Price: 50, Active: true},
	})
}

func TestDecrementNeverGoesNegative(t *testing.T) {
	t.Parallel()

	for _, start := range []int{0, 1} {
		s := NewStore()
		for i := 0; i < start; i++ {
			s.Increment("A")
		}
		s.Decrement("A")
		s.Decrement("A")
		if got := s.Quantity("A"); got != 0 {
			t.Fatalf("start %d: expected 0 got %d", start, got)
		}
		if items := s.Items(testSnapshot()); len(items) != 0 {
			t.Fatalf("start %d: expected no items got %+v", start, items)
		}
	}
}

func TestIncrementCreatesEntry(t *testing.T) {
	t.Parallel()

	s := NewStore()
	if got := s.Increment("A"); got != 1 {
		t.Fatalf("expected 1 got %d", got)
	}
	if got := s.Increment("A"); got != 2 {
		t.Fatalf("expected 2 got %d", got)
	}
}

func TestItemsExcludesUnknownSKU(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Increment("GONE")
	s.Increment("A")

	items := s.Items(testSnapshot())
	if len(items) != 1 || items[0].SKU != "A" {
		t.Fatalf("expected only A, got %+v", items)
	}
	if s.Quantity("GONE") != 1 {
		t.Fatal("stale sku should remain stored")
	}
}

func TestItemsKeepsFirstAddedOrder(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Increment("B")
	s.Increment("A")
	s.Increment("A")
	s.Decrement("B")
	s.Increment("B")

	items := s.Items(testSnapshot())
	want := []Item{{SKU: "B", Qty: 1}, {SKU: "A", Qty: 2}}
	if len(items) != len(want) {
		t.Fatalf("unexpected items %+v", items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("item %d: expected %+v got %+v", i, want[i], items[i])
		}
	}
}

func TestCountSumsResolvedQuantities(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Increment("A")
	s.Increment("A")
	s.Increment("B")
	s.Increment("GONE")

	if got := s.Count(testSnapshot()); got != 3 {
		t.Fatalf("expected 3 got %d", got)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Increment("A")
	s.Clear()
	if s.Count(testSnapshot()) != 0 || s.Quantity("A") != 0 {
		t.Fatal("expected empty cart after clear")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	t.Parallel()

	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increment("A")
		}()
	}
	wg.Wait()
	if got := s.Quantity("A"); got != 50 {
		t.Fatalf("expected 50 got %d", got)
	}
}
