package cart

import (
	"sync"

	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
)

// Item is one resolved cart line.
type Item struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

// Store maps sku to quantity for a single session. Zero and absent are equivalent;
// entries are never removed so insertion order survives a round trip through zero.
type Store struct {
	mu    sync.Mutex
	order []string
	qty   map[string]int
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{qty: map[string]int{}}
}

// Increment adds one unit of sku. It does not check the catalog.
func (s *Store) Increment(sku string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.qty[sku]; !ok {
		s.order = append(s.order, sku)
	}
	s.qty[sku]++
	return s.qty[sku]
}

// Decrement removes one unit of sku, flooring at zero.
func (s *Store) Decrement(sku string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.qty[sku]
	if !ok {
		return 0
	}
	if current > 0 {
		current--
	}
	s.qty[sku] = current
	return current
}

// Quantity returns the raw stored quantity for sku.
func (s *Store) Quantity(sku string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qty[sku]
}

// Items derives the resolved lines against snap, in first-added order.
// Unknown skus and zero quantities are dropped.
func (s *Store) Items(snap *catalog.Snapshot) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, 0, len(s.order))
	for _, sku := range s.order {
		qty := s.qty[sku]
		if qty <= 0 || !snap.Has(sku) {
			continue
		}
		items = append(items, Item{SKU: sku, Qty: qty})
	}
	return items
}

// Count sums the resolved quantities.
func (s *Store) Count(snap *catalog.Snapshot) int {
	total := 0
	for _, item := range s.Items(snap) {
		total += item.Qty
	}
	return total
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.qty = map[string]int{}
}
