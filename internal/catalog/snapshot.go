package catalog

import "time"

// Snapshot is an immutable copy of the catalog taken at one point in time.
// A nil *Snapshot behaves as an empty catalog.
type Snapshot struct {
	products  []Product
	bySKU     map[string]int
	version   uint64
	fetchedAt time.Time
}

// NewSnapshot copies products so later mutation of the input cannot leak in.
// When SKUs repeat, lookups resolve to the last occurrence.
func NewSnapshot(products []Product) *Snapshot {
	return newSnapshot(products, 0, time.Time{})
}

func newSnapshot(products []Product, version uint64, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		products:  make([]Product, len(products)),
		bySKU:     make(map[string]int, len(products)),
		version:   version,
		fetchedAt: fetchedAt,
	}
	for i, p := range products {
		s.products[i] = p.clone()
		s.bySKU[p.SKU] = i
	}
	return s
}

// Products returns every product in source order, including inactive ones.
func (s *Snapshot) Products() []Product {
	if s == nil {
		return nil
	}
	out := make([]Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.clone()
	}
	return out
}

// Lookup resolves a SKU against the snapshot.
func (s *Snapshot) Lookup(sku string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	idx, ok := s.bySKU[sku]
	if !ok {
		return Product{}, false
	}
	return s.products[idx].clone(), true
}

// Has reports whether the SKU resolves.
func (s *Snapshot) Has(sku string) bool {
	if s == nil {
		return false
	}
	_, ok := s.bySKU[sku]
	return ok
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.products)
}

// Version increases with every snapshot installed by a Store. Zero for ad-hoc snapshots.
func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}
