package catalog

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLanguage is the storefront language used for name collation.
var DefaultLanguage = language.Russian

// Listing is a display-ready product annotated with its availability.
type Listing struct {
	Product
	OutOfStock bool `json:"out_of_stock"`
}

// Visible returns the active products in source order.
func Visible(s *Snapshot) []Product {
	all := s.Products()
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// Sorted derives the storefront listing: active products only, in-stock before
// out-of-stock, then ascending sort key, then name under the collation of tag.
// Products equal on all three keys keep their source order.
func Sorted(s *Snapshot, tag language.Tag) []Listing {
	// collate.Collator keeps internal buffers, so each call gets its own.
	coll := collate.New(tag)
	visible := Visible(s)
	slices.SortStableFunc(visible, func(a, b Product) int {
		return compare(a, b, coll)
	})
	out := make([]Listing, len(visible))
	for i, p := range visible {
		out[i] = Listing{Product: p, OutOfStock: p.OutOfStock()}
	}
	return out
}

type stringComparer interface {
	CompareString(a, b string) int
}

func compare(a, b Product, coll stringComparer) int {
	aOut, bOut := a.OutOfStock(), b.OutOfStock()
	if aOut != bOut {
		if aOut {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(a.Sort, b.Sort); c != 0 {
		return c
	}
	return coll.CompareString(a.Name, b.Name)
}
