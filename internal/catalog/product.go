package catalog

// Product is one catalog entry as published by the backend. SKU is the only join key
// between the catalog and a cart.
type Product struct {
	SKU    string `json:"sku"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Active bool   `json:"active"`
	// Available is nil when the backend does not constrain availability.
	Available *int `json:"available,omitempty"`
	Stock     int  `json:"stock"`
	Sort      int  `json:"sort"`

	Weight      string `json:"weight,omitempty"`
	ShelfLife   string `json:"shelf_life,omitempty"`
	Badge       string `json:"badge,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
}

// OutOfStock reports a defined, non-positive availability.
func (p Product) OutOfStock() bool {
	return p.Available != nil && *p.Available <= 0
}

func (p Product) clone() Product {
	if p.Available != nil {
		v := *p.Available
		p.Available = &v
	}
	return p
}

// IntPtr is a small helper for building products with a defined availability.
func IntPtr(v int) *int {
	return &v
}
