package pricing

import (
	"github.com/angelmondragon/miniapp-storefront/internal/cart"
	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
)

// MarketplaceDeliveryFee is the flat surcharge for marketplace pickup networks.
const MarketplaceDeliveryFee int64 = 200

// Line is a priced cart line.
type Line struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Qty       int    `json:"qty"`
	LineTotal int64  `json:"line_total"`
}

// Quote is the full price breakdown for a cart.
type Quote struct {
	Lines          []Line               `json:"lines"`
	Count          int                  `json:"count"`
	Subtotal       int64                `json:"subtotal"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	DeliveryFee    int64                `json:"delivery_fee"`
	Total          int64                `json:"total"`
}

func LineTotal(p catalog.Product, qty int) int64 {
	return p.Price * int64(qty)
}

// Subtotal sums line totals over resolved items. Unresolved skus contribute zero.
func Subtotal(items []cart.Item, snap *catalog.Snapshot) int64 {
	var total int64
	for _, item := range items {
		p, ok := snap.Lookup(item.SKU)
		if !ok {
			continue
		}
		total += LineTotal(p, item.Qty)
	}
	return total
}

// DeliveryFee returns the surcharge for method. Unrecognized methods are free.
func DeliveryFee(method enums.DeliveryMethod) int64 {
	switch method {
	case enums.DeliveryMethodOzon, enums.DeliveryMethodWildberries:
		return MarketplaceDeliveryFee
	default:
		return 0
	}
}

// GrandTotal is the subtotal plus the delivery fee for method.
func GrandTotal(subtotal int64, method enums.DeliveryMethod) int64 {
	return subtotal + DeliveryFee(method)
}

// Compute prices items against snap for the given delivery method.
func Compute(items []cart.Item, snap *catalog.Snapshot, method enums.DeliveryMethod) Quote {
	q := Quote{
		Lines:          make([]Line, 0, len(items)),
		DeliveryMethod: method,
		DeliveryFee:    DeliveryFee(method),
	}
	for _, item := range items {
		p, ok := snap.Lookup(item.SKU)
		if !ok {
			continue
		}
		line := Line{
			SKU:       p.SKU,
			Name:      p.Name,
			Price:     p.Price,
			Qty:       item.Qty,
			LineTotal: LineTotal(p, item.Qty),
		}
		q.Lines = append(q.Lines, line)
		q.Count += item.Qty
		q.Subtotal += line.LineTotal
	}
	q.Total = q.Subtotal + q.DeliveryFee
	return q
}
