package backend

import (
	"bytes"
	"encoding/json"

	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/checkout"
)

// activeFlag accepts true/false, 0/1 or absence. Anything but an explicit
// false or 0 counts as active.
type activeFlag struct {
	set   bool
	value bool
}

func (a *activeFlag) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	a.set = true
	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		a.value = b
		return nil
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		a.value = n != 0
		return nil
	}
	a.value = true
	return nil
}

func (a activeFlag) active() bool {
	return !a.set || a.value
}

type productPayload struct {
	SKU         string     `json:"sku"`
	Name        string     `json:"name"`
	Price       int64      `json:"price"`
	Active      activeFlag `json:"active"`
	Available   *int       `json:"available"`
	Stock       *int       `json:"stock"`
	Sort        *int       `json:"sort"`
	Weight      string     `json:"weight"`
	ShelfLife   string     `json:"shelfLife"`
	Badge       string     `json:"badge"`
	ImageURL    string     `json:"imageUrl"`
	Description string     `json:"description"`
}

func (p productPayload) toProduct() catalog.Product {
	product := catalog.Product{
		SKU:         p.SKU,
		Name:        p.Name,
		Price:       p.Price,
		Active:      p.Active.active(),
		Available:   p.Available,
		Weight:      p.Weight,
		ShelfLife:   p.ShelfLife,
		Badge:       p.Badge,
		ImageURL:    p.ImageURL,
		Description: p.Description,
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.Sort != nil {
		product.Sort = *p.Sort
	}
	return product
}

type orderCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type orderDelivery struct {
	Method      string `json:"method"`
	PickupPoint string `json:"pickup_point"`
}

type orderItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type orderPayload struct {
	InitData         string        `json:"initData"`
	TelegramID       *int64        `json:"telegram_id"`
	TelegramUsername *string       `json:"telegram_username"`
	Customer         orderCustomer `json:"customer"`
	Delivery         orderDelivery `json:"delivery"`
	Comment          string        `json:"comment"`
	Items            []orderItem   `json:"items"`
}

func newOrderPayload(sub checkout.OrderSubmission) orderPayload {
	payload := orderPayload{
		Customer: orderCustomer{
			Name:  sub.Customer.Name,
			Email: sub.Customer.Email,
			Phone: sub.Customer.Phone,
		},
		Delivery: orderDelivery{
			Method:      sub.Delivery.Method.String(),
			PickupPoint: sub.Delivery.PickupPoint,
		},
		Comment: sub.Comment,
		Items:   make([]orderItem, len(sub.Items)),
	}
	for i, line := range sub.Items {
		payload.Items[i] = orderItem{SKU: line.SKU, Qty: line.Qty}
	}
	if id := sub.Identity; id != nil {
		payload.InitData = id.Token
		payload.TelegramID = id.ExternalID
		if id.Username != "" {
			username := id.Username
			payload.TelegramUsername = &username
		}
	}
	return payload
}
