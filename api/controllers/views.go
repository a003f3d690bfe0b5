package controllers

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/angelmondragon/miniapp-storefront/api/middleware"
	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/checkout"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/internal/pricing"
	"github.com/angelmondragon/miniapp-storefront/internal/storefront"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/money"
)

func engineFrom(r *http.Request) (*storefront.Engine, error) {
	engine := middleware.EngineFromContext(r.Context())
	if engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session engine unavailable")
	}
	return engine, nil
}

func errorText(err error) *string {
	if err == nil {
		return nil
	}
	msg := pkgerrors.UserMessage(err)
	return &msg
}

type productView struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	PriceDisplay string `json:"price_display"`
	OutOfStock   bool   `json:"out_of_stock"`
	Available    *int   `json:"available,omitempty"`
	Weight       string `json:"weight,omitempty"`
	ShelfLife    string `json:"shelf_life,omitempty"`
	Badge        string `json:"badge,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Description  string `json:"description,omitempty"`
	InCart       int    `json:"in_cart"`
}

type catalogView struct {
	Products     []productView `json:"products"`
	Version      uint64        `json:"version"`
	CatalogError *string       `json:"catalog_error"`
}

func newCatalogView(lang language.Tag, engine *storefront.Engine) catalogView {
	listings := engine.Catalog()
	view := catalogView{
		Products:     make([]productView, 0, len(listings)),
		Version:      engine.Snapshot().Version(),
		CatalogError: errorText(engine.CatalogError()),
	}
	for _, l := range listings {
		view.Products = append(view.Products, newProductView(lang, l, engine.Quantity(l.SKU)))
	}
	return view
}

func newProductView(lang language.Tag, l catalog.Listing, inCart int) productView {
	return productView{
		SKU:          l.SKU,
		Name:         l.Name,
		Price:        l.Price,
		PriceDisplay: money.FormatIn(lang, l.Price),
		OutOfStock:   l.OutOfStock,
		Available:    l.Available,
		Weight:       l.Weight,
		ShelfLife:    l.ShelfLife,
		Badge:        l.Badge,
		ImageURL:     l.ImageURL,
		Description:  l.Description,
		InCart:       inCart,
	}
}

type lineView struct {
	pricing.Line
	LineTotalDisplay string `json:"line_total_display"`
}

type quoteView struct {
	Lines              []lineView           `json:"lines"`
	Count              int                  `json:"count"`
	Subtotal           int64                `json:"subtotal"`
	SubtotalDisplay    string               `json:"subtotal_display"`
	DeliveryMethod     enums.DeliveryMethod `json:"delivery_method"`
	DeliveryFee        int64                `json:"delivery_fee"`
	DeliveryFeeDisplay string               `json:"delivery_fee_display"`
	Total              int64                `json:"total"`
	TotalDisplay       string               `json:"total_display"`
}

func newQuoteView(lang language.Tag, q pricing.Quote) quoteView {
	view := quoteView{
		Lines:              make([]lineView, 0, len(q.Lines)),
		Count:              q.Count,
		Subtotal:           q.Subtotal,
		SubtotalDisplay:    money.FormatIn(lang, q.Subtotal),
		DeliveryMethod:     q.DeliveryMethod,
		DeliveryFee:        q.DeliveryFee,
		DeliveryFeeDisplay: money.FormatIn(lang, q.DeliveryFee),
		Total:              q.Total,
		TotalDisplay:       money.FormatIn(lang, q.Total),
	}
	for _, line := range q.Lines {
		view.Lines = append(view.Lines, lineView{Line: line, LineTotalDisplay: money.FormatIn(lang, line.LineTotal)})
	}
	return view
}

type orderView struct {
	OrderID       string `json:"order_id"`
	PaymentURL    string `json:"payment_url"`
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

func newOrderView(lang language.Tag, res checkout.OrderResult) *orderView {
	return &orderView{
		OrderID:       res.OrderID,
		PaymentURL:    res.PaymentURL,
		Amount:        res.Amount,
		AmountDisplay: money.FormatIn(lang, res.Amount),
	}
}

type checkoutView struct {
	Form            contact.Form           `json:"form"`
	State           enums.SubmitState      `json:"state"`
	Error           *string                `json:"error"`
	Quote           quoteView              `json:"quote"`
	Order           *orderView             `json:"order,omitempty"`
	DeliveryMethods []enums.DeliveryMethod `json:"delivery_methods"`
}

func newCheckoutView(lang language.Tag, engine *storefront.Engine) checkoutView {
	view := checkoutView{
		Form:            engine.Form(),
		State:           engine.CheckoutState(),
		Error:           errorText(engine.CheckoutError()),
		Quote:           newQuoteView(lang, engine.Quote()),
		DeliveryMethods: enums.DeliveryMethods(),
	}
	if res, ok := engine.OrderResult(); ok {
		view.Order = newOrderView(lang, res)
	}
	return view
}
