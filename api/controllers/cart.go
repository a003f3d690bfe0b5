package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/angelmondragon/miniapp-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
)

type cartChange struct {
	SKU   string    `json:"sku"`
	Qty   int       `json:"qty"`
	Quote quoteView `json:"quote"`
}

// CartGet prices the session cart against the current catalog.
func CartGet(lang language.Tag, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteView(lang, engine.Quote()))
	}
}

// CartIncrement adds one unit of the sku in the path.
func CartIncrement(lang language.Tag, logg *logger.Logger) http.HandlerFunc {
	return cartStep(lang, logg, true)
}

// CartDecrement removes one unit of the sku in the path, never going below zero.
func CartDecrement(lang language.Tag, logg *logger.Logger) http.HandlerFunc {
	return cartStep(lang, logg, false)
}

func cartStep(lang language.Tag, logg *logger.Logger, up bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sku := strings.TrimSpace(chi.URLParam(r, "sku"))
		if sku == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku is required").WithDetails(map[string]any{"field": "sku"}))
			return
		}
		if up && !engine.Snapshot().Has(sku) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown sku %q", sku)))
			return
		}

		var qty int
		if up {
			qty = engine.Increment(sku)
		} else {
			qty = engine.Decrement(sku)
		}
		responses.WriteSuccess(w, cartChange{SKU: sku, Qty: qty, Quote: newQuoteView(lang, engine.Quote())})
	}
}
