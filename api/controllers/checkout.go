package controllers

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/angelmondragon/miniapp-storefront/api/responses"
	"github.com/angelmondragon/miniapp-storefront/api/validators"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
)

// checkoutFormRequest replaces the whole form. Field content is checked at submit;
// only shape is enforced here.
type checkoutFormRequest struct {
	Name           string `json:"name" validate:"max=200"`
	Email          string `json:"email" validate:"max=254"`
	Phone          string `json:"phone" validate:"max=32"`
	DeliveryMethod string `json:"delivery_method" validate:"required,oneof=cdek ozon wildberries"`
	PickupPoint    string `json:"pickup_point" validate:"max=500"`
	Comment        string `json:"comment" validate:"max=2000"`
}

func (req checkoutFormRequest) form() contact.Form {
	return contact.Form{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		DeliveryMethod: enums.DeliveryMethod(req.DeliveryMethod),
		PickupPoint:    req.PickupPoint,
		Comment:        req.Comment,
	}
}

// CheckoutGet returns the form, submission state and the quote for the current cart.
func CheckoutGet(lang language.Tag, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutView(lang, engine))
	}
}

// CheckoutUpdate replaces the form. With ?normalize_phone=true the phone is rewritten
// to its canonical shape before it is stored, as the client does when the field loses focus.
func CheckoutUpdate(lang language.Tag, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		normalize, err := validators.ParseQueryBool(r, "normalize_phone")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutFormRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form := payload.form()
		if normalize {
			form.Phone = contact.NormalizePhone(strings.TrimSpace(form.Phone))
		}
		if err := engine.UpdateForm(form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutView(lang, engine))
	}
}

// CheckoutSubmit places the order and returns the payment link.
func CheckoutSubmit(lang language.Tag, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := engine.Submit(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(lang, res))
	}
}

// CheckoutReset starts a fresh form for the same cart.
func CheckoutReset(lang language.Tag, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := engine.NewCheckout(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCheckoutView(lang, engine))
	}
}
