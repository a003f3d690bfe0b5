package checkout

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/miniapp-storefront/internal/cart"
	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
)

type Customer struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Phone string `json:"phone" validate:"required,e164"`
}

type Delivery struct {
	Method      enums.DeliveryMethod `json:"method" validate:"required"`
	PickupPoint string               `json:"pickup_point" validate:"required"`
}

type Line struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty" validate:"min=1"`
}

// Correlation ties an order back to the host platform user.
type Correlation struct {
	ExternalID *int64 `json:"external_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Token      string `json:"-"`
}

// OrderSubmission is the immutable payload handed to the order collaborator.
type OrderSubmission struct {
	Customer Customer     `json:"customer"`
	Delivery Delivery     `json:"delivery"`
	Comment  string       `json:"comment"`
	Items    []Line       `json:"items" validate:"min=1,dive"`
	Identity *Correlation `json:"identity,omitempty"`
}

// OrderResult is what the backend returns for an accepted order.
type OrderResult struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	Amount     int64  `json:"amount"`
}

// OrderCreator places orders with the backend.
type OrderCreator interface {
	CreateOrder(ctx context.Context, submission OrderSubmission) (OrderResult, error)
}

// OrderCreatorFunc adapts a function to OrderCreator.
type OrderCreatorFunc func(ctx context.Context, submission OrderSubmission) (OrderResult, error)

func (fn OrderCreatorFunc) CreateOrder(ctx context.Context, submission OrderSubmission) (OrderResult, error) {
	return fn(ctx, submission)
}

// Assemble builds a submission from the current form, cart and snapshot. It does not
// validate; callers run contact.Validate first.
func Assemble(form contact.Form, c *cart.Store, snap *catalog.Snapshot, identity *contact.Identity) OrderSubmission {
	normalized := form.Normalized()
	items := c.Items(snap)
	lines := make([]Line, len(items))
	for i, item := range items {
		lines[i] = Line{SKU: item.SKU, Qty: item.Qty}
	}
	sub := OrderSubmission{
		Customer: Customer{
			Name:  normalized.Name,
			Email: normalized.Email,
			Phone: normalized.Phone,
		},
		Delivery: Delivery{
			Method:      normalized.DeliveryMethod,
			PickupPoint: normalized.PickupPoint,
		},
		Comment: normalized.Comment,
		Items:   lines,
	}
	if identity != nil {
		sub.Identity = &Correlation{
			ExternalID: identity.ExternalID,
			Username:   identity.Username,
			Token:      identity.CorrelationToken,
		}
	}
	return sub
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate checks the assembled payload shape.
func (s OrderSubmission) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := map[string]string{}
		for _, fe := range fieldErrs {
			details[fe.Namespace()] = fe.Tag()
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order submission").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order submission")
}
