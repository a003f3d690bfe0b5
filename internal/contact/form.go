package contact

import (
	"strings"

	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
)

// Identity is what the host platform tells us about the current user. Every field
// is optional.
type Identity struct {
	DisplayName      string
	ExternalID       *int64
	Username         string
	CorrelationToken string
}

// IdentityProvider is read once per session.
type IdentityProvider interface {
	Identity() (*Identity, bool)
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc func() (*Identity, bool)

func (fn IdentityFunc) Identity() (*Identity, bool) {
	return fn()
}

// Form is the customer detail form filled in at checkout.
type Form struct {
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	Phone          string               `json:"phone"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	PickupPoint    string               `json:"pickup_point"`
	Comment        string               `json:"comment"`
}

// NewForm returns an empty form with the name pre-filled from identity when known.
func NewForm(identity *Identity) Form {
	form := Form{DeliveryMethod: enums.DefaultDeliveryMethod}
	if identity != nil {
		form.Name = identity.DisplayName
	}
	return form
}

// Field names reported in validation error details.
const (
	FieldCart        = "cart"
	FieldName        = "name"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldPickupPoint = "pickup_point"
)

const (
	MsgCartEmpty     = "Корзина пустая."
	MsgNameRequired  = "Введите имя."
	MsgEmailRequired = "Введите email."
	MsgPhoneRequired = "Введите телефон."
	MsgPhoneInvalid  = "Введите телефон в формате +7 900 000-00-00."
	MsgPickupPoint   = "Укажите пункт выдачи."
)

func invalid(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field": field})
}

// Validate checks the form in a fixed order and reports only the first problem.
// Email is checked for presence only.
func Validate(form Form, itemCount int) error {
	phone := strings.TrimSpace(form.Phone)
	switch {
	case itemCount <= 0:
		return invalid(FieldCart, MsgCartEmpty)
	case strings.TrimSpace(form.Name) == "":
		return invalid(FieldName, MsgNameRequired)
	case strings.TrimSpace(form.Email) == "":
		return invalid(FieldEmail, MsgEmailRequired)
	case phone == "":
		return invalid(FieldPhone, MsgPhoneRequired)
	case !IsValidPhone(phone):
		return invalid(FieldPhone, MsgPhoneInvalid)
	case strings.TrimSpace(form.PickupPoint) == "":
		return invalid(FieldPickupPoint, MsgPickupPoint)
	}
	return nil
}

// Normalized returns the trimmed form with the phone in canonical shape.
func (f Form) Normalized() Form {
	return Form{
		Name:           strings.TrimSpace(f.Name),
		Email:          strings.TrimSpace(f.Email),
		Phone:          NormalizePhone(strings.TrimSpace(f.Phone)),
		DeliveryMethod: f.DeliveryMethod,
		PickupPoint:    strings.TrimSpace(f.PickupPoint),
		Comment:        strings.TrimSpace(f.Comment),
	}
}
