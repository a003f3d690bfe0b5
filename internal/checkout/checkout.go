package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/miniapp-storefront/internal/cart"
	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/internal/pricing"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
	"github.com/angelmondragon/miniapp-storefront/pkg/metrics"
)

// MsgPaymentLinkMissing is shown when the backend accepts an order without a link.
const MsgPaymentLinkMissing = "Не удалось получить ссылку на оплату."

// SnapshotSource provides the active catalog snapshot.
type SnapshotSource interface {
	Current() *catalog.Snapshot
}

// Params wires a Checkout.
type Params struct {
	Orders   OrderCreator
	Cart     *cart.Store
	Catalog  SnapshotSource
	Identity *contact.Identity
	Logger   *logger.Logger
	Metrics  *metrics.StorefrontMetrics
	Now      func() time.Time
}

// Checkout owns one checkout form and its submission lifecycle:
// idle -> submitting -> idle (failure) or submitted (terminal).
type Checkout struct {
	orders   OrderCreator
	cart     *cart.Store
	catalog  SnapshotSource
	identity *contact.Identity
	logg     *logger.Logger
	metrics  *metrics.StorefrontMetrics
	now      func() time.Time

	mu      sync.Mutex
	state   enums.SubmitState
	form    contact.Form
	lastErr error
	result  *OrderResult
	retired bool
}

// New returns an idle checkout with a fresh form.
func New(params Params) (*Checkout, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	c := &Checkout{
		orders:   params.Orders,
		cart:     params.Cart,
		catalog:  params.Catalog,
		identity: params.Identity,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      params.Now,
		state:    enums.SubmitStateIdle,
		form:     contact.NewForm(params.Identity),
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

func (c *Checkout) State() enums.SubmitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError is the failure of the latest submit attempt, nil after success.
func (c *Checkout) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Checkout) Result() (OrderResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return OrderResult{}, false
	}
	return *c.result, true
}

func (c *Checkout) Form() contact.Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// UpdateForm replaces the form contents. A submitted form is closed for edits.
func (c *Checkout) UpdateForm(form contact.Form) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == enums.SubmitStateSubmitted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already submitted")
	}
	c.form = form
	return nil
}

// Quote prices the current cart for the selected delivery method.
func (c *Checkout) Quote() pricing.Quote {
	snap := c.catalog.Current()
	return pricing.Compute(c.cart.Items(snap), snap, c.Form().DeliveryMethod)
}

// Retire closes the checkout for good unless a submission is in flight. A retired
// checkout rejects Submit.
func (c *Checkout) Retire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == enums.SubmitStateSubmitting {
		return pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	}
	c.retired = true
	return nil
}

// Submit validates the form and places the order. Only one submission may be in
// flight; a submitted checkout rejects any further attempt.
func (c *Checkout) Submit(ctx context.Context) (OrderResult, error) {
	c.mu.Lock()
	if c.retired {
		c.mu.Unlock()
		c.metrics.IncSubmission(metrics.OutcomeRejected)
		return OrderResult{}, pkgerrors.New(pkgerrors.CodeConflict, "checkout was replaced by a new one")
	}
	switch c.state {
	case enums.SubmitStateSubmitting:
		c.mu.Unlock()
		c.metrics.IncSubmission(metrics.OutcomeRejected)
		return OrderResult{}, pkgerrors.New(pkgerrors.CodeConflict, "order submission already in progress")
	case enums.SubmitStateSubmitted:
		c.mu.Unlock()
		c.metrics.IncSubmission(metrics.OutcomeRejected)
		return OrderResult{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order already submitted")
	}
	c.state = enums.SubmitStateSubmitting
	c.lastErr = nil
	form := c.form
	c.mu.Unlock()

	snap := c.catalog.Current()
	if err := contact.Validate(form, c.cart.Count(snap)); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "reason", pkgerrors.UserMessage(err)), "checkout.submit.invalid")
		c.metrics.IncSubmission(metrics.OutcomeValidation)
		return OrderResult{}, c.fail(err)
	}

	submission := Assemble(form, c.cart, snap, c.identity)
	if err := submission.Validate(); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "reason", err.Error()), "checkout.submit.invalid")
		c.metrics.IncSubmission(metrics.OutcomeValidation)
		return OrderResult{}, c.fail(err)
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"items":           len(submission.Items),
		"delivery_method": submission.Delivery.Method.String(),
	})
	c.logg.Info(ctx, "checkout.submit.start")

	start := c.now()
	result, err := c.orders.CreateOrder(ctx, submission)
	c.metrics.ObserveCall("create_order", c.now().Sub(start))
	if err == nil && result.PaymentURL == "" {
		err = pkgerrors.New(pkgerrors.CodeDependency, MsgPaymentLinkMissing)
	}
	if err != nil {
		c.logg.Error(ctx, "checkout.submit.failed", err)
		c.metrics.IncSubmission(metrics.OutcomeTransport)
		return OrderResult{}, c.fail(collaboratorError(err))
	}

	c.mu.Lock()
	c.state = enums.SubmitStateSubmitted
	c.result = &result
	c.mu.Unlock()

	c.metrics.IncSubmission(metrics.OutcomeSuccess)
	c.logg.Info(c.logg.WithField(ctx, "order_id", result.OrderID), "checkout.submit.complete")
	return result, nil
}

func (c *Checkout) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = enums.SubmitStateIdle
	c.lastErr = err
	return err
}

func collaboratorError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
}
