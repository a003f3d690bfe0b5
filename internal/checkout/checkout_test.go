package checkout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/miniapp-storefront/internal/cart"
	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
)

type staticSource struct {
	snap *catalog.Snapshot
}

func (s staticSource) Current() *catalog.Snapshot { return s.snap }

type stubOrders struct {
	calls  atomic.Int32
	last   OrderSubmission
	result OrderResult
	err    error
	block  chan struct{}
}

func (s *stubOrders) CreateOrder(ctx context.Context, sub OrderSubmission) (OrderResult, error) {
	s.calls.Add(1)
	s.last = sub
	if s.block != nil {
		<-s.block
	}
	return s.result, s.err
}

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Product{
		{SKU: "A", Name: "a", Price: 100, Active: true},
		{SKU: "B", Name: "b", Price: 50, Active: true},
	})
}

func validForm() contact.Form {
	return contact.Form{
		Name:           " Анна ",
		Email:          "anna@example.com ",
		Phone:          "8 (900) 123-45-67",
		DeliveryMethod: enums.DeliveryMethodOzon,
		PickupPoint:    " ПВЗ 12 ",
		Comment:        " позвонить ",
	}
}

func newTestCheckout(t *testing.T, orders *stubOrders, identity *contact.Identity) (*Checkout, *cart.Store) {
	t.Helper()
	c := cart.NewStore()
	co, err := New(Params{
		Orders:   orders,
		Cart:     c,
		Catalog:  staticSource{snap: testSnapshot()},
		Identity: identity,
	})
	if err != nil {
		t.Fatalf("new checkout: %v", err)
	}
	return co, c
}

func TestSubmitEmptyCartMakesNoCalls(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{result: OrderResult{PaymentURL: "https://pay"}}
	co, _ := newTestCheckout(t, orders, nil)
	if err := co.UpdateForm(validForm()); err != nil {
		t.Fatalf("update form: %v", err)
	}

	_, err := co.Submit(context.Background())
	if !pkgerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if pkgerrors.UserMessage(err) != contact.MsgCartEmpty {
		t.Fatalf("unexpected message %q", pkgerrors.UserMessage(err))
	}
	if orders.calls.Load() != 0 {
		t.Fatalf("expected zero collaborator calls, got %d", orders.calls.Load())
	}
	if co.State() != enums.SubmitStateIdle {
		t.Fatalf("expected idle after validation failure, got %s", co.State())
	}
	if co.LastError() == nil {
		t.Fatal("expected last error to be kept for display")
	}
}

func TestSubmitCartOfUnknownSkusIsEmpty(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{result: OrderResult{PaymentURL: "https://pay"}}
	co, c := newTestCheckout(t, orders, nil)
	_ = co.UpdateForm(validForm())
	c.Increment("GONE")

	if _, err := co.Submit(context.Background()); !pkgerrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if orders.calls.Load() != 0 {
		t.Fatal("unexpected collaborator call")
	}
}

func TestSubmitSuccessAssemblesNormalizedPayload(t *testing.T) {
	t.Parallel()

	id := int64(42)
	orders := &stubOrders{result: OrderResult{OrderID: "o-1", PaymentURL: "https://pay/o-1", Amount: 450}}
	co, c := newTestCheckout(t, orders, &contact.Identity{DisplayName: "Анна", ExternalID: &id, Username: "anna", CorrelationToken: "query_id=1"})
	if co.Form().Name != "Анна" {
		t.Fatalf("expected name prefill, got %q", co.Form().Name)
	}
	_ = co.UpdateForm(validForm())
	c.Increment("A")
	c.Increment("A")
	c.Increment("GONE")
	c.Increment("B")

	res, err := co.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.PaymentURL != "https://pay/o-1" || res.OrderID != "o-1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if co.State() != enums.SubmitStateSubmitted {
		t.Fatalf("expected submitted state, got %s", co.State())
	}
	if got, ok := co.Result(); !ok || got != res {
		t.Fatalf("result not recorded: %+v", got)
	}

	sub := orders.last
	if sub.Customer != (Customer{Name: "Анна", Email: "anna@example.com", Phone: "+79001234567"}) {
		t.Fatalf("unexpected customer %+v", sub.Customer)
	}
	if sub.Delivery != (Delivery{Method: enums.DeliveryMethodOzon, PickupPoint: "ПВЗ 12"}) {
		t.Fatalf("unexpected delivery %+v", sub.Delivery)
	}
	if sub.Comment != "позвонить" {
		t.Fatalf("unexpected comment %q", sub.Comment)
	}
	if len(sub.Items) != 2 || sub.Items[0] != (Line{SKU: "A", Qty: 2}) || sub.Items[1] != (Line{SKU: "B", Qty: 1}) {
		t.Fatalf("unexpected items %+v", sub.Items)
	}
	if sub.Identity == nil || *sub.Identity.ExternalID != 42 || sub.Identity.Username != "anna" || sub.Identity.Token != "query_id=1" {
		t.Fatalf("unexpected correlation %+v", sub.Identity)
	}
	if q := co.Quote(); q.Total != 450 {
		t.Fatalf("expected quote total 450, got %d", q.Total)
	}
}

func TestSubmitAfterSuccessIsStateConflict(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{result: OrderResult{PaymentURL: "https://pay"}}
	co, c := newTestCheckout(t, orders, nil)
	_ = co.UpdateForm(validForm())
	c.Increment("A")
	if _, err := co.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := co.Submit(context.Background())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if err := co.UpdateForm(validForm()); pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected form to be closed, got %v", err)
	}
	if orders.calls.Load() != 1 {
		t.Fatalf("expected a single order, got %d", orders.calls.Load())
	}
}

func TestSubmitWhileSubmittingIsRejected(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{result: OrderResult{PaymentURL: "https://pay"}, block: make(chan struct{})}
	co, c := newTestCheckout(t, orders, nil)
	_ = co.UpdateForm(validForm())
	c.Increment("A")

	done := make(chan error, 1)
	go func() {
		_, err := co.Submit(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for co.State() != enums.SubmitStateSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("first submission never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := co.Submit(context.Background())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	close(orders.block)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if orders.calls.Load() != 1 {
		t.Fatalf("expected one collaborator call, got %d", orders.calls.Load())
	}
}

func TestRetiredCheckoutRejectsSubmit(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{result: OrderResult{PaymentURL: "https://pay"}}
	co, c := newTestCheckout(t, orders, nil)
	_ = co.UpdateForm(validForm())
	c.Increment("A")

	if err := co.Retire(); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if _, err := co.Submit(context.Background()); pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if orders.calls.Load() != 0 {
		t.Fatalf("retired checkout must not place orders, got %d calls", orders.calls.Load())
	}
}

func TestRetireRefusedWhileSubmitting(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{result: OrderResult{PaymentURL: "https://pay"}, block: make(chan struct{})}
	co, c := newTestCheckout(t, orders, nil)
	_ = co.UpdateForm(validForm())
	c.Increment("A")

	done := make(chan error, 1)
	go func() {
		_, err := co.Submit(context.Background())
		done <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for co.State() != enums.SubmitStateSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("submission never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := co.Retire(); pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	close(orders.block)
	if err := <-done; err != nil {
		t.Fatalf("submission: %v", err)
	}
	if _, ok := co.Result(); !ok {
		t.Fatal("in-flight submission must keep its result")
	}
}

func TestSubmitCollaboratorFailureSurfacesVerbatim(t *testing.T) {
	t.Parallel()

	body := `{"detail":"Unknown sku: A"}`
	orders := &stubOrders{err: pkgerrors.New(pkgerrors.CodeOrderRejected, body)}
	co, c := newTestCheckout(t, orders, nil)
	_ = co.UpdateForm(validForm())
	c.Increment("A")

	_, err := co.Submit(context.Background())
	if pkgerrors.UserMessage(err) != body {
		t.Fatalf("expected verbatim message, got %q", pkgerrors.UserMessage(err))
	}
	if co.State() != enums.SubmitStateIdle {
		t.Fatalf("expected idle after failure, got %s", co.State())
	}
	if c.Quantity("A") != 1 {
		t.Fatal("cart must be left intact")
	}
	if co.Form().PickupPoint != validForm().PickupPoint {
		t.Fatal("form must be left intact")
	}

	orders.err = nil
	orders.result = OrderResult{PaymentURL: "https://pay"}
	if _, err := co.Submit(context.Background()); err != nil {
		t.Fatalf("manual retry should succeed: %v", err)
	}
}

func TestSubmitUntypedFailureIsDependencyError(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{err: errors.New("dial tcp: connection refused")}
	co, c := newTestCheckout(t, orders, nil)
	_ = co.UpdateForm(validForm())
	c.Increment("A")

	_, err := co.Submit(context.Background())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if pkgerrors.UserMessage(err) != "dial tcp: connection refused" {
		t.Fatalf("unexpected message %q", pkgerrors.UserMessage(err))
	}
}

func TestSubmitMissingPaymentLinkFails(t *testing.T) {
	t.Parallel()

	orders := &stubOrders{result: OrderResult{OrderID: "o-1"}}
	co, c := newTestCheckout(t, orders, nil)
	_ = co.UpdateForm(validForm())
	c.Increment("A")

	_, err := co.Submit(context.Background())
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency || pkgerrors.UserMessage(err) != MsgPaymentLinkMissing {
		t.Fatalf("unexpected error %v", err)
	}
	if co.State() != enums.SubmitStateIdle {
		t.Fatalf("expected idle, got %s", co.State())
	}
}

func TestSubmissionValidateRejectsBadShape(t *testing.T) {
	t.Parallel()

	sub := OrderSubmission{
		Customer: Customer{Name: "a", Email: "b", Phone: "12345"},
		Delivery: Delivery{Method: enums.DeliveryMethodCDEK, PickupPoint: "p"},
		Items:    []Line{{SKU: "A", Qty: 0}},
	}
	err := sub.Validate()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]string)
	if details["OrderSubmission.customer.phone"] != "e164" {
		t.Fatalf("expected phone detail, got %v", details)
	}
	if details["OrderSubmission.items[0].qty"] != "min" {
		t.Fatalf("expected qty detail, got %v", details)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(Params{Cart: cart.NewStore(), Catalog: staticSource{}}); err == nil {
		t.Fatal("expected error without order creator")
	}
	if _, err := New(Params{Orders: &stubOrders{}, Catalog: staticSource{}}); err == nil {
		t.Fatal("expected error without cart")
	}
	if _, err := New(Params{Orders: &stubOrders{}, Cart: cart.NewStore()}); err == nil {
		t.Fatal("expected error without catalog")
	}
}
