package storefront

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/text/language"

	"github.com/angelmondragon/miniapp-storefront/internal/cart"
	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/checkout"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/internal/inventory"
	"github.com/angelmondragon/miniapp-storefront/internal/pricing"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
	"github.com/angelmondragon/miniapp-storefront/pkg/metrics"
)

// Params wires an Engine. Mode is required; every collaborator is required
// regardless of mode.
type Params struct {
	Mode      enums.Mode
	Catalog   *catalog.Store
	Orders    checkout.OrderCreator
	Inventory interface {
		inventory.Updater
		inventory.Syncer
	}
	Identity contact.IdentityProvider
	Language language.Tag
	Logger   *logger.Logger
	Metrics  *metrics.StorefrontMetrics
}

// Engine is one user session: a cart, the current checkout form and the admin
// stock editor, all reading the shared catalog store.
type Engine struct {
	mode     enums.Mode
	catalog  *catalog.Store
	orders   checkout.OrderCreator
	identity *contact.Identity
	lang     language.Tag
	logg     *logger.Logger
	metrics  *metrics.StorefrontMetrics

	cart *cart.Store

	inventoryParams inventory.Params
	inventoryOnce   sync.Once
	inventory       *inventory.Controller

	mu       sync.Mutex
	checkout *checkout.Checkout
}

func New(params Params) (*Engine, error) {
	if !params.Mode.IsValid() {
		return nil, fmt.Errorf("invalid engine mode %q", params.Mode)
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory collaborator required")
	}
	e := &Engine{
		mode:    params.Mode,
		catalog: params.Catalog,
		orders:  params.Orders,
		lang:    params.Language,
		logg:    params.Logger,
		metrics: params.Metrics,
		cart:    cart.NewStore(),
	}
	if e.logg == nil {
		e.logg = logger.Nop()
	}
	if e.lang == language.Und {
		e.lang = catalog.DefaultLanguage
	}
	if params.Identity != nil {
		if identity, ok := params.Identity.Identity(); ok {
			e.identity = identity
		}
	}

	e.inventoryParams = inventory.Params{
		Catalog: params.Catalog,
		Updater: params.Inventory,
		Syncer:  params.Inventory,
		Logger:  e.logg,
		Metrics: e.metrics,
	}

	co, err := e.newCheckout()
	if err != nil {
		return nil, err
	}
	e.checkout = co
	return e, nil
}

func (e *Engine) newCheckout() (*checkout.Checkout, error) {
	return checkout.New(checkout.Params{
		Orders:   e.orders,
		Cart:     e.cart,
		Catalog:  e.catalog,
		Identity: e.identity,
		Logger:   e.logg,
		Metrics:  e.metrics,
	})
}

func (e *Engine) Mode() enums.Mode { return e.mode }

// Identity is the host identity read at construction, nil when absent.
func (e *Engine) Identity() *contact.Identity { return e.identity }

// Catalog returns the storefront listing derived from the current snapshot.
func (e *Engine) Catalog() []catalog.Listing {
	return catalog.Sorted(e.catalog.Current(), e.lang)
}

// CatalogError is the failure of the latest catalog refresh, nil when healthy.
func (e *Engine) CatalogError() error {
	return e.catalog.LastError()
}

func (e *Engine) RefreshCatalog(ctx context.Context) error {
	_, err := e.catalog.Refresh(ctx)
	return err
}

// Snapshot exposes the active catalog snapshot.
func (e *Engine) Snapshot() *catalog.Snapshot {
	return e.catalog.Current()
}

func (e *Engine) Increment(sku string) int { return e.cart.Increment(sku) }
func (e *Engine) Decrement(sku string) int { return e.cart.Decrement(sku) }

// Items are the resolved cart lines against the current snapshot.
func (e *Engine) Items() []cart.Item {
	return e.cart.Items(e.catalog.Current())
}

func (e *Engine) Quantity(sku string) int { return e.cart.Quantity(sku) }

func (e *Engine) currentCheckout() *checkout.Checkout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkout
}

func (e *Engine) Quote() pricing.Quote { return e.currentCheckout().Quote() }

func (e *Engine) Form() contact.Form { return e.currentCheckout().Form() }

func (e *Engine) UpdateForm(form contact.Form) error {
	return e.currentCheckout().UpdateForm(form)
}

// Submit places the order of the current checkout. A checkout replaced by NewCheckout
// before its submission started rejects it.
func (e *Engine) Submit(ctx context.Context) (checkout.OrderResult, error) {
	ctx = e.logg.WithMode(ctx, e.mode.String())
	return e.currentCheckout().Submit(ctx)
}

func (e *Engine) CheckoutState() enums.SubmitState { return e.currentCheckout().State() }

// CheckoutError is the message of the latest failed submission.
func (e *Engine) CheckoutError() error { return e.currentCheckout().LastError() }

func (e *Engine) OrderResult() (checkout.OrderResult, bool) { return e.currentCheckout().Result() }

// NewCheckout starts a fresh form. It is refused while a submission is in flight.
func (e *Engine) NewCheckout() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	co, err := e.newCheckout()
	if err != nil {
		return err
	}
	if err := e.checkout.Retire(); err != nil {
		return err
	}
	e.checkout = co
	return nil
}

// Inventory is the admin stock editor for this session, built on first use.
func (e *Engine) Inventory() *inventory.Controller {
	e.inventoryOnce.Do(func() {
		ctrl, err := inventory.NewController(e.inventoryParams)
		if err != nil {
			// New checks every collaborator the controller needs.
			panic(fmt.Sprintf("storefront: build inventory controller: %v", err))
		}
		e.mu.Lock()
		e.inventory = ctrl
		e.mu.Unlock()
	})
	return e.inventory
}

func (e *Engine) inventoryBuilt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inventory != nil
}
