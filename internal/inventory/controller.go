package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
	"github.com/angelmondragon/miniapp-storefront/pkg/metrics"
)

const (
	MsgInvalidCredentials = "Неверный логин или пароль."
	msgBackendUnreachable = "Не удается подключиться к backend (%s)"
)

const (
	opLogin = "login"
	opSave  = "save"
	opSync  = "sync"
)

// CatalogStore is the shared snapshot holder the controller reads and refreshes.
type CatalogStore interface {
	Current() *catalog.Snapshot
	Reload(ctx context.Context) (*catalog.Snapshot, error)
}

// Params wires a Controller.
type Params struct {
	Catalog CatalogStore
	Updater Updater
	Syncer  Syncer
	Logger  *logger.Logger
	Metrics *metrics.StorefrontMetrics
	Now     func() time.Time
}

// Row is one product as shown on the stock editing screen.
type Row struct {
	SKU     string `json:"sku"`
	Name    string `json:"name"`
	Stock   int    `json:"stock"`
	Pending string `json:"pending"`
}

// SaveResult reports what a save sent to the backend.
type SaveResult struct {
	Saved   int      `json:"saved"`
	Coerced []string `json:"coerced,omitempty"`
}

// Controller holds pending stock edits for one admin session and runs save and
// sync against the backend. Each operation admits one call at a time. Only values
// typed since the last own reload are held; every other product shows its current
// stock. Catalog installs by other sessions leave typed values alone.
type Controller struct {
	catalog CatalogStore
	updater Updater
	syncer  Syncer
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics
	now     func() time.Time

	mu    sync.Mutex
	edits map[string]string

	saving  atomic.Bool
	syncing atomic.Bool
}

func NewController(params Params) (*Controller, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	if params.Updater == nil {
		return nil, fmt.Errorf("inventory updater required")
	}
	if params.Syncer == nil {
		return nil, fmt.Errorf("external syncer required")
	}
	c := &Controller{
		catalog: params.Catalog,
		updater: params.Updater,
		syncer:  params.Syncer,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     params.Now,
		edits:   map[string]string{},
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// clearEdits drops the edits that still hold the value seen in sent. Anything typed
// since then is kept.
func (c *Controller) clearEdits(sent map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sku, value := range sent {
		if c.edits[sku] == value {
			delete(c.edits, sku)
		}
	}
}

func (c *Controller) touched() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.edits))
	for k, v := range c.edits {
		out[k] = v
	}
	return out
}

// SetStock records a pending edit. The value is kept as typed until save.
func (c *Controller) SetStock(sku, value string) error {
	if !c.catalog.Current().Has(sku) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown sku %q", sku))
	}
	c.mu.Lock()
	c.edits[sku] = value
	c.mu.Unlock()
	return nil
}

// Stocks returns the pending value of every catalog product.
func (c *Controller) Stocks() map[string]string {
	rows := c.Rows()
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.SKU] = row.Pending
	}
	return out
}

// Rows lists every catalog product with its pending edit, in snapshot order.
func (c *Controller) Rows() []Row {
	snap := c.catalog.Current()
	edits := c.touched()
	products := snap.Products()
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		pending, ok := edits[p.SKU]
		if !ok {
			pending = strconv.Itoa(p.Stock)
		}
		rows = append(rows, Row{SKU: p.SKU, Name: p.Name, Stock: p.Stock, Pending: pending})
	}
	return rows
}

func (c *Controller) Saving() bool  { return c.saving.Load() }
func (c *Controller) Syncing() bool { return c.syncing.Load() }

// Login checks a credential by sending an empty stock batch.
func (c *Controller) Login(ctx context.Context, credential string) error {
	start := c.now()
	err := c.updater.UpdateInventory(ctx, credential, []Record{})
	c.metrics.ObserveCall("update_inventory", c.now().Sub(start))
	if err == nil {
		c.metrics.IncInventoryOp(opLogin, metrics.OutcomeSuccess)
		c.logg.Info(ctx, "inventory.login.complete")
		return nil
	}
	if isAuthFailure(err) {
		c.metrics.IncInventoryOp(opLogin, metrics.OutcomeUnauthorized)
		c.logg.Warn(ctx, "inventory.login.unauthorized")
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, MsgInvalidCredentials)
	}
	c.metrics.IncInventoryOp(opLogin, metrics.OutcomeTransport)
	c.logg.Error(ctx, "inventory.login.failed", err)
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf(msgBackendUnreachable, pkgerrors.UserMessage(err)))
}

// Save sends one record per catalog product and reloads the catalog on success.
// Values are never applied locally.
func (c *Controller) Save(ctx context.Context, credential string) (SaveResult, error) {
	if !c.saving.CompareAndSwap(false, true) {
		c.metrics.IncInventoryOp(opSave, metrics.OutcomeRejected)
		return SaveResult{}, pkgerrors.New(pkgerrors.CodeConflict, "inventory save already in progress")
	}
	defer c.saving.Store(false)

	sent := c.touched()
	records, coerced := BuildRecords(c.catalog.Current(), sent)
	ctx = c.logg.WithField(ctx, "records", len(records))
	if len(coerced) > 0 {
		c.logg.Warn(c.logg.WithField(ctx, "skus", coerced), "inventory.save.coerced")
	}

	start := c.now()
	err := c.updater.UpdateInventory(ctx, credential, records)
	c.metrics.ObserveCall("update_inventory", c.now().Sub(start))
	if err != nil {
		return SaveResult{}, c.failure(ctx, opSave, err)
	}

	c.metrics.IncInventoryOp(opSave, metrics.OutcomeSuccess)
	c.logg.Info(ctx, "inventory.save.complete")
	c.reload(ctx, sent)
	return SaveResult{Saved: len(records), Coerced: coerced}, nil
}

// Sync asks the backend to pull from the external source, then reloads the catalog.
// The counts are informational only.
func (c *Controller) Sync(ctx context.Context, credential string) (SyncResult, error) {
	if !c.syncing.CompareAndSwap(false, true) {
		c.metrics.IncInventoryOp(opSync, metrics.OutcomeRejected)
		return SyncResult{}, pkgerrors.New(pkgerrors.CodeConflict, "inventory sync already in progress")
	}
	defer c.syncing.Store(false)

	seen := c.touched()
	start := c.now()
	result, err := c.syncer.SyncExternalSource(ctx, credential)
	c.metrics.ObserveCall("sync_external_source", c.now().Sub(start))
	if err != nil {
		return SyncResult{}, c.failure(ctx, opSync, err)
	}

	c.metrics.IncInventoryOp(opSync, metrics.OutcomeSuccess)
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	}), "inventory.sync.complete")
	c.reload(ctx, seen)
	return result, nil
}

// reload fetches the catalog after a write and reseeds the edits in seen from it.
// A failure here does not undo the write; the store keeps the error for display and
// the edits stay.
func (c *Controller) reload(ctx context.Context, seen map[string]string) {
	if _, err := c.catalog.Reload(ctx); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "inventory.reload.failed")
		return
	}
	c.clearEdits(seen)
}

func (c *Controller) failure(ctx context.Context, op string, err error) error {
	if isAuthFailure(err) {
		c.metrics.IncInventoryOp(op, metrics.OutcomeUnauthorized)
		c.logg.Warn(ctx, "inventory."+op+".unauthorized")
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, MsgInvalidCredentials)
	}
	c.metrics.IncInventoryOp(op, metrics.OutcomeTransport)
	c.logg.Error(ctx, "inventory."+op+".failed", err)
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
}

func isAuthFailure(err error) bool {
	if pkgerrors.IsAuthorization(err) {
		return true
	}
	return pkgerrors.As(err) == nil && strings.Contains(err.Error(), "Invalid credentials")
}
