package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/checkout"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/internal/inventory"
	"github.com/angelmondragon/miniapp-storefront/internal/storefront"
	"github.com/angelmondragon/miniapp-storefront/pkg/config"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
	"github.com/angelmondragon/miniapp-storefront/pkg/metrics"
)

const goodCredential = "YWRtaW46cGFzcw=="

type fakeBackend struct {
	mu       sync.Mutex
	products []catalog.Product
	orders   []checkout.OrderSubmission
	updates  [][]inventory.Record
}

func (f *fakeBackend) FetchCatalog(ctx context.Context) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Product(nil), f.products...), nil
}

func (f *fakeBackend) CreateOrder(ctx context.Context, sub checkout.OrderSubmission) (checkout.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, sub)
	return checkout.OrderResult{OrderID: "o-1", PaymentURL: "https://pay.test/o-1", Amount: 450}, nil
}

func (f *fakeBackend) UpdateInventory(ctx context.Context, credential string, records []inventory.Record) error {
	if credential != goodCredential {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, `{"detail":"Invalid credentials"}`)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, records)
	for _, rec := range records {
		for i := range f.products {
			if f.products[i].SKU == rec.SKU {
				f.products[i].Stock = rec.Stock
			}
		}
	}
	return nil
}

func (f *fakeBackend) SyncExternalSource(ctx context.Context, credential string) (inventory.SyncResult, error) {
	if credential != goodCredential {
		return inventory.SyncResult{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid credentials")
	}
	return inventory.SyncResult{Created: 1, Updated: 2}, nil
}

type testServer struct {
	handler  http.Handler
	backend  *fakeBackend
	registry *storefront.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backend := &fakeBackend{products: []catalog.Product{
		{SKU: "A", Name: "Банан", Price: 100, Active: true, Stock: 2},
		{SKU: "B", Name: "Апельсин", Price: 50, Active: true, Stock: 4},
		{SKU: "H", Name: "Скрытый", Price: 10, Active: false},
		{SKU: "Z", Name: "Абрикос", Price: 10, Active: true, Available: catalog.IntPtr(0)},
	}}

	reg := prometheus.NewRegistry()
	m := metrics.NewStorefrontMetrics(reg)
	logg := logger.Nop()

	store, err := catalog.NewStore(catalog.StoreParams{Fetcher: backend, Logger: logg, Metrics: m})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	registry, err := storefront.NewRegistry(func(mode enums.Mode, identity contact.IdentityProvider) (*storefront.Engine, error) {
		return storefront.New(storefront.Params{
			Mode:      mode,
			Catalog:   store,
			Orders:    backend,
			Inventory: backend,
			Identity:  identity,
			Logger:    logg,
			Metrics:   m,
		})
	}, logg, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(registry.Close)

	cfg := &config.Config{
		App:            config.AppConfig{Env: config.AppEnvDev, Locale: "ru"},
		Checkout:       config.CheckoutConfig{SubmitLimit: 5, SubmitWindow: time.Minute},
		AdminRateLimit: config.AdminRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 10, LoginCredentialLimit: 5},
	}
	handler := NewRouter(cfg, logg, registry, store, nil, "http://shop.test", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &testServer{handler: handler, backend: backend, registry: registry}
}

type call struct {
	method  string
	path    string
	session string
	auth    string
	body    string
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.session != "" {
		req.Header.Set("X-Session-Id", c.session)
	}
	if c.auth != "" {
		req.Header.Set("Authorization", "Basic "+c.auth)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
}

type apiError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var envelope struct {
		Error apiError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error %s: %v", rec.Body.String(), err)
	}
	return envelope.Error
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		if rec := srv.do(t, call{method: http.MethodGet, path: path}); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCatalogListing(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, call{method: http.MethodGet, path: "/api/v1/catalog"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Session-Id") == "" {
		t.Fatal("expected a session id to be issued")
	}

	var view struct {
		Products []struct {
			SKU          string `json:"sku"`
			PriceDisplay string `json:"price_display"`
			OutOfStock   bool   `json:"out_of_stock"`
		} `json:"products"`
		CatalogError *string `json:"catalog_error"`
	}
	decodeData(t, rec, &view)
	var skus []string
	for _, p := range view.Products {
		skus = append(skus, p.SKU)
	}
	if strings.Join(skus, ",") != "B,A,Z" {
		t.Fatalf("unexpected order %v", skus)
	}
	if !view.Products[2].OutOfStock || view.CatalogError != nil {
		t.Fatalf("unexpected view %+v", view)
	}
	if !strings.HasSuffix(view.Products[0].PriceDisplay, "₽") {
		t.Fatalf("unexpected price display %q", view.Products[0].PriceDisplay)
	}

	if rec := srv.do(t, call{method: http.MethodGet, path: "/api/v1/catalog?refresh=nope"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad flag, got %d", rec.Code)
	}
}

func TestStorefrontCheckoutFlow(t *testing.T) {
	srv := newTestServer(t)
	session := "s-1"
	must := func(c call, status int) *httptest.ResponseRecorder {
		t.Helper()
		c.session = session
		rec := srv.do(t, c)
		if rec.Code != status {
			t.Fatalf("%s %s: expected %d, got %d: %s", c.method, c.path, status, rec.Code, rec.Body.String())
		}
		return rec
	}

	must(call{method: http.MethodPost, path: "/api/v1/cart/A/increment"}, http.StatusOK)
	must(call{method: http.MethodPost, path: "/api/v1/cart/A/increment"}, http.StatusOK)
	must(call{method: http.MethodPost, path: "/api/v1/cart/B/increment"}, http.StatusOK)
	must(call{method: http.MethodPost, path: "/api/v1/cart/Q/increment"}, http.StatusNotFound)

	var quote struct {
		Count    int   `json:"count"`
		Subtotal int64 `json:"subtotal"`
		Total    int64 `json:"total"`
	}
	decodeData(t, must(call{method: http.MethodGet, path: "/api/v1/cart"}, http.StatusOK), &quote)
	if quote.Count != 3 || quote.Subtotal != 250 || quote.Total != 250 {
		t.Fatalf("unexpected quote %+v", quote)
	}

	rec := must(call{method: http.MethodPut, path: "/api/v1/checkout", body: `{"delivery_method":"post"}`}, http.StatusBadRequest)
	if apiErr := decodeError(t, rec); apiErr.Details["delivery_method"] == nil {
		t.Fatalf("expected delivery_method detail, got %+v", apiErr)
	}

	form := `{"name":"Анна","email":"a@b.c","phone":"8 (900) 123-45-67","delivery_method":"ozon","pickup_point":"ПВЗ 1","comment":""}`
	var view struct {
		State string `json:"state"`
		Quote struct {
			DeliveryFee int64 `json:"delivery_fee"`
			Total       int64 `json:"total"`
		} `json:"quote"`
	}
	decodeData(t, must(call{method: http.MethodPut, path: "/api/v1/checkout", body: form}, http.StatusOK), &view)
	if view.State != "idle" || view.Quote.DeliveryFee != 200 || view.Quote.Total != 450 {
		t.Fatalf("unexpected checkout view %+v", view)
	}

	var normalized struct {
		Form struct {
			Phone string `json:"phone"`
		} `json:"form"`
	}
	decodeData(t, must(call{method: http.MethodPut, path: "/api/v1/checkout?normalize_phone=true", body: form}, http.StatusOK), &normalized)
	if normalized.Form.Phone != "+79001234567" {
		t.Fatalf("expected normalized phone, got %q", normalized.Form.Phone)
	}

	var order struct {
		OrderID    string `json:"order_id"`
		PaymentURL string `json:"payment_url"`
	}
	decodeData(t, must(call{method: http.MethodPost, path: "/api/v1/checkout/submit"}, http.StatusCreated), &order)
	if order.PaymentURL != "https://pay.test/o-1" {
		t.Fatalf("unexpected order %+v", order)
	}
	if len(srv.backend.orders) != 1 || srv.backend.orders[0].Customer.Phone != "+79001234567" {
		t.Fatalf("unexpected submissions %+v", srv.backend.orders)
	}

	rec = must(call{method: http.MethodPost, path: "/api/v1/checkout/submit"}, http.StatusUnprocessableEntity)
	if code := decodeError(t, rec).Code; code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %s", code)
	}

	decodeData(t, must(call{method: http.MethodPost, path: "/api/v1/checkout/reset"}, http.StatusOK), &view)
	if view.State != "idle" {
		t.Fatalf("expected fresh form, got %+v", view)
	}
}

func TestSubmitWithEmptyCartReportsFirstProblem(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, call{method: http.MethodPost, path: "/api/v1/checkout/submit", session: "empty"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	apiErr := decodeError(t, rec)
	if apiErr.Message != contact.MsgCartEmpty || apiErr.Details["field"] != contact.FieldCart {
		t.Fatalf("unexpected error %+v", apiErr)
	}

	var view struct {
		Error *string `json:"error"`
	}
	decodeData(t, srv.do(t, call{method: http.MethodGet, path: "/api/v1/checkout", session: "empty"}), &view)
	if view.Error == nil || *view.Error != contact.MsgCartEmpty {
		t.Fatalf("expected last error on checkout view, got %v", view.Error)
	}
}

func TestAdminInventoryFlow(t *testing.T) {
	srv := newTestServer(t)
	session := "admin-1"

	if rec := srv.do(t, call{method: http.MethodPost, path: "/api/admin/v1/login", session: session}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credential, got %d", rec.Code)
	}
	rec := srv.do(t, call{method: http.MethodPost, path: "/api/admin/v1/login", session: session, auth: "wrong"})
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec).Message != inventory.MsgInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %d %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, call{method: http.MethodPost, path: "/api/admin/v1/login", session: session, auth: goodCredential})
	var login struct {
		BackendURL string `json:"backend_url"`
	}
	decodeData(t, rec, &login)
	if rec.Code != http.StatusOK || login.BackendURL != "http://shop.test" {
		t.Fatalf("unexpected login %d %+v", rec.Code, login)
	}

	rec = srv.do(t, call{method: http.MethodPut, path: "/api/admin/v1/inventory/A", session: session, auth: goodCredential, body: `{"stock":"7"}`})
	if rec.Code != http.StatusOK {
		t.Fatalf("set stock: %d %s", rec.Code, rec.Body.String())
	}
	srv.do(t, call{method: http.MethodPut, path: "/api/admin/v1/inventory/B", session: session, auth: goodCredential, body: `{"stock":"abc"}`})
	if rec := srv.do(t, call{method: http.MethodPut, path: "/api/admin/v1/inventory/Q", session: session, auth: goodCredential, body: `{"stock":"1"}`}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sku, got %d", rec.Code)
	}

	var saved inventory.SaveResult
	rec = srv.do(t, call{method: http.MethodPost, path: "/api/admin/v1/inventory/save", session: session, auth: goodCredential})
	decodeData(t, rec, &saved)
	if rec.Code != http.StatusOK || saved.Saved != 4 || len(saved.Coerced) != 1 || saved.Coerced[0] != "B" {
		t.Fatalf("unexpected save %d %+v", rec.Code, saved)
	}

	var rows struct {
		Rows []inventory.Row `json:"rows"`
	}
	decodeData(t, srv.do(t, call{method: http.MethodGet, path: "/api/admin/v1/inventory", session: session, auth: goodCredential}), &rows)
	if rows.Rows[0].SKU != "A" || rows.Rows[0].Stock != 7 || rows.Rows[0].Pending != "7" {
		t.Fatalf("expected reloaded stock, got %+v", rows.Rows[0])
	}

	var synced struct {
		Created int    `json:"created"`
		Summary string `json:"summary"`
	}
	decodeData(t, srv.do(t, call{method: http.MethodPost, path: "/api/admin/v1/inventory/sync", session: session, auth: goodCredential}), &synced)
	if synced.Created != 1 || synced.Summary != "Синхронизировано: 1 новых, 2 обновлено, 0 пропущено." {
		t.Fatalf("unexpected sync %+v", synced)
	}
}

func TestStorefrontAndAdminSessionsAreSeparate(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, call{method: http.MethodGet, path: "/api/v1/cart", session: "same"})
	srv.do(t, call{method: http.MethodGet, path: "/api/admin/v1/inventory", session: "same", auth: goodCredential})
	if srv.registry.Len() != 2 {
		t.Fatalf("expected two engines, got %d", srv.registry.Len())
	}
}
