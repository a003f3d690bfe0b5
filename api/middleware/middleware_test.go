package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/checkout"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/internal/inventory"
	"github.com/angelmondragon/miniapp-storefront/internal/storefront"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
)

type stubBackend struct{}

func (stubBackend) FetchCatalog(ctx context.Context) ([]catalog.Product, error) {
	return []catalog.Product{{SKU: "A", Name: "a", Price: 100, Active: true, Stock: 1}}, nil
}

func (stubBackend) CreateOrder(ctx context.Context, sub checkout.OrderSubmission) (checkout.OrderResult, error) {
	return checkout.OrderResult{OrderID: "o-1", PaymentURL: "https://pay"}, nil
}

func (stubBackend) UpdateInventory(ctx context.Context, credential string, records []inventory.Record) error {
	return nil
}

func (stubBackend) SyncExternalSource(ctx context.Context, credential string) (inventory.SyncResult, error) {
	return inventory.SyncResult{}, nil
}

func newTestRegistry(t *testing.T) *storefront.Registry {
	t.Helper()
	store, err := catalog.NewStore(catalog.StoreParams{Fetcher: stubBackend{}})
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
			Orders:    stubBackend{},
			Inventory: stubBackend{},
			Identity:  identity,
		})
	}, nil, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(registry.Close)
	return registry
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
