package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
)

// Record is one stock line sent to the backend.
type Record struct {
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// SyncResult holds the counts reported by an external source sync.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Summary renders the counts for the operator.
func (r SyncResult) Summary() string {
	return fmt.Sprintf("Синхронизировано: %d новых, %d обновлено, %d пропущено.", r.Created, r.Updated, r.Skipped)
}

// Updater writes a stock batch to the source of truth.
type Updater interface {
	UpdateInventory(ctx context.Context, credential string, records []Record) error
}

// Syncer pulls product data from the external source into the backend.
type Syncer interface {
	SyncExternalSource(ctx context.Context, credential string) (SyncResult, error)
}

// ParseStock coerces admin input to a non-negative stock count. The boolean is false
// when the input had to be coerced.
func ParseStock(raw string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// BuildRecords returns one record per catalog product in snapshot order. Products
// without an edit keep their current stock. Skus whose edit was coerced to 0 are
// returned alongside.
func BuildRecords(snap *catalog.Snapshot, edits map[string]string) ([]Record, []string) {
	products := snap.Products()
	records := make([]Record, 0, len(products))
	var coerced []string
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, dup := seen[p.SKU]; dup {
			continue
		}
		seen[p.SKU] = struct{}{}

		stock := p.Stock
		if raw, ok := edits[p.SKU]; ok {
			v, clean := ParseStock(raw)
			if !clean {
				coerced = append(coerced, p.SKU)
			}
			stock = v
		}
		if stock < 0 {
			stock = 0
		}
		records = append(records, Record{SKU: p.SKU, Stock: stock})
	}
	return records, coerced
}
