package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/miniapp-storefront/internal/catalog"
	"github.com/angelmondragon/miniapp-storefront/internal/checkout"
	"github.com/angelmondragon/miniapp-storefront/internal/inventory"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
)

const (
	productsPath      = "api/products"
	ordersPath        = "api/orders"
	inventoryPath     = "api/inventory"
	inventorySyncPath = "api/inventory/sync"

	defaultTimeout        = 20 * time.Second
	responseBodyReadLimit = 4096
)

var errBaseURLRequired = errors.New("backend base url is required")

// Client talks to the shop backend over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// BaseURL is shown on the admin login screen.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusError is a non-2xx backend response. Error returns the body verbatim.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return e.Body
}

func (e *StatusError) StatusCode() int {
	return e.Status
}

// FetchCatalog loads every product, including inactive ones.
func (c *Client) FetchCatalog(ctx context.Context) ([]catalog.Product, error) {
	var rows []productPayload
	if err := c.do(ctx, http.MethodGet, productsPath, "", nil, &rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, err, err.Error())
	}
	products := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toProduct())
	}
	return products, nil
}

// CreateOrder submits the order and returns the payment link.
func (c *Client) CreateOrder(ctx context.Context, sub checkout.OrderSubmission) (checkout.OrderResult, error) {
	var resp struct {
		OrderID    string `json:"order_id"`
		PaymentURL string `json:"payment_url"`
		Amount     int64  `json:"amount"`
	}
	if err := c.do(ctx, http.MethodPost, ordersPath, "", newOrderPayload(sub), &resp); err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.Status >= 400 && status.Status < 500 {
			return checkout.OrderResult{}, pkgerrors.Wrap(pkgerrors.CodeOrderRejected, err, err.Error())
		}
		return checkout.OrderResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
	}
	return checkout.OrderResult{OrderID: resp.OrderID, PaymentURL: resp.PaymentURL, Amount: resp.Amount}, nil
}

// UpdateInventory writes a stock batch. An empty batch only checks the credential.
func (c *Client) UpdateInventory(ctx context.Context, credential string, records []inventory.Record) error {
	if records == nil {
		records = []inventory.Record{}
	}
	body := struct {
		Items []inventory.Record `json:"items"`
	}{Items: records}
	if err := c.do(ctx, http.MethodPatch, inventoryPath, credential, body, nil); err != nil {
		return adminError(err)
	}
	return nil
}

// SyncExternalSource triggers a product import on the backend.
func (c *Client) SyncExternalSource(ctx context.Context, credential string) (inventory.SyncResult, error) {
	var resp inventory.SyncResult
	if err := c.do(ctx, http.MethodPost, inventorySyncPath, credential, nil, &resp); err != nil {
		return inventory.SyncResult{}, adminError(err)
	}
	return resp, nil
}

func adminError(err error) error {
	var status *StatusError
	if errors.As(err, &status) && (status.Status == http.StatusUnauthorized || strings.Contains(status.Body, "Invalid credentials")) {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, err.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, err.Error())
}

func (c *Client) do(ctx context.Context, method, path, credential string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Basic "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
