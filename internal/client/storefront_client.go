package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-api/internal/models"
)

const (
	// IdempotencyKeyHeader must match the header the order endpoint reads
	IdempotencyKeyHeader = "Idempotency-Key"
	// EventOffsetHeader carries the event log offset a product listing is consistent with
	EventOffsetHeader    = "X-Event-Offset"
)

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// RemoteOrder is the subset of a server order the client reconciles against.
// Status is kept as the raw wire string so unknown values do not fail decoding.
type RemoteOrder struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"totalAmount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RemoteEvent is one entry of the server event log. Data is decoded by the consumer.
type RemoteEvent struct {
	Offset     int64           `json:"offset"`
	Timestamp  time.Time       `json:"timestamp"`
	EventType  string          `json:"eventType"`
	ResourceID string          `json:"resourceId"`
	Data       json.RawMessage `json:"data"`
}

// EventsPage is one response of GET /api/events
type EventsPage struct {
	Events     []RemoteEvent `json:"events"`
	NextOffset int64         `json:"nextOffset"`
	HasMore    bool          `json:"hasMore"`
	Count      int           `json:"count"`
}

// StorefrontClient provides methods to interact with the storefront REST API
type StorefrontClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewStorefrontClient creates a new storefront client
func NewStorefrontClient(baseURL string, timeout time.Duration) *StorefrontClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StorefrontClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithAPIKey returns a copy of the client that sends X-API-Key on every request
func (c *StorefrontClient) WithAPIKey(apiKey string) *StorefrontClient {
	clone := *c
	clone.apiKey = apiKey
	return &clone
}

// HealthCheck checks the health of the API
func (c *StorefrontClient) HealthCheck(ctx context.Context) (*models.HealthResponse, error) {
	var health models.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ListProducts retrieves the whole catalog
func (c *StorefrontClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListProductsWithOffset retrieves the catalog and the event offset it is consistent with.
// Replaying events from that offset brings the listing up to date.
func (c *StorefrontClient) ListProductsWithOffset(ctx context.Context) ([]models.Product, int64, error) {
	var products []models.Product
	header, err := c.send(ctx, http.MethodGet, "/api/products", nil, nil, &products)
	if err != nil {
		return nil, 0, err
	}

	offset, err := strconv.ParseInt(header.Get(EventOffsetHeader), 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("missing or invalid %s header: %w", EventOffsetHeader, err)
	}
	return products, offset, nil
}

// GetEvents retrieves events starting at offset, long polling up to waitSeconds
func (c *StorefrontClient) GetEvents(ctx context.Context, offset int64, limit, waitSeconds int) (*EventsPage, error) {
	path := fmt.Sprintf("/api/events?offset=%d&limit=%d&wait=%d", offset, limit, waitSeconds)

	// Use a longer timeout for long polling requests
	httpClient := c.httpClient
	if wait := time.Duration(waitSeconds) * time.Second; wait > 0 && httpClient.Timeout < wait+10*time.Second {
		httpClient = &http.Client{Timeout: wait + 10*time.Second}
	}

	var page EventsPage
	if _, err := c.sendWith(ctx, httpClient, http.MethodGet, path, nil, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct retrieves a single product
func (c *StorefrontClient) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ToggleFavorite adds (POST) or removes (DELETE) a favorite on behalf of userID
func (c *StorefrontClient) ToggleFavorite(ctx context.Context, productID, userID string, add bool) (*models.Product, error) {
	method := http.MethodDelete
	if add {
		method = http.MethodPost
	}

	var product models.Product
	path := "/api/products/" + url.PathEscape(productID) + "/favorite"
	if err := c.do(ctx, method, path, models.FavoriteRequest{UserID: userID}, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListUserOrders retrieves the orders owned by userID
func (c *StorefrontClient) ListUserOrders(ctx context.Context, userID string) ([]RemoteOrder, error) {
	var orders []RemoteOrder
	if err := c.do(ctx, http.MethodGet, "/api/orders/user/"+url.PathEscape(userID), nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder submits an order. A non-empty idempotencyKey makes retries safe.
func (c *StorefrontClient) CreateOrder(ctx context.Context, draft models.OrderDraft, idempotencyKey string) (*RemoteOrder, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[IdempotencyKeyHeader] = idempotencyKey
	}

	var order RemoteOrder
	if err := c.do(ctx, http.MethodPost, "/api/orders", draft, headers, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteOrder deletes an order on the server
func (c *StorefrontClient) DeleteOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, "/api/orders/"+url.PathEscape(orderID), nil, nil, nil)
}

func (c *StorefrontClient) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	_, err := c.send(ctx, method, path, body, headers, out)
	return err
}

func (c *StorefrontClient) send(ctx context.Context, method, path string, body any, headers map[string]string, out any) (http.Header, error) {
	return c.sendWith(ctx, c.httpClient, method, path, body, headers, out)
}

func (c *StorefrontClient) sendWith(ctx context.Context, httpClient *http.Client, method, path string, body any, headers map[string]string, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return resp.Header, nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.Header, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Header, nil
}
