// Package client talks to the /cidades and /comercios REST resources.
//
//	c := client.New("http://localhost:8080", client.WithTimeout(5*time.Second))
//	cities, err := c.ListCities(ctx)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"citydesk/pkg/domain"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// HTTPError is returned for any response with status >= 400.
type HTTPError struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Body       string `json:"body,omitempty"`
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return "citydesk API error " + e.Status + ": " + strings.TrimSpace(e.Body)
	}
	return "citydesk API error: " + e.Status
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == code
}

// Client is a typed client for the city and commerce resources.
type Client struct {
	baseURL    string
	httpClient *http.Client
	requestID  func() string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.requestID = gen
		}
	}
}

// New creates a client rooted at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base address.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, c.requestID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bodyBytes)}
	}
	if resp.StatusCode == http.StatusNoContent || target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func cityPath(id int64) string     { return "/cidades/" + strconv.FormatInt(id, 10) }
func commercePath(id int64) string { return "/comercios/" + strconv.FormatInt(id, 10) }

// ---- Cities ----

// ListCities returns the full city collection in backend order.
func (c *Client) ListCities(ctx context.Context) ([]domain.City, error) {
	var result []domain.City
	if err := c.do(ctx, http.MethodGet, "/cidades", nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []domain.City{}
	}
	return result, nil
}

// GetCity returns a single city.
func (c *Client) GetCity(ctx context.Context, id int64) (domain.City, error) {
	var result domain.City
	err := c.do(ctx, http.MethodGet, cityPath(id), nil, &result)
	return result, err
}

// CreateCity posts a new city; the backend assigns identifiers.
func (c *Client) CreateCity(ctx context.Context, city domain.City) (domain.City, error) {
	city.ID = 0
	var result domain.City
	err := c.do(ctx, http.MethodPost, "/cidades", city, &result)
	return result, err
}

// UpdateCity replaces the city stored under id with city.
func (c *Client) UpdateCity(ctx context.Context, id int64, city domain.City) (domain.City, error) {
	var result domain.City
	err := c.do(ctx, http.MethodPut, cityPath(id), city, &result)
	return result, err
}

// DeleteCity removes a city and its commerces.
func (c *Client) DeleteCity(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, cityPath(id), nil, nil)
}

// ---- Commerces ----

// ListCommerces returns every commerce across all cities.
func (c *Client) ListCommerces(ctx context.Context) ([]domain.Commerce, error) {
	var result []domain.Commerce
	if err := c.do(ctx, http.MethodGet, "/comercios", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateCommerce posts a commerce owned by commerce.CityID.
func (c *Client) CreateCommerce(ctx context.Context, commerce domain.Commerce) (domain.Commerce, error) {
	commerce.ID = 0
	var result domain.Commerce
	err := c.do(ctx, http.MethodPost, "/comercios", commerce, &result)
	return result, err
}

// UpdateCommerce replaces the commerce stored under id.
func (c *Client) UpdateCommerce(ctx context.Context, id int64, commerce domain.Commerce) (domain.Commerce, error) {
	var result domain.Commerce
	err := c.do(ctx, http.MethodPut, commercePath(id), commerce, &result)
	return result, err
}

// DeleteCommerce removes a commerce.
func (c *Client) DeleteCommerce(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, commercePath(id), nil, nil)
}
