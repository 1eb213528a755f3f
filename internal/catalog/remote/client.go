package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"product-catalog/internal/catalog"

	"github.com/sony/gobreaker/v2"
)

const (
	contentTypeJSON = "application/json"
	maxBodyBytes    = 4 << 20

	defaultTimeout             = 10 * time.Second
	defaultBreakerFailures     = 5
	defaultBreakerOpenTimeout  = 30 * time.Second
	defaultBreakerHalfOpenReqs = 1
)

type Config struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

// Client talks to the remote product API (dummyjson-compatible).
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

type listResponse struct {
	Products []catalog.Product `json:"products"`
	Total    int               `json:"total"`
	Skip     int               `json:"skip"`
	Limit    int               `json:"limit"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.code, e.body)
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = defaultBreakerOpenTimeout
	}

	st := gobreaker.Settings{
		Name:        "product-api",
		MaxRequests: defaultBreakerHalfOpenReqs,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A caller giving up is not a remote failure. Timeouts still count.
			if errors.Is(err, context.Canceled) {
				return true
			}
			// Client errors say nothing about the health of the remote service.
			var se *statusError
			return errors.As(err, &se) && se.code < http.StatusInternalServerError
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](st),
	}
}

// ListProducts fetches one page. A category selects the category endpoint,
// otherwise a query selects the search endpoint.
func (c *Client) ListProducts(ctx context.Context, filter catalog.Filter, limit, skip int) (catalog.Page, error) {
	filter = filter.Normalize()
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("skip", strconv.Itoa(skip))

	path := "/products"
	switch {
	case filter.Category != "":
		path = "/products/category/" + url.PathEscape(filter.Category)
	case filter.Query != "":
		path = "/products/search"
		query.Set("q", filter.Query)
	}

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return catalog.Page{}, err
	}
	if resp.Products == nil {
		resp.Products = []catalog.Product{}
	}
	return catalog.Page{
		Products: resp.Products,
		Total:    resp.Total,
		Skip:     resp.Skip,
		Limit:    resp.Limit,
	}, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	var p catalog.Product
	if err := c.do(ctx, http.MethodGet, productPath(id), nil, nil, &p); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	categories := make([]string, 0)
	if err := c.do(ctx, http.MethodGet, "/products/category-list", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.Product, error) {
	var p catalog.Product
	if err := c.do(ctx, http.MethodPost, "/products/add", nil, in, &p); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, in catalog.ProductInput) (catalog.Product, error) {
	var p catalog.Product
	if err := c.do(ctx, http.MethodPut, productPath(id), nil, in, &p); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// DeleteProduct removes id remotely. Any 2xx answer counts as confirmation.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, productPath(id), nil, nil, nil)
}

func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, target, payload)
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return fmt.Errorf("%w: %s %s: %w", catalog.ErrNetwork, method, path, catalog.ErrNotFound)
		}
		return fmt.Errorf("%w: %s %s: %w", catalog.ErrNetwork, method, path, err)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", catalog.ErrNetwork, method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if payload != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}
