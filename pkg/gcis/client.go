// Package gcis provides a client for the Taiwan GCIS open data business item
// classification dataset.
package gcis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

const (
	// DefaultBaseURL is the GCIS open data API root.
	DefaultBaseURL = "https://data.gcis.nat.gov.tw/od/data/api/"
	// DefaultDataset is the business item classification dataset ID.
	DefaultDataset = "FCB90AB1-E382-45CE-8D4F-394861851E28"
	// DefaultUserAgent is sent on every request.
	DefaultUserAgent = "gcis-cli/0.1.0"
	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second
)

// Client defines the GCIS business item operations.
type Client interface {
	// FetchRaw retrieves one page of undecoded entries.
	FetchRaw(ctx context.Context, params ListParams) ([]any, error)
	// ListBusinessItems retrieves one page and normalizes every entry.
	ListBusinessItems(ctx context.Context, params ListParams) ([]BusinessItem, error)
	// GetBusinessItem retrieves the item with the given code.
	GetBusinessItem(ctx context.Context, code string) (*BusinessItem, error)
}

// Option configures the GCIS client.
type Option func(*httpClient)

// WithBaseURL sets a custom API root (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithDataset sets the dataset ID appended to the base URL.
func WithDataset(id string) Option {
	return func(c *httpClient) {
		c.dataset = id
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithKeyTable sets the key table used for normalization.
func WithKeyTable(t KeyTable) Option {
	return func(c *httpClient) {
		c.table = t
	}
}

// WithSchemaProbe enables per-response key table probing over candidates.
// The configured key table is used when probing is inconclusive.
func WithSchemaProbe(candidates ...KeyTable) Option {
	return func(c *httpClient) {
		if len(candidates) == 0 {
			candidates = BuiltinKeyTables()
		}
		c.probe = candidates
	}
}

type httpClient struct {
	baseURL   string
	dataset   string
	userAgent string
	timeout   time.Duration
	table     KeyTable
	probe     []KeyTable
	http      *http.Client
}

// NewClient creates a GCIS client. The returned client is safe for concurrent use.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   DefaultBaseURL,
		dataset:   DefaultDataset,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		table:     KeyTableV1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return c
}

func (c *httpClient) endpoint() string {
	return c.baseURL + c.dataset
}

func (c *httpClient) FetchRaw(ctx context.Context, params ListParams) ([]any, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	reqURL := c.endpoint() + "?" + buildQuery(params, c.table.BusinessItem).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gcis: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{URL: c.endpoint(), Err: eris.Wrap(err, "gcis: request failed")}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: c.endpoint(), Err: eris.Wrap(err, "gcis: read response body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			URL:        c.endpoint(),
			Err:        eris.Errorf("gcis: unexpected status %d: %s", resp.StatusCode, truncate(body, 256)),
		}
	}

	return decodeEntries(body)
}

func (c *httpClient) ListBusinessItems(ctx context.Context, params ListParams) ([]BusinessItem, error) {
	entries, err := c.FetchRaw(ctx, params)
	if err != nil {
		return nil, err
	}

	table := c.table
	if len(c.probe) > 0 && len(entries) > 0 {
		table = ProbeKeyTable(entries[0], c.probe, c.table)
	}
	return table.NormalizeAll(entries)
}

func (c *httpClient) GetBusinessItem(ctx context.Context, code string) (*BusinessItem, error) {
	if code == "" {
		return nil, eris.Wrap(ErrInvalidParams, "item code is required")
	}
	items, err := c.ListBusinessItems(ctx, ListParams{ItemCode: code, Top: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// decodeEntries accepts both response shapes the dataset has served: a bare
// JSON array, or an object wrapping the array under "value". An object
// without "value" is treated as an empty page.
func decodeEntries(body []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, &ShapeError{Reason: "decode response body", Err: err}
	}

	switch v := data.(type) {
	case []any:
		return v, nil
	case map[string]any:
		wrapped, ok := v["value"]
		if !ok {
			return []any{}, nil
		}
		entries, ok := wrapped.([]any)
		if !ok {
			return nil, &ShapeError{Reason: "\"value\" is " + jsonKind(wrapped) + ", want array"}
		}
		return entries, nil
	default:
		return nil, &ShapeError{Reason: "response body is " + jsonKind(data) + ", want object or array"}
	}
}

// truncate cuts b to at most n bytes without splitting a UTF-8 sequence.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return string(b[:n]) + "..."
}
