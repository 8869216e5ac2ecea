package cms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cmsfix/https-migrator/internal/tree"
)

const (
	// DefaultBaseURL is the DatoCMS Content Management API endpoint
	DefaultBaseURL = "https://site-api.datocms.com"

	// DefaultPageSize is the number of records requested per page
	DefaultPageSize = 100

	// MaxPageSize is the largest page[limit] the API accepts
	MaxPageSize = 500

	apiVersion  = "3"
	maxBodySize = 10 * 1024 * 1024
)

// ListOptions selects one page of records of a model
type ListOptions struct {
	ModelID string
	Offset  int
	Limit   int
}

// Client talks to the DatoCMS Content Management API
type Client struct {
	baseURL     string
	token       string
	environment string
	httpClient  *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithEnvironment targets a sandbox environment instead of the primary one
func WithEnvironment(env string) Option {
	return func(c *Client) { c.environment = env }
}

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client authenticated with the given API token
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns one page of records
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := url.Values{}
	query.Set("filter[type]", opts.ModelID)
	query.Set("page[offset]", strconv.Itoa(opts.Offset))
	query.Set("page[limit]", strconv.Itoa(opts.Limit))

	doc, err := c.do(ctx, http.MethodGet, "/items", query, nil)
	if err != nil {
		return nil, err
	}

	data, ok := doc.Get("data")
	if !ok || data.Kind() != tree.KindSeq {
		return nil, fmt.Errorf("cms: list items: response has no data array")
	}

	records := make([]Record, 0, data.Len())
	for i, res := range data.Items() {
		rec, err := recordFromResource(res)
		if err != nil {
			return nil, fmt.Errorf("cms: list items: data[%d]: %w", i, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Update replaces the attributes of item id with those of rec and returns
// the item as stored by DatoCMS.
func (c *Client) Update(ctx context.Context, id string, rec Record) (Record, error) {
	body := tree.Map(tree.E("data", tree.Map(
		tree.E("type", tree.String("item")),
		tree.E("id", tree.String(id)),
		tree.E("attributes", rec.attributes()),
	)))

	payload, err := body.MarshalJSON()
	if err != nil {
		return Record{}, fmt.Errorf("cms: update item %s: encode: %w", id, err)
	}

	doc, err := c.do(ctx, http.MethodPut, "/items/"+url.PathEscape(id), nil, payload)
	if err != nil {
		return Record{}, err
	}

	data, ok := doc.Get("data")
	if !ok {
		return Record{}, fmt.Errorf("cms: update item %s: response has no data", id)
	}

	updated, err := recordFromResource(data)
	if err != nil {
		return Record{}, fmt.Errorf("cms: update item %s: %w", id, err)
	}
	return updated, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) (tree.Value, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return tree.Value{}, fmt.Errorf("cms: new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}
	if c.environment != "" {
		req.Header.Set("X-Environment", c.environment)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tree.Value{}, fmt.Errorf("cms: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return tree.Value{}, fmt.Errorf("cms: %s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tree.Value{}, newAPIError(method, path, resp.StatusCode, raw)
	}

	doc, err := tree.Parse(raw)
	if err != nil {
		return tree.Value{}, fmt.Errorf("cms: %s %s: decode: %w", method, path, err)
	}
	return doc, nil
}
