// Package sdk provides a Go client for the cardsearch HTTP API.
//
//	client := sdk.New("http://localhost:8080", sdk.WithAPIKey("secret"))
//	resp, err := client.Search(ctx, sdk.SearchRequest{Q: "얀데레 뱀파이어", Limit: 10})
package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a running cardsearch server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SearchRequest mirrors the /search query parameters. Zero values are
// omitted; the server applies its defaults.
type SearchRequest struct {
	Q         string
	Ratings   []string
	Genders   []string
	Languages []string
	Genres    []string
	Limit     int
	Offset    int
}

// Search runs a search query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	params := url.Values{}
	if req.Q != "" {
		params.Set("q", req.Q)
	}
	for _, v := range req.Ratings {
		params.Add("rating", v)
	}
	for _, v := range req.Genders {
		params.Add("gender", v)
	}
	for _, v := range req.Languages {
		params.Add("language", v)
	}
	for _, v := range req.Genres {
		params.Add("genre", v)
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		params.Set("offset", strconv.Itoa(req.Offset))
	}

	u := c.baseURL + "/search"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var resp SearchResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCharacter fetches one card by uuid.
func (c *Client) GetCharacter(ctx context.Context, uuid string) (*Character, error) {
	var ch Character
	if err := c.get(ctx, c.baseURL+"/characters/"+url.PathEscape(uuid), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Health fetches the server health report. An unhealthy server answers 503
// with a report body; that is returned as a report, not an error.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	status, body, err := c.doGet(ctx, c.baseURL+"/health")
	if err != nil {
		return nil, err
	}

	var report HealthReport
	if jsonErr := json.Unmarshal(body, &report); jsonErr != nil || report.Status == "" {
		return nil, apiErrorFromBody(status, body)
	}
	return &report, nil
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	status, body, err := c.doGet(ctx, u)
	if err != nil {
		return err
	}
	if status >= 400 {
		return apiErrorFromBody(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, u string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
