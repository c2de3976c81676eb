// Package realm fetches card listings and details from the RisuRealm
// platform: a proxy list API plus versioned download endpoints.
package realm

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/metrics"
)

const (
	proxyBase     = "https://sv.risuai.xyz/realm/"
	downloadBase  = "https://realm.risuai.net/api/v1/download"
	characterBase = domain.RealmURL

	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	maxBodyBytes   = 64 << 20
)

// ListItem is one entry of the proxy list API response.
type ListItem struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Desc       string   `json:"desc"`
	Download   string   `json:"download"`
	Img        string   `json:"img"`
	Tags       []string `json:"tags"`
	AuthorName string   `json:"authorname"`
	Creator    string   `json:"creator"`
	HasLore    bool     `json:"haslore"`
	HasAsset   bool     `json:"hasAsset"`
	Date       int64    `json:"date"`
	Type       string   `json:"type"`
}

// Detail is the download API card payload. Lorebook entries and asset files
// are metadata-only: counts and names, never content.
type Detail struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Personality  string   `json:"personality"`
	Scenario     string   `json:"scenario"`
	FirstMessage string   `json:"first_mes"`
	Tags         []string `json:"tags"`
	Creator      string   `json:"creator"`
	CreatorNotes string   `json:"creator_notes"`
}

// Detail sources, best first.
const (
	SourceCharxV3  = "charx-v3"
	SourceJSONV3   = "json-v3"
	SourceJSONV2   = "json-v2"
	SourceListOnly = "list_only"
)

// Client talks to the realm endpoints with rate limiting and retries.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Config holds scraper client settings.
type Config struct {
	RequestsPerSecond float64
	Timeout           time.Duration
	Logger            *zap.Logger
}

// New creates a realm client.
func New(cfg Config) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  cfg.Logger,
	}
}

// FetchListPage fetches one page of the card list. An empty page is not an
// error; the caller uses empty streaks to detect the end of the listing.
func (c *Client) FetchListPage(ctx context.Context, page int, nsfw bool, sort string) ([]ListItem, error) {
	query := fmt.Sprintf("search== __shared&&page==%d&&nsfw==%t&&sort==%s&&web==web", page, nsfw, sort)
	u := proxyBase + url.QueryEscape(query)

	body, err := c.get(ctx, u)
	if err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues("list", "error").Inc()
		return nil, fmt.Errorf("fetch list page %d: %w", page, err)
	}
	metrics.ScrapeRequestsTotal.WithLabelValues("list", "success").Inc()
	if body == nil {
		return nil, nil
	}

	// The API answers either {"cards": [...]} or a bare array.
	var wrapped struct {
		Cards []ListItem `json:"cards"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Cards != nil {
		return wrapped.Cards, nil
	}
	var items []ListItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode list page %d: %w", page, err)
	}
	return items, nil
}

// FetchCharacterType probes the card page data to classify the card as
// "normal" or "charx". Any failure defaults to "normal".
func (c *Client) FetchCharacterType(ctx context.Context, uuid string) string {
	body, err := c.get(ctx, characterBase+"/"+uuid+"/__data.json")
	if err != nil || body == nil {
		return "normal"
	}

	var page struct {
		Nodes []*struct {
			Data []json.RawMessage `json:"data"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return "normal"
	}
	if len(page.Nodes) < 2 || page.Nodes[1] == nil {
		return "normal"
	}
	for i := len(page.Nodes[1].Data) - 1; i >= 0; i-- {
		var s string
		if json.Unmarshal(page.Nodes[1].Data[i], &s) != nil {
			continue
		}
		if s == "normal" || s == "charx" {
			return s
		}
	}
	return "normal"
}

// FetchDetail fetches the card payload, walking the format fallback chain
// for the card type. A card with no fetchable detail comes back as
// (nil, SourceListOnly, nil): list metadata is still usable.
func (c *Client) FetchDetail(ctx context.Context, uuid, charType string) (*Detail, string, error) {
	if charType == "charx" {
		d, err := c.fetchCharx(ctx, uuid)
		if err != nil {
			metrics.ScrapeRequestsTotal.WithLabelValues("detail", "error").Inc()
			return nil, SourceListOnly, err
		}
		if d != nil {
			metrics.ScrapeRequestsTotal.WithLabelValues("detail", "success").Inc()
			return d, SourceCharxV3, nil
		}
		metrics.ScrapeRequestsTotal.WithLabelValues("detail", "miss").Inc()
		return nil, SourceListOnly, nil
	}

	for _, format := range []string{"json-v3", "json-v2"} {
		body, err := c.get(ctx, downloadBase+"/"+format+"/"+uuid)
		if err != nil {
			metrics.ScrapeRequestsTotal.WithLabelValues("detail", "error").Inc()
			return nil, SourceListOnly, fmt.Errorf("fetch %s detail: %w", format, err)
		}
		if body == nil {
			continue
		}
		var d Detail
		if err := json.Unmarshal(body, &d); err != nil {
			continue
		}
		metrics.ScrapeRequestsTotal.WithLabelValues("detail", "success").Inc()
		return &d, format, nil
	}

	metrics.ScrapeRequestsTotal.WithLabelValues("detail", "miss").Inc()
	return nil, SourceListOnly, nil
}

// fetchCharx downloads the charx-v3 zip and extracts card.json.
func (c *Client) fetchCharx(ctx context.Context, uuid string) (*Detail, error) {
	body, err := c.get(ctx, downloadBase+"/charx-v3/"+uuid)
	if err != nil {
		return nil, fmt.Errorf("fetch charx detail: %w", err)
	}
	if body == nil {
		return nil, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open charx archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "card.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open card.json: %w", err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxBodyBytes))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read card.json: %w", err)
		}
		var d Detail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode card.json: %w", err)
		}
		return &d, nil
	}
	return nil, nil
}

// get performs a rate-limited GET with retries. 429 honors Retry-After with
// jitter; 5xx and transport errors back off exponentially; 404 returns
// (nil, nil) since missing cards are routine.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			c.logger.Warn("Realm rate limit, backing off",
				zap.Duration("retry_after", retryAfter))
			lastErr = domain.ErrRateLimited
			if err := sleepCtx(ctx, retryAfter+jitter(5*time.Second)); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("realm responded %d", resp.StatusCode)
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			resp.Body.Close()
			if err != nil {
				lastErr = err
				continue
			}
			return body, nil

		default:
			// 404 and friends: not retryable, not an error.
			resp.Body.Close()
			return nil, nil
		}
	}
	return nil, fmt.Errorf("realm request failed after %d attempts: %w", maxRetries, lastErr)
}

func parseRetryAfter(h string) time.Duration {
	if secs, err := strconv.ParseFloat(h, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return time.Minute
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt)*time.Second + jitter(time.Second)
}

func jitter(max time.Duration) time.Duration {
	return time.Duration(rand.Int63n(int64(max)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
