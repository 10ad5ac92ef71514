// Package imagesearch resolves text queries to image candidates via the
// DuckDuckGo images endpoint.
package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

// searchTimeout bounds one token fetch or result fetch.
const searchTimeout = 10 * time.Second

const defaultBaseURL = "https://duckduckgo.com"

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// vqd is a per-query token the HTML frontend embeds; the JSON endpoint
// rejects requests without it.
var vqdPattern = regexp.MustCompile(`vqd=['"]?([\d-]+)`)

// Candidate is one ranked image hit.
type Candidate struct {
	URL       string `json:"image"`
	Thumbnail string `json:"thumbnail"`
	Title     string `json:"title"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zerolog.Logger
}

func NewClient(logger *zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: searchTimeout},
		baseURL:    defaultBaseURL,
		logger:     logger,
	}
}

// Search returns up to maxResults ranked image candidates for query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Candidate, error) {
	token, err := c.fetchToken(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch search token: %w", err)
	}

	params := url.Values{}
	params.Set("l", "us-en")
	params.Set("o", "json")
	params.Set("q", query)
	params.Set("vqd", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/i.js?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.baseURL+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("image search failed: %d, %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Results []Candidate `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode image results: %w", err)
	}

	if maxResults > 0 && len(payload.Results) > maxResults {
		payload.Results = payload.Results[:maxResults]
	}
	c.logger.Debug().Str("query", query).Int("results", len(payload.Results)).Msg("image search complete")
	return payload.Results, nil
}

func (c *Client) fetchToken(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("iax", "images")
	params.Set("ia", "images")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	match := vqdPattern.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("no vqd token in response")
	}
	return string(match[1]), nil
}
