// Package esa is a minimal client for the esa.io REST API, covering what
// the pipeline needs: fetching a post by number, plus a connectivity check.
package esa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"esabot/internal/domain"
)

const defaultAPIBase = "https://api.esa.io/v1"

// ErrNotFound reports a post number that does not exist (or is not visible
// to the configured token).
var ErrNotFound = errors.New("esa: post not found")

var postNumberPattern = regexp.MustCompile(`/posts/(\d+)`)

// PostNumberFromURL pulls the post number out of an esa post URL. It returns
// 0 when the URL does not reference a post.
func PostNumberFromURL(url string) int {
	m := postNumberPattern.FindStringSubmatch(url)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Client calls the esa.io API for one team.
type Client struct {
	token   string
	team    string
	apiBase string
	client  *http.Client
	logger  *slog.Logger
	backoff time.Duration
}

// Config configures a Client.
type Config struct {
	AccessToken string
	Team        string
	APIBase     string // defaults to the public API
	Timeout     time.Duration
	Logger      *slog.Logger
}

// New creates a Client with a pooled HTTP transport.
func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		token:   cfg.AccessToken,
		team:    cfg.Team,
		apiBase: cfg.APIBase,
		client:  newHTTPClient(cfg.Timeout),
		logger:  logger,
		backoff: time.Second,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// postPayload is the subset of the esa post resource the pipeline reads.
type postPayload struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	BodyMD    string `json:"body_md"`
	Category  string `json:"category"`
	UpdatedAt string `json:"updated_at"`
	URL       string `json:"url"`
}

// FetchPost implements domain.Fetcher: it resolves the post number from the
// canonical URL and retrieves the post.
func (c *Client) FetchPost(ctx context.Context, url string) (*domain.Post, error) {
	number := PostNumberFromURL(url)
	if number == 0 {
		return nil, fmt.Errorf("esa: no post number in %q", url)
	}
	post, err := c.GetPost(ctx, number)
	if err != nil {
		return nil, err
	}
	if post.URL == "" {
		post.URL = url
	}
	return post, nil
}

// GetPost fetches one post by number.
func (c *Client) GetPost(ctx context.Context, number int) (*domain.Post, error) {
	endpoint := fmt.Sprintf("%s/teams/%s/posts/%d", c.apiBase, c.team, number)

	resp, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("post %d: %w", number, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("esa: GET %s returned %d: %s", endpoint, resp.StatusCode, body)
	}

	var payload postPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("esa: decode post %d: %w", number, err)
	}

	c.logger.Info("post fetched", "number", payload.Number, "title", payload.Name)
	return &domain.Post{
		Number:    payload.Number,
		Title:     payload.Name,
		BodyMD:    payload.BodyMD,
		Category:  payload.Category,
		UpdatedAt: payload.UpdatedAt,
		URL:       payload.URL,
	}, nil
}

// Ping verifies the token and team by fetching the team resource.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/teams/%s", c.apiBase, c.team)
	resp, err := c.doWithRetry(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("esa: GET %s returned %d: %s", endpoint, resp.StatusCode, body)
	}
	return nil
}

const maxRetries = 3

// doWithRetry executes the GET with exponential backoff on transport errors,
// 5xx, and 429.
func (c *Client) doWithRetry(ctx context.Context, endpoint string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * c.backoff
			c.logger.Warn("retrying esa request", "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("esa: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("esa: HTTP %d: %s", resp.StatusCode, body)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("esa: request failed after %d retries: %w", maxRetries, lastErr)
}
