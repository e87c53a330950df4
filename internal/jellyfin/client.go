// Cinemood - Mood Tagging and Library Sync for Jellyfin
// Copyright 2026 Cinemood contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package jellyfin implements the REST client for the remote Jellyfin
// server: bulk and single item fetches, credential login, playback-state
// reporting, image URL derivation and websocket URL construction.
// The client is stateless request/response; connection parameters can be
// swapped at runtime via Reconfigure after a credential update.
package jellyfin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	clientName    = "Cinemood"
	clientVersion = "1.0.0"
	deviceID      = "cinemood-server"

	// movieFields is the field selection requested on every item fetch.
	// The full payload is also snapshotted locally, so everything needed
	// to re-derive watched state must be listed here.
	movieFields = "Overview,Genres,People,OriginalTitle,ProductionYear,ProviderIds"

	requestTimeout = 30 * time.Second
)

// ErrAuthExpired marks an HTTP 401 from the server: the access token is
// no longer valid and a silent re-login may be attempted exactly once.
var ErrAuthExpired = errors.New("jellyfin: authentication expired")

// ErrNotConfigured is returned when a request is attempted before a
// server URL and token are known.
var ErrNotConfigured = errors.New("jellyfin: client not configured")

// API is the surface the sync components consume. Both Client and
// BreakerClient implement it.
type API interface {
	GetMovies(ctx context.Context) ([]Item, int, error)
	GetItem(ctx context.Context, itemID string) (*Item, error)
	GetItemsByIDs(ctx context.Context, itemIDs []string) ([]Item, error)
	GetSimilar(ctx context.Context, itemID string, limit int) ([]Item, error)
	GetResume(ctx context.Context, limit int) ([]Item, error)
	GetRecentlyAdded(ctx context.Context, limit int) ([]Item, error)
	Authenticate(ctx context.Context, username, password string) (*AuthResult, error)
	SetPlayed(ctx context.Context, itemID string, played bool) error
	Ping(ctx context.Context) error
	ResolveImageURLs(item *Item) (poster, backdrop, logo *string)
	WebSocketURL() (string, error)
	Configured() bool
	Reconfigure(baseURL, token, userID string)
	Snapshot() (baseURL, token, userID string)
}

var _ API = (*Client)(nil)

// Client provides access to the Jellyfin REST API.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	token   string
	userID  string

	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Jellyfin API client. Any parameter may be empty;
// the client stays unconfigured until Reconfigure provides the rest.
func NewClient(baseURL, token, userID string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		// Bounds remote-server load during full syncs: bursts of 20,
		// sustained 10 req/s.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// Reconfigure atomically swaps the connection parameters at runtime,
// used after a credential update or a silent re-login.
func (c *Client) Reconfigure(baseURL, token, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	c.token = token
	c.userID = userID
}

// Configured reports whether the client has enough parameters to talk
// to a server.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL != "" && c.token != "" && c.userID != ""
}

func (c *Client) snapshot() (baseURL, token, userID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL, c.token, c.userID
}

// Snapshot returns the current connection parameters, so callers can
// restore them after a failed reconfiguration attempt.
func (c *Client) Snapshot() (baseURL, token, userID string) {
	return c.snapshot()
}

// GetMovies retrieves the entire movie library in one recursive listing,
// returning the items and the server-reported total count.
func (c *Client) GetMovies(ctx context.Context) ([]Item, int, error) {
	_, _, userID := c.snapshot()
	if userID == "" {
		return nil, 0, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("IncludeItemTypes", "Movie")
	params.Set("Recursive", "true")
	params.Set("Fields", movieFields)
	params.Set("SortBy", "SortName")
	params.Set("SortOrder", "Ascending")

	var result ItemsResponse
	if err := c.getJSON(ctx, "/Users/"+userID+"/Items", params, &result); err != nil {
		return nil, 0, fmt.Errorf("jellyfin movies request failed: %w", err)
	}
	return result.Items, result.TotalRecordCount, nil
}

// GetItem fetches a single item by its identifier.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	_, _, userID := c.snapshot()
	if userID == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("Fields", movieFields)

	var item Item
	if err := c.getJSON(ctx, "/Users/"+userID+"/Items/"+itemID, params, &item); err != nil {
		return nil, fmt.Errorf("jellyfin item %s request failed: %w", itemID, err)
	}
	return &item, nil
}

// GetItemsByIDs fetches full payloads for a batch of item identifiers,
// used by the realtime reconciler to bound the size of any single bulk
// fetch.
func (c *Client) GetItemsByIDs(ctx context.Context, itemIDs []string) ([]Item, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	_, _, userID := c.snapshot()
	if userID == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("Ids", strings.Join(itemIDs, ","))
	params.Set("Fields", movieFields)

	var result ItemsResponse
	if err := c.getJSON(ctx, "/Users/"+userID+"/Items", params, &result); err != nil {
		return nil, fmt.Errorf("jellyfin batch item request failed: %w", err)
	}
	return result.Items, nil
}

// GetSimilar retrieves items similar to the given item.
func (c *Client) GetSimilar(ctx context.Context, itemID string, limit int) ([]Item, error) {
	_, _, userID := c.snapshot()
	params := url.Values{}
	params.Set("UserId", userID)
	params.Set("Limit", fmt.Sprint(limit))
	params.Set("Fields", movieFields)

	var result ItemsResponse
	if err := c.getJSON(ctx, "/Items/"+itemID+"/Similar", params, &result); err != nil {
		return nil, fmt.Errorf("jellyfin similar request failed: %w", err)
	}
	return result.Items, nil
}

// GetResume retrieves the user's partially watched movies.
func (c *Client) GetResume(ctx context.Context, limit int) ([]Item, error) {
	_, _, userID := c.snapshot()
	if userID == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("IncludeItemTypes", "Movie")
	params.Set("Limit", fmt.Sprint(limit))
	params.Set("Fields", movieFields)

	var result ItemsResponse
	if err := c.getJSON(ctx, "/Users/"+userID+"/Items/Resume", params, &result); err != nil {
		return nil, fmt.Errorf("jellyfin resume request failed: %w", err)
	}
	return result.Items, nil
}

// GetRecentlyAdded retrieves the latest additions to the movie library.
func (c *Client) GetRecentlyAdded(ctx context.Context, limit int) ([]Item, error) {
	_, _, userID := c.snapshot()
	if userID == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("IncludeItemTypes", "Movie")
	params.Set("Limit", fmt.Sprint(limit))
	params.Set("Fields", movieFields)

	var items []Item
	if err := c.getJSON(ctx, "/Users/"+userID+"/Items/Latest", params, &items); err != nil {
		return nil, fmt.Errorf("jellyfin latest request failed: %w", err)
	}
	return items, nil
}

// Authenticate performs a username/password login and returns the
// access token and user identifier. It works without a configured token
// and does not modify the client; callers decide whether to Reconfigure.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*AuthResult, error) {
	baseURL, _, _ := c.snapshot()
	if baseURL == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]string{
		"Username": username,
		"Pw":       password,
	})
	if err != nil {
		return nil, fmt.Errorf("encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/Users/AuthenticateByName", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf(
		`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
		clientName, clientName, deviceID, clientVersion))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jellyfin login request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("jellyfin login rejected: %w", ErrAuthExpired)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("jellyfin login returned status %d: %s", resp.StatusCode, string(body))
	}

	var result AuthResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &result, nil
}

// SetPlayed reports playback state: marks an item played or unplayed
// for the configured user.
func (c *Client) SetPlayed(ctx context.Context, itemID string, played bool) error {
	_, _, userID := c.snapshot()
	if userID == "" {
		return ErrNotConfigured
	}

	method := http.MethodPost
	if !played {
		method = http.MethodDelete
	}

	resp, err := c.doRequest(ctx, method, "/Users/"+userID+"/PlayedItems/"+itemID, nil)
	if err != nil {
		return fmt.Errorf("jellyfin played-state request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("jellyfin played-state: %w", err)
	}
	return nil
}

// Ping tests connectivity to the Jellyfin server.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/System/Ping", nil)
	if err != nil {
		return fmt.Errorf("jellyfin ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jellyfin ping returned status %d", resp.StatusCode)
	}
	return nil
}

// WebSocketURL returns the event-stream endpoint derived from the
// configured base URL: scheme swapped to its streaming equivalent and
// credentials embedded as query parameters.
func (c *Client) WebSocketURL() (string, error) {
	baseURL, token, _ := c.snapshot()
	if baseURL == "" || token == "" {
		return "", ErrNotConfigured
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/socket"

	query := parsed.Query()
	query.Set("api_key", token)
	query.Set("deviceId", deviceID)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// getJSON performs a GET request and decodes the JSON response body.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, params)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp, http.StatusOK); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values) (*http.Response, error) {
	baseURL, token, _ := c.snapshot()
	if baseURL == "" || token == "" {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	fullURL := baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Emby-Token", token)
	req.Header.Set("X-Emby-Client", clientName)
	req.Header.Set("X-Emby-Device-Name", clientName)
	req.Header.Set("X-Emby-Device-Id", deviceID)
	req.Header.Set("X-Emby-Client-Version", clientVersion)
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// checkStatus maps response codes outside the accepted set to errors,
// distinguishing auth expiry so callers can trigger a silent re-login.
func (c *Client) checkStatus(resp *http.Response, accepted ...int) error {
	for _, code := range accepted {
		if resp.StatusCode == code {
			return nil
		}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrAuthExpired
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("status %d (failed to read body)", resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
}
