// Package api provides a client for the skip tracker REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
)

const (
	userAgent      = "spotify-skip-tracker/1.0"
	defaultTimeout = 10 * time.Second

	// SessionCookieName is the cookie carrying the web session ID.
	SessionCookieName = "session_id"
)

// ErrUnauthorized is returned when the server rejects the session.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for non-success HTTP responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Is makes 401 responses match ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client talks to the skip tracker backend. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	sessionID  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. The HTTP client passed to
// WithHTTPClient is not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithSessionID authenticates requests with a web session ID.
func WithSessionID(id string) Option {
	return func(c *Client) {
		c.sessionID = id
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Analytics fetches the analytics summary (GET /api/analytics).
func (c *Client) Analytics(ctx context.Context, f skips.Filters) (skips.Analytics, error) {
	var a skips.Analytics
	if err := c.do(ctx, http.MethodGet, "/api/analytics", f.Query(), nil, &a); err != nil {
		return skips.Analytics{}, fmt.Errorf("fetching analytics: %w", err)
	}
	return a, nil
}

// SkippedSongs fetches the skipped songs matching the filters (GET /api/skipped-songs).
func (c *Client) SkippedSongs(ctx context.Context, f skips.Filters) ([]skips.Song, error) {
	var songs []skips.Song
	if err := c.do(ctx, http.MethodGet, "/api/skipped-songs", f.Query(), nil, &songs); err != nil {
		return nil, fmt.Errorf("fetching skipped songs: %w", err)
	}
	if songs == nil {
		songs = []skips.Song{}
	}
	return songs, nil
}

// Playlists fetches the playlist catalog (GET /playlists).
func (c *Client) Playlists(ctx context.Context) ([]skips.Playlist, error) {
	var resp PlaylistsResponse
	if err := c.do(ctx, http.MethodGet, "/playlists", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching playlists: %w", err)
	}
	if resp.Items == nil {
		resp.Items = []skips.Playlist{}
	}
	return resp.Items, nil
}

// DeleteSongs deletes skip records for the given songs (POST /api/delete-songs).
func (c *Client) DeleteSongs(ctx context.Context, songIDs []string) error {
	body := DeleteSongsRequest{SongIDs: songIDs}
	if err := c.do(ctx, http.MethodPost, "/api/delete-songs", nil, body, nil); err != nil {
		return fmt.Errorf("deleting songs: %w", err)
	}
	return nil
}

// TrackSkip asks the backend to check the current playback for a skip (POST /track-skip).
func (c *Client) TrackSkip(ctx context.Context) (*TrackSkipResponse, error) {
	var resp TrackSkipResponse
	if err := c.do(ctx, http.MethodPost, "/track-skip", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("tracking skip: %w", err)
	}
	return &resp, nil
}

// do performs a single request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.sessionID})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var apiErr ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil {
			statusErr.Message = apiErr.Error
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
