// Package auth provides Spotify OAuth2 authentication for the terminal tracker
// and the web server, with a cached terminal login.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	// DefaultRedirectURI uses explicit IPv4 loopback as required by Spotify for local development.
	// See: https://developer.spotify.com/documentation/web-api/concepts/redirect-uri
	DefaultRedirectURI = "http://127.0.0.1:8080/callback"
	callbackTimeout    = 2 * time.Minute
)

// Scopes are the permissions needed to watch playback and list playlists.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
}

var (
	// ErrMissingCredentials is returned when the client id or secret is empty.
	ErrMissingCredentials = errors.New("missing Spotify client id or secret")

	// ErrAuthTimeout is returned when the OAuth callback is not received in time.
	ErrAuthTimeout = errors.New("authentication timed out waiting for callback")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Credentials identify the Spotify application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string // DefaultRedirectURI when empty
}

// NewSpotifyAuthenticator builds the Spotify OAuth authenticator with the tracker's scopes.
// Returns ErrMissingCredentials if the id or secret is empty.
func NewSpotifyAuthenticator(creds Credentials) (*spotifyauth.Authenticator, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	redirect := creds.RedirectURI
	if redirect == "" {
		redirect = DefaultRedirectURI
	}

	return spotifyauth.New(
		spotifyauth.WithClientID(creds.ClientID),
		spotifyauth.WithClientSecret(creds.ClientSecret),
		spotifyauth.WithRedirectURL(redirect),
		spotifyauth.WithScopes(Scopes...),
	), nil
}

// Authenticator handles Spotify OAuth2 authentication for the terminal.
type Authenticator struct {
	auth        *spotifyauth.Authenticator
	cache       *LoginCache
	callbackURL *url.URL
}

// New creates an Authenticator caching the login in the default location.
// Returns ErrMissingCredentials if the id or secret is empty.
func New(creds Credentials) (*Authenticator, error) {
	cache, err := DefaultLoginCache()
	if err != nil {
		return nil, fmt.Errorf("creating login cache: %w", err)
	}
	return NewWithCache(creds, cache)
}

// NewWithCache creates an Authenticator using the given login cache.
func NewWithCache(creds Credentials, cache *LoginCache) (*Authenticator, error) {
	auth, err := NewSpotifyAuthenticator(creds)
	if err != nil {
		return nil, err
	}

	redirect := creds.RedirectURI
	if redirect == "" {
		redirect = DefaultRedirectURI
	}
	callbackURL, err := url.Parse(redirect)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect uri: %w", err)
	}
	if callbackURL.Path == "" {
		callbackURL.Path = "/"
	}

	return &Authenticator{
		auth:        auth,
		cache:       cache,
		callbackURL: callbackURL,
	}, nil
}

// Authenticate returns an authenticated Spotify client and the login it
// belongs to. A cached login is reused when its token is still valid or can
// be refreshed; otherwise the full OAuth flow runs.
func (a *Authenticator) Authenticate(ctx context.Context) (*spotify.Client, *Login, error) {
	login, err := a.cache.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading cached login: %w", err)
	}

	if login != nil {
		client, err := a.resume(ctx, login)
		if err == nil {
			return client, login, nil
		}
		log.Warn().Err(err).Msg("cached login invalid, starting new authentication")
	}

	return a.runOAuthFlow(ctx)
}

// resume builds a client from a cached login, refreshing its token if needed.
// A refreshed token is written back to the cache.
func (a *Authenticator) resume(ctx context.Context, login *Login) (*spotify.Client, error) {
	client := spotify.New(a.auth.Client(ctx, login.Token), spotify.WithRetry(true))

	token, err := client.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	if token.AccessToken != login.Token.AccessToken {
		login.Token = token
		if err := a.cache.Save(login); err != nil {
			log.Warn().Err(err).Str("path", a.cache.Path()).Msg("failed to cache refreshed token")
		}
	}
	return client, nil
}

// runOAuthFlow performs the full OAuth authorization code flow.
func (a *Authenticator) runOAuthFlow(ctx context.Context) (*spotify.Client, *Login, error) {
	state, err := generateState()
	if err != nil {
		return nil, nil, fmt.Errorf("generating state: %w", err)
	}

	// Channel to receive the token from callback
	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	// Create HTTP server for callback
	mux := http.NewServeMux()
	mux.HandleFunc(a.callbackURL.Path, func(w http.ResponseWriter, r *http.Request) {
		a.handleCallback(w, r, state, tokenCh, errCh)
	})

	server := &http.Server{
		Addr:              a.callbackURL.Host,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in background
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server error: %w", err)
		}
	}()

	// Print auth URL for user
	authURL := a.auth.AuthURL(state)
	fmt.Println("\nTo authenticate, open this URL in your browser:")
	fmt.Println(authURL)
	fmt.Println("\nWaiting for authentication...")

	// Wait for callback or timeout
	var token *oauth2.Token
	select {
	case token = <-tokenCh:
		// Success
	case err := <-errCh:
		_ = server.Shutdown(ctx)
		return nil, nil, err
	case <-time.After(callbackTimeout):
		_ = server.Shutdown(ctx)
		return nil, nil, ErrAuthTimeout
	case <-ctx.Done():
		_ = server.Shutdown(ctx)
		return nil, nil, ctx.Err()
	}

	// Shutdown server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	client := spotify.New(a.auth.Client(ctx, token), spotify.WithRetry(true))
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("getting current user: %w", err)
	}

	login := &Login{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Token:       token,
	}
	if err := a.cache.Save(login); err != nil {
		// auth succeeded; the next run will just log in again
		log.Warn().Err(err).Str("path", a.cache.Path()).Msg("failed to cache login")
	}

	return client, login, nil
}

// handleCallback processes the OAuth callback from Spotify.
func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request, expectedState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) {
	// Verify state
	if r.URL.Query().Get("state") != expectedState {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		errCh <- ErrStateMismatch
		return
	}

	// Check for error response
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, "Authentication failed: "+errMsg, http.StatusBadRequest)
		errCh <- fmt.Errorf("spotify auth error: %s", errMsg)
		return
	}

	// Exchange code for token
	token, err := a.auth.Token(r.Context(), expectedState, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		errCh <- fmt.Errorf("exchanging code for token: %w", err)
		return
	}

	// Success response
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body>
<h1>Authentication Successful!</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)

	tokenCh <- token
}

// generateState creates a random state string for OAuth.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
