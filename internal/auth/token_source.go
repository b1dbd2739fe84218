package auth

import (
	"context"
	"sync"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// OAuthConfig returns the oauth2 configuration for the Spotify application.
func OAuthConfig(creds Credentials) *oauth2.Config {
	redirect := creds.RedirectURI
	if redirect == "" {
		redirect = DefaultRedirectURI
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
}

// NotifyingTokenSource wraps a token source and calls onRefresh whenever it
// returns a token whose access token differs from the previous one.
type NotifyingTokenSource struct {
	base      oauth2.TokenSource
	onRefresh func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

// NewNotifyingTokenSource returns a token source seeded with the current token.
func NewNotifyingTokenSource(base oauth2.TokenSource, current *oauth2.Token, onRefresh func(*oauth2.Token)) *NotifyingTokenSource {
	ts := &NotifyingTokenSource{base: base, onRefresh: onRefresh}
	if current != nil {
		ts.last = current.AccessToken
	}
	return ts
}

// Token implements oauth2.TokenSource.
func (s *NotifyingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	changed := tok.AccessToken != s.last
	s.last = tok.AccessToken
	s.mu.Unlock()

	if changed && s.onRefresh != nil {
		s.onRefresh(tok)
	}
	return tok, nil
}

// SessionTokenSource returns a refreshing token source for a stored token that
// reports refreshed tokens to onRefresh.
func SessionTokenSource(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token)) oauth2.TokenSource {
	return NewNotifyingTokenSource(cfg.TokenSource(ctx, token), token, onRefresh)
}
