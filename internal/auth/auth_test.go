package auth

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func testLogin(access string) *Login {
	return &Login{
		UserID:      "user-1",
		DisplayName: "Listener",
		Email:       "listener@example.com",
		Token: &oauth2.Token{
			AccessToken:  access,
			TokenType:    "Bearer",
			RefreshToken: "refresh-" + access,
			Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestLoginCache_SaveAndLoad(t *testing.T) {
	savedAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	cache := NewLoginCache(filepath.Join(t.TempDir(), "login.json"))
	cache.now = func() time.Time { return savedAt }

	want := testLogin("access-1")
	if err := cache.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := cache.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatal("Load() returned nil login")
	}

	if got.UserID != want.UserID || got.DisplayName != want.DisplayName || got.Email != want.Email {
		t.Errorf("Load() user = %q/%q/%q, want %q/%q/%q",
			got.UserID, got.DisplayName, got.Email, want.UserID, want.DisplayName, want.Email)
	}
	if got.Token.AccessToken != "access-1" || got.Token.RefreshToken != "refresh-access-1" {
		t.Errorf("Load() token = %+v", got.Token)
	}
	if !got.Token.Expiry.Equal(want.Token.Expiry) {
		t.Errorf("Expiry = %v, want %v", got.Token.Expiry, want.Token.Expiry)
	}
	if !got.SavedAt.Equal(savedAt) {
		t.Errorf("SavedAt = %v, want %v", got.SavedAt, savedAt)
	}
	if !want.SavedAt.IsZero() {
		t.Error("Save() modified the caller's login")
	}
}

func TestLoginCache_SaveReplaces(t *testing.T) {
	dir := t.TempDir()
	cache := NewLoginCache(filepath.Join(dir, "login.json"))

	for _, access := range []string{"first", "second"} {
		if err := cache.Save(testLogin(access)); err != nil {
			t.Fatalf("Save(%s) error = %v", access, err)
		}
	}

	got, err := cache.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Token.AccessToken != "second" {
		t.Errorf("AccessToken = %q, want second", got.Token.AccessToken)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the login file", len(entries))
	}
}

func TestLoginCache_LoadMissingOrIncomplete(t *testing.T) {
	tests := []struct {
		name    string
		content string // empty means no file
	}{
		{name: "missing file"},
		{name: "no user id", content: `{"token": {"access_token": "a"}}`},
		{name: "no token", content: `{"user_id": "u1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "login.json")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			got, err := NewLoginCache(path).Load()
			if err != nil {
				t.Fatalf("Load() error = %v, want nil", err)
			}
			if got != nil {
				t.Errorf("Load() = %+v, want nil", got)
			}
		})
	}
}

func TestLoginCache_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoginCache(path).Load(); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestLoginCache_SaveIncomplete(t *testing.T) {
	cache := NewLoginCache(filepath.Join(t.TempDir(), "login.json"))

	noUser := testLogin("a")
	noUser.UserID = ""
	noToken := testLogin("a")
	noToken.Token = nil

	for _, login := range []*Login{nil, noUser, noToken} {
		if err := cache.Save(login); !errors.Is(err, ErrIncompleteLogin) {
			t.Errorf("Save(%+v) error = %v, want ErrIncompleteLogin", login, err)
		}
	}
	if _, err := os.Stat(cache.Path()); !os.IsNotExist(err) {
		t.Error("Save() of an incomplete login created a file")
	}
}

func TestLoginCache_SaveCreatesDirectoryWithPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeply", "login.json")
	cache := NewLoginCache(path)

	if err := cache.Save(testLogin("secret")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		t.Errorf("File permissions = %o, want no group/other access", mode)
	}
}

func TestLoginCache_Delete(t *testing.T) {
	cache := NewLoginCache(filepath.Join(t.TempDir(), "login.json"))
	if err := cache.Save(testLogin("a")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	removed, err := cache.Delete()
	if err != nil || !removed {
		t.Fatalf("Delete() = %v, %v, want true, nil", removed, err)
	}
	if _, err := os.Stat(cache.Path()); !os.IsNotExist(err) {
		t.Error("Delete() did not remove the login file")
	}

	removed, err = cache.Delete()
	if err != nil || removed {
		t.Errorf("second Delete() = %v, %v, want false, nil", removed, err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"both missing", Credentials{}},
		{"id missing", Credentials{ClientSecret: "secret"}},
		{"secret missing", Credentials{ClientID: "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewLoginCache(filepath.Join(t.TempDir(), "login.json"))
			_, err := NewWithCache(tt.creds, cache)
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("NewWithCache() error = %v, want ErrMissingCredentials", err)
			}
		})
	}
}

func TestNew_WithCredentials(t *testing.T) {
	tests := []struct {
		name         string
		redirect     string
		expectedHost string
		expectedPath string
	}{
		{"default redirect", "", "127.0.0.1:8080", "/callback"},
		{"custom redirect", "http://localhost:9090/auth/done", "localhost:9090", "/auth/done"},
		{"no path", "http://localhost:9090", "localhost:9090", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewLoginCache(filepath.Join(t.TempDir(), "login.json"))
			creds := Credentials{ClientID: "test-client-id", ClientSecret: "test-client-secret", RedirectURI: tt.redirect}

			auth, err := NewWithCache(creds, cache)
			if err != nil {
				t.Fatalf("NewWithCache() error = %v", err)
			}

			if auth.callbackURL.Host != tt.expectedHost {
				t.Errorf("callback host = %q, want %q", auth.callbackURL.Host, tt.expectedHost)
			}
			if auth.callbackURL.Path != tt.expectedPath {
				t.Errorf("callback path = %q, want %q", auth.callbackURL.Path, tt.expectedPath)
			}
		})
	}
}

func TestNewSpotifyAuthenticator_Scopes(t *testing.T) {
	a, err := NewSpotifyAuthenticator(Credentials{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("NewSpotifyAuthenticator() error = %v", err)
	}

	authURL, err := url.Parse(a.AuthURL("state"))
	if err != nil {
		t.Fatalf("parsing auth url: %v", err)
	}
	q := authURL.Query()
	if got := q.Get("redirect_uri"); got != DefaultRedirectURI {
		t.Errorf("redirect_uri = %q, want %q", got, DefaultRedirectURI)
	}
	scope := q.Get("scope")
	for _, s := range Scopes {
		if !strings.Contains(scope, s) {
			t.Errorf("scope %q missing from %q", s, scope)
		}
	}
}

func TestGenerateState(t *testing.T) {
	state1, err := generateState()
	if err != nil {
		t.Fatalf("generateState() error = %v", err)
	}

	if len(state1) != 32 { // 16 bytes = 32 hex chars
		t.Errorf("generateState() length = %d, want 32", len(state1))
	}

	// Verify randomness - generate another and compare
	state2, err := generateState()
	if err != nil {
		t.Fatalf("generateState() error = %v", err)
	}

	if state1 == state2 {
		t.Error("generateState() returned same value twice")
	}
}

type sequenceTokens struct {
	tokens []*oauth2.Token
	n      int
}

func (s *sequenceTokens) Token() (*oauth2.Token, error) {
	tok := s.tokens[min(s.n, len(s.tokens)-1)]
	s.n++
	return tok, nil
}

func TestNotifyingTokenSource(t *testing.T) {
	current := &oauth2.Token{AccessToken: "a"}
	base := &sequenceTokens{tokens: []*oauth2.Token{
		{AccessToken: "a"},
		{AccessToken: "b"},
		{AccessToken: "b"},
		{AccessToken: "c"},
	}}

	var refreshed []string
	ts := NewNotifyingTokenSource(base, current, func(tok *oauth2.Token) {
		refreshed = append(refreshed, tok.AccessToken)
	})

	for range 4 {
		if _, err := ts.Token(); err != nil {
			t.Fatalf("Token() error = %v", err)
		}
	}

	if len(refreshed) != 2 || refreshed[0] != "b" || refreshed[1] != "c" {
		t.Errorf("refreshed = %v, want [b c]", refreshed)
	}
}

func TestOAuthConfig(t *testing.T) {
	cfg := OAuthConfig(Credentials{ClientID: "id", ClientSecret: "secret"})

	if cfg.RedirectURL != DefaultRedirectURI {
		t.Errorf("RedirectURL = %q, want %q", cfg.RedirectURL, DefaultRedirectURI)
	}
	if cfg.Endpoint.TokenURL == "" || cfg.Endpoint.AuthURL == "" {
		t.Errorf("Endpoint = %+v, want Spotify endpoints", cfg.Endpoint)
	}
	if len(cfg.Scopes) != len(Scopes) {
		t.Errorf("Scopes = %v, want %v", cfg.Scopes, Scopes)
	}
}
