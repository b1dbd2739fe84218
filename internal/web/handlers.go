package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/hlog"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-skip-tracker/internal/auth"
	"github.com/justestif/go-spotify-skip-tracker/internal/dashboard"
	"github.com/justestif/go-spotify-skip-tracker/internal/db"
	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
	spotifyclient "github.com/justestif/go-spotify-skip-tracker/internal/spotify"
	"github.com/justestif/go-spotify-skip-tracker/internal/tracker"
)

const oauthStateCookie = "oauth_state"

// SkipStore is the skip analytics storage used by the handlers.
type SkipStore interface {
	Analytics(ctx context.Context, userID string, f skips.Filters) (skips.Analytics, error)
	SkippedSongs(ctx context.Context, userID string, f skips.Filters) ([]skips.Song, error)
	DeleteSongs(ctx context.Context, userID string, songIDs []string) (int64, error)
}

// UserStore persists Spotify profiles on login.
type UserStore interface {
	Upsert(ctx context.Context, user *db.User) error
}

// SpotifyClient is the per-session Spotify API used by the handlers.
type SpotifyClient interface {
	Playlists(ctx context.Context) ([]skips.Playlist, error)
	CurrentPlayback(ctx context.Context) (*tracker.Playback, error)
}

// SpotifyFactory builds a Spotify client acting for a session.
type SpotifyFactory func(ctx context.Context, session *Session) SpotifyClient

// HandlersConfig holds the dependencies of Handlers.
type HandlersConfig struct {
	Auth          *spotifyauth.Authenticator
	OAuth         *oauth2.Config
	Sessions      SessionManager
	Templates     *Templates
	Skips         SkipStore
	Users         UserStore
	Tracker       *tracker.Service
	Spotify       SpotifyFactory // defaults to the Spotify Web API
	HighThreshold int
	TopN          int
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth          *spotifyauth.Authenticator
	oauth         *oauth2.Config
	sessions      SessionManager
	templates     *Templates
	skips         SkipStore
	users         UserStore
	tracker       *tracker.Service
	spotifyFor    SpotifyFactory
	highThreshold int
	topN          int
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg HandlersConfig) *Handlers {
	h := &Handlers{
		auth:          cfg.Auth,
		oauth:         cfg.OAuth,
		sessions:      cfg.Sessions,
		templates:     cfg.Templates,
		skips:         cfg.Skips,
		users:         cfg.Users,
		tracker:       cfg.Tracker,
		spotifyFor:    cfg.Spotify,
		highThreshold: cfg.HighThreshold,
		topN:          cfg.TopN,
	}
	if h.spotifyFor == nil {
		h.spotifyFor = h.spotifyAPI
	}
	if h.highThreshold <= 0 {
		h.highThreshold = dashboard.DefaultHighSkipThreshold
	}
	if h.topN <= 0 {
		h.topN = dashboard.DefaultTopN
	}
	return h
}

// spotifyAPI returns a Web API client for the session. Refreshed tokens are
// written back to the session store.
func (h *Handlers) spotifyAPI(ctx context.Context, session *Session) SpotifyClient {
	ts := auth.SessionTokenSource(ctx, h.oauth, session.Token, func(tok *oauth2.Token) {
		h.sessions.UpdateToken(context.WithoutCancel(ctx), session.ID, tok)
	})
	api := spotify.New(oauth2.NewClient(ctx, ts), spotify.WithRetry(true))
	return spotifyclient.New(api)
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	data := HomePageData{
		PageData:      newPageData(r, "Spotify Skip Tracker", session),
		Authenticated: session != nil,
	}

	h.render(w, r, "home", data)
}

// Dashboard renders the skip dashboard (GET /dashboard).
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	filters, err := skips.ParseFilters(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	model := h.newModel(r, session)
	// a failed refresh is shown on the page from the snapshot
	_ = model.Refresh(r.Context(), filters)

	data := h.dashboardData(r, session, model.Snapshot())
	h.render(w, r, "dashboard", data)
}

// DeleteSongs removes the submitted songs from the dashboard (POST /dashboard/delete).
// The form carries the active filters, the checked "song" ids and an optional
// action "select-high" that replaces the selection with the highly skipped songs.
func (h *Handlers) DeleteSongs(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	filters, err := skips.ParseFilters(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	model := h.newModel(r, session)
	if err := model.Refresh(r.Context(), filters); err != nil {
		http.Error(w, "Failed to load skipped songs", http.StatusBadGateway)
		return
	}

	switch r.PostForm.Get("action") {
	case "select-high":
		model.SelectAllAboveThreshold(h.highThreshold)
	case "select-all":
		model.SelectAll()
	default:
		model.SetSelection(r.PostForm["song"]...)
	}

	if err := model.DeleteSelected(r.Context()); err != nil {
		http.Error(w, "Failed to delete songs", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, dashboardURL(filters), http.StatusSeeOther)
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		logger.Error().Err(err).Msg("exchanging oauth code failed")
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}

	client := spotifyclient.New(spotify.New(h.auth.Client(r.Context(), token)))
	user, err := client.CurrentUser(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("getting spotify user failed")
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	if h.users != nil {
		dbUser := &db.User{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}
		if err := h.users.Upsert(r.Context(), dbUser); err != nil {
			logger.Error().Err(err).Str("user", user.ID).Msg("saving user failed")
			http.Error(w, "Failed to save user", http.StatusInternalServerError)
			return
		}
	}

	session, err := h.sessions.Create(r.Context(), token, user.ID, user.DisplayName)
	if err != nil {
		logger.Error().Err(err).Msg("creating session failed")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	h.sessions.SetCookie(w, session)
	logger.Info().Str("user", user.ID).Msg("user logged in")

	http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// newModel creates a dashboard model reading the session user's data.
func (h *Handlers) newModel(r *http.Request, session *Session) *dashboard.Model {
	backend := &sessionBackend{
		skips:   h.skips,
		spotify: h.spotifyFor(r.Context(), session),
		userID:  session.UserID,
	}
	return dashboard.New(backend, dashboard.WithLogger(*hlog.FromRequest(r)))
}

func (h *Handlers) dashboardData(r *http.Request, session *Session, st dashboard.State) DashboardPageData {
	data := DashboardPageData{
		PageData:      newPageData(r, "Skip Dashboard", session),
		State:         st,
		TopSongs:      dashboard.TopSongs(st.Songs, h.topN),
		Distribution:  dashboard.Distribution(st.Songs),
		AverageSkips:  dashboard.AverageSkips(st.Songs),
		HighSkips:     dashboard.HighSkipCount(st.Songs, h.highThreshold),
		HighThreshold: h.highThreshold,
		Timeframes:    skips.Timeframes(),
	}
	if st.Err != nil {
		data.Flash = &FlashMessage{Type: "error", Message: "Failed to load dashboard data. Please try again."}
	}
	return data
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("page", page).Msg("rendering template failed")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func newPageData(r *http.Request, title string, session *Session) PageData {
	data := PageData{
		Title:       title,
		CurrentPath: r.URL.Path,
	}
	if session != nil {
		data.User = &UserData{ID: session.UserID, Name: session.UserName}
	}
	return data
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// sessionBackend serves the dashboard model from local storage for one user.
type sessionBackend struct {
	skips   SkipStore
	spotify SpotifyClient
	userID  string
}

func (b *sessionBackend) Analytics(ctx context.Context, f skips.Filters) (skips.Analytics, error) {
	return b.skips.Analytics(ctx, b.userID, f)
}

func (b *sessionBackend) SkippedSongs(ctx context.Context, f skips.Filters) ([]skips.Song, error) {
	return b.skips.SkippedSongs(ctx, b.userID, f)
}

func (b *sessionBackend) Playlists(ctx context.Context) ([]skips.Playlist, error) {
	return b.spotify.Playlists(ctx)
}

func (b *sessionBackend) DeleteSongs(ctx context.Context, songIDs []string) error {
	_, err := b.skips.DeleteSongs(ctx, b.userID, songIDs)
	return err
}

var _ dashboard.Backend = (*sessionBackend)(nil)

// dashboardURL returns the dashboard path for the filters.
func dashboardURL(f skips.Filters) string {
	return (&url.URL{Path: "/dashboard", RawQuery: f.Query().Encode()}).String()
}

var errNoSession = errors.New("not authenticated")
