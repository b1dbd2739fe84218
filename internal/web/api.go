package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/hlog"

	"github.com/justestif/go-spotify-skip-tracker/internal/api"
	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
	"github.com/justestif/go-spotify-skip-tracker/internal/tracker"
)

// RequireSession rejects API requests without a valid session with 401.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.GetFromRequest(r)
		if session == nil {
			writeError(w, r, http.StatusUnauthorized, errNoSession)
			return
		}

		logger := hlog.FromRequest(r).With().Str("user", session.UserID).Logger()
		ctx := logger.WithContext(contextWithSession(r.Context(), session))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Analytics returns skip totals for the filters (GET /api/analytics).
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	filters, err := skips.ParseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	analytics, err := h.skips.Analytics(r.Context(), session.UserID, filters)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	render.JSON(w, r, analytics)
}

// SkippedSongs returns the skipped songs for the filters, most skipped first
// (GET /api/skipped-songs).
func (h *Handlers) SkippedSongs(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	filters, err := skips.ParseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	songs, err := h.skips.SkippedSongs(r.Context(), session.UserID, filters)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if songs == nil {
		songs = []skips.Song{}
	}

	render.JSON(w, r, songs)
}

// Playlists returns the user's Spotify playlists (GET /playlists).
func (h *Handlers) Playlists(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	playlists, err := h.spotifyFor(r.Context(), session).Playlists(r.Context())
	if err != nil {
		writeError(w, r, http.StatusBadGateway, err)
		return
	}
	if playlists == nil {
		playlists = []skips.Playlist{}
	}

	render.JSON(w, r, api.PlaylistsResponse{Items: playlists})
}

// DeleteSkippedSongs removes every skip record of the given songs
// (POST /api/delete-songs).
func (h *Handlers) DeleteSkippedSongs(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	var req api.DeleteSongsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if len(req.SongIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, errors.New("songIds must not be empty"))
		return
	}

	n, err := h.skips.DeleteSongs(r.Context(), session.UserID, req.SongIDs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	hlog.FromRequest(r).Info().Int64("deleted", n).Int("requested", len(req.SongIDs)).Msg("deleted skipped songs")
	render.JSON(w, r, api.DeleteSongsResponse{Deleted: n})
}

// TrackSkip checks the current playback once and records a skip if the
// track changes early (POST /track-skip).
func (h *Handlers) TrackSkip(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	res, err := h.tracker.CheckOnce(r.Context(), session.UserID, h.spotifyFor(r.Context(), session))
	if errors.Is(err, tracker.ErrNothingPlaying) {
		render.JSON(w, r, api.TrackSkipResponse{Message: "No song is playing"})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusBadGateway, err)
		return
	}

	resp := api.TrackSkipResponse{
		TrackID:   res.Playback.TrackID,
		TrackName: res.Playback.TrackName,
	}
	if res.Skip != nil {
		resp.Skipped = true
		resp.Message = "Logged skipped song: " + res.Skip.TrackName
	}
	render.JSON(w, r, resp)
}

// writeError writes a JSON error body. Server errors are logged and their
// details hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg("request failed")
		msg = http.StatusText(status)
	}

	render.Status(r, status)
	render.JSON(w, r, api.ErrorResponse{Error: msg})
}
