package api

import "github.com/justestif/go-spotify-skip-tracker/internal/skips"

// PlaylistsResponse is the JSON body of GET /playlists.
type PlaylistsResponse struct {
	Items []skips.Playlist `json:"items"`
}

// DeleteSongsRequest is the JSON body of POST /api/delete-songs.
type DeleteSongsRequest struct {
	SongIDs []string `json:"songIds"`
}

// DeleteSongsResponse is the JSON body returned by POST /api/delete-songs.
type DeleteSongsResponse struct {
	Deleted int64 `json:"deleted"`
}

// TrackSkipResponse is the JSON body returned by POST /track-skip.
type TrackSkipResponse struct {
	Skipped   bool   `json:"skipped"`
	TrackID   string `json:"track_id,omitempty"`
	TrackName string `json:"track_name,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
