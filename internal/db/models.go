package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a Spotify user profile.
type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authenticated web session.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Track represents a Spotify track.
type Track struct {
	ID         string
	Name       string
	Artist     string
	Album      *string // nullable
	AlbumID    *string // nullable
	DurationMs *int    // nullable
	CreatedAt  time.Time
}

// SkipEvent is a single recorded skip.
type SkipEvent struct {
	ID         uuid.UUID
	UserID     string
	TrackID    string
	PlaylistID *string // nullable - set when playback context was a playlist
	ProgressMs int
	DurationMs int
	SkippedAt  time.Time
}

// SkipQuery narrows skip aggregation.
type SkipQuery struct {
	PlaylistID string    // empty for every playlist
	Since      time.Time // zero for no lower bound
}

// TrackSkips is the per-track skip aggregate.
type TrackSkips struct {
	TrackID     string
	Name        string
	Artist      string
	SkipCount   int
	LastSkipped time.Time
}

// SkipSummary holds skip totals for a query.
type SkipSummary struct {
	TotalSkips   int
	SongsTracked int
}
