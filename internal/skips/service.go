package skips

import (
	"context"
	"fmt"
	"time"

	"github.com/justestif/go-spotify-skip-tracker/internal/db"
)

// Event describes a detected skip ready to be persisted.
type Event struct {
	TrackID    string
	TrackName  string
	Artist     string
	Album      string
	AlbumID    string
	PlaylistID string // empty when playback was not in a playlist
	ProgressMs int
	DurationMs int
	SkippedAt  time.Time
}

// Service serves skip analytics from the database.
type Service struct {
	db  *db.DB
	now func() time.Time
}

// NewService creates a new skip service.
func NewService(database *db.DB) *Service {
	return &Service{db: database, now: time.Now}
}

// Analytics returns skip totals for the user under the given filters.
func (s *Service) Analytics(ctx context.Context, userID string, f Filters) (Analytics, error) {
	summary, err := s.db.Skips().Summary(ctx, userID, toQuery(f, s.now()))
	if err != nil {
		return Analytics{}, fmt.Errorf("getting skip summary: %w", err)
	}
	return Analytics{
		TotalSkips:   summary.TotalSkips,
		SongsTracked: summary.SongsTracked,
	}, nil
}

// SkippedSongs returns the user's skipped songs under the given filters, most skipped first.
func (s *Service) SkippedSongs(ctx context.Context, userID string, f Filters) ([]Song, error) {
	rows, err := s.db.Skips().TrackSkips(ctx, userID, toQuery(f, s.now()))
	if err != nil {
		return nil, fmt.Errorf("getting skipped songs: %w", err)
	}
	return toSongs(rows), nil
}

// DeleteSongs removes all skip records of the given songs for the user.
func (s *Service) DeleteSongs(ctx context.Context, userID string, songIDs []string) (int64, error) {
	n, err := s.db.Skips().DeleteForTracks(ctx, userID, songIDs)
	if err != nil {
		return 0, fmt.Errorf("deleting songs: %w", err)
	}
	return n, nil
}

// RecordSkip persists the skipped track and its skip event.
func (s *Service) RecordSkip(ctx context.Context, userID string, ev Event) error {
	track := &db.Track{
		ID:     ev.TrackID,
		Name:   ev.TrackName,
		Artist: ev.Artist,
	}
	if ev.Album != "" {
		track.Album = &ev.Album
	}
	if ev.AlbumID != "" {
		track.AlbumID = &ev.AlbumID
	}
	if ev.DurationMs > 0 {
		track.DurationMs = &ev.DurationMs
	}
	if err := s.db.Tracks().Upsert(ctx, track); err != nil {
		return fmt.Errorf("saving skipped track: %w", err)
	}

	dbEvent := &db.SkipEvent{
		UserID:     userID,
		TrackID:    ev.TrackID,
		ProgressMs: ev.ProgressMs,
		DurationMs: ev.DurationMs,
		SkippedAt:  ev.SkippedAt,
	}
	if ev.PlaylistID != "" {
		dbEvent.PlaylistID = &ev.PlaylistID
	}
	if err := s.db.Skips().Insert(ctx, dbEvent); err != nil {
		return fmt.Errorf("saving skip event: %w", err)
	}
	return nil
}

// toQuery converts dashboard filters into a database query.
func toQuery(f Filters, now time.Time) db.SkipQuery {
	f = f.Normalize()
	return db.SkipQuery{
		PlaylistID: f.PlaylistID(),
		Since:      f.Timeframe.Since(now),
	}
}

// toSongs converts per-track aggregates into songs.
func toSongs(rows []db.TrackSkips) []Song {
	songs := make([]Song, len(rows))
	for i, r := range rows {
		song := Song{
			ID:        r.TrackID,
			Name:      r.Name,
			Artist:    r.Artist,
			SkipCount: r.SkipCount,
		}
		if !r.LastSkipped.IsZero() {
			last := r.LastSkipped
			song.LastSkipped = &last
		}
		songs[i] = song
	}
	return songs
}
