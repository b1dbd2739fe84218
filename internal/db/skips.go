package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SkipRepository handles skip event database operations.
type SkipRepository struct {
	pool *pgxpool.Pool
}

// Insert stores a skip event. A missing ID is generated.
func (r *SkipRepository) Insert(ctx context.Context, ev *SkipEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.SkippedAt.IsZero() {
		ev.SkippedAt = time.Now()
	}

	query := `
		INSERT INTO skip_events (id, user_id, track_id, playlist_id, progress_ms, duration_ms, skipped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		ev.ID,
		ev.UserID,
		ev.TrackID,
		ev.PlaylistID,
		ev.ProgressMs,
		ev.DurationMs,
		ev.SkippedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting skip event: %w", err)
	}
	return nil
}

// filterArgs converts a SkipQuery into nullable query arguments.
func filterArgs(q SkipQuery) (*string, *time.Time) {
	var playlist *string
	if q.PlaylistID != "" {
		playlist = &q.PlaylistID
	}
	var since *time.Time
	if !q.Since.IsZero() {
		since = &q.Since
	}
	return playlist, since
}

// TrackSkips aggregates skip events per track, most skipped first.
func (r *SkipRepository) TrackSkips(ctx context.Context, userID string, q SkipQuery) ([]TrackSkips, error) {
	query := `
		SELECT t.id, t.name, t.artist, COUNT(*) AS skip_count, MAX(e.skipped_at) AS last_skipped
		FROM skip_events e
		JOIN tracks t ON t.id = e.track_id
		WHERE e.user_id = $1
			AND ($2::text IS NULL OR e.playlist_id = $2)
			AND ($3::timestamptz IS NULL OR e.skipped_at >= $3)
		GROUP BY t.id, t.name, t.artist
		ORDER BY skip_count DESC, last_skipped DESC
	`
	playlist, since := filterArgs(q)
	rows, err := r.pool.Query(ctx, query, userID, playlist, since)
	if err != nil {
		return nil, fmt.Errorf("querying track skips: %w", err)
	}
	defer rows.Close()

	var result []TrackSkips
	for rows.Next() {
		var ts TrackSkips
		if err := rows.Scan(
			&ts.TrackID,
			&ts.Name,
			&ts.Artist,
			&ts.SkipCount,
			&ts.LastSkipped,
		); err != nil {
			return nil, fmt.Errorf("scanning track skips: %w", err)
		}
		result = append(result, ts)
	}
	return result, rows.Err()
}

// Summary returns skip totals for a user.
func (r *SkipRepository) Summary(ctx context.Context, userID string, q SkipQuery) (*SkipSummary, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT track_id)
		FROM skip_events
		WHERE user_id = $1
			AND ($2::text IS NULL OR playlist_id = $2)
			AND ($3::timestamptz IS NULL OR skipped_at >= $3)
	`
	playlist, since := filterArgs(q)
	var s SkipSummary
	if err := r.pool.QueryRow(ctx, query, userID, playlist, since).Scan(&s.TotalSkips, &s.SongsTracked); err != nil {
		return nil, fmt.Errorf("querying skip summary: %w", err)
	}
	return &s, nil
}

// DeleteForTracks removes every skip event of the given tracks for a user.
// Returns the number of deleted events.
func (r *SkipRepository) DeleteForTracks(ctx context.Context, userID string, trackIDs []string) (int64, error) {
	if len(trackIDs) == 0 {
		return 0, nil
	}

	query := `DELETE FROM skip_events WHERE user_id = $1 AND track_id = ANY($2)`
	result, err := r.pool.Exec(ctx, query, userID, trackIDs)
	if err != nil {
		return 0, fmt.Errorf("deleting skip events: %w", err)
	}
	return result.RowsAffected(), nil
}
