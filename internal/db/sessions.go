package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultPurgeBatch is the number of expired sessions removed per statement.
const DefaultPurgeBatch = 500

const (
	sessionColumns = `id, user_id, access_token, refresh_token, token_expiry, created_at, expires_at`

	deleteExpiredBatch = `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id FROM sessions
			WHERE expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
		)
	`
)

// SessionRepository stores web sessions and the Spotify tokens they carry.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a session and drops the user's sessions that have already
// expired, in one transaction.
func (r *SessionRepository) Create(ctx context.Context, session *Session) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM sessions WHERE user_id = $1 AND expires_at <= $2`,
			session.UserID, session.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("deleting expired sessions for user: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			session.ID,
			session.UserID,
			session.AccessToken,
			session.RefreshToken,
			session.TokenExpiry,
			session.CreatedAt,
			session.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}
		return nil
	})
}

// Get returns an unexpired session by ID, or ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND expires_at > NOW()`,
		id,
	).Scan(&s.ID, &s.UserID, &s.AccessToken, &s.RefreshToken, &s.TokenExpiry, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &s, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// UpdateToken stores a refreshed Spotify token for a live session.
// Returns ErrNotFound if the session is gone or expired.
func (r *SessionRepository) UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET access_token = $2,
		    refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
		    token_expiry = $4
		WHERE id = $1 AND expires_at > NOW()
	`, id, accessToken, refreshToken, expiry)
	if err != nil {
		return fmt.Errorf("updating session token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired deletes sessions that expired at or before cutoff, batchSize
// rows per statement, and returns how many were removed.
// A non-positive batchSize uses DefaultPurgeBatch.
func (r *SessionRepository) PurgeExpired(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	n, err := purgeInBatches(ctx, batchSize, func(ctx context.Context, limit int) (int64, error) {
		result, err := r.pool.Exec(ctx, deleteExpiredBatch, cutoff, limit)
		if err != nil {
			return 0, err
		}
		return result.RowsAffected(), nil
	})
	if err != nil {
		return n, fmt.Errorf("purging expired sessions: %w", err)
	}
	return n, nil
}

// purgeInBatches calls deleteBatch until it removes fewer rows than the batch
// size, an error occurs or ctx is done.
func purgeInBatches(ctx context.Context, batchSize int, deleteBatch func(ctx context.Context, limit int) (int64, error)) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultPurgeBatch
	}

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := deleteBatch(ctx, batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(batchSize) {
			return total, nil
		}
	}
}
