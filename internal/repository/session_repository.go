package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/rentals-marketplace/internal/model"
)

// SessionRepo persists login sessions (single 'token_hash' column holding
// the SHA-256 hex digest of the raw token).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row and returns its ID.
func (r *SessionRepo) Create(ctx context.Context, renterID uint64, tokenHash string, exp time.Time) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (renter_id, token_hash, expires_at) VALUES (?,?,?)",
		renterID, tokenHash, exp.UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Resolve returns the active session for tokenHash.  Revoked and expired
// sessions yield ErrNotFound just like unknown ones.
func (r *SessionRepo) Resolve(ctx context.Context, tokenHash string, now time.Time) (model.Session, error) {
	var (
		s         model.Session
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT s.id, s.renter_id, rt.entity_name, s.token_hash, s.expires_at, s.revoked_at, s.created_at
		   FROM sessions s JOIN renters rt ON rt.id = s.renter_id
		  WHERE s.token_hash=? LIMIT 1`,
		tokenHash).Scan(&s.ID, &s.RenterID, &s.EntityName, &s.TokenHash, &s.ExpiresAt, &revokedAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	if revokedAt.Valid || !now.Before(s.ExpiresAt) {
		return model.Session{}, ErrNotFound
	}
	return s, nil
}

// Touch slides the expiry of an active session forward.
func (r *SessionRepo) Touch(ctx context.Context, id uint64, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET expires_at=? WHERE id=? AND revoked_at IS NULL",
		exp.UTC(), id)
	return err
}

// Revoke marks a session as revoked.  Revoking an already revoked or
// unknown session is not an error.
func (r *SessionRepo) Revoke(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

