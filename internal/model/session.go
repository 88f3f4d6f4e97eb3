package model

import "time"

// Session models an entry in the `sessions` table.  The raw session
// token only ever lives in the signed cookie; the table stores its
// SHA-256 hex digest.
//
// Fields:
//  ID         – primary key identifier.
//  RenterID   – owner of the session.
//  EntityName – renter display name captured at login.
//  TokenHash  – SHA-256 hex digest of the raw token.
//  ExpiresAt  – sliding expiry, pushed forward on every use.
//  RevokedAt  – set on logout (nil while active).
//  CreatedAt  – login timestamp.
type Session struct {
	ID         uint64     // sessions.id
	RenterID   uint64     // sessions.renter_id
	EntityName string     // renters.entity_name (joined)
	TokenHash  string     // sessions.token_hash
	ExpiresAt  time.Time  // sessions.expires_at
	RevokedAt  *time.Time // sessions.revoked_at (nullable)
	CreatedAt  time.Time  // sessions.created_at
}
