package utils // package utils provides helpers for session tokens and password hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for cookies that fail signature,
// expiry or claim checks.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the payload of the signed session cookie.  Subject
// carries the renter ID and SID the raw opaque session token whose
// SHA-256 digest keys the server-side session row.
type SessionClaims struct {
	SID  string `json:"sid"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// RenterID returns the subject as a renter ID.
func (c *SessionClaims) RenterID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// SignSession builds and signs an HS256 token for a renter session.
func SignSession(secret string, renterID uint64, sid, name string, now, exp time.Time) (string, error) {
	claims := SessionClaims{
		SID:  sid,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(renterID, 10),
			IssuedAt:  jwt.NewNumericDate(now.UTC()),
			ExpiresAt: jwt.NewNumericDate(exp.UTC()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSession verifies the signature and expiry of a session token.
// Only HMAC signing methods are accepted.
func ParseSession(secret, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidSession
	}
	if claims.SID == "" {
		return nil, ErrInvalidSession
	}
	if _, err := claims.RenterID(); err != nil {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// NewSessionID returns a random 32-byte session token, hex encoded.
func NewSessionID() (string, error) {
	return randomHex(32)
}

// HashToken returns the SHA-256 hex digest of a raw session token.  Only
// the digest is stored, so a leaked sessions table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns n bytes of cryptographically secure random data,
// hex encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
