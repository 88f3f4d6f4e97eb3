// Package verify checks a customer's identity details against an
// authority.  The only implementation shipped is MockVerifier, which
// compares against a fixed placeholder record.  It exists so the
// customer-info flow can be exercised end to end and is not a security
// control.
package verify

import (
	"context"
	"errors"
	"strings"
)

// ErrMismatch is returned when the submitted details do not match the
// authority's record.
var ErrMismatch = errors.New("identity details do not match")

// Identity is the subset of a submission a verifier checks.
type Identity struct {
	IDNumber      string
	Name          string
	ContactNumber string
}

// Verifier checks an identity.  Implementations return ErrMismatch for a
// negative result and any other error when the check itself failed.
type Verifier interface {
	Verify(ctx context.Context, id Identity) error
}

// MockVerifier accepts exactly one name and contact number pair.
type MockVerifier struct {
	Name          string
	ContactNumber string
}

// NewMockVerifier returns a verifier for the placeholder record
// John Doe / 9876543210.
func NewMockVerifier() *MockVerifier {
	return &MockVerifier{Name: "John Doe", ContactNumber: "9876543210"}
}

func (m *MockVerifier) Verify(ctx context.Context, id Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(id.Name), m.Name) || strings.TrimSpace(id.ContactNumber) != m.ContactNumber {
		return ErrMismatch
	}
	return nil
}
