package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/rentals-marketplace/internal/logger"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
	"github.com/iliyamo/rentals-marketplace/internal/utils"
)

// AuthService registers renters and manages their cookie sessions.  A
// session is a signed token carrying a random session ID plus a
// server-side row keyed by the ID's digest; both must be valid for the
// session to resolve.
type AuthService struct {
	renters   RenterStore
	sessions  SessionStore
	files     FileStore
	secret    string
	ttl       time.Duration
	cost      int
	maxBytes  int64
	dummyHash string
	now       func() time.Time
	log       *slog.Logger
}

// AuthOptions configures sessions and passwords.  TTL is the sliding
// session lifetime, Cost the bcrypt cost for new passwords and
// MaxUploadBytes the profile image limit.
type AuthOptions struct {
	Secret         string
	TTL            time.Duration
	Cost           int
	MaxUploadBytes int64
}

// NewAuthService wires the session gate.  files stores optional profile
// images.
func NewAuthService(renters RenterStore, sessions SessionStore, files FileStore, opts AuthOptions) *AuthService {
	// Compared against for unknown emails so both login failures pay the
	// same bcrypt cost.
	dummy, _ := utils.HashPassword("rentals-timing-equalizer", opts.Cost)
	return &AuthService{
		renters:   renters,
		sessions:  sessions,
		files:     files,
		secret:    opts.Secret,
		ttl:       opts.TTL,
		cost:      opts.Cost,
		maxBytes:  opts.MaxUploadBytes,
		dummyHash: dummy,
		now:       func() time.Time { return time.Now().UTC() },
		log:       logger.WithComponent("auth"),
	}
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	EntityName  string
	PocName     string
	PhoneNumber string
	Location    string
	Email       string
	Password    string

	// ProfileImage is optional.
	ProfileImage *Upload
}

// Session is an established session: the signed token to place in the
// cookie, its expiry and the renter it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal model.Principal
}

// Register creates a renter account.  A taken email fails with
// ErrConflict and leaves the existing renter untouched; a stored profile
// image is removed again when the account is not created.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.Renter, error) {
	var (
		rt  model.Renter
		err error
	)
	if rt.EntityName, err = required("entity_name", in.EntityName); err != nil {
		return model.Renter{}, err
	}
	if rt.PocName, err = required("poc_name", in.PocName); err != nil {
		return model.Renter{}, err
	}
	if rt.PhoneNumber, err = contactNumber("phone_number", in.PhoneNumber); err != nil {
		return model.Renter{}, err
	}
	if rt.Location, err = required("location", in.Location); err != nil {
		return model.Renter{}, err
	}
	if rt.Email, err = required("email", in.Email); err != nil {
		return model.Renter{}, err
	}
	rt.Email = strings.ToLower(rt.Email)
	if !reEmail.MatchString(rt.Email) {
		return model.Renter{}, invalid("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLen {
		return model.Renter{}, invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}

	rt.PasswordHash, err = utils.HashPassword(in.Password, s.cost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return model.Renter{}, invalid("password", "must be at most 72 bytes")
	}
	if err != nil {
		return model.Renter{}, fmt.Errorf("hash password: %w", err)
	}

	if in.ProfileImage != nil {
		if err := checkUpload("profile_image", in.ProfileImage, s.maxBytes); err != nil {
			return model.Renter{}, err
		}
		if rt.ProfileImage, err = s.files.Save(ctx, storage.KindImage, in.ProfileImage.Content); err != nil {
			return model.Renter{}, storageError("profile_image", err)
		}
	}

	if err := s.renters.Create(ctx, &rt); err != nil {
		if rt.ProfileImage != "" {
			if derr := s.files.Delete(context.WithoutCancel(ctx), rt.ProfileImage); derr != nil {
				s.log.Warn("failed to delete stored file", "path", rt.ProfileImage, "error", derr)
			}
		}
		if errors.Is(err, repository.ErrEmailExists) {
			return model.Renter{}, conflict("email already registered")
		}
		return model.Renter{}, fmt.Errorf("create renter: %w", err)
	}
	rt.CreatedAt = s.now()
	return rt, nil
}

// Login checks credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Session{}, invalid("email", "is required")
	}
	if password == "" {
		return Session{}, invalid("password", "is required")
	}

	rt, err := s.renters.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.VerifyPassword(s.dummyHash, password)
		return Session{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	case err != nil:
		return Session{}, fmt.Errorf("load renter: %w", err)
	}
	if !utils.VerifyPassword(rt.PasswordHash, password) {
		return Session{}, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	sid, err := utils.NewSessionID()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	now := s.now()
	exp := now.Add(s.ttl)
	if _, err := s.sessions.Create(ctx, rt.ID, utils.HashToken(sid), exp); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	principal := model.Principal{RenterID: rt.ID, EntityName: rt.EntityName}
	return s.sign(principal, sid, now, exp)
}

// Resolve validates a session token and slides its expiry forward,
// returning a re-signed token.  Any invalid, unknown, revoked or expired
// session yields ErrUnauthorized.
func (s *AuthService) Resolve(ctx context.Context, token string) (Session, error) {
	claims, err := utils.ParseSession(s.secret, token)
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	renterID, _ := claims.RenterID()

	now := s.now()
	row, err := s.sessions.Resolve(ctx, utils.HashToken(claims.SID), now)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, fmt.Errorf("resolve session: %w", err)
	}
	if row.RenterID != renterID {
		return Session{}, ErrUnauthorized
	}

	exp := now.Add(s.ttl)
	if err := s.sessions.Touch(ctx, row.ID, exp); err != nil {
		return Session{}, fmt.Errorf("extend session: %w", err)
	}
	return s.sign(model.Principal{RenterID: row.RenterID, EntityName: row.EntityName}, claims.SID, now, exp)
}

// Logout revokes the server-side session so the token stops resolving
// even if the client keeps the cookie.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := utils.ParseSession(s.secret, token)
	if err != nil {
		return ErrUnauthorized
	}
	if err := s.sessions.Revoke(ctx, utils.HashToken(claims.SID)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *AuthService) sign(p model.Principal, sid string, now, exp time.Time) (Session, error) {
	tok, err := utils.SignSession(s.secret, p.RenterID, sid, p.EntityName, now, exp)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: tok, ExpiresAt: exp, Principal: p}, nil
}
