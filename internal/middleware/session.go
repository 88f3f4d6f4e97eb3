package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentals-marketplace/internal/logger"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/service"
)

const principalKey = "principal"

// SessionResolver turns a cookie token into a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (service.Session, error)
}

// Cookie describes how the session cookie is written.
type Cookie struct {
	Name   string
	Secure bool
}

// Set writes the session cookie holding token until exp.
func (ck Cookie) Set(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     ck.Name,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   ck.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on the client.
func (ck Cookie) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     ck.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ck.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the raw session cookie value, or "".
func (ck Cookie) Token(c echo.Context) string {
	v, err := c.Cookie(ck.Name)
	if err != nil {
		return ""
	}
	return v.Value
}

// Session resolves the session cookie, if any, and stores the principal
// in the context.  A resolved session slides forward and the cookie is
// re-issued.  A dead cookie is cleared and the request continues
// unauthenticated; routes that need a renter add RequireRenter.
func Session(auth SessionResolver, ck Cookie) echo.MiddlewareFunc {
	log := logger.WithComponent("session")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ck.Token(c)
			if token == "" {
				return next(c)
			}
			sess, err := auth.Resolve(c.Request().Context(), token)
			switch {
			case errors.Is(err, service.ErrUnauthorized):
				ck.Clear(c)
				return next(c)
			case err != nil:
				log.ErrorContext(c.Request().Context(), "session lookup failed", "error", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			ck.Set(c, sess.Token, sess.ExpiresAt)
			p := sess.Principal
			SetPrincipal(c, &p)
			return next(c)
		}
	}
}

// RequireRenter aborts with 401 unless Session stored a principal.
func RequireRenter() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Principal(c) == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "login required"})
			}
			return next(c)
		}
	}
}

// SetPrincipal stores the authenticated renter in the context.
func SetPrincipal(c echo.Context, p *model.Principal) {
	c.Set(principalKey, p)
}

// Principal returns the authenticated renter, or nil.
func Principal(c echo.Context) *model.Principal {
	p, _ := c.Get(principalKey).(*model.Principal)
	return p
}
