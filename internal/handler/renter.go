package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentals-marketplace/internal/middleware"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/service"
)

// Accounts is the registration and session side of the auth service.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (model.Renter, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Logout(ctx context.Context, token string) error
}

// RenterHandler serves registration and login/logout.
type RenterHandler struct {
	accounts Accounts
	cookie   middleware.Cookie
}

func NewRenterHandler(accounts Accounts, cookie middleware.Cookie) *RenterHandler {
	return &RenterHandler{accounts: accounts, cookie: cookie}
}

type registerReq struct {
	EntityName  string `json:"entity_name" form:"entity_name"`
	PocName     string `json:"poc_name" form:"poc_name"`
	PhoneNumber string `json:"phone_number" form:"phone_number"`
	Location    string `json:"location" form:"location"`
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
}

type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type sessionResp struct {
	LoggedIn   bool   `json:"logged_in"`
	RenterID   uint64 `json:"renter_id,omitempty"`
	EntityName string `json:"entity_name,omitempty"`
}

// Register: POST /v1/renters (JSON, or multipart with profile_image)
func (h *RenterHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var image *service.Upload
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		up, closeFn, err := formFile(c, "profile_image")
		defer closeFn()
		if err != nil {
			return respond(c, err)
		}
		image = up
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	rt, err := h.accounts.Register(ctx, service.RegisterInput{
		EntityName:   req.EntityName,
		PocName:      req.PocName,
		PhoneNumber:  req.PhoneNumber,
		Location:     req.Location,
		Email:        req.Email,
		Password:     req.Password,
		ProfileImage: image,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusCreated, rt)
}

// Login: POST /v1/sessions
func (h *RenterHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sess, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respond(c, err)
	}
	h.cookie.Set(c, sess.Token, sess.ExpiresAt)
	return c.JSON(http.StatusOK, sessionResp{LoggedIn: true, RenterID: sess.Principal.RenterID, EntityName: sess.Principal.EntityName})
}

// Logout: DELETE /v1/sessions
func (h *RenterHandler) Logout(c echo.Context) error {
	token := h.cookie.Token(c)
	if token == "" {
		return respond(c, service.ErrUnauthorized)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	err := h.accounts.Logout(ctx, token)
	if err != nil && !errors.Is(err, service.ErrUnauthorized) {
		return respond(c, err)
	}
	h.cookie.Clear(c)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Current: GET /v1/sessions/current
func (h *RenterHandler) Current(c echo.Context) error {
	p := middleware.Principal(c)
	if p == nil {
		return c.JSON(http.StatusOK, sessionResp{})
	}
	return c.JSON(http.StatusOK, sessionResp{LoggedIn: true, RenterID: p.RenterID, EntityName: p.EntityName})
}
