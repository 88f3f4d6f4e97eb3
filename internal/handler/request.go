package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentals-marketplace/internal/middleware"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/service"
)

const headerIdempotencyKey = "Idempotency-Key"

// Checkout: POST /v1/listings/:id/requests (multipart).  Answers 201 for a
// new request and 200 when an Idempotency-Key replays an earlier one.
func (h *ListingHandler) Checkout(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badField(c, "id", "must be a positive integer")
	}
	doc, closeFn, err := formFile(c, "identity_document")
	defer closeFn()
	if err != nil {
		return respond(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.inv.Checkout(ctx, service.CheckoutInput{
		ListingID:        id,
		CustomerName:     c.FormValue("customer_name"),
		ContactNumber:    c.FormValue("contact_number"),
		DurationHours:    c.FormValue("duration_hours"),
		Quantity:         c.FormValue("quantity"),
		IdentityDocument: doc,
		IdempotencyKey:   c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return respond(c, err)
	}
	if res.Replayed {
		return c.JSON(http.StatusOK, res.Request)
	}
	return c.JSON(http.StatusCreated, res.Request)
}

// ListRequests: GET /v1/listings/:id/requests
func (h *ListingHandler) ListRequests(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badField(c, "id", "must be a positive integer")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	items, err := h.inv.ListRequests(ctx, middleware.Principal(c), id)
	if err != nil {
		return respond(c, err)
	}
	if items == nil {
		items = []model.RentalRequest{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Fulfill: POST /v1/requests/:id/fulfill
func (h *ListingHandler) Fulfill(c echo.Context) error {
	return h.transition(c, h.inv.FulfillRequest)
}

// Cancel: POST /v1/requests/:id/cancel
func (h *ListingHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.inv.CancelRequest)
}

type transitionFunc func(ctx context.Context, p *model.Principal, requestID uint64) (model.RentalRequest, error)

func (h *ListingHandler) transition(c echo.Context, fn transitionFunc) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badField(c, "id", "must be a positive integer")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	req, err := fn(ctx, middleware.Principal(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, req)
}
