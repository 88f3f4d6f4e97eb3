package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentals-marketplace/internal/middleware"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/service"
)

// Inventory is the listing and request surface of the inventory service.
type Inventory interface {
	CreateListing(ctx context.Context, p *model.Principal, in service.ListingInput) (model.Listing, error)
	UpdateListing(ctx context.Context, p *model.Principal, id uint64, in service.ListingInput) (model.Listing, error)
	GetListing(ctx context.Context, p *model.Principal, id uint64) (model.Listing, error)
	ListByOwner(ctx context.Context, p *model.Principal) ([]model.Listing, error)
	ListByCategory(ctx context.Context, category string) ([]model.Listing, error)
	InventorySummary(ctx context.Context, p *model.Principal) (model.InventorySummary, error)

	Checkout(ctx context.Context, in service.CheckoutInput) (service.CheckoutResult, error)
	ListRequests(ctx context.Context, p *model.Principal, listingID uint64) ([]model.RentalRequest, error)
	FulfillRequest(ctx context.Context, p *model.Principal, requestID uint64) (model.RentalRequest, error)
	CancelRequest(ctx context.Context, p *model.Principal, requestID uint64) (model.RentalRequest, error)
}

// ListingHandler serves listings and their rental requests.
type ListingHandler struct {
	inv Inventory
}

func NewListingHandler(inv Inventory) *ListingHandler {
	return &ListingHandler{inv: inv}
}

func listingInput(c echo.Context) (service.ListingInput, func(), error) {
	images, closeFn, err := formFiles(c, "images")
	if err != nil {
		return service.ListingInput{}, closeFn, err
	}
	return service.ListingInput{
		Category:     c.FormValue("category"),
		Subcategory:  c.FormValue("subcategory"),
		Brand:        c.FormValue("brand"),
		Model:        c.FormValue("model"),
		Stock:        c.FormValue("stock"),
		PricePerHour: c.FormValue("price_per_hour"),
		Images:       images,
	}, closeFn, nil
}

// Create: POST /v1/listings (multipart)
func (h *ListingHandler) Create(c echo.Context) error {
	in, closeFn, err := listingInput(c)
	defer closeFn()
	if err != nil {
		return respond(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	l, err := h.inv.CreateListing(ctx, middleware.Principal(c), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// Update: PUT /v1/listings/:id (multipart)
func (h *ListingHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badField(c, "id", "must be a positive integer")
	}
	in, closeFn, err := listingInput(c)
	defer closeFn()
	if err != nil {
		return respond(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	l, err := h.inv.UpdateListing(ctx, middleware.Principal(c), id, in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// List: GET /v1/listings.  With a category query it is the public browse,
// otherwise the caller's own listings.
func (h *ListingHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	var (
		items []model.Listing
		err   error
	)
	if c.QueryParams().Has("category") {
		items, err = h.inv.ListByCategory(ctx, c.QueryParam("category"))
	} else {
		items, err = h.inv.ListByOwner(ctx, middleware.Principal(c))
	}
	if err != nil {
		return respond(c, err)
	}
	if items == nil {
		items = []model.Listing{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Summary: GET /v1/listings/summary
func (h *ListingHandler) Summary(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	sum, err := h.inv.InventorySummary(ctx, middleware.Principal(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

// Get: GET /v1/listings/:id
func (h *ListingHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badField(c, "id", "must be a positive integer")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	l, err := h.inv.GetListing(ctx, middleware.Principal(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusOK, l)
}
