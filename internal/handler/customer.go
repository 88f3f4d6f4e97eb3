package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentals-marketplace/internal/middleware"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/service"
)

// CustomerRecords accepts identity submissions.
type CustomerRecords interface {
	Submit(ctx context.Context, p *model.Principal, in service.CustomerInput) (model.CustomerInfo, error)
}

type CustomerHandler struct {
	records CustomerRecords
}

func NewCustomerHandler(records CustomerRecords) *CustomerHandler {
	return &CustomerHandler{records: records}
}

// Submit: POST /v1/customer-info (multipart)
func (h *CustomerHandler) Submit(c echo.Context) error {
	doc, closeFn, err := formFile(c, "document")
	defer closeFn()
	if err != nil {
		return respond(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	info, err := h.records.Submit(ctx, middleware.Principal(c), service.CustomerInput{
		IDNumber:      c.FormValue("id_number"),
		Name:          c.FormValue("name"),
		ContactNumber: c.FormValue("contact_number"),
		Location:      c.FormValue("location"),
		Document:      doc,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(http.StatusCreated, info)
}
