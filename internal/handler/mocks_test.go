package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentals-marketplace/internal/middleware"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/service"
)

type MockAccounts struct{ mock.Mock }

func (m *MockAccounts) Register(ctx context.Context, in service.RegisterInput) (model.Renter, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.Renter), args.Error(1)
}

func (m *MockAccounts) Login(ctx context.Context, email, password string) (service.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *MockAccounts) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type MockInventory struct{ mock.Mock }

func (m *MockInventory) CreateListing(ctx context.Context, p *model.Principal, in service.ListingInput) (model.Listing, error) {
	args := m.Called(ctx, p, in)
	return args.Get(0).(model.Listing), args.Error(1)
}

func (m *MockInventory) UpdateListing(ctx context.Context, p *model.Principal, id uint64, in service.ListingInput) (model.Listing, error) {
	args := m.Called(ctx, p, id, in)
	return args.Get(0).(model.Listing), args.Error(1)
}

func (m *MockInventory) GetListing(ctx context.Context, p *model.Principal, id uint64) (model.Listing, error) {
	args := m.Called(ctx, p, id)
	return args.Get(0).(model.Listing), args.Error(1)
}

func (m *MockInventory) ListByOwner(ctx context.Context, p *model.Principal) ([]model.Listing, error) {
	args := m.Called(ctx, p)
	return args.Get(0).([]model.Listing), args.Error(1)
}

func (m *MockInventory) ListByCategory(ctx context.Context, category string) ([]model.Listing, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]model.Listing), args.Error(1)
}

func (m *MockInventory) InventorySummary(ctx context.Context, p *model.Principal) (model.InventorySummary, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.InventorySummary), args.Error(1)
}

func (m *MockInventory) Checkout(ctx context.Context, in service.CheckoutInput) (service.CheckoutResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.CheckoutResult), args.Error(1)
}

func (m *MockInventory) ListRequests(ctx context.Context, p *model.Principal, listingID uint64) ([]model.RentalRequest, error) {
	args := m.Called(ctx, p, listingID)
	return args.Get(0).([]model.RentalRequest), args.Error(1)
}

func (m *MockInventory) FulfillRequest(ctx context.Context, p *model.Principal, requestID uint64) (model.RentalRequest, error) {
	args := m.Called(ctx, p, requestID)
	return args.Get(0).(model.RentalRequest), args.Error(1)
}

func (m *MockInventory) CancelRequest(ctx context.Context, p *model.Principal, requestID uint64) (model.RentalRequest, error) {
	args := m.Called(ctx, p, requestID)
	return args.Get(0).(model.RentalRequest), args.Error(1)
}

type MockCustomerRecords struct{ mock.Mock }

func (m *MockCustomerRecords) Submit(ctx context.Context, p *model.Principal, in service.CustomerInput) (model.CustomerInfo, error) {
	args := m.Called(ctx, p, in)
	return args.Get(0).(model.CustomerInfo), args.Error(1)
}

var renter = &model.Principal{RenterID: 7, EntityName: "Acme Rentals"}

// call runs h against req with p stored as the session principal.
func call(t *testing.T, h echo.HandlerFunc, req *http.Request, path string, p *model.Principal, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if p != nil {
		middleware.SetPrincipal(c, p)
	}
	require.NoError(t, h(c))
	return rec
}

type filePart struct {
	field, name string
	content     []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}
