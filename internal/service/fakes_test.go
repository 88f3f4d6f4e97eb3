package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/queue"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
)

// memStore is an in-memory ListingStore and RequestStore with the same
// conditional semantics as the MySQL repositories.
type memStore struct {
	mu        sync.Mutex
	listings  map[uint64]model.Listing
	requests  map[uint64]model.RentalRequest
	nextID    uint64
	failWrite error
}

func newMemStore() *memStore {
	return &memStore{listings: map[uint64]model.Listing{}, requests: map[uint64]model.RentalRequest{}}
}

func (m *memStore) Create(ctx context.Context, l *model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	m.nextID++
	l.ID = m.nextID
	l.Rented = 0
	l.DeliveryStatus = model.ListingPending
	l.CreatedAt = time.Now().UTC()
	l.UpdatedAt = l.CreatedAt
	m.listings[l.ID] = *l
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return model.Listing{}, repository.ErrNotFound
	}
	return l, nil
}

func (m *memStore) Update(ctx context.Context, l *model.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	cur, ok := m.listings[l.ID]
	switch {
	case !ok:
		return repository.ErrNotFound
	case cur.OwnerID != l.OwnerID:
		return repository.ErrForbidden
	case cur.Rented > l.Stock:
		return repository.ErrStaleState
	}
	cur.Category, cur.Subcategory, cur.Brand, cur.Model = l.Category, l.Subcategory, l.Brand, l.Model
	cur.PricePerHourCents, cur.Stock, cur.Images = l.PricePerHourCents, l.Stock, l.Images
	cur.DeliveryStatus = model.ListingPending
	if cur.Rented >= cur.Stock {
		cur.DeliveryStatus = model.ListingRequested
	}
	m.listings[l.ID] = cur
	*l = cur
	return nil
}

func (m *memStore) sorted(keep func(model.Listing) bool) []model.Listing {
	out := []model.Listing{}
	for _, l := range m.listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(l model.Listing) bool { return l.OwnerID == ownerID }), nil
}

func (m *memStore) ListAvailable(ctx context.Context, category string) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(l model.Listing) bool {
		return l.DeliveryStatus == model.ListingPending && l.Rented < l.Stock && (category == "" || l.Category == category)
	}), nil
}

func (m *memStore) CategoryTotals(ctx context.Context, ownerID uint64) ([]model.CategorySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := map[string]*model.CategorySummary{}
	for _, l := range m.listings {
		if l.OwnerID != ownerID {
			continue
		}
		cs, ok := acc[l.Category]
		if !ok {
			cs = &model.CategorySummary{Category: l.Category}
			acc[l.Category] = cs
		}
		cs.TotalItems += l.Stock
		cs.RentedItems += l.Rented
	}
	var out []model.CategorySummary
	for _, cs := range acc {
		out = append(out, *cs)
	}
	return out, nil
}

func (m *memStore) Checkout(ctx context.Context, req model.RentalRequest) (repository.CheckoutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.IdempotencyKey != nil {
		for _, prev := range m.requests {
			if prev.IdempotencyKey != nil && *prev.IdempotencyKey == *req.IdempotencyKey {
				if prev.ListingID != req.ListingID {
					return repository.CheckoutResult{}, repository.ErrDuplicate
				}
				return repository.CheckoutResult{Request: prev, Model: m.listings[prev.ListingID].Model, Replayed: true}, nil
			}
		}
	}
	l, ok := m.listings[req.ListingID]
	if !ok {
		return repository.CheckoutResult{}, repository.ErrNotFound
	}
	if l.Rented+req.Quantity > l.Stock {
		return repository.CheckoutResult{}, repository.ErrInsufficientStock
	}
	if m.failWrite != nil {
		return repository.CheckoutResult{}, m.failWrite
	}
	if l.Rented+req.Quantity >= l.Stock {
		l.DeliveryStatus = model.ListingRequested
	}
	l.Rented += req.Quantity
	m.listings[l.ID] = l

	m.nextID++
	req.ID = m.nextID
	req.PricePerHourCents = l.PricePerHourCents
	req.TotalPriceCents = l.PricePerHourCents * int64(req.Quantity) * int64(req.DurationHours)
	req.Status = model.RequestPending
	m.requests[req.ID] = req
	return repository.CheckoutResult{Request: req, Model: l.Model}, nil
}

func (m *memStore) Transition(ctx context.Context, requestID uint64, status string) (model.RentalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return model.RentalRequest{}, repository.ErrNotFound
	}
	if req.Status != model.RequestPending {
		return model.RentalRequest{}, repository.ErrStaleState
	}
	l := m.listings[req.ListingID]
	if l.Rented < req.Quantity {
		return model.RentalRequest{}, repository.ErrStaleState
	}
	l.Rented -= req.Quantity
	l.DeliveryStatus = model.ListingPending
	m.listings[l.ID] = l
	req.Status = status
	m.requests[req.ID] = req
	return req, nil
}

func (m *memStore) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *memStore) requestByID(id uint64) (model.RentalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return model.RentalRequest{}, repository.ErrNotFound
	}
	return req, nil
}

func (m *memStore) ListByListing(ctx context.Context, listingID uint64) ([]model.RentalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.RentalRequest{}
	for _, r := range m.requests {
		if r.ListingID == listingID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// requestStore exposes memStore through the RequestStore interface.
type requestStore struct{ *memStore }

func (r requestStore) GetByID(ctx context.Context, id uint64) (model.RentalRequest, error) {
	return r.requestByID(id)
}

// memFiles is an in-memory FileStore.  Content starting with "bad" is
// rejected as an unsupported type.
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	n     int
}

func newMemFiles() *memFiles { return &memFiles{files: map[string][]byte{}} }

func (f *memFiles) Save(ctx context.Context, kind storage.Kind, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if bytes.HasPrefix(b, []byte("bad")) {
		return "", fmt.Errorf("%w: text/plain", storage.ErrUnsupportedType)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	rel := fmt.Sprintf("%s/%d-file", kind, f.n)
	f.files[rel] = b
	return rel, nil
}

func (f *memFiles) Delete(ctx context.Context, rel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, rel)
	return nil
}

func (f *memFiles) count(kind storage.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.files {
		if strings.HasPrefix(k, string(kind)+"/") {
			n++
		}
	}
	return n
}

// MockNotifier records published events.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ev queue.StatusChangedEvent) bool {
	args := m.Called(ev)
	return args.Bool(0)
}

// MockRenterStore
type MockRenterStore struct {
	mock.Mock
}

func (m *MockRenterStore) Create(ctx context.Context, r *model.Renter) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRenterStore) GetByEmail(ctx context.Context, email string) (model.Renter, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.Renter), args.Error(1)
}

// MockSessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, renterID uint64, tokenHash string, exp time.Time) (uint64, error) {
	args := m.Called(ctx, renterID, tokenHash, exp)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockSessionStore) Resolve(ctx context.Context, tokenHash string, now time.Time) (model.Session, error) {
	args := m.Called(ctx, tokenHash, now)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockSessionStore) Touch(ctx context.Context, id uint64, exp time.Time) error {
	args := m.Called(ctx, id, exp)
	return args.Error(0)
}

func (m *MockSessionStore) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

// MockCustomerStore
type MockCustomerStore struct {
	mock.Mock
}

func (m *MockCustomerStore) Create(ctx context.Context, c *model.CustomerInfo) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

var errStoreDown = errors.New("store unavailable")

func png() Upload {
	return Upload{Filename: "a.png", Size: 8, Content: strings.NewReader("\x89PNG\r\n\x1a\n")}
}

func badUpload() Upload {
	return Upload{Filename: "a.txt", Size: 8, Content: strings.NewReader("bad file")}
}

func pdf() *Upload {
	return &Upload{Filename: "id.pdf", Size: 8, Content: strings.NewReader("%PDF-1.4")}
}
