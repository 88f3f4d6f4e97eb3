package service

import (
	"context"
	"io"
	"time"

	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/queue"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
)

// RenterStore is implemented by repository.RenterRepo.
type RenterStore interface {
	Create(ctx context.Context, r *model.Renter) error
	GetByEmail(ctx context.Context, email string) (model.Renter, error)
}

// SessionStore is implemented by repository.SessionRepo.
type SessionStore interface {
	Create(ctx context.Context, renterID uint64, tokenHash string, exp time.Time) (uint64, error)
	Resolve(ctx context.Context, tokenHash string, now time.Time) (model.Session, error)
	Touch(ctx context.Context, id uint64, exp time.Time) error
	Revoke(ctx context.Context, tokenHash string) error
}

// ListingStore is implemented by repository.ListingRepo.
type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id uint64) (model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error)
	ListAvailable(ctx context.Context, category string) ([]model.Listing, error)
	CategoryTotals(ctx context.Context, ownerID uint64) ([]model.CategorySummary, error)
}

// RequestStore is implemented by repository.RequestRepo.
type RequestStore interface {
	Checkout(ctx context.Context, req model.RentalRequest) (repository.CheckoutResult, error)
	Transition(ctx context.Context, requestID uint64, status string) (model.RentalRequest, error)
	GetByID(ctx context.Context, id uint64) (model.RentalRequest, error)
	ListByListing(ctx context.Context, listingID uint64) ([]model.RentalRequest, error)
}

// CustomerStore is implemented by repository.CustomerRepo.
type CustomerStore interface {
	Create(ctx context.Context, c *model.CustomerInfo) error
}

// FileStore is implemented by storage.LocalStore.
type FileStore interface {
	Save(ctx context.Context, kind storage.Kind, r io.Reader) (string, error)
	Delete(ctx context.Context, rel string) error
}

// Notifier is implemented by queue.Publisher.  Publish must not block.
type Notifier interface {
	Publish(ev queue.StatusChangedEvent) bool
}

// Upload is one file received from a client.  Size is the size the
// client declared; the file store enforces the real limit while copying.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}
