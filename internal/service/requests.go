package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/queue"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
)

// CheckoutInput is the anonymous checkout form.  DurationHours and
// Quantity are the raw submitted strings.
type CheckoutInput struct {
	ListingID        uint64
	CustomerName     string
	ContactNumber    string
	DurationHours    string
	Quantity         string
	IdentityDocument *Upload
	IdempotencyKey   string
}

// CheckoutResult is a created or replayed rental request.
type CheckoutResult struct {
	Request  model.RentalRequest
	Replayed bool
}

// Checkout reserves units of a listing for a customer.  The identity
// document is stored first and removed again if the reservation fails.
// With an idempotency key a repeated checkout returns the original
// request without reserving anything.  Requesting more units than are
// available fails with ErrConflict and changes nothing.
func (s *InventoryService) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	req := model.RentalRequest{ListingID: in.ListingID}
	var err error
	if req.CustomerName, err = required("customer_name", in.CustomerName); err != nil {
		return CheckoutResult{}, err
	}
	if req.ContactNumber, err = contactNumber("contact_number", in.ContactNumber); err != nil {
		return CheckoutResult{}, err
	}
	if req.DurationHours, err = positiveInt("duration_hours", in.DurationHours); err != nil {
		return CheckoutResult{}, err
	}
	if req.Quantity, err = positiveInt("quantity", in.Quantity); err != nil {
		return CheckoutResult{}, err
	}
	if err := checkUpload("identity_document", in.IdentityDocument, s.maxBytes); err != nil {
		return CheckoutResult{}, err
	}
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		if len(key) > maxIdempotencyKey {
			return CheckoutResult{}, invalid("idempotency_key", fmt.Sprintf("must be at most %d characters", maxIdempotencyKey))
		}
		req.IdempotencyKey = &key
	}

	l, err := s.listings.GetByID(ctx, in.ListingID)
	if errors.Is(err, repository.ErrNotFound) {
		return CheckoutResult{}, ErrNotFound
	}
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("load listing: %w", err)
	}
	// A replay must still succeed after the original request used up the
	// last units, so the early availability check only runs without a key.
	if req.IdempotencyKey == nil && req.Quantity > l.Available() {
		return CheckoutResult{}, insufficient(l.Available())
	}

	doc, err := s.files.Save(ctx, storage.KindDocument, in.IdentityDocument.Content)
	if err != nil {
		return CheckoutResult{}, storageError("identity_document", err)
	}
	req.IdentityDocument = doc

	res, err := s.requests.Checkout(ctx, req)
	if err != nil {
		s.deleteFiles(ctx, []string{doc})
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return CheckoutResult{}, ErrNotFound
		case errors.Is(err, repository.ErrInsufficientStock):
			return CheckoutResult{}, conflict("not enough units available")
		case errors.Is(err, repository.ErrDuplicate):
			return CheckoutResult{}, conflict("idempotency key already used for another listing")
		}
		return CheckoutResult{}, fmt.Errorf("checkout: %w", err)
	}
	if res.Replayed {
		s.deleteFiles(ctx, []string{doc})
		return CheckoutResult{Request: res.Request, Replayed: true}, nil
	}

	s.notify(queue.StatusChangedEvent{
		RequestID: res.Request.ID,
		ListingID: res.Request.ListingID,
		Model:     res.Model,
		Status:    model.ListingRequested,
	})
	return CheckoutResult{Request: res.Request}, nil
}

func insufficient(available int) error {
	if available == 0 {
		return conflict("no units available")
	}
	return conflict(fmt.Sprintf("only %d units available", available))
}

// ListRequests returns the requests made against an owned listing.
func (s *InventoryService) ListRequests(ctx context.Context, p *model.Principal, listingID uint64) ([]model.RentalRequest, error) {
	if _, err := s.ownedListing(ctx, p, listingID); err != nil {
		return nil, err
	}
	reqs, err := s.requests.ListByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}

// FulfillRequest completes a Pending request and releases its units.
func (s *InventoryService) FulfillRequest(ctx context.Context, p *model.Principal, requestID uint64) (model.RentalRequest, error) {
	return s.transition(ctx, p, requestID, model.RequestFulfilled)
}

// CancelRequest cancels a Pending request and releases its units.
func (s *InventoryService) CancelRequest(ctx context.Context, p *model.Principal, requestID uint64) (model.RentalRequest, error) {
	return s.transition(ctx, p, requestID, model.RequestCancelled)
}

func (s *InventoryService) transition(ctx context.Context, p *model.Principal, requestID uint64, status string) (model.RentalRequest, error) {
	if p == nil {
		return model.RentalRequest{}, ErrUnauthorized
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.RentalRequest{}, ErrNotFound
	}
	if err != nil {
		return model.RentalRequest{}, fmt.Errorf("load request: %w", err)
	}
	l, err := s.ownedListing(ctx, p, req.ListingID)
	if err != nil {
		return model.RentalRequest{}, err
	}
	if req.Status != model.RequestPending {
		return model.RentalRequest{}, conflict("request is already " + strings.ToLower(req.Status))
	}

	updated, err := s.requests.Transition(ctx, requestID, status)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.RentalRequest{}, ErrNotFound
	case errors.Is(err, repository.ErrStaleState):
		return model.RentalRequest{}, conflict("request is no longer pending")
	case err != nil:
		return model.RentalRequest{}, fmt.Errorf("update request: %w", err)
	}

	s.notify(queue.StatusChangedEvent{
		RequestID: updated.ID,
		ListingID: updated.ListingID,
		Model:     l.Model,
		Status:    status,
	})
	return updated, nil
}
