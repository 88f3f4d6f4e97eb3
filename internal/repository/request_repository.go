package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/rentals-marketplace/internal/model"
)

// RequestRepo stores rental requests and coordinates them with the
// listing counters.  Checkout and Transition each run in one
// transaction so a request row never exists without its reservation.
type RequestRepo struct {
	db       *sql.DB
	listings *ListingRepo
}

// NewRequestRepo returns a RequestRepo sharing db with listings.
func NewRequestRepo(db *sql.DB, listings *ListingRepo) *RequestRepo {
	return &RequestRepo{db: db, listings: listings}
}

const requestColumns = `id, listing_id, customer_name, contact_number, identity_document, quantity,
       duration_hours, price_per_hour_cents, total_price_cents, status, idempotency_key, created_at, updated_at`

func scanRequest(row rowScanner) (model.RentalRequest, error) {
	var (
		req model.RentalRequest
		key sql.NullString
	)
	err := row.Scan(&req.ID, &req.ListingID, &req.CustomerName, &req.ContactNumber, &req.IdentityDocument,
		&req.Quantity, &req.DurationHours, &req.PricePerHourCents, &req.TotalPriceCents, &req.Status,
		&key, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return model.RentalRequest{}, err
	}
	if key.Valid {
		k := key.String
		req.IdempotencyKey = &k
	}
	return req, nil
}

// CheckoutResult describes the outcome of Checkout.
type CheckoutResult struct {
	Request  model.RentalRequest
	Model    string // listing model, for notifications
	Replayed bool   // true when an earlier request with the same idempotency key was returned
}

// Checkout reserves req.Quantity units of req.ListingID and inserts the
// request row in one transaction.  Price and total are taken from the
// listing row locked by the reservation.  When req.IdempotencyKey matches
// an existing request for the same listing, that request is returned with
// Replayed set and nothing is reserved; a key already used for another
// listing yields ErrDuplicate.
func (r *RequestRepo) Checkout(ctx context.Context, req model.RentalRequest) (CheckoutResult, error) {
	if req.IdempotencyKey != nil {
		if res, ok, err := r.replay(ctx, req); ok || err != nil {
			return res, err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return CheckoutResult{}, err
	}
	committed := false
	defer rollbackUnlessCommitted(tx, &committed)

	price, modelName, err := r.listings.ReserveTx(ctx, tx, req.ListingID, req.Quantity)
	if err != nil {
		return CheckoutResult{}, err
	}
	req.PricePerHourCents = price
	req.TotalPriceCents = price * int64(req.Quantity) * int64(req.DurationHours)
	req.Status = model.RequestPending

	if err := r.insertTx(ctx, tx, &req); err != nil {
		if isDuplicate(err) && req.IdempotencyKey != nil {
			// Lost a race with a concurrent checkout using the same key.
			_ = tx.Rollback()
			if res, ok, rerr := r.replay(ctx, req); ok || rerr != nil {
				return res, rerr
			}
			return CheckoutResult{}, ErrDuplicate
		}
		return CheckoutResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return CheckoutResult{}, err
	}
	committed = true
	return CheckoutResult{Request: req, Model: modelName}, nil
}

func (r *RequestRepo) replay(ctx context.Context, req model.RentalRequest) (CheckoutResult, bool, error) {
	prev, err := r.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
	if errors.Is(err, ErrNotFound) {
		return CheckoutResult{}, false, nil
	}
	if err != nil {
		return CheckoutResult{}, false, err
	}
	if prev.ListingID != req.ListingID {
		return CheckoutResult{}, false, ErrDuplicate
	}
	l, err := r.listings.GetByID(ctx, prev.ListingID)
	if err != nil {
		return CheckoutResult{}, false, err
	}
	return CheckoutResult{Request: prev, Model: l.Model, Replayed: true}, true, nil
}

func (r *RequestRepo) insertTx(ctx context.Context, tx *sql.Tx, req *model.RentalRequest) error {
	const q = `INSERT INTO rental_requests (listing_id, customer_name, contact_number, identity_document,
                      quantity, duration_hours, price_per_hour_cents, total_price_cents, status, idempotency_key)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var key sql.NullString
	if req.IdempotencyKey != nil {
		key = sql.NullString{String: *req.IdempotencyKey, Valid: true}
	}
	res, err := tx.ExecContext(ctx, q, req.ListingID, req.CustomerName, req.ContactNumber, req.IdentityDocument,
		req.Quantity, req.DurationHours, req.PricePerHourCents, req.TotalPriceCents, req.Status, key)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the full row to populate timestamps
	row, err := scanRequest(tx.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM rental_requests WHERE id = ?", id))
	if err != nil {
		return err
	}
	*req = row
	return nil
}

// Transition moves a Pending request to status (Fulfilled or Cancelled)
// and releases its units back to the listing in one transaction.  A
// request that is no longer Pending yields ErrStaleState.
func (r *RequestRepo) Transition(ctx context.Context, requestID uint64, status string) (model.RentalRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.RentalRequest{}, err
	}
	committed := false
	defer rollbackUnlessCommitted(tx, &committed)

	req, err := scanRequest(tx.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM rental_requests WHERE id = ? FOR UPDATE", requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RentalRequest{}, ErrNotFound
	}
	if err != nil {
		return model.RentalRequest{}, err
	}
	if req.Status != model.RequestPending {
		return model.RentalRequest{}, ErrStaleState
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE rental_requests SET status = ? WHERE id = ? AND status = 'Pending'", status, requestID)
	if err != nil {
		return model.RentalRequest{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.RentalRequest{}, err
	} else if n == 0 {
		return model.RentalRequest{}, ErrStaleState
	}
	if err := r.listings.ReleaseTx(ctx, tx, req.ListingID, req.Quantity); err != nil {
		return model.RentalRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.RentalRequest{}, err
	}
	committed = true
	req.Status = status
	return req, nil
}

// GetByID returns a request or ErrNotFound.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (model.RentalRequest, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM rental_requests WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RentalRequest{}, ErrNotFound
	}
	return req, err
}

// GetByIdempotencyKey returns the request created with key or ErrNotFound.
func (r *RequestRepo) GetByIdempotencyKey(ctx context.Context, key string) (model.RentalRequest, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM rental_requests WHERE idempotency_key = ?", key))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RentalRequest{}, ErrNotFound
	}
	return req, err
}

// ListByListing returns a listing's requests, newest first.
func (r *RequestRepo) ListByListing(ctx context.Context, listingID uint64) ([]model.RentalRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+requestColumns+" FROM rental_requests WHERE listing_id = ? ORDER BY id DESC", listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RentalRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
