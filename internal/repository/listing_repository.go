package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/rentals-marketplace/internal/model"
)

// ListingRepo provides access to the 'listings' table.  The rented
// counter is only ever changed by ReserveTx and ReleaseTx, each a single
// conditional UPDATE, and Update changes stock only under a row lock, so
// 0 <= rented <= stock holds under concurrent requests.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingColumns = `id, owner_id, owner_name, category, subcategory, brand, model,
       price_per_hour_cents, stock, rented, delivery_status, images, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (model.Listing, error) {
	var (
		l      model.Listing
		images []byte
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.OwnerName, &l.Category, &l.Subcategory, &l.Brand, &l.Model,
		&l.PricePerHourCents, &l.Stock, &l.Rented, &l.DeliveryStatus, &images, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return model.Listing{}, err
	}
	l.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &l.Images); err != nil {
			return model.Listing{}, err
		}
	}
	return l, nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	return string(b), err
}

// Create inserts a listing with rented = 0 and status Pending, then reads
// the row back to populate the ID, defaults and timestamps.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
	images, err := encodeImages(l.Images)
	if err != nil {
		return err
	}
	const q = `INSERT INTO listings (owner_id, owner_name, category, subcategory, brand, model,
                      price_per_hour_cents, stock, rented, delivery_status, images)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, l.OwnerID, l.OwnerName, l.Category, l.Subcategory, l.Brand, l.Model,
		l.PricePerHourCents, l.Stock, model.ListingPending, images)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*l = created
	return nil
}

// GetByID returns the listing or ErrNotFound.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, ErrNotFound
	}
	return l, err
}

// Update replaces the mutable fields of a listing owned by l.OwnerID.
// The row is locked for the duration of the write so ownership and the
// rented count are checked against the value the update applies to; a
// concurrent reserve or release waits for the commit.  The delivery status
// is recomputed from the locked counters.  Failures map to ErrNotFound,
// ErrForbidden or ErrStaleState (stock below rented).
func (r *ListingRepo) Update(ctx context.Context, l *model.Listing) error {
	images, err := encodeImages(l.Images)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer rollbackUnlessCommitted(tx, &committed)

	cur, err := scanListing(tx.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE id = ? FOR UPDATE", l.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	switch {
	case cur.OwnerID != l.OwnerID:
		return ErrForbidden
	case cur.Rented > l.Stock:
		return ErrStaleState
	}
	status := model.ListingPending
	if cur.Rented >= l.Stock {
		status = model.ListingRequested
	}

	const q = `UPDATE listings
                  SET category = ?, subcategory = ?, brand = ?, model = ?, price_per_hour_cents = ?,
                      images = ?, stock = ?, delivery_status = ?
                WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, l.Category, l.Subcategory, l.Brand, l.Model, l.PricePerHourCents,
		images, l.Stock, status, l.ID); err != nil {
		return err
	}
	updated, err := scanListing(tx.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = ?", l.ID))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	*l = updated
	return nil
}

// ListByOwner returns every listing of an owner in insertion order.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error) {
	return r.query(ctx, "SELECT "+listingColumns+" FROM listings WHERE owner_id = ? ORDER BY id", ownerID)
}

// ListAvailable returns Pending listings that still have units to rent.
// An empty category returns all categories.
func (r *ListingRepo) ListAvailable(ctx context.Context, category string) ([]model.Listing, error) {
	q := "SELECT " + listingColumns + " FROM listings WHERE delivery_status = 'Pending' AND rented < stock"
	var args []any
	if category != "" {
		q += " AND category = ?"
		args = append(args, category)
	}
	q += " ORDER BY id"
	return r.query(ctx, q, args...)
}

// CategoryTotals sums stock and rented per category for one owner.  Only
// categories with at least one listing are returned.
func (r *ListingRepo) CategoryTotals(ctx context.Context, ownerID uint64) ([]model.CategorySummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(stock), 0), COALESCE(SUM(rented), 0)
		   FROM listings WHERE owner_id = ? GROUP BY category ORDER BY category`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CategorySummary
	for rows.Next() {
		var cs model.CategorySummary
		if err := rows.Scan(&cs.Category, &cs.TotalItems, &cs.RentedItems); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (r *ListingRepo) query(ctx context.Context, q string, args ...any) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReserveTx adds quantity to the listing's rented count inside tx.  The
// increment only applies while rented + quantity <= stock; the status
// flips to Requested in the same statement when the reservation takes
// the last available unit (the CASE is evaluated before rented is
// assigned).  It returns the listing's price and model as locked by the
// update, ErrNotFound for an unknown listing and ErrInsufficientStock
// when not enough units are left.
func (r *ListingRepo) ReserveTx(ctx context.Context, tx *sql.Tx, listingID uint64, quantity int) (priceCents int64, modelName string, err error) {
	const q = `UPDATE listings
                  SET delivery_status = CASE WHEN rented + ? >= stock THEN 'Requested' ELSE delivery_status END,
                      rented = rented + ?
                WHERE id = ? AND rented + ? <= stock`
	res, err := tx.ExecContext(ctx, q, quantity, quantity, listingID, quantity)
	if err != nil {
		return 0, "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, "", err
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM listings WHERE id = ?", listingID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", ErrNotFound
		}
		if err != nil {
			return 0, "", err
		}
		return 0, "", ErrInsufficientStock
	}
	err = tx.QueryRowContext(ctx, "SELECT price_per_hour_cents, model FROM listings WHERE id = ?", listingID).
		Scan(&priceCents, &modelName)
	return priceCents, modelName, err
}

// ReleaseTx returns quantity units to the listing inside tx and sets the
// status back to Pending.  ErrStaleState is returned if fewer units are
// rented than are being released.
func (r *ListingRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, listingID uint64, quantity int) error {
	const q = `UPDATE listings SET rented = rented - ?, delivery_status = 'Pending'
                WHERE id = ? AND rented >= ?`
	res, err := tx.ExecContext(ctx, q, quantity, listingID, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}
