package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/rentals-marketplace/internal/model"
)

// RenterRepo stores renter accounts in the 'renters' table.
type RenterRepo struct{ DB *sql.DB }

func NewRenterRepo(db *sql.DB) *RenterRepo { return &RenterRepo{DB: db} }

const renterColumns = "id,email,entity_name,poc_name,phone_number,location,password_hash,profile_image,created_at"

// Create inserts the renter and fills in its ID.  The email is stored
// lower-cased; a duplicate yields ErrEmailExists.
func (r *RenterRepo) Create(ctx context.Context, rt *model.Renter) error {
	rt.Email = strings.ToLower(strings.TrimSpace(rt.Email))
	var image sql.NullString
	if rt.ProfileImage != "" {
		image = sql.NullString{String: rt.ProfileImage, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO renters (email, entity_name, poc_name, phone_number, location, password_hash, profile_image) VALUES (?,?,?,?,?,?,?)",
		rt.Email, rt.EntityName, rt.PocName, rt.PhoneNumber, rt.Location, rt.PasswordHash, image)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	return nil
}

// GetByEmail fetches a renter by normalized email.
func (r *RenterRepo) GetByEmail(ctx context.Context, email string) (model.Renter, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+renterColumns+" FROM renters WHERE email=? LIMIT 1", email))
}

func (r *RenterRepo) scanOne(row *sql.Row) (model.Renter, error) {
	var (
		rt    model.Renter
		image sql.NullString
	)
	err := row.Scan(&rt.ID, &rt.Email, &rt.EntityName, &rt.PocName, &rt.PhoneNumber,
		&rt.Location, &rt.PasswordHash, &image, &rt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Renter{}, ErrNotFound
	}
	rt.ProfileImage = image.String
	return rt, err
}
