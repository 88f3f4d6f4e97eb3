package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/rentals-marketplace/internal/model"
)

// CustomerRepo stores identity submissions in the 'customers' table.
type CustomerRepo struct{ DB *sql.DB }

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{DB: db} }

// Create inserts the submission and fills in its ID.  A repeated
// id_number yields ErrDuplicate.
func (r *CustomerRepo) Create(ctx context.Context, c *model.CustomerInfo) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO customers (id_number, name, contact_number, location, document_path, submitted_by) VALUES (?,?,?,?,?,?)",
		c.IDNumber, c.Name, c.ContactNumber, c.Location, c.DocumentPath, c.SubmittedBy)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}
