package model

import "time"

// CustomerInfo is an identity submission recorded by a renter on behalf
// of a walk-in customer.  It corresponds to the `customers` table.
type CustomerInfo struct {
	ID            uint64    `json:"id"`             // customers.id
	IDNumber      string    `json:"id_number"`      // customers.id_number (unique)
	Name          string    `json:"name"`           // customers.name
	ContactNumber string    `json:"contact_number"` // customers.contact_number
	Location      string    `json:"location"`       // customers.location
	DocumentPath  string    `json:"-"`              // customers.document_path
	SubmittedBy   uint64    `json:"submitted_by"`   // customers.submitted_by
	CreatedAt     time.Time `json:"created_at"`     // customers.created_at
}
