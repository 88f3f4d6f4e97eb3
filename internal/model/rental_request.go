package model

import "time"

// Rental request statuses.  Pending is the only non-terminal state.
const (
	RequestPending   = "Pending"
	RequestFulfilled = "Fulfilled"
	RequestCancelled = "Cancelled"
)

// RentalRequest records a customer's checkout against a listing.  The
// price is captured at checkout so later price edits do not change
// existing requests.
//
// Fields:
//  ID                – primary key identifier.
//  ListingID         – listing being rented.
//  CustomerName      – name entered at checkout.
//  ContactNumber     – 10 digit contact number.
//  IdentityDocument  – relative path of the uploaded identity document.
//  Quantity          – units requested.
//  DurationHours     – rental length in hours.
//  PricePerHourCents – listing price at checkout time.
//  TotalPriceCents   – PricePerHourCents × Quantity × DurationHours.
//  Status            – Pending, Fulfilled or Cancelled.
//  IdempotencyKey    – optional client supplied key (nil when absent).
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last status change.
type RentalRequest struct {
	ID                uint64    `json:"id"`                        // rental_requests.id
	ListingID         uint64    `json:"listing_id"`                // rental_requests.listing_id
	CustomerName      string    `json:"customer_name"`             // rental_requests.customer_name
	ContactNumber     string    `json:"contact_number"`            // rental_requests.contact_number
	IdentityDocument  string    `json:"-"`                         // rental_requests.identity_document
	Quantity          int       `json:"quantity"`                  // rental_requests.quantity
	DurationHours     int       `json:"duration_hours"`            // rental_requests.duration_hours
	PricePerHourCents int64     `json:"price_per_hour_cents"`      // rental_requests.price_per_hour_cents
	TotalPriceCents   int64     `json:"total_price_cents"`         // rental_requests.total_price_cents
	Status            string    `json:"status"`                    // rental_requests.status
	IdempotencyKey    *string   `json:"idempotency_key,omitempty"` // rental_requests.idempotency_key (nullable)
	CreatedAt         time.Time `json:"created_at"`                // rental_requests.created_at
	UpdatedAt         time.Time `json:"updated_at"`                // rental_requests.updated_at
}
