package model

import (
	"strings"
	"time"
)

// Listing delivery statuses.  A listing is Pending while at least one
// unit can be checked out and Requested once every unit is reserved.
const (
	ListingPending   = "Pending"
	ListingRequested = "Requested"
)

// Categories is the fixed set of listing categories, in display order.
var Categories = []string{"drums", "guitars", "keyboards", "equipments", "others"}

var categoryAliases = map[string]string{
	"drums":      "drums",
	"drum":       "drums",
	"guitars":    "guitars",
	"guitar":     "guitars",
	"keyboards":  "keyboards",
	"keyboard":   "keyboards",
	"equipments": "equipments",
	"equipment":  "equipments",
	"others":     "others",
	"other":      "others",
}

// NormalizeCategory maps a user supplied category onto the known set.
// Matching is case-insensitive and accepts the singular forms used by
// older clients.  The second return value is false for unknown input.
func NormalizeCategory(raw string) (string, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(raw))]
	return c, ok
}

// Listing represents a rentable inventory item owned by a renter.  It
// corresponds to a row in the `listings` table.
//
// Fields:
//  ID                – primary key identifier.
//  OwnerID           – renters.id of the owning renter.
//  OwnerName         – entity name of the owner at creation time.
//  Category          – normalized category (see Categories).
//  Subcategory       – optional finer grouping.
//  Brand             – manufacturer.
//  Model             – model identifier.
//  PricePerHourCents – hourly price in cents.
//  Stock             – total units owned.
//  Rented            – units currently reserved by open requests.
//  DeliveryStatus    – Pending or Requested.
//  Images            – up to three relative image paths.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Listing struct {
	ID                uint64    `json:"id"`                    // listings.id
	OwnerID           uint64    `json:"owner_id"`              // listings.owner_id
	OwnerName         string    `json:"owner_name"`            // listings.owner_name
	Category          string    `json:"category"`              // listings.category
	Subcategory       string    `json:"subcategory,omitempty"` // listings.subcategory
	Brand             string    `json:"brand"`                 // listings.brand
	Model             string    `json:"model"`                 // listings.model
	PricePerHourCents int64     `json:"price_per_hour_cents"`  // listings.price_per_hour_cents
	Stock             int       `json:"stock"`                 // listings.stock
	Rented            int       `json:"rented"`                // listings.rented
	DeliveryStatus    string    `json:"delivery_status"`       // listings.delivery_status
	Images            []string  `json:"images"`                // listings.images (JSON array)
	CreatedAt         time.Time `json:"created_at"`            // listings.created_at
	UpdatedAt         time.Time `json:"updated_at"`            // listings.updated_at
}

// Available returns the number of units that can still be checked out.
func (l Listing) Available() int {
	if l.Rented >= l.Stock {
		return 0
	}
	return l.Stock - l.Rented
}

// CategorySummary aggregates a renter's inventory for one category.
type CategorySummary struct {
	Category           string `json:"category"`
	TotalItems         int    `json:"total_items"`
	RentedItems        int    `json:"rented_items"`
	AvailableItems     int    `json:"available_items"`
	UtilizationPercent int    `json:"utilization_percent"`
}

// InventorySummary is the dashboard view over all of a renter's listings.
type InventorySummary struct {
	TotalItems         int               `json:"total_items"`
	RentedItems        int               `json:"rented_items"`
	UtilizationPercent int               `json:"utilization_percent"`
	Categories         []CategorySummary `json:"categories"`
}
