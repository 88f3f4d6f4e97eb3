package model

import "time"

// Renter represents a business account that lists equipment for rent.
// It corresponds to a row in the `renters` table.  Renters are created
// at registration and are never modified or deleted afterwards.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique, lower-cased login email.
//  EntityName   – display name of the business.
//  PocName      – point-of-contact person.
//  PhoneNumber  – 10 digit contact number.
//  Location     – free-form address or city.
//  ProfileImage – optional relative image path.
//  PasswordHash – bcrypt hash; never serialized.
//  CreatedAt    – registration timestamp.
type Renter struct {
	ID           uint64    `json:"id"`                      // renters.id
	Email        string    `json:"email"`                   // renters.email
	EntityName   string    `json:"entity_name"`             // renters.entity_name
	PocName      string    `json:"poc_name"`                // renters.poc_name
	PhoneNumber  string    `json:"phone_number"`            // renters.phone_number
	Location     string    `json:"location"`                // renters.location
	ProfileImage string    `json:"profile_image,omitempty"` // renters.profile_image (nullable)
	PasswordHash string    `json:"-"`                       // renters.password_hash
	CreatedAt    time.Time `json:"created_at"`              // renters.created_at
}

// Principal is the authenticated renter resolved by the session gate.
type Principal struct {
	RenterID   uint64 `json:"renter_id"`
	EntityName string `json:"entity_name"`
}
