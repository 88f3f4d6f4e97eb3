// Package queue carries delivery tracking events over RabbitMQ: a
// best-effort publisher used by the request flow and the consumer that
// appends them to the delivery log.
package queue

import "time"

// StatusChangedEvent is published whenever a listing or rental request
// changes delivery status.  RequestID is zero for listing-only events
// such as a newly created listing.
type StatusChangedEvent struct {
	RequestID  uint64    `json:"request_id,omitempty"`
	ListingID  uint64    `json:"listing_id"`
	Model      string    `json:"model"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
