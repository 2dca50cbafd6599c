package publisher

import "audubonwatch/internal/listing"

// Publisher represents a service for publishing newly seen listings
type Publisher interface {
	// PublishNew publishes the listings marked new in the current run
	PublishNew(listings []listing.Listing) error

	// Close closes the publisher connection
	Close() error
}
