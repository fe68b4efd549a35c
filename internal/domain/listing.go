package domain

import "time"

// Listing is the housing listing an application is filed against.
type Listing struct {
	ID           int64
	Name         string
	Address      AddressFields
	ContactEmail *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
