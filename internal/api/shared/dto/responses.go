package dto

import (
	"github.com/feral-file/ff-drug-registry/internal/domain"
)

// RegisterDrugResponse is returned by a successful registration
type RegisterDrugResponse struct {
	ID string `json:"id"`
}

// DrugResponse is a registered drug with its expiry evaluated at read time
type DrugResponse struct {
	domain.Drug
	Expired bool `json:"expired"`
}

// ExistsResponse answers GET /api/v1/drugs/:id/exists
type ExistsResponse struct {
	ID     string `json:"id"`
	Exists bool   `json:"exists"`
}

// ExpiredResponse answers GET /api/v1/drugs/:id/expired
type ExpiredResponse struct {
	ID        string `json:"id"`
	Expired   bool   `json:"expired"`
	CheckedAt int64  `json:"checked_at"`
}

// OwnerDrugsResponse lists an owner's drug ids in registration order
type OwnerDrugsResponse struct {
	Owner string   `json:"owner"`
	IDs   []string `json:"ids"`
	Count uint64   `json:"count"`
}

// OwnerCountResponse answers GET /api/v1/owners/:owner/drugs/count
type OwnerCountResponse struct {
	Owner string `json:"owner"`
	Count uint64 `json:"count"`
}

// StatsResponse answers GET /api/v1/stats
type StatsResponse struct {
	Total uint64 `json:"total"`
}

// EventsResponse is one page of the registration journal.
// NextAnchor is the anchor for the following page; it equals the request
// anchor when the page is empty.
type EventsResponse struct {
	Events     []domain.RegistrationEvent `json:"events"`
	NextAnchor uint64                     `json:"next_anchor"`
}

// NewEventsResponse builds a page response
func NewEventsResponse(events []domain.RegistrationEvent, anchor uint64) EventsResponse {
	next := anchor
	if n := len(events); n > 0 {
		next = events[n-1].Sequence
	}
	return EventsResponse{Events: events, NextAnchor: next}
}

// HealthResponse answers GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
