package dto

import "github.com/feral-file/ff-drug-registry/internal/domain"

// RegisterDrugRequest is the body of POST /api/v1/drugs.
// The owner is never part of the body; it comes from the authenticated caller.
type RegisterDrugRequest struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	BatchNumber          string             `json:"batch_number"`
	ManufactureTimestamp int64              `json:"manufacture_timestamp"`
	ExpiryTimestamp      int64              `json:"expiry_timestamp"`
	Details              domain.DrugDetails `json:"details"`
}

// ToInput converts the request into registry input
func (r RegisterDrugRequest) ToInput() domain.RegisterInput {
	return domain.RegisterInput{
		ID:                   r.ID,
		Name:                 r.Name,
		BatchNumber:          r.BatchNumber,
		ManufactureTimestamp: r.ManufactureTimestamp,
		ExpiryTimestamp:      r.ExpiryTimestamp,
		Details:              r.Details,
	}
}

// EventsQuery holds query parameters for GET /api/v1/events
type EventsQuery struct {
	Anchor uint64 `form:"anchor,default=0"`
	Limit  int    `form:"limit,default=100"`
	Owner  string `form:"owner"`
}

// ToFilter converts the query into a journal filter
func (q EventsQuery) ToFilter() domain.EventFilter {
	filter := domain.EventFilter{Anchor: q.Anchor, Limit: q.Limit}
	if q.Owner != "" {
		owner := domain.Owner(q.Owner)
		filter.Owner = &owner
	}
	return filter
}
