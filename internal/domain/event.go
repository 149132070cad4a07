package domain

// EventTypeDrugRegistered is the only event the registry emits
const EventTypeDrugRegistered = "drug.registered"

// RegistrationEvent is one entry of the append-only registration journal.
// Sequence is 1-based and contiguous; Hash chains each entry to PrevHash.
type RegistrationEvent struct {
	Sequence             uint64 `json:"sequence"`
	EventID              string `json:"event_id"`
	DrugID               string `json:"drug_id"`
	Name                 string `json:"name"`
	Owner                Owner  `json:"owner"`
	ManufactureTimestamp int64  `json:"manufacture_timestamp"`
	ExpiryTimestamp      int64  `json:"expiry_timestamp"`
	RegisteredAt         int64  `json:"registered_at"`
	PrevHash             string `json:"prev_hash"`
	Hash                 string `json:"hash"`
}

// NewRegistrationEvent builds the unsealed journal entry for a drug
func NewRegistrationEvent(eventID string, d *Drug) RegistrationEvent {
	return RegistrationEvent{
		EventID:              eventID,
		DrugID:               d.ID,
		Name:                 d.Name,
		Owner:                d.Owner,
		ManufactureTimestamp: d.ManufactureTimestamp,
		ExpiryTimestamp:      d.ExpiryTimestamp,
		RegisteredAt:         d.RegisteredAt,
	}
}

// EventFilter selects a window of the journal: entries with a sequence
// strictly greater than Anchor, optionally restricted to one owner.
type EventFilter struct {
	Anchor uint64
	Limit  int
	Owner  *Owner
}

const (
	DefaultEventLimit = 100
	MaxEventLimit     = 1000
)

// NormalizedLimit clamps Limit into [1, MaxEventLimit]
func (f EventFilter) NormalizedLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultEventLimit
	case f.Limit > MaxEventLimit:
		return MaxEventLimit
	default:
		return f.Limit
	}
}
