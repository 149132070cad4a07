package schema

import "time"

// RegistrationEvent represents the registration_events table - the hash-chained,
// append-only journal of successful registrations
type RegistrationEvent struct {
	// Sequence is the 1-based contiguous position in the journal
	Sequence int64 `gorm:"column:sequence;primaryKey;autoIncrement:false"`
	// EventID is the ULID of the event
	EventID string `gorm:"column:event_id;not null;uniqueIndex;type:text"`
	// DrugID references the registered drug
	DrugID string `gorm:"column:drug_id;not null;uniqueIndex;type:text"`
	Name   string `gorm:"column:name;not null;type:text"`
	// Owner is the registering party, indexed for owner-filtered replay
	Owner                string `gorm:"column:owner;not null;type:text;index"`
	ManufactureTimestamp int64  `gorm:"column:manufacture_timestamp;not null"`
	ExpiryTimestamp      int64  `gorm:"column:expiry_timestamp;not null"`
	RegisteredAt         int64  `gorm:"column:registered_at;not null"`
	// PrevHash is the hash of the previous entry
	PrevHash string `gorm:"column:prev_hash;not null;type:text"`
	// Hash is keccak256 over PrevHash and the canonical event body
	Hash string `gorm:"column:hash;not null;type:text"`
	// CreatedAt is the row insertion time
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the RegistrationEvent model
func (RegistrationEvent) TableName() string {
	return "registration_events"
}
