package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Drug represents the drugs table - one immutable provenance record per drug id
type Drug struct {
	// DrugID is the caller-supplied unique identifier
	DrugID string `gorm:"column:drug_id;primaryKey;type:text"`
	// Sequence is the journal sequence of the registration; orders the owner index
	Sequence int64 `gorm:"column:sequence;not null;uniqueIndex"`
	// Name is the drug's display name
	Name string `gorm:"column:name;not null;type:text"`
	// BatchNumber is the manufacturer's lot number
	BatchNumber string `gorm:"column:batch_number;not null;type:text"`
	// ManufactureTimestamp is the manufacture date in Unix seconds
	ManufactureTimestamp int64 `gorm:"column:manufacture_timestamp;not null"`
	// ExpiryTimestamp is the expiry date in Unix seconds
	ExpiryTimestamp int64 `gorm:"column:expiry_timestamp;not null"`
	// Owner is the normalized identity of the registering party
	Owner string `gorm:"column:owner;not null;type:text;index:idx_drugs_owner_sequence,priority:1"`
	// RegisteredAt is the registration time in Unix seconds
	RegisteredAt int64 `gorm:"column:registered_at;not null"`
	// Details holds the optional descriptive fields as JSON
	Details datatypes.JSON `gorm:"column:details;type:jsonb"`
	// CreatedAt is the row insertion time
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Drug model
func (Drug) TableName() string {
	return "drugs"
}
