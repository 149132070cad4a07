package domain

import "time"

// DrugDetails carries the optional descriptive attributes of a drug.
// None of them is validated or unique.
type DrugDetails struct {
	RegistrationNumber string `json:"registration_number,omitempty"`
	ActiveIngredient   string `json:"active_ingredient,omitempty"`
	Concentration      string `json:"concentration,omitempty"`
	DosageForm         string `json:"dosage_form,omitempty"`
	Packaging          string `json:"packaging,omitempty"`
	Quantity           uint64 `json:"quantity,omitempty"`
	ManufacturerName   string `json:"manufacturer_name,omitempty"`
	DistributorName    string `json:"distributor_name,omitempty"`
	OriginCountry      string `json:"origin_country,omitempty"`
}

// Drug is an immutable provenance record. Timestamps are Unix seconds.
type Drug struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	BatchNumber          string      `json:"batch_number"`
	ManufactureTimestamp int64       `json:"manufacture_timestamp"`
	ExpiryTimestamp      int64       `json:"expiry_timestamp"`
	Owner                Owner       `json:"owner"`
	RegisteredAt         int64       `json:"registered_at"`
	Details              DrugDetails `json:"details"`
}

// IsExpiredAt reports whether the drug's expiry lies strictly before now
func (d *Drug) IsExpiredAt(now time.Time) bool {
	return d.ExpiryTimestamp < now.Unix()
}

// RegisterInput holds the caller-supplied fields of a registration
type RegisterInput struct {
	ID                   string
	Name                 string
	BatchNumber          string
	ManufactureTimestamp int64
	ExpiryTimestamp      int64
	Details              DrugDetails
}

// ValidateRequired checks the presence rules in registration order:
// name, id, then batch number.
func (in RegisterInput) ValidateRequired() error {
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.ID == "" {
		return ErrIDRequired
	}
	if in.BatchNumber == "" {
		return ErrBatchRequired
	}
	return nil
}

// ValidateTemporal checks the timestamp rules against now:
// manufacture must precede expiry and must not lie in the future.
func (in RegisterInput) ValidateTemporal(now time.Time) error {
	if in.ManufactureTimestamp >= in.ExpiryTimestamp {
		return ErrManufactureAfterExpiry
	}
	if in.ManufactureTimestamp > now.Unix() {
		return ErrManufactureInFuture
	}
	return nil
}
