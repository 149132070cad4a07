package domain

import "errors"

var (
	// ErrValidation is the kind of every input validation failure
	ErrValidation = errors.New("validation failed")

	// ErrConflict is the kind of a registration whose id is already taken
	ErrConflict = errors.New("conflict")

	// ErrNotFound is the kind of a lookup for an unknown id
	ErrNotFound = errors.New("not found")
)

// RegistryError is a rule violation reported by the registry.
// Error returns the rule text verbatim; errors.Is matches both the
// specific error value and its Kind.
type RegistryError struct {
	Kind error
	Rule string
}

func (e *RegistryError) Error() string {
	return e.Rule
}

func (e *RegistryError) Unwrap() error {
	return e.Kind
}

var (
	ErrOwnerRequired          = &RegistryError{Kind: ErrValidation, Rule: "owner required"}
	ErrNameRequired           = &RegistryError{Kind: ErrValidation, Rule: "name required"}
	ErrIDRequired             = &RegistryError{Kind: ErrValidation, Rule: "id required"}
	ErrBatchRequired          = &RegistryError{Kind: ErrValidation, Rule: "batch required"}
	ErrManufactureAfterExpiry = &RegistryError{Kind: ErrValidation, Rule: "manufacture must precede expiry"}
	ErrManufactureInFuture    = &RegistryError{Kind: ErrValidation, Rule: "manufacture date in future"}
	ErrDrugAlreadyRegistered  = &RegistryError{Kind: ErrConflict, Rule: "id already registered"}
	ErrDrugNotFound           = &RegistryError{Kind: ErrNotFound, Rule: "drug not found"}
)

// IsValidation reports whether err is an input validation failure
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict reports whether err is a uniqueness conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound reports whether err is a lookup miss
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
