package store

import (
	"context"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

// Sealer links a new registration event to the journal head
type Sealer interface {
	Seal(prev *domain.RegistrationEvent, ev *domain.RegistrationEvent) error
}

// InsertDrugInput represents the input for inserting a drug
type InsertDrugInput struct {
	Drug    domain.Drug
	EventID string
}

// Store defines the interface for registry persistence
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore,Sealer=MockSealer
type Store interface {
	// InsertDrug atomically stores a drug, appends its id to the owner index and
	// appends a sealed registration event. Returns domain.ErrDrugAlreadyRegistered
	// when the id is taken; nothing is written in that case.
	InsertDrug(ctx context.Context, input InsertDrugInput) (*domain.RegistrationEvent, error)
	// GetDrug retrieves a drug by id, nil if absent
	GetDrug(ctx context.Context, id string) (*domain.Drug, error)
	// DrugExists checks whether a drug id is registered
	DrugExists(ctx context.Context, id string) (bool, error)
	// GetDrugIDsByOwner lists an owner's drug ids in registration order
	GetDrugIDsByOwner(ctx context.Context, owner domain.Owner) ([]string, error)
	// CountDrugsByOwner counts an owner's drugs
	CountDrugsByOwner(ctx context.Context, owner domain.Owner) (uint64, error)
	// CountDrugs counts all drugs
	CountDrugs(ctx context.Context) (uint64, error)
	// GetRegistrationEvents retrieves journal entries after filter.Anchor in ascending order
	GetRegistrationEvents(ctx context.Context, filter domain.EventFilter) ([]domain.RegistrationEvent, error)
	// GetLatestRegistrationEvent retrieves the journal head, nil if the journal is empty
	GetLatestRegistrationEvent(ctx context.Context) (*domain.RegistrationEvent, error)
}
