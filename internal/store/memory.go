package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

// memoryStore keeps the registry in process memory.
// Writers hold mu exclusively, so readers never observe a drug without
// its owner index entry or journal event.
type memoryStore struct {
	mu     sync.RWMutex
	sealer Sealer
	drugs  map[string]domain.Drug
	owners map[domain.Owner][]string
	events []domain.RegistrationEvent
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore(sealer Sealer) Store {
	return &memoryStore{
		sealer: sealer,
		drugs:  make(map[string]domain.Drug),
		owners: make(map[domain.Owner][]string),
	}
}

func (s *memoryStore) InsertDrug(ctx context.Context, input InsertDrugInput) (*domain.RegistrationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drug := input.Drug
	if _, ok := s.drugs[drug.ID]; ok {
		return nil, domain.ErrDrugAlreadyRegistered
	}

	var prev *domain.RegistrationEvent
	if n := len(s.events); n > 0 {
		prev = &s.events[n-1]
	}

	ev := domain.NewRegistrationEvent(input.EventID, &drug)
	if err := s.sealer.Seal(prev, &ev); err != nil {
		return nil, fmt.Errorf("failed to seal registration event: %w", err)
	}

	s.drugs[drug.ID] = drug
	s.owners[drug.Owner] = append(s.owners[drug.Owner], drug.ID)
	s.events = append(s.events, ev)

	return &ev, nil
}

func (s *memoryStore) GetDrug(ctx context.Context, id string) (*domain.Drug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drug, ok := s.drugs[id]
	if !ok {
		return nil, nil
	}
	return &drug, nil
}

func (s *memoryStore) DrugExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.drugs[id]
	return ok, nil
}

func (s *memoryStore) GetDrugIDsByOwner(ctx context.Context, owner domain.Owner) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.owners[owner]))
	copy(ids, s.owners[owner])
	return ids, nil
}

func (s *memoryStore) CountDrugsByOwner(ctx context.Context, owner domain.Owner) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.owners[owner])), nil
}

func (s *memoryStore) CountDrugs(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.drugs)), nil
}

func (s *memoryStore) GetRegistrationEvents(ctx context.Context, filter domain.EventFilter) ([]domain.RegistrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.NormalizedLimit()
	events := make([]domain.RegistrationEvent, 0)
	// sequence n lives at index n-1
	for i := filter.Anchor; i < uint64(len(s.events)) && len(events) < limit; i++ {
		ev := s.events[i]
		if filter.Owner != nil && ev.Owner != *filter.Owner {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *memoryStore) GetLatestRegistrationEvent(ctx context.Context) (*domain.RegistrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) == 0 {
		return nil, nil
	}
	ev := s.events[len(s.events)-1]
	return &ev, nil
}
