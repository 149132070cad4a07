package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

// cachedStore is a read-through cache in front of another Store.
// Drugs never change once written, so a cached record is never stale;
// misses are not cached because the id may be registered later.
type cachedStore struct {
	Store
	cache *gocache.Cache
}

// NewCachedStore wraps a store with an in-process drug cache
func NewCachedStore(store Store, ttl time.Duration, cleanupInterval time.Duration) Store {
	return &cachedStore{
		Store: store,
		cache: gocache.New(ttl, cleanupInterval),
	}
}

func (s *cachedStore) InsertDrug(ctx context.Context, input InsertDrugInput) (*domain.RegistrationEvent, error) {
	ev, err := s.Store.InsertDrug(ctx, input)
	if err != nil {
		return nil, err
	}

	drug := input.Drug
	s.cache.SetDefault(drug.ID, &drug)
	return ev, nil
}

func (s *cachedStore) GetDrug(ctx context.Context, id string) (*domain.Drug, error) {
	if v, ok := s.cache.Get(id); ok {
		drug := *v.(*domain.Drug)
		return &drug, nil
	}

	drug, err := s.Store.GetDrug(ctx, id)
	if err != nil || drug == nil {
		return drug, err
	}

	cached := *drug
	s.cache.SetDefault(id, &cached)
	return drug, nil
}

func (s *cachedStore) DrugExists(ctx context.Context, id string) (bool, error) {
	if _, ok := s.cache.Get(id); ok {
		return true, nil
	}
	return s.Store.DrugExists(ctx, id)
}
