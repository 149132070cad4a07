package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	RunStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore(newTestLedger())
	}, func(t *testing.T) {})
}

func TestMemoryStore_ConcurrentInsertSameID(t *testing.T) {
	store := NewMemoryStore(newTestLedger())

	const writers = 32
	var wg sync.WaitGroup
	var succeeded, conflicted atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := domain.Owner(fmt.Sprintf("owner-%d", i))
			_, err := store.InsertDrug(context.Background(), InsertDrugInput{
				Drug:    buildTestDrug("DRUG001", owner),
				EventID: fmt.Sprintf("evt-%d", i),
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case domain.IsConflict(err):
				conflicted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(writers-1), conflicted.Load())

	total, err := store.CountDrugs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(newTestLedger())
	insertTestDrug(t, store, "D1", ownerA)

	drug, err := store.GetDrug(ctx, "D1")
	require.NoError(t, err)
	drug.Name = "mutated"
	drug.Owner = ownerB

	ids, err := store.GetDrugIDsByOwner(ctx, ownerA)
	require.NoError(t, err)
	ids[0] = "mutated"

	again, err := store.GetDrug(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", again.Name)
	assert.Equal(t, ownerA, again.Owner)

	ids, err = store.GetDrugIDsByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, ids)
}

type failingSealer struct{}

func (failingSealer) Seal(prev *domain.RegistrationEvent, ev *domain.RegistrationEvent) error {
	return fmt.Errorf("sealer unavailable")
}

func TestMemoryStore_SealFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(failingSealer{})

	_, err := store.InsertDrug(ctx, InsertDrugInput{Drug: buildTestDrug("D1", ownerA), EventID: "evt"})
	require.ErrorContains(t, err, "failed to seal registration event")

	exists, err := store.DrugExists(ctx, "D1")
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := store.CountDrugsByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Zero(t, count)
}
