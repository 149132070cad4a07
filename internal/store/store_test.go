package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/ledger"
)

const (
	ownerA = domain.Owner("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	ownerB = domain.Owner("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

func newTestLedger() *ledger.Ledger {
	return ledger.New(adapter.NewJSON(), adapter.NewJCS())
}

// buildTestDrug creates a drug registered by owner
func buildTestDrug(id string, owner domain.Owner) domain.Drug {
	return domain.Drug{
		ID:                   id,
		Name:                 "Paracetamol 500mg",
		BatchNumber:          "LOT2024001",
		ManufactureTimestamp: 1_700_000_000,
		ExpiryTimestamp:      1_731_536_000,
		Owner:                owner,
		RegisteredAt:         1_700_000_500,
		Details: domain.DrugDetails{
			RegistrationNumber: "REG-123",
			ActiveIngredient:   "Paracetamol",
			Concentration:      "500mg",
			DosageForm:         "Tablet",
			Quantity:           1000,
			OriginCountry:      "VN",
		},
	}
}

func insertTestDrug(t *testing.T, store Store, id string, owner domain.Owner) *domain.RegistrationEvent {
	t.Helper()

	ev, err := store.InsertDrug(context.Background(), InsertDrugInput{
		Drug:    buildTestDrug(id, owner),
		EventID: "evt-" + id,
	})
	require.NoError(t, err)
	require.NotNil(t, ev)
	return ev
}

func testInsertAndGetDrug(t *testing.T, store Store) {
	ctx := context.Background()

	ev := insertTestDrug(t, store, "DRUG001", ownerA)
	assert.Equal(t, uint64(1), ev.Sequence)
	assert.Equal(t, "DRUG001", ev.DrugID)
	assert.Equal(t, ownerA, ev.Owner)
	assert.Equal(t, "evt-DRUG001", ev.EventID)
	assert.NotEmpty(t, ev.Hash)

	drug, err := store.GetDrug(ctx, "DRUG001")
	require.NoError(t, err)
	require.NotNil(t, drug)
	assert.Equal(t, buildTestDrug("DRUG001", ownerA), *drug)

	exists, err := store.DrugExists(ctx, "DRUG001")
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := store.GetDrug(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err = store.DrugExists(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.False(t, exists)
}

func testInsertDuplicateDrug(t *testing.T, store Store) {
	ctx := context.Background()

	insertTestDrug(t, store, "DRUG001", ownerA)

	dup := buildTestDrug("DRUG001", ownerB)
	dup.Name = "Ibuprofen"
	dup.BatchNumber = "LOT9"
	ev, err := store.InsertDrug(ctx, InsertDrugInput{Drug: dup, EventID: "evt-dup"})
	assert.ErrorIs(t, err, domain.ErrDrugAlreadyRegistered)
	assert.Nil(t, ev)

	// original record untouched, nothing appended
	drug, err := store.GetDrug(ctx, "DRUG001")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", drug.Name)
	assert.Equal(t, ownerA, drug.Owner)

	total, err := store.CountDrugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)

	countB, err := store.CountDrugsByOwner(ctx, ownerB)
	require.NoError(t, err)
	assert.Zero(t, countB)

	events, err := store.GetRegistrationEvents(ctx, domain.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func testOwnerIndex(t *testing.T, store Store) {
	ctx := context.Background()

	insertTestDrug(t, store, "D1", ownerA)
	insertTestDrug(t, store, "D3", ownerB)
	insertTestDrug(t, store, "D2", ownerA)

	idsA, err := store.GetDrugIDsByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1", "D2"}, idsA)

	idsB, err := store.GetDrugIDsByOwner(ctx, ownerB)
	require.NoError(t, err)
	assert.Equal(t, []string{"D3"}, idsB)

	countA, err := store.CountDrugsByOwner(ctx, ownerA)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), countA)

	none, err := store.GetDrugIDsByOwner(ctx, domain.Owner("nobody"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	total, err := store.CountDrugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
}

func testRegistrationJournal(t *testing.T, store Store) {
	ctx := context.Background()

	head, err := store.GetLatestRegistrationEvent(ctx)
	require.NoError(t, err)
	assert.Nil(t, head)

	for _, id := range []string{"D1", "D2", "D3", "D4"} {
		owner := ownerA
		if id == "D3" {
			owner = ownerB
		}
		insertTestDrug(t, store, id, owner)
	}

	events, err := store.GetRegistrationEvents(ctx, domain.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 4)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Sequence)
	}
	assert.NoError(t, newTestLedger().Verify(events))

	head, err = store.GetLatestRegistrationEvent(ctx)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, events[3], *head)

	t.Run("anchor and limit", func(t *testing.T) {
		page, err := store.GetRegistrationEvents(ctx, domain.EventFilter{Anchor: 1, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "D2", page[0].DrugID)
		assert.Equal(t, "D3", page[1].DrugID)
	})

	t.Run("owner filter", func(t *testing.T) {
		owner := ownerA
		page, err := store.GetRegistrationEvents(ctx, domain.EventFilter{Owner: &owner})
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, []string{"D1", "D2", "D4"}, []string{page[0].DrugID, page[1].DrugID, page[2].DrugID})
	})

	t.Run("anchor past head", func(t *testing.T) {
		page, err := store.GetRegistrationEvents(ctx, domain.EventFilter{Anchor: 10})
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

// RunStoreTests runs the shared store suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"InsertAndGetDrug", testInsertAndGetDrug},
		{"InsertDuplicateDrug", testInsertDuplicateDrug},
		{"OwnerIndex", testOwnerIndex},
		{"RegistrationJournal", testRegistrationJournal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
