package ledger_test

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/ledger"
	"github.com/feral-file/ff-drug-registry/internal/mocks"
)

func newLedger() *ledger.Ledger {
	return ledger.New(adapter.NewJSON(), adapter.NewJCS())
}

func buildChain(t *testing.T, l *ledger.Ledger, n int) []domain.RegistrationEvent {
	t.Helper()

	events := make([]domain.RegistrationEvent, 0, n)
	var prev *domain.RegistrationEvent
	for i := 0; i < n; i++ {
		ev := domain.RegistrationEvent{
			EventID:              "01HZ0000000000000000000" + string(rune('A'+i)),
			DrugID:               "DRUG00" + string(rune('1'+i)),
			Name:                 "Paracetamol 500mg",
			Owner:                domain.Owner("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
			ManufactureTimestamp: 1_700_000_000,
			ExpiryTimestamp:      1_800_000_000,
			RegisteredAt:         1_700_000_100 + int64(i),
		}
		require.NoError(t, l.Seal(prev, &ev))
		events = append(events, ev)
		prev = &events[len(events)-1]
	}
	return events
}

func TestSeal_LinksEntries(t *testing.T) {
	l := newLedger()
	events := buildChain(t, l, 3)

	assert.Equal(t, uint64(1), events[0].Sequence)
	assert.Equal(t, ledger.GenesisHash, events[0].PrevHash)
	assert.Equal(t, events[0].Hash, events[1].PrevHash)
	assert.Equal(t, events[1].Hash, events[2].PrevHash)
	assert.Equal(t, uint64(3), events[2].Sequence)
	assert.Len(t, events[0].Hash, 66)
	assert.NotEqual(t, events[0].Hash, events[1].Hash)
}

func TestHash_Deterministic(t *testing.T) {
	l := newLedger()
	events := buildChain(t, l, 1)

	again, err := l.Hash(&events[0])
	require.NoError(t, err)
	assert.Equal(t, events[0].Hash, again)
}

func TestVerify(t *testing.T) {
	l := newLedger()

	t.Run("intact chain", func(t *testing.T) {
		events := buildChain(t, l, 5)
		assert.NoError(t, l.Verify(events))
	})

	t.Run("empty chain", func(t *testing.T) {
		assert.NoError(t, l.Verify(nil))
	})

	t.Run("tampered content", func(t *testing.T) {
		events := buildChain(t, l, 5)
		events[2].ExpiryTimestamp += 86400

		err := l.Verify(events)
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrHashMismatch)

		var chainErr *ledger.ChainError
		require.True(t, errors.As(err, &chainErr))
		assert.Equal(t, uint64(3), chainErr.Sequence)
	})

	t.Run("rehashed entry breaks next link", func(t *testing.T) {
		events := buildChain(t, l, 4)
		events[1].Name = "Counterfeit"
		hash, err := l.Hash(&events[1])
		require.NoError(t, err)
		events[1].Hash = hash

		err = l.Verify(events)
		assert.ErrorIs(t, err, ledger.ErrBrokenLink)
	})

	t.Run("missing entry", func(t *testing.T) {
		events := buildChain(t, l, 4)
		events = append(events[:1], events[2:]...)

		err := l.Verify(events)
		assert.ErrorIs(t, err, ledger.ErrSequenceGap)
	})
}

func TestVerifier_Resume(t *testing.T) {
	l := newLedger()
	events := buildChain(t, l, 6)

	first := l.NewVerifier()
	require.NoError(t, first.CheckAll(events[:3]))
	seq, head := first.Head()
	assert.Equal(t, uint64(3), seq)
	assert.Equal(t, events[2].Hash, head)

	resumed := l.NewVerifierFrom(seq, head)
	require.NoError(t, resumed.CheckAll(events[3:]))
	assert.Equal(t, uint64(3), resumed.Checked())
}

func TestHash_CanonicalizationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jcs := mocks.NewMockJCS(ctrl)
	jcs.EXPECT().Transform(gomock.Any()).Return(nil, errors.New("boom"))

	l := ledger.New(adapter.NewJSON(), jcs)
	ev := domain.RegistrationEvent{DrugID: "D1"}
	err := l.Seal(nil, &ev)
	assert.ErrorContains(t, err, "failed to canonicalize event")
}
