package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

var propertyOwners = []string{ownerA, ownerB, ownerC}

type registerCall struct {
	owner string
	input domain.RegisterInput
}

func registerCallGen() *rapid.Generator[registerCall] {
	now := testNow.Unix()
	return rapid.Custom(func(t *rapid.T) registerCall {
		return registerCall{
			owner: rapid.SampledFrom(propertyOwners).Draw(t, "owner"),
			input: domain.RegisterInput{
				// a small id space forces collisions
				ID:                   rapid.StringMatching(`D[0-9]{1,2}`).Draw(t, "id"),
				Name:                 rapid.StringMatching(`[A-Za-z ]{0,8}`).Draw(t, "name"),
				BatchNumber:          rapid.StringMatching(`(LOT[0-9]{1,3})?`).Draw(t, "batch"),
				ManufactureTimestamp: rapid.Int64Range(now-1000, now+1000).Draw(t, "manufacture"),
				ExpiryTimestamp:      rapid.Int64Range(now-1000, now+1000).Draw(t, "expiry"),
			},
		}
	})
}

func TestRegistry_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		r := newTestRegistry()
		calls := rapid.SliceOfN(registerCallGen(), 1, 40).Draw(rt, "calls")

		accepted := make(map[string]registerCall)
		var order []string
		var lastTotal uint64

		for _, call := range calls {
			_, err := r.Register(ctx, call.owner, call.input)

			if _, dup := accepted[call.input.ID]; dup && call.input.Name != "" && call.input.BatchNumber != "" {
				require.True(rt, domain.IsConflict(err), "duplicate id %q must conflict, got %v", call.input.ID, err)
			}
			if err == nil {
				in := call.input
				require.Less(rt, in.ManufactureTimestamp, in.ExpiryTimestamp)
				require.LessOrEqual(rt, in.ManufactureTimestamp, testNow.Unix())
				accepted[in.ID] = call
				order = append(order, in.ID)
			}

			total, err := r.Total(ctx)
			require.NoError(rt, err)
			require.GreaterOrEqual(rt, total, lastTotal, "total never decreases")
			lastTotal = total
		}

		require.Equal(rt, uint64(len(accepted)), lastTotal)

		// records are never overwritten by later calls
		for id, call := range accepted {
			drug, err := r.Get(ctx, id)
			require.NoError(rt, err)
			require.Equal(rt, call.input.Name, drug.Name)
			require.Equal(rt, call.input.BatchNumber, drug.BatchNumber)
			require.Equal(rt, call.input.ManufactureTimestamp, drug.ManufactureTimestamp)
			require.Equal(rt, call.input.ExpiryTimestamp, drug.ExpiryTimestamp)
			require.Equal(rt, domain.Owner(call.owner), drug.Owner)
		}

		// the owner index partitions the registry in registration order
		var indexed uint64
		for _, owner := range propertyOwners {
			ids, err := r.ListByOwner(ctx, owner)
			require.NoError(rt, err)
			count, err := r.CountByOwner(ctx, owner)
			require.NoError(rt, err)
			require.Equal(rt, uint64(len(ids)), count)

			var expected []string
			for _, id := range order {
				if accepted[id].owner == owner {
					expected = append(expected, id)
				}
			}
			if expected == nil {
				expected = []string{}
			}
			require.Equal(rt, expected, ids)
			indexed += count
		}
		require.Equal(rt, lastTotal, indexed)

		// every accepted registration is journaled and notified once, in order
		notified := r.notifier.Events()
		require.Len(rt, notified, len(order))
		for i, ev := range notified {
			require.Equal(rt, uint64(i+1), ev.Sequence)
			require.Equal(rt, order[i], ev.DrugID)
		}

		report, err := r.VerifyLedger(ctx)
		require.NoError(rt, err)
		require.True(rt, report.Valid)
		require.Equal(rt, uint64(len(order)), report.Events)
	})
}
