package payment

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

func TestMemoryLedger_Transfer(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(map[domain.Identity]uint64{"a": 20})

	require.NoError(t, ledger.Transfer(ctx, "a", "b", 15))
	a, _ := ledger.Balance(ctx, "a")
	b, _ := ledger.Balance(ctx, "b")
	require.Equal(t, uint64(5), a)
	require.Equal(t, uint64(15), b)

	err := ledger.Transfer(ctx, "a", "b", 6)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	a, _ = ledger.Balance(ctx, "a")
	require.Equal(t, uint64(5), a)
}

func TestMemoryLedger_RejectingRecipient(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(map[domain.Identity]uint64{"a": 20})
	ledger.RejectTransfersTo("b")

	require.ErrorIs(t, ledger.Transfer(ctx, "a", "b", 1), ErrRecipientRejected)
	a, _ := ledger.Balance(ctx, "a")
	require.Equal(t, uint64(20), a)
}

func TestMemoryLedger_Overflow(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(map[domain.Identity]uint64{"a": 10, "b": math.MaxUint64})
	require.ErrorIs(t, ledger.Transfer(ctx, "a", "b", 1), ErrAmountTooLarge)
}

func TestMemoryLedger_SeedIsCopied(t *testing.T) {
	seed := map[domain.Identity]uint64{"a": 1}
	ledger := NewMemoryLedger(seed)
	seed["a"] = 100
	got, err := ledger.Balance(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, uint64(1), got)
}

// Transfers never create or destroy value.
func TestMemoryLedger_ConservesValue(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		ids := []domain.Identity{"a", "b", "c"}
		initial := map[domain.Identity]uint64{}
		var total uint64
		for _, id := range ids {
			v := rapid.Uint64Range(0, 1000).Draw(rt, string(id))
			initial[id] = v
			total += v
		}
		ledger := NewMemoryLedger(initial)

		for n := rapid.IntRange(0, 30).Draw(rt, "n"); n > 0; n-- {
			from := rapid.SampledFrom(ids).Draw(rt, "from")
			to := rapid.SampledFrom(ids).Draw(rt, "to")
			_ = ledger.Transfer(ctx, from, to, rapid.Uint64Range(0, 1200).Draw(rt, "amount"))
		}

		var sum uint64
		for _, id := range ids {
			b, err := ledger.Balance(ctx, id)
			require.NoError(rt, err)
			sum += b
		}
		require.Equal(rt, total, sum)
	})
}
