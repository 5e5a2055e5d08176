package capacity

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/errs"
)

var namespace = account.MustParseAddress("ENrRns55VechXJiq4bMbdx7idzQh7tvaEJoYeWxRNe7Y")

func newTestManager() *Manager {
	return NewManager(namespace, DefaultRent(), DefaultLimits(), zerolog.Nop())
}

func newTarget(size int, lamports uint64) *account.Account {
	return &account.Account{
		Address:  account.Address{1},
		Owner:    namespace,
		Lamports: lamports,
		Data:     make([]byte, size),
		Writable: true,
	}
}

func newPayer(lamports uint64) *account.Account {
	return &account.Account{
		Address:  account.Address{2},
		Lamports: lamports,
		Signer:   true,
		Writable: true,
	}
}

func TestRentMinimumBalance(t *testing.T) {
	r := DefaultRent()
	assert.Equal(t, uint64((128+0)*3480*2), r.MinimumBalance(0))
	assert.Equal(t, uint64((128+76)*3480*2), r.MinimumBalance(76))

	half := Rent{LamportsPerByteYear: 10, ExemptionThreshold: 0.5}
	assert.Equal(t, uint64(640), half.MinimumBalance(0))
}

func TestRentEncoding(t *testing.T) {
	r := Rent{LamportsPerByteYear: 1234, ExemptionThreshold: 1.5, BurnPercent: 20}
	raw := r.Encode()
	require.Len(t, raw, RentLen)

	decoded, err := DecodeRent(raw)
	require.NoError(t, err)
	assert.Equal(t, r, decoded)

	_, err = DecodeRent(raw[:RentLen-1])
	assert.Equal(t, errs.CodeInvalidAccount, errs.CodeOf(err))

	bad := Rent{LamportsPerByteYear: 1, ExemptionThreshold: -1}.Encode()
	_, err = DecodeRent(bad)
	assert.Equal(t, errs.CodeInvalidAccount, errs.CodeOf(err))
}

func TestGrow(t *testing.T) {
	ctx := context.Background()

	t.Run("funds and extends", func(t *testing.T) {
		m := newTestManager()
		target := newTarget(84, m.Rent().MinimumBalance(84))
		target.Data[0] = 0xaa
		payer := newPayer(1_000_000_000)

		require.NoError(t, m.Grow(ctx, target, 34, payer))

		assert.Equal(t, 118, target.Len())
		assert.Equal(t, byte(0xaa), target.Data[0])
		assert.Equal(t, make([]byte, 34), target.Data[84:])
		assert.Equal(t, m.Rent().MinimumBalance(118), target.Lamports)
		delta := m.Rent().MinimumBalance(118) - m.Rent().MinimumBalance(84)
		assert.Equal(t, uint64(1_000_000_000)-delta, payer.Lamports)
	})

	t.Run("already funded target charges nothing", func(t *testing.T) {
		m := newTestManager()
		target := newTarget(10, 1_000_000_000)
		payer := newPayer(0)
		payer.Signer = false

		require.NoError(t, m.Grow(ctx, target, 100, payer))
		assert.Equal(t, 110, target.Len())
		assert.Equal(t, uint64(0), payer.Lamports)
	})

	t.Run("insufficient funds changes nothing", func(t *testing.T) {
		m := newTestManager()
		target := newTarget(84, m.Rent().MinimumBalance(84))
		payer := newPayer(10)

		err := m.Grow(ctx, target, 34, payer)
		assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))
		assert.Equal(t, 84, target.Len())
		assert.Equal(t, m.Rent().MinimumBalance(84), target.Lamports)
		assert.Equal(t, uint64(10), payer.Lamports)
	})

	t.Run("no payer", func(t *testing.T) {
		m := newTestManager()
		err := m.Grow(ctx, newTarget(84, 0), 1, nil)
		assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))
	})

	denied := []struct {
		name   string
		mutate func(target, payer *account.Account)
		add    int
		code   errs.Code
	}{
		{"read-only target", func(tg, _ *account.Account) { tg.Writable = false }, 8, errs.CodeGrowthDenied},
		{"foreign owner", func(tg, _ *account.Account) { tg.Owner = account.RentAddress }, 8, errs.CodeGrowthDenied},
		{"zero growth", func(_, _ *account.Account) {}, 0, errs.CodeGrowthDenied},
		{"increase above limit", func(_, _ *account.Account) {}, DefaultMaxIncrease + 1, errs.CodeGrowthDenied},
		{"payer not signer", func(_, p *account.Account) { p.Signer = false }, 8, errs.CodeMissingRequiredSignature},
		{"payer read-only", func(_, p *account.Account) { p.Writable = false }, 8, errs.CodeAccountNotWritable},
		{"self funding", func(tg, p *account.Account) { p.Address = tg.Address }, 8, errs.CodeInvalidAccount},
	}
	for _, tc := range denied {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager()
			target := newTarget(84, 0)
			payer := newPayer(1_000_000_000)
			tc.mutate(target, payer)

			err := m.Grow(ctx, target, tc.add, payer)
			assert.Equal(t, tc.code, errs.CodeOf(err))
			assert.Equal(t, 84, target.Len())
			assert.Equal(t, uint64(0), target.Lamports)
			assert.Equal(t, uint64(1_000_000_000), payer.Lamports)
		})
	}

	t.Run("ceiling", func(t *testing.T) {
		m := NewManager(namespace, DefaultRent(), Limits{MaxDataLen: 100, MaxIncrease: 1000}, zerolog.Nop())
		err := m.Grow(ctx, newTarget(84, 0), 17, newPayer(1_000_000_000))
		assert.Equal(t, errs.CodeGrowthDenied, errs.CodeOf(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		m := newTestManager()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		target := newTarget(84, 0)
		err := m.Grow(cctx, target, 8, newPayer(1_000_000_000))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 84, target.Len())
	})
}

func TestAllocate(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates and assigns", func(t *testing.T) {
		m := newTestManager()
		target := account.New(account.Address{3})
		target.Writable = true
		payer := newPayer(1_000_000_000)

		require.NoError(t, m.Allocate(ctx, target, 76, payer))
		assert.Equal(t, 76, target.Len())
		assert.Equal(t, namespace, target.Owner)
		assert.Equal(t, m.Rent().MinimumBalance(76), target.Lamports)
		assert.Equal(t, 1_000_000_000-m.Rent().MinimumBalance(76), payer.Lamports)
	})

	t.Run("already allocated", func(t *testing.T) {
		m := newTestManager()
		target := newTarget(76, 0)
		err := m.Allocate(ctx, target, 76, newPayer(1_000_000_000))
		assert.Equal(t, errs.CodeAlreadyInitialized, errs.CodeOf(err))
	})

	t.Run("insufficient funds", func(t *testing.T) {
		m := newTestManager()
		target := account.New(account.Address{3})
		target.Writable = true
		err := m.Allocate(ctx, target, 76, newPayer(1))
		assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))
		assert.Equal(t, 0, target.Len())
		assert.True(t, target.Owner.IsZero())
	})

	t.Run("read-only", func(t *testing.T) {
		m := newTestManager()
		target := account.New(account.Address{3})
		err := m.Allocate(ctx, target, 76, newPayer(1_000_000_000))
		assert.Equal(t, errs.CodeGrowthDenied, errs.CodeOf(err))
	})
}
