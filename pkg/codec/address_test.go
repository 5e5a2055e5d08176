package codec

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/errs"
)

var testNamespace = account.MustParseAddress("ENrRns55VechXJiq4bMbdx7idzQh7tvaEJoYeWxRNe7Y")

// fixedDeriver returns a predetermined address per bump and refuses the rest.
type fixedDeriver struct {
	valid map[uint8]account.Address
	seen  [][][]byte
}

func (d *fixedDeriver) Derive(seeds [][]byte, namespace account.Address) (account.Address, error) {
	d.seen = append(d.seen, seeds)
	bump := seeds[len(seeds)-1][0]
	if addr, ok := d.valid[bump]; ok {
		return addr, nil
	}
	return account.Address{}, ErrOnCurve
}

func TestSHA256Deriver(t *testing.T) {
	d := SHA256Deriver{}
	owner := testOwner()

	t.Run("deterministic", func(t *testing.T) {
		binder := NewBinder(d, testNamespace)
		addr, bump, err := binder.Find(owner)
		require.NoError(t, err)

		again, err := d.Derive(stateSeeds(owner, bump), testNamespace)
		require.NoError(t, err)
		assert.Equal(t, addr, again)
	})

	t.Run("namespace separates addresses", func(t *testing.T) {
		a, _, err := NewBinder(d, testNamespace).Find(owner)
		require.NoError(t, err)
		b, _, err := NewBinder(d, account.RentAddress).Find(owner)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("too many seeds", func(t *testing.T) {
		seeds := make([][]byte, MaxSeeds+1)
		_, err := d.Derive(seeds, testNamespace)
		assert.True(t, errors.Is(err, ErrTooManySeeds))
	})

	t.Run("seed too long", func(t *testing.T) {
		_, err := d.Derive([][]byte{bytes.Repeat([]byte{1}, MaxSeedLen+1)}, testNamespace)
		assert.True(t, errors.Is(err, ErrSeedTooLong))
	})
}

func TestBinderValidate(t *testing.T) {
	owner := testOwner()
	binder := NewBinder(SHA256Deriver{}, testNamespace)
	addr, bump, err := binder.Find(owner)
	require.NoError(t, err)

	t.Run("matching address", func(t *testing.T) {
		assert.NoError(t, binder.Validate(bump, addr, owner))
	})

	t.Run("other owner", func(t *testing.T) {
		err := binder.Validate(bump, addr, account.RentAddress)
		assert.Equal(t, errs.CodeAddressMismatch, errs.CodeOf(err))
	})

	t.Run("observed differs", func(t *testing.T) {
		other := addr
		other[0] ^= 0xff
		err := binder.Validate(bump, other, owner)
		assert.Equal(t, errs.CodeAddressMismatch, errs.CodeOf(err))
	})

	t.Run("underivable bump", func(t *testing.T) {
		d := &fixedDeriver{valid: map[uint8]account.Address{}}
		err := NewBinder(d, testNamespace).Validate(3, addr, owner)
		assert.Equal(t, errs.CodeAddressMismatch, errs.CodeOf(err))
	})
}

func TestBinderFind(t *testing.T) {
	want := account.Address{9}
	d := &fixedDeriver{valid: map[uint8]account.Address{250: want, 10: {1}}}
	binder := NewBinder(d, testNamespace)

	addr, bump, err := binder.Find(testOwner())
	require.NoError(t, err)
	assert.Equal(t, want, addr)
	assert.Equal(t, uint8(250), bump)
	assert.Len(t, d.seen, 6) // 255 down to 250

	first := d.seen[0]
	require.Len(t, first, 3)
	assert.Equal(t, []byte(StateSeed), first[0])
	owner := testOwner()
	assert.Equal(t, owner[:], first[1])
	assert.Equal(t, []byte{255}, first[2])

	_, _, err = NewBinder(&fixedDeriver{}, testNamespace).Find(testOwner())
	assert.True(t, errors.Is(err, ErrNoBumpFound))
	assert.Equal(t, testNamespace, binder.Namespace())
}
