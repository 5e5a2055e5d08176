package directory

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/capacity"
	"github.com/ssargent/statext/pkg/codec"
	"github.com/ssargent/statext/pkg/errs"
	"github.com/ssargent/statext/pkg/extension"
)

var (
	namespace = account.MustParseAddress("ENrRns55VechXJiq4bMbdx7idzQh7tvaEJoYeWxRNe7Y")
	owner     = account.Address{9, 9, 9}
)

func newManager() *capacity.Manager {
	return capacity.NewManager(namespace, capacity.DefaultRent(), capacity.DefaultLimits(), zerolog.Nop())
}

func newDirectory() *Directory {
	return New(extension.DefaultRegistry(), newManager(), zerolog.Nop())
}

// newState returns an initialized, rent exempt state account of size bytes.
func newState(t *testing.T, size int) *account.Account {
	t.Helper()
	buf := make([]byte, size)
	require.NoError(t, codec.Initialize(buf, owner, account.Fill(1), 254))
	return &account.Account{
		Address:  account.Address{1},
		Owner:    namespace,
		Lamports: capacity.DefaultRent().MinimumBalance(size),
		Data:     buf,
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

type tinyKind struct {
	Tag extension.Tag
	V   byte
}

func (k tinyKind) ExtensionTag() extension.Tag { return k.Tag }

func (k tinyKind) EncodeExtension(dst []byte) {
	for i := range dst {
		dst[i] = k.V
	}
}

// tinyRegistry registers n four-byte kinds with tags 10, 11, ...
func tinyRegistry(n int) *extension.Registry {
	specs := make([]extension.Spec, n)
	for i := range specs {
		tag := extension.Tag(10 + i)
		specs[i] = extension.Spec{
			Tag:    tag,
			Name:   fmt.Sprintf("tiny%d", i),
			Length: 4,
			Decode: func(b []byte) (extension.Kind, error) {
				return tinyKind{Tag: tag, V: b[0]}, nil
			},
		}
	}
	return extension.MustRegistry(specs...)
}

func TestAddThenGet(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	payer := newPayer(1_000_000_000)

	kinds := []extension.Kind{
		extension.Note{ID: 255, Data: account.Fill(4)},
		extension.Ownership{ID: 10, Data: account.Fill(9), Owner: owner, Flag: 1},
		extension.Custody{ID: 50, Data: account.Fill(9), Payer: payer.Address, Authority: owner},
	}
	for _, k := range kinds {
		require.NoError(t, d.Add(ctx, acct, k, payer))
	}

	tags, err := d.ListPresentTags(acct.Data)
	require.NoError(t, err)
	assert.Equal(t, []extension.Tag{0, 1, 2}, tags)
	assert.Equal(t, 284, acct.Len())

	want, err := RequiredCapacity(d.Registry(), tags...)
	require.NoError(t, err)
	assert.Equal(t, want, acct.Len())

	for _, k := range kinds {
		got, err := d.Get(acct.Data, k.ExtensionTag())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	rec, err := codec.Decode(acct.Data)
	require.NoError(t, err)
	assert.Equal(t, owner, rec.Owner)
	assert.Equal(t, capacity.DefaultRent().MinimumBalance(284), acct.Lamports)
}

func TestAddWritesLayout(t *testing.T) {
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	base := bytes.Clone(acct.Data)

	note := extension.Note{ID: 7, Data: account.Fill(3)}
	require.NoError(t, d.Add(context.Background(), acct, note, newPayer(1_000_000_000)))

	data := acct.Data
	require.Len(t, data, EntriesOffset+1+extension.NoteLen)
	assert.Equal(t, base, data[:codec.BaseLen])
	assert.Equal(t, Marker[:], data[MarkerOffset:CountOffset])
	assert.Equal(t, byte(1), data[CountOffset])
	assert.Equal(t, byte(extension.TagNote), data[EntriesOffset])
	assert.Equal(t, byte(7), data[EntriesOffset+1])
	assert.Equal(t, bytes.Repeat([]byte{3}, 32), data[EntriesOffset+2:])
}

func TestAddDuplicate(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	payer := newPayer(1_000_000_000)

	require.NoError(t, d.Add(ctx, acct, extension.Note{ID: 1}, payer))
	before := bytes.Clone(acct.Data)
	lamports := payer.Lamports

	err := d.Add(ctx, acct, extension.Note{ID: 2}, payer)
	assert.Equal(t, errs.CodeDuplicateExtension, errs.CodeOf(err))
	assert.Equal(t, before, acct.Data)
	assert.Equal(t, lamports, payer.Lamports)
}

func TestDirectoryFull(t *testing.T) {
	ctx := context.Background()
	d := New(tinyRegistry(MaxExtensions+1), newManager(), zerolog.Nop())
	acct := newState(t, codec.BaseLen)
	payer := newPayer(1_000_000_000)

	for i := 0; i < MaxExtensions; i++ {
		require.NoError(t, d.Add(ctx, acct, tinyKind{Tag: extension.Tag(10 + i), V: byte(i)}, payer))
	}
	before := bytes.Clone(acct.Data)

	err := d.Add(ctx, acct, tinyKind{Tag: extension.Tag(10 + MaxExtensions)}, payer)
	assert.Equal(t, errs.CodeDirectoryFull, errs.CodeOf(err))
	assert.Equal(t, before, acct.Data)

	tags, err := d.ListPresentTags(acct.Data)
	require.NoError(t, err)
	assert.Len(t, tags, MaxExtensions)
}

func TestAddInsufficientFunds(t *testing.T) {
	d := newDirectory()
	// Base record plus eight spare bytes: too short for marker and count.
	acct := newState(t, 84)
	before := bytes.Clone(acct.Data)
	lamports := acct.Lamports
	payer := newPayer(10)

	err := d.Add(context.Background(), acct, extension.Note{ID: 1}, payer)
	assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))
	assert.Equal(t, before, acct.Data)
	assert.Equal(t, lamports, acct.Lamports)
	assert.Equal(t, uint64(10), payer.Lamports)
}

func TestAddGrowsByExactShortfall(t *testing.T) {
	grower := &recordingGrower{}
	d := New(extension.DefaultRegistry(), grower, zerolog.Nop())
	acct := newState(t, 84)

	require.NoError(t, d.Add(context.Background(), acct, extension.Note{ID: 1}, nil))
	assert.Equal(t, []int{EntriesOffset + 1 + extension.NoteLen - 84}, grower.calls)
}

type recordingGrower struct {
	calls []int
}

func (g *recordingGrower) Grow(_ context.Context, target *account.Account, additional int, _ *account.Account) error {
	g.calls = append(g.calls, additional)
	target.Data = append(target.Data, make([]byte, additional)...)
	return nil
}

func TestAddWithoutGrower(t *testing.T) {
	d := New(extension.DefaultRegistry(), nil, zerolog.Nop())
	acct := newState(t, codec.BaseLen)

	err := d.Add(context.Background(), acct, extension.Note{ID: 1}, nil)
	assert.Equal(t, errs.CodeGrowthDenied, errs.CodeOf(err))

	// Enough room already: no grower needed.
	acct = newState(t, 200)
	require.NoError(t, d.Add(context.Background(), acct, extension.Note{ID: 1}, nil))
	assert.Equal(t, 200, acct.Len())
}

func TestAddNotInitialized(t *testing.T) {
	d := newDirectory()
	acct := &account.Account{Owner: namespace, Data: make([]byte, 200), Writable: true}

	err := d.Add(context.Background(), acct, extension.Note{}, newPayer(1_000_000_000))
	assert.Equal(t, errs.CodeNotInitialized, errs.CodeOf(err))

	err = d.OpenRegion(context.Background(), acct, nil)
	assert.Equal(t, errs.CodeNotInitialized, errs.CodeOf(err))
}

func TestOpenRegion(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	payer := newPayer(1_000_000_000)

	require.NoError(t, d.OpenRegion(ctx, acct, payer))
	assert.Equal(t, EntriesOffset, acct.Len())
	assert.Equal(t, Marker[:], acct.Data[MarkerOffset:CountOffset])

	lamports := payer.Lamports
	require.NoError(t, d.OpenRegion(ctx, acct, payer))
	assert.Equal(t, EntriesOffset, acct.Len())
	assert.Equal(t, lamports, payer.Lamports)

	tags, err := d.ListPresentTags(acct.Data)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestListClosedRegion(t *testing.T) {
	d := newDirectory()
	for _, size := range []int{codec.BaseLen, 80, 84, 300} {
		tags, err := d.ListPresentTags(newState(t, size).Data)
		require.NoError(t, err, "size %d", size)
		assert.Empty(t, tags)
	}
}

func TestUpdateAndZero(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	payer := newPayer(1_000_000_000)
	require.NoError(t, d.Add(ctx, acct, extension.Note{ID: 255, Data: account.Fill(4)}, payer))
	require.NoError(t, d.Add(ctx, acct, extension.Custody{ID: 50, Data: account.Fill(9)}, payer))
	size := acct.Len()

	require.NoError(t, d.Update(acct.Data, extension.Note{ID: 1, Data: account.Fill(7)}))
	note, err := GetAs[extension.Note](d, acct.Data, extension.TagNote)
	require.NoError(t, err)
	assert.Equal(t, extension.Note{ID: 1, Data: account.Fill(7)}, note)
	assert.Equal(t, size, acct.Len())

	require.NoError(t, d.Zero(acct.Data, extension.TagNote))
	note, err = GetAs[extension.Note](d, acct.Data, extension.TagNote)
	require.NoError(t, err)
	assert.Equal(t, extension.Note{}, note)

	tags, err := d.ListPresentTags(acct.Data)
	require.NoError(t, err)
	assert.Equal(t, []extension.Tag{extension.TagNote, extension.TagCustody}, tags)

	custody, err := GetAs[extension.Custody](d, acct.Data, extension.TagCustody)
	require.NoError(t, err)
	assert.Equal(t, uint8(50), custody.ID)
}

// requireOnlyPayloadChanged fails unless every byte of after outside e's
// payload equals before.
func requireOnlyPayloadChanged(t *testing.T, before, after []byte, e Entry) {
	t.Helper()
	require.Equal(t, len(before), len(after))
	require.Equal(t, before[:e.PayloadOffset()], after[:e.PayloadOffset()], "bytes before %s payload", e.Tag)
	require.Equal(t, before[e.End():], after[e.End():], "bytes after %s payload", e.Tag)
}

func TestUpdateAndZeroTouchOnlyPayload(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	payer := newPayer(1_000_000_000)
	require.NoError(t, d.Add(ctx, acct, extension.Note{ID: 255, Data: account.Fill(4)}, payer))
	require.NoError(t, d.Add(ctx, acct, extension.Ownership{ID: 10, Data: account.Fill(9), Flag: 1}, payer))
	require.NoError(t, d.Add(ctx, acct, extension.Custody{ID: 50, Data: account.Fill(9)}, payer))

	snap, err := d.Scan(acct.Data)
	require.NoError(t, err)
	ownership, ok := snap.Find(extension.TagOwnership)
	require.True(t, ok)
	custody, ok := snap.Find(extension.TagCustody)
	require.True(t, ok)

	t.Run("update", func(t *testing.T) {
		before := bytes.Clone(acct.Data)
		next := extension.Ownership{ID: 11, Data: account.Fill(0xee), Owner: owner, Flag: 0}
		require.NoError(t, d.Update(acct.Data, next))
		requireOnlyPayloadChanged(t, before, acct.Data, ownership)

		want := make([]byte, ownership.Length)
		next.EncodeExtension(want)
		assert.Equal(t, want, acct.Data[ownership.PayloadOffset():ownership.End()])
	})

	t.Run("zero", func(t *testing.T) {
		before := bytes.Clone(acct.Data)
		require.NoError(t, d.Zero(acct.Data, extension.TagCustody))
		requireOnlyPayloadChanged(t, before, acct.Data, custody)
		assert.Equal(t, make([]byte, custody.Length), acct.Data[custody.PayloadOffset():custody.End()])
		assert.Equal(t, byte(extension.TagCustody), acct.Data[custody.Offset])
		assert.Equal(t, byte(3), acct.Data[CountOffset])

		after, err := d.Scan(acct.Data)
		require.NoError(t, err)
		assert.Equal(t, snap.Entries, after.Entries)
		assert.Equal(t, snap.End, after.End)
	})
}

func TestMissingExtension(t *testing.T) {
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	require.NoError(t, d.Add(context.Background(), acct, extension.Note{}, newPayer(1_000_000_000)))
	before := bytes.Clone(acct.Data)

	_, err := d.Get(acct.Data, extension.TagOwnership)
	assert.Equal(t, errs.CodeExtensionNotFound, errs.CodeOf(err))

	err = d.Update(acct.Data, extension.Ownership{ID: 1})
	assert.Equal(t, errs.CodeExtensionNotFound, errs.CodeOf(err))

	err = d.Zero(acct.Data, extension.TagCustody)
	assert.Equal(t, errs.CodeExtensionNotFound, errs.CodeOf(err))

	assert.Equal(t, before, acct.Data)
}

func TestGetAsWrongType(t *testing.T) {
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	require.NoError(t, d.Add(context.Background(), acct, extension.Note{}, newPayer(1_000_000_000)))

	_, err := GetAs[extension.Custody](d, acct.Data, extension.TagNote)
	assert.Equal(t, errs.CodeCorruptExtension, errs.CodeOf(err))
}

func TestUncommittedEntryInvisible(t *testing.T) {
	ctx := context.Background()
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	payer := newPayer(1_000_000_000)
	require.NoError(t, d.Add(ctx, acct, extension.Note{ID: 1}, payer))

	// Bytes of a second entry with no count increment.
	end := acct.Len()
	acct.Data = append(acct.Data, make([]byte, 1+extension.OwnershipLen)...)
	acct.Data[end] = byte(extension.TagOwnership)
	acct.Data[end+1] = 99

	tags, err := d.ListPresentTags(acct.Data)
	require.NoError(t, err)
	assert.Equal(t, []extension.Tag{extension.TagNote}, tags)

	_, err = d.Get(acct.Data, extension.TagOwnership)
	assert.Equal(t, errs.CodeExtensionNotFound, errs.CodeOf(err))

	// The next add reuses the uncommitted space.
	require.NoError(t, d.Add(ctx, acct, extension.Ownership{ID: 5}, payer))
	assert.Equal(t, end+1+extension.OwnershipLen, acct.Len())
	got, err := GetAs[extension.Ownership](d, acct.Data, extension.TagOwnership)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), got.ID)
}

func TestCorruptRegion(t *testing.T) {
	valid := func(t *testing.T) []byte {
		acct := newState(t, codec.BaseLen)
		require.NoError(t, newDirectory().Add(context.Background(), acct, extension.Note{ID: 1}, newPayer(1_000_000_000)))
		return acct.Data
	}

	testCases := []struct {
		name   string
		mutate func(data []byte) []byte
	}{
		{"bad marker", func(b []byte) []byte { b[MarkerOffset] ^= 0xff; return b }},
		{"count over limit", func(b []byte) []byte { b[CountOffset] = MaxExtensions + 1; return b }},
		{"count past end", func(b []byte) []byte { b[CountOffset] = 2; return b }},
		{"unregistered tag", func(b []byte) []byte { b[EntriesOffset] = 77; return b }},
		{"truncated entry", func(b []byte) []byte { return b[:len(b)-1] }},
		{"stray count without marker", func(b []byte) []byte {
			clear(b[MarkerOffset:])
			b[CountOffset] = 1
			return b
		}},
		{"partial marker", func(b []byte) []byte { return b[:MarkerOffset+3] }},
		{"duplicate tag", func(b []byte) []byte {
			b = append(b, b[EntriesOffset:]...)
			b[CountOffset] = 2
			return b
		}},
	}

	d := newDirectory()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.mutate(valid(t))

			_, err := d.ListPresentTags(data)
			assert.Equal(t, errs.CodeCorruptExtension, errs.CodeOf(err))

			_, err = d.Get(data, extension.TagNote)
			assert.Equal(t, errs.CodeCorruptExtension, errs.CodeOf(err))

			err = d.Add(context.Background(), &account.Account{Owner: namespace, Data: data, Writable: true},
				extension.Custody{}, newPayer(1_000_000_000))
			assert.Equal(t, errs.CodeCorruptExtension, errs.CodeOf(err))
		})
	}
}

func TestScanTooSmall(t *testing.T) {
	_, err := newDirectory().Scan(make([]byte, codec.BaseLen-1))
	assert.Equal(t, errs.CodeLayoutTooSmall, errs.CodeOf(err))
}

func TestSnapshotPayload(t *testing.T) {
	d := newDirectory()
	acct := newState(t, codec.BaseLen)
	require.NoError(t, d.Add(context.Background(), acct, extension.Note{ID: 42}, newPayer(1_000_000_000)))

	snap, err := d.Scan(acct.Data)
	require.NoError(t, err)
	assert.True(t, snap.Open)
	assert.Equal(t, acct.Len(), snap.End)

	p := snap.Payload(extension.TagNote)
	require.Len(t, p, extension.NoteLen)
	assert.Equal(t, byte(42), p[0])
	assert.Nil(t, snap.Payload(extension.TagCustody))
}

func TestRequiredCapacity(t *testing.T) {
	r := extension.DefaultRegistry()

	n, err := RequiredCapacity(r)
	require.NoError(t, err)
	assert.Equal(t, 85, n)

	n, err = RequiredCapacity(r, extension.TagNote, extension.TagOwnership, extension.TagCustody)
	require.NoError(t, err)
	assert.Equal(t, 284, n)

	_, err = RequiredCapacity(r, extension.Tag(99))
	assert.Equal(t, errs.CodeCorruptExtension, errs.CodeOf(err))
}
