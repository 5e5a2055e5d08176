// Package directory manages the variable-length extension region that
// follows the base record in a state buffer.
//
// Region layout, starting right after the base record:
//
//	[Marker(8)][Count(1)][Tag(1)][Payload(n)][Tag(1)][Payload(n)]...
//
// Entries are appended in insertion order and never move. The count byte is
// the commit point: an entry whose bytes are written but which the count
// does not yet cover is invisible to every reader.
package directory

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/errs"
	"github.com/ssargent/statext/pkg/extension"
)

// Grower extends an account's data by additional zeroed bytes, funded by
// payer. It must leave both accounts untouched when it fails.
type Grower interface {
	Grow(ctx context.Context, target *account.Account, additional int, payer *account.Account) error
}

// Directory reads and writes extension entries using a fixed kind table.
type Directory struct {
	registry *extension.Registry
	grower   Grower
	logger   zerolog.Logger
}

// New creates a directory. A nil grower makes every operation that needs
// more space fail with GrowthDenied.
func New(registry *extension.Registry, grower Grower, logger zerolog.Logger) *Directory {
	return &Directory{
		registry: registry,
		grower:   grower,
		logger:   logger.With().Str("component", "directory").Logger(),
	}
}

// Registry returns the kind table the directory resolves tags against.
func (d *Directory) Registry() *extension.Registry {
	return d.registry
}

// Scan validates data and returns its committed directory state.
func (d *Directory) Scan(data []byte) (*Snapshot, error) {
	return scan(d.registry, data)
}

// ensure makes acct at least needed bytes long.
func (d *Directory) ensure(ctx context.Context, acct *account.Account, needed int, payer *account.Account) error {
	short := needed - len(acct.Data)
	if short <= 0 {
		return nil
	}
	if d.grower == nil {
		return errors.Wrapf(errs.ErrGrowthDenied, "%s needs %d more bytes and no grower is configured", acct.Address, short)
	}
	return d.grower.Grow(ctx, acct, short, payer)
}

func openRegion(data []byte) {
	copy(data[MarkerOffset:CountOffset], Marker[:])
	data[CountOffset] = 0
}

// OpenRegion writes the marker and a zero count if the region is not open
// yet, growing the account when it is too short. It is a no-op on an open
// region.
func (d *Directory) OpenRegion(ctx context.Context, acct *account.Account, payer *account.Account) error {
	snap, err := d.Scan(acct.Data)
	if err != nil {
		return err
	}
	if snap.Open {
		return nil
	}
	if err := d.ensure(ctx, acct, EntriesOffset, payer); err != nil {
		return err
	}
	openRegion(acct.Data)
	d.logger.Debug().Str("account", acct.Address.String()).Msg("opened extension region")
	return nil
}

// Add appends kind as a new entry, opening the region and growing the
// account as needed. Nothing is written unless every check and the growth
// succeed.
func (d *Directory) Add(ctx context.Context, acct *account.Account, kind extension.Kind, payer *account.Account) error {
	snap, err := d.Scan(acct.Data)
	if err != nil {
		return err
	}
	tag := kind.ExtensionTag()
	if snap.Count() >= MaxExtensions {
		return errors.Wrapf(errs.ErrDirectoryFull, "cannot add %s", tag)
	}
	if _, ok := snap.Find(tag); ok {
		return errors.Wrapf(errs.ErrDuplicateExtension, "%s already present", tag)
	}
	payload, err := d.registry.Encode(kind)
	if err != nil {
		return err
	}

	needed := snap.End + 1 + len(payload)
	if err := d.ensure(ctx, acct, needed, payer); err != nil {
		return err
	}

	data := acct.Data
	if !snap.Open {
		openRegion(data)
	}
	data[snap.End] = byte(tag)
	copy(data[snap.End+1:needed], payload)
	// Commit.
	data[CountOffset] = byte(snap.Count() + 1)

	d.logger.Debug().
		Str("account", acct.Address.String()).
		Stringer("tag", tag).
		Int("offset", snap.End).
		Int("count", snap.Count()+1).
		Msg("added extension")
	return nil
}

// Update overwrites the payload of the entry whose tag matches kind. The
// buffer never changes size.
func (d *Directory) Update(data []byte, kind extension.Kind) error {
	snap, err := d.Scan(data)
	if err != nil {
		return err
	}
	tag := kind.ExtensionTag()
	e, ok := snap.Find(tag)
	if !ok {
		return errors.Wrapf(errs.ErrExtensionNotFound, "%s", tag)
	}
	payload, err := d.registry.Encode(kind)
	if err != nil {
		return err
	}
	copy(data[e.PayloadOffset():e.End()], payload)
	d.logger.Debug().Stringer("tag", tag).Int("offset", e.Offset).Msg("updated extension")
	return nil
}

// Zero clears the payload bytes of tag's entry. The entry stays in the
// directory and decodes as the zero value of its kind.
func (d *Directory) Zero(data []byte, tag extension.Tag) error {
	snap, err := d.Scan(data)
	if err != nil {
		return err
	}
	e, ok := snap.Find(tag)
	if !ok {
		return errors.Wrapf(errs.ErrExtensionNotFound, "%s", tag)
	}
	clear(data[e.PayloadOffset():e.End()])
	d.logger.Debug().Stringer("tag", tag).Int("offset", e.Offset).Msg("zeroed extension")
	return nil
}

// Get decodes the entry for tag.
func (d *Directory) Get(data []byte, tag extension.Tag) (extension.Kind, error) {
	snap, err := d.Scan(data)
	if err != nil {
		return nil, err
	}
	e, ok := snap.Find(tag)
	if !ok {
		return nil, errors.Wrapf(errs.ErrExtensionNotFound, "%s", tag)
	}
	return d.registry.Decode(tag, data[e.PayloadOffset():e.End()])
}

// GetAs decodes the entry for tag as K.
func GetAs[K extension.Kind](d *Directory, data []byte, tag extension.Tag) (K, error) {
	var zero K
	k, err := d.Get(data, tag)
	if err != nil {
		return zero, err
	}
	v, ok := k.(K)
	if !ok {
		return zero, errors.Wrapf(errs.ErrCorruptExtension, "%s holds %T, not %T", tag, k, zero)
	}
	return v, nil
}

// ListPresentTags returns the committed tags in insertion order. A buffer
// whose region is not open has none.
func (d *Directory) ListPresentTags(data []byte) ([]extension.Tag, error) {
	snap, err := d.Scan(data)
	if err != nil {
		return nil, err
	}
	return snap.Tags(), nil
}
