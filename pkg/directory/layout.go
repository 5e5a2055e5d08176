package directory

import (
	"bytes"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/codec"
	"github.com/ssargent/statext/pkg/errs"
	"github.com/ssargent/statext/pkg/extension"
)

const (
	// MaxExtensions bounds the number of committed entries.
	MaxExtensions = 5
	MarkerLen     = 8

	MarkerOffset  = codec.BaseLen
	CountOffset   = MarkerOffset + MarkerLen
	EntriesOffset = CountOffset + 1
)

// Marker opens the extension region. It is written once and never changes.
var Marker = [MarkerLen]byte{167, 97, 34, 56, 78, 90, 102, 46}

// Entry locates one committed extension. Offset is the position of the tag
// byte; the payload follows it.
type Entry struct {
	Tag    extension.Tag `json:"tag"`
	Offset int           `json:"offset"`
	Length int           `json:"length"`
}

// PayloadOffset is the first payload byte.
func (e Entry) PayloadOffset() int { return e.Offset + 1 }

// End is the first byte after the entry.
func (e Entry) End() int { return e.Offset + 1 + e.Length }

// Snapshot is a validated view of a buffer's committed directory state. It
// is only valid until the buffer is next modified.
type Snapshot struct {
	Open    bool
	Entries []Entry
	// End is where the next entry's tag byte goes.
	End int

	data []byte
}

// Count is the number of committed entries.
func (s *Snapshot) Count() int {
	return len(s.Entries)
}

// Find returns the entry for tag.
func (s *Snapshot) Find(tag extension.Tag) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Tag == tag {
			return e, true
		}
	}
	return Entry{}, false
}

// Tags returns the committed tags in insertion order.
func (s *Snapshot) Tags() []extension.Tag {
	tags := make([]extension.Tag, len(s.Entries))
	for i, e := range s.Entries {
		tags[i] = e.Tag
	}
	return tags
}

// Payload returns the stored payload bytes for tag without copying, or nil.
// Bounds were checked when the snapshot was taken, so this is the trusted
// fast path for callers that already hold a snapshot of unchanged data.
func (s *Snapshot) Payload(tag extension.Tag) []byte {
	e, ok := s.Find(tag)
	if !ok {
		return nil
	}
	return s.data[e.PayloadOffset():e.End()]
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// scan validates the base record, the marker, the count and every committed
// entry of data.
func scan(registry *extension.Registry, data []byte) (*Snapshot, error) {
	if len(data) < codec.BaseLen {
		return nil, errors.Wrapf(errs.ErrLayoutTooSmall, "have %d bytes, base record needs %d", len(data), codec.BaseLen)
	}
	if !codec.IsInitialized(data) {
		return nil, errs.ErrNotInitialized
	}

	snap := &Snapshot{End: EntriesOffset, data: data}

	if len(data) < EntriesOffset {
		// Not enough room for marker and count, so the region cannot be open.
		if !allZero(data[MarkerOffset:]) {
			return nil, errors.Wrap(errs.ErrCorruptExtension, "partial marker")
		}
		return snap, nil
	}

	marker := data[MarkerOffset:CountOffset]
	switch {
	case bytes.Equal(marker, Marker[:]):
		snap.Open = true
	case allZero(marker) && data[CountOffset] == 0:
		return snap, nil
	default:
		return nil, errors.Wrapf(errs.ErrCorruptExtension, "bad region marker %v", marker)
	}

	count := int(data[CountOffset])
	if count > MaxExtensions {
		return nil, errors.Wrapf(errs.ErrCorruptExtension, "count %d exceeds %d", count, MaxExtensions)
	}

	off := EntriesOffset
	snap.Entries = make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		if off >= len(data) {
			return nil, errors.Wrapf(errs.ErrCorruptExtension, "entry %d starts past end of buffer", i)
		}
		tag := extension.Tag(data[off])
		n, err := registry.Length(tag)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		e := Entry{Tag: tag, Offset: off, Length: n}
		if e.End() > len(data) {
			return nil, errors.Wrapf(errs.ErrCorruptExtension, "entry %d (%s) ends at %d, buffer is %d", i, tag, e.End(), len(data))
		}
		if _, dup := snap.Find(tag); dup {
			return nil, errors.Wrapf(errs.ErrCorruptExtension, "tag %s stored twice", tag)
		}
		snap.Entries = append(snap.Entries, e)
		off = e.End()
	}
	snap.End = off
	return snap, nil
}

// RequiredCapacity is the smallest buffer that holds the base record, an
// open region and one entry per tag.
func RequiredCapacity(registry *extension.Registry, tags ...extension.Tag) (int, error) {
	total := EntriesOffset
	for _, tag := range tags {
		n, err := registry.Length(tag)
		if err != nil {
			return 0, err
		}
		total += 1 + n
	}
	return total, nil
}
