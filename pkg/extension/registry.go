// Package extension holds the compiled-in table of extension kinds: for every
// kind a stable tag, a fixed payload length and a decoder.
package extension

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/errs"
)

// Tag identifies an extension kind on the wire. Tags are never reused.
type Tag uint8

func (t Tag) String() string {
	return fmt.Sprintf("ext%d", uint8(t))
}

// Kind is a strongly typed extension value.
type Kind interface {
	// ExtensionTag returns the kind's registered tag.
	ExtensionTag() Tag
	// EncodeExtension writes the kind into dst, which is exactly the
	// registered length.
	EncodeExtension(dst []byte)
}

// Spec describes one registered kind.
type Spec struct {
	Tag    Tag
	Name   string
	Length uint16
	// Decode receives exactly Length bytes.
	Decode func(payload []byte) (Kind, error)
}

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	specs map[Tag]Spec
	tags  []Tag
}

// NewRegistry builds a registry, rejecting duplicate tags, zero lengths and
// missing decoders.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[Tag]Spec, len(specs))}
	for _, s := range specs {
		if _, dup := r.specs[s.Tag]; dup {
			return nil, errors.Newf("tag %d registered twice", s.Tag)
		}
		if s.Length == 0 {
			return nil, errors.Newf("tag %d (%s) has zero length", s.Tag, s.Name)
		}
		if s.Decode == nil {
			return nil, errors.Newf("tag %d (%s) has no decoder", s.Tag, s.Name)
		}
		r.specs[s.Tag] = s
		r.tags = append(r.tags, s.Tag)
	}
	sort.Slice(r.tags, func(i, j int) bool { return r.tags[i] < r.tags[j] })
	return r, nil
}

// MustRegistry is NewRegistry for package-level tables.
func MustRegistry(specs ...Spec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the spec registered for tag.
func (r *Registry) Lookup(tag Tag) (Spec, bool) {
	s, ok := r.specs[tag]
	return s, ok
}

// Length returns the payload length for tag. Unregistered tags are corrupt
// data from the directory's point of view.
func (r *Registry) Length(tag Tag) (int, error) {
	s, ok := r.specs[tag]
	if !ok {
		return 0, errors.Wrapf(errs.ErrCorruptExtension, "unregistered tag %d", tag)
	}
	return int(s.Length), nil
}

// Tags returns the registered tags in ascending order.
func (r *Registry) Tags() []Tag {
	out := make([]Tag, len(r.tags))
	copy(out, r.tags)
	return out
}

// Encode returns exactly Length(k.ExtensionTag()) bytes.
func (r *Registry) Encode(k Kind) ([]byte, error) {
	n, err := r.Length(k.ExtensionTag())
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	k.EncodeExtension(buf)
	return buf, nil
}

// Decode parses payload as the kind registered for tag.
func (r *Registry) Decode(tag Tag, payload []byte) (Kind, error) {
	s, ok := r.specs[tag]
	if !ok {
		return nil, errors.Wrapf(errs.ErrCorruptExtension, "unregistered tag %d", tag)
	}
	if len(payload) != int(s.Length) {
		return nil, errors.Wrapf(errs.ErrCorruptExtension, "%s payload is %d bytes, want %d", s.Name, len(payload), s.Length)
	}
	return s.Decode(payload)
}
