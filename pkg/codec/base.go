package codec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/errs"
)

// BaseLen is the size of the base record in bytes.
const BaseLen = 76

const (
	offFlag        = 0
	offOwner       = 1
	offState       = 33
	offPayload     = 34
	offUpdateCount = 68
	offBump        = 72
)

// LifecycleState is the base record's lifecycle code.
type LifecycleState uint8

const (
	StateUninitialized LifecycleState = iota
	StateInitialized
	StateUpdated
)

func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *LifecycleState) UnmarshalText(text []byte) error {
	for _, v := range []LifecycleState{StateUninitialized, StateInitialized, StateUpdated} {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return errors.Newf("unknown lifecycle state %q", text)
}

func parseState(b byte) (LifecycleState, error) {
	switch s := LifecycleState(b); s {
	case StateUninitialized, StateInitialized, StateUpdated:
		return s, nil
	default:
		return 0, errors.Wrapf(errs.ErrCorruptRecord, "unknown lifecycle state %d", b)
	}
}

// BaseRecord is the decoded view of the first BaseLen bytes of a buffer.
type BaseRecord struct {
	Flag        uint8           `json:"flag"`
	Owner       account.Address `json:"owner"`
	State       LifecycleState  `json:"state"`
	Payload     account.Blob    `json:"payload"`
	UpdateCount uint32          `json:"update_count"`
	Bump        uint8           `json:"bump"`
}

// IsInitialized reports whether the record has been initialized.
func (r *BaseRecord) IsInitialized() bool {
	return r.Flag != 0
}

// Decode reads the base record at offset 0.
func Decode(buf []byte) (*BaseRecord, error) {
	if len(buf) < BaseLen {
		return nil, errors.Wrapf(errs.ErrLayoutTooSmall, "have %d bytes, base record needs %d", len(buf), BaseLen)
	}

	state, err := parseState(buf[offState])
	if err != nil {
		return nil, err
	}

	r := &BaseRecord{
		Flag:        buf[offFlag],
		State:       state,
		UpdateCount: binary.LittleEndian.Uint32(buf[offUpdateCount : offUpdateCount+4]),
		Bump:        buf[offBump],
	}
	copy(r.Owner[:], buf[offOwner:offOwner+account.AddressLen])
	copy(r.Payload[:], buf[offPayload:offPayload+len(r.Payload)])

	if (r.Flag != 0) != (r.State != StateUninitialized) {
		return nil, errors.Wrapf(errs.ErrCorruptRecord, "flag %d disagrees with state %s", r.Flag, r.State)
	}

	return r, nil
}

// Encode writes every field of r, including zeroed reserved bytes, into the
// first BaseLen bytes of buf.
func (r *BaseRecord) Encode(buf []byte) error {
	if len(buf) < BaseLen {
		return errors.Wrapf(errs.ErrLayoutTooSmall, "have %d bytes, base record needs %d", len(buf), BaseLen)
	}

	out := buf[:BaseLen]
	clear(out)
	out[offFlag] = r.Flag
	copy(out[offOwner:], r.Owner[:])
	out[offState] = byte(r.State)
	copy(out[offPayload:], r.Payload[:])
	binary.LittleEndian.PutUint32(out[offUpdateCount:], r.UpdateCount)
	out[offBump] = r.Bump
	return nil
}

// IsInitialized reports whether buf holds an initialized base record. Short
// buffers are never initialized.
func IsInitialized(buf []byte) bool {
	return len(buf) >= BaseLen && buf[offFlag] != 0
}

// Initialize writes a fresh base record into a zeroed buffer. Nothing is
// written unless every check passes.
func Initialize(buf []byte, owner account.Address, payload account.Blob, bump uint8) error {
	if len(buf) < BaseLen {
		return errors.Wrapf(errs.ErrLayoutTooSmall, "have %d bytes, base record needs %d", len(buf), BaseLen)
	}
	if buf[offFlag] != 0 {
		return errs.ErrAlreadyInitialized
	}

	r := &BaseRecord{
		Flag:        1,
		Owner:       owner,
		State:       StateInitialized,
		Payload:     payload,
		UpdateCount: 0,
		Bump:        bump,
	}
	return r.Encode(buf)
}
