// Package account models the resizable, funded storage that holds a state
// buffer: an address, the namespace that owns the data, a lamport balance
// and the data bytes themselves.
package account

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLen is the width of an address in bytes.
const AddressLen = 32

// Address identifies an account. Its text form is base58.
type Address [AddressLen]byte

var (
	// SystemAddress owns unallocated accounts and acts as the allocation authority.
	SystemAddress = Address{}
	// RentAddress holds the encoded rent parameters.
	RentAddress = MustParseAddress("SysvarRent111111111111111111111111111111111")
)

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != AddressLen {
		return a, fmt.Errorf("invalid address %q: decoded to %d bytes, want %d", s, len(raw), AddressLen)
	}
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress is ParseAddress for package-level constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes copies b into an Address; b must be exactly AddressLen long.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLen {
		return a, fmt.Errorf("address must be %d bytes, got %d", AddressLen, len(b))
	}
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether a is the system address.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Blob is 32 opaque bytes. Its text form is hex.
type Blob [32]byte

// ParseBlob decodes a hex blob of exactly 32 bytes.
func ParseBlob(s string) (Blob, error) {
	var b Blob
	raw, err := hex.DecodeString(s)
	if err != nil {
		return b, fmt.Errorf("invalid blob: %w", err)
	}
	if len(raw) != len(b) {
		return b, fmt.Errorf("invalid blob: %d bytes, want %d", len(raw), len(b))
	}
	copy(b[:], raw)
	return b, nil
}

// Fill returns a blob with every byte set to v.
func Fill(v byte) Blob {
	var b Blob
	for i := range b {
		b[i] = v
	}
	return b
}

func (b Blob) String() string {
	return hex.EncodeToString(b[:])
}

func (b Blob) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Blob) UnmarshalText(text []byte) error {
	parsed, err := ParseBlob(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Account is one addressable storage unit. Signer and Writable describe the
// role the account plays in the current invocation and are not persisted.
type Account struct {
	Address  Address
	Owner    Address
	Lamports uint64
	Data     []byte

	Signer   bool
	Writable bool
}

// New returns an empty, unfunded, system-owned account.
func New(addr Address) *Account {
	return &Account{Address: addr, Owner: SystemAddress}
}

// Len is the current data capacity.
func (a *Account) Len() int {
	return len(a.Data)
}

// Clone returns a deep copy, including roles.
func (a *Account) Clone() *Account {
	c := *a
	if a.Data != nil {
		c.Data = make([]byte, len(a.Data))
		copy(c.Data, a.Data)
	}
	return &c
}
