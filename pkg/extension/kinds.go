package extension

import (
	"github.com/ssargent/statext/pkg/account"
)

const (
	TagNote      Tag = 0
	TagOwnership Tag = 1
	TagCustody   Tag = 2
)

const (
	NoteLen      = 1 + 32
	OwnershipLen = 1 + 32 + account.AddressLen + 1
	CustodyLen   = 1 + 32 + account.AddressLen + account.AddressLen
)

// Note carries an id and a 32-byte blob.
type Note struct {
	ID   uint8        `json:"id"`
	Data account.Blob `json:"data"`
}

func (Note) ExtensionTag() Tag { return TagNote }

func (n Note) EncodeExtension(dst []byte) {
	dst[0] = n.ID
	copy(dst[1:33], n.Data[:])
}

func decodeNote(b []byte) (Kind, error) {
	n := Note{ID: b[0]}
	copy(n.Data[:], b[1:33])
	return n, nil
}

// Ownership binds a blob to an owner key. Flag is kept raw so that any
// stored byte survives a decode/encode cycle.
type Ownership struct {
	ID    uint8           `json:"id"`
	Data  account.Blob    `json:"data"`
	Owner account.Address `json:"owner"`
	Flag  uint8           `json:"flag"`
}

func (Ownership) ExtensionTag() Tag { return TagOwnership }

// Checked reports whether the flag is set.
func (o Ownership) Checked() bool { return o.Flag != 0 }

func (o Ownership) EncodeExtension(dst []byte) {
	dst[0] = o.ID
	copy(dst[1:33], o.Data[:])
	copy(dst[33:65], o.Owner[:])
	dst[65] = o.Flag
}

func decodeOwnership(b []byte) (Kind, error) {
	o := Ownership{ID: b[0], Flag: b[65]}
	copy(o.Data[:], b[1:33])
	copy(o.Owner[:], b[33:65])
	return o, nil
}

// Custody names who pays for and who administers a blob.
type Custody struct {
	ID        uint8           `json:"id"`
	Data      account.Blob    `json:"data"`
	Payer     account.Address `json:"payer"`
	Authority account.Address `json:"authority"`
}

func (Custody) ExtensionTag() Tag { return TagCustody }

func (c Custody) EncodeExtension(dst []byte) {
	dst[0] = c.ID
	copy(dst[1:33], c.Data[:])
	copy(dst[33:65], c.Payer[:])
	copy(dst[65:97], c.Authority[:])
}

func decodeCustody(b []byte) (Kind, error) {
	c := Custody{ID: b[0]}
	copy(c.Data[:], b[1:33])
	copy(c.Payer[:], b[33:65])
	copy(c.Authority[:], b[65:97])
	return c, nil
}

var defaultRegistry = MustRegistry(
	Spec{Tag: TagNote, Name: "note", Length: NoteLen, Decode: decodeNote},
	Spec{Tag: TagOwnership, Name: "ownership", Length: OwnershipLen, Decode: decodeOwnership},
	Spec{Tag: TagCustody, Name: "custody", Length: CustodyLen, Decode: decodeCustody},
)

// DefaultRegistry returns the shipped table of kinds.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
