package codec

import (
	"crypto/sha256"

	"filippo.io/edwards25519"
	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/errs"
)

// StateSeed is the first seed of every state buffer address.
const StateSeed = "mystate"

const (
	MaxSeeds   = 16
	MaxSeedLen = 32
	addressTag = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds = errors.New("too many seeds")
	ErrSeedTooLong  = errors.New("seed too long")
	ErrOnCurve      = errors.New("derived address lies on the ed25519 curve")
	ErrNoBumpFound  = errors.New("no bump produces a valid address")
)

// Deriver turns a seed sequence and a namespace into an address.
type Deriver interface {
	Derive(seeds [][]byte, namespace account.Address) (account.Address, error)
}

// SHA256Deriver hashes the seeds, the namespace and a fixed domain tag, and
// rejects results that are valid curve points so no private key can exist
// for a derived address.
type SHA256Deriver struct{}

func (SHA256Deriver) Derive(seeds [][]byte, namespace account.Address) (account.Address, error) {
	var out account.Address
	if len(seeds) > MaxSeeds {
		return out, errors.Wrapf(ErrTooManySeeds, "%d seeds, max %d", len(seeds), MaxSeeds)
	}

	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return out, errors.Wrapf(ErrSeedTooLong, "%d bytes, max %d", len(s), MaxSeedLen)
		}
		h.Write(s)
	}
	h.Write(namespace[:])
	h.Write([]byte(addressTag))
	copy(out[:], h.Sum(nil))

	if _, err := new(edwards25519.Point).SetBytes(out[:]); err == nil {
		return account.Address{}, ErrOnCurve
	}
	return out, nil
}

// Binder ties state buffer addresses to their owners under one namespace.
type Binder struct {
	deriver   Deriver
	namespace account.Address
}

// NewBinder creates a binder for namespace.
func NewBinder(deriver Deriver, namespace account.Address) *Binder {
	return &Binder{deriver: deriver, namespace: namespace}
}

// Namespace returns the namespace addresses are derived under.
func (b *Binder) Namespace() account.Address {
	return b.namespace
}

func stateSeeds(owner account.Address, bump uint8) [][]byte {
	return [][]byte{[]byte(StateSeed), owner[:], {bump}}
}

// Validate recomputes the address for (owner, bump) and compares it with
// observed.
func (b *Binder) Validate(bump uint8, observed, owner account.Address) error {
	derived, err := b.deriver.Derive(stateSeeds(owner, bump), b.namespace)
	if err != nil {
		return errors.Wrapf(errs.ErrAddressMismatch, "bump %d does not derive: %v", bump, err)
	}
	if derived != observed {
		return errors.Wrapf(errs.ErrAddressMismatch, "derived %s, observed %s", derived, observed)
	}
	return nil
}

// Find returns the canonical address and bump for owner: the first bump,
// counting down from 255, that derives an address.
func (b *Binder) Find(owner account.Address) (account.Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := b.deriver.Derive(stateSeeds(owner, uint8(bump)), b.namespace)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return account.Address{}, 0, err
		}
	}
	return account.Address{}, 0, ErrNoBumpFound
}
