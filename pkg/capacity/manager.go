package capacity

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/errs"
)

const (
	DefaultMaxDataLen  = 10 * 1024 * 1024
	DefaultMaxIncrease = 10 * 1024
)

// Limits bound how large a buffer may become.
type Limits struct {
	// MaxDataLen is the ceiling on any account's data length.
	MaxDataLen int `yaml:"max_data_len" json:"max_data_len" validate:"gt=0"`
	// MaxIncrease is the most a single Grow or Allocate may add.
	MaxIncrease int `yaml:"max_increase" json:"max_increase" validate:"gt=0"`
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{MaxDataLen: DefaultMaxDataLen, MaxIncrease: DefaultMaxIncrease}
}

// Manager performs funded resizes of accounts owned by one namespace. Every
// call either applies both the lamport transfer and the resize, or neither.
type Manager struct {
	namespace account.Address
	rent      Rent
	limits    Limits
	logger    zerolog.Logger
}

// NewManager creates a manager for accounts owned by namespace.
func NewManager(namespace account.Address, rent Rent, limits Limits, logger zerolog.Logger) *Manager {
	return &Manager{
		namespace: namespace,
		rent:      rent,
		limits:    limits,
		logger:    logger.With().Str("component", "capacity").Logger(),
	}
}

// Rent returns the parameters the manager funds against.
func (m *Manager) Rent() Rent {
	return m.rent
}

// Grow extends target by additional bytes and moves whatever payer must
// contribute to keep target rent exempt at the new size.
func (m *Manager) Grow(ctx context.Context, target *account.Account, additional int, payer *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if additional <= 0 {
		return errors.Wrapf(errs.ErrGrowthDenied, "non-positive growth %d", additional)
	}
	if !target.Writable {
		return errors.Wrapf(errs.ErrGrowthDenied, "%s is read-only", target.Address)
	}
	if target.Owner != m.namespace {
		return errors.Wrapf(errs.ErrGrowthDenied, "%s is owned by %s", target.Address, target.Owner)
	}

	newLen := len(target.Data) + additional
	required, err := m.check(target, newLen, additional, payer)
	if err != nil {
		return err
	}

	m.transfer(payer, target, required)
	grown := make([]byte, newLen)
	copy(grown, target.Data)
	target.Data = grown

	m.logger.Debug().
		Str("account", target.Address.String()).
		Int("added", additional).
		Int("size", newLen).
		Uint64("funded", required).
		Msg("grew account")
	return nil
}

// Allocate gives an empty, system-owned target size zeroed bytes, assigns it
// to the namespace and funds it from payer.
func (m *Manager) Allocate(ctx context.Context, target *account.Account, size int, payer *account.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if size <= 0 {
		return errors.Wrapf(errs.ErrGrowthDenied, "non-positive size %d", size)
	}
	if !target.Writable {
		return errors.Wrapf(errs.ErrGrowthDenied, "%s is read-only", target.Address)
	}
	if len(target.Data) != 0 || !target.Owner.IsZero() {
		return errors.Wrapf(errs.ErrAlreadyInitialized, "%s is already allocated", target.Address)
	}

	required, err := m.check(target, size, size, payer)
	if err != nil {
		return err
	}

	m.transfer(payer, target, required)
	target.Data = make([]byte, size)
	target.Owner = m.namespace

	m.logger.Debug().
		Str("account", target.Address.String()).
		Int("size", size).
		Uint64("funded", required).
		Msg("allocated account")
	return nil
}

// check validates limits and the payer and returns the lamports payer owes.
func (m *Manager) check(target *account.Account, newLen, added int, payer *account.Account) (uint64, error) {
	if added > m.limits.MaxIncrease {
		return 0, errors.Wrapf(errs.ErrGrowthDenied, "increase of %d exceeds %d", added, m.limits.MaxIncrease)
	}
	if newLen > m.limits.MaxDataLen {
		return 0, errors.Wrapf(errs.ErrGrowthDenied, "size %d exceeds %d", newLen, m.limits.MaxDataLen)
	}

	minimum := m.rent.MinimumBalance(newLen)
	var required uint64
	if minimum > target.Lamports {
		required = minimum - target.Lamports
	}
	if required == 0 {
		return 0, nil
	}

	if payer == nil {
		return 0, errors.Wrapf(errs.ErrInsufficientFunds, "no payer for %d lamports", required)
	}
	if payer.Address == target.Address {
		return 0, errors.Wrapf(errs.ErrInvalidAccount, "%s cannot fund itself", payer.Address)
	}
	if !payer.Signer {
		return 0, errors.Wrapf(errs.ErrMissingRequiredSignature, "payer %s", payer.Address)
	}
	if !payer.Writable {
		return 0, errors.Wrapf(errs.ErrAccountNotWritable, "payer %s", payer.Address)
	}
	if payer.Lamports < required {
		return 0, errors.Wrapf(errs.ErrInsufficientFunds, "payer %s has %d lamports, needs %d", payer.Address, payer.Lamports, required)
	}
	return required, nil
}

func (m *Manager) transfer(from, to *account.Account, lamports uint64) {
	if lamports == 0 {
		return
	}
	from.Lamports -= lamports
	to.Lamports += lamports
}
