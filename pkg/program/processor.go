// Package program routes instruction data to its handler and runs it
// against the accounts the caller supplies.
package program

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/capacity"
	"github.com/ssargent/statext/pkg/codec"
	"github.com/ssargent/statext/pkg/directory"
	"github.com/ssargent/statext/pkg/errs"
	"github.com/ssargent/statext/pkg/extension"
)

// InitializeStateAccounts is the number of accounts OpInitializeState reads:
// payer, state, rent parameters, allocation authority.
const InitializeStateAccounts = 4

// Processor executes instructions for one namespace.
type Processor struct {
	binder   *codec.Binder
	registry *extension.Registry
	limits   capacity.Limits
	logger   zerolog.Logger
}

// NewProcessor creates a processor.
func NewProcessor(binder *codec.Binder, registry *extension.Registry, limits capacity.Limits, logger zerolog.Logger) *Processor {
	return &Processor{
		binder:   binder,
		registry: registry,
		limits:   limits,
		logger:   logger.With().Str("component", "program").Logger(),
	}
}

// Namespace returns the namespace the processor owns accounts under.
func (p *Processor) Namespace() account.Address {
	return p.binder.Namespace()
}

// Binder returns the address binder.
func (p *Processor) Binder() *codec.Binder {
	return p.binder
}

// Registry returns the extension table.
func (p *Processor) Registry() *extension.Registry {
	return p.registry
}

// Process runs one instruction. On error the accounts may be partially
// modified; callers that need atomicity pass clones and discard them.
func (p *Processor) Process(ctx context.Context, accounts []*account.Account, data []byte) error {
	op, args, err := ParseInstruction(data)
	if err != nil {
		return err
	}
	p.logger.Info().Uint8("opcode", uint8(op)).Stringer("op", op).Msg("instruction")

	switch op {
	case OpInitializeState:
		a, err := decodeInitializeState(args)
		if err != nil {
			return err
		}
		return p.initializeState(ctx, accounts, a)
	}
	return errors.Wrapf(errs.ErrInvalidInstructionData, "unknown opcode %d", op)
}

func (p *Processor) initializeState(ctx context.Context, accounts []*account.Account, args InitializeStateArgs) error {
	if len(accounts) < InitializeStateAccounts {
		return errors.Wrapf(errs.ErrNotEnoughAccountKeys, "need %d accounts, got %d", InitializeStateAccounts, len(accounts))
	}
	payer, state, rentAcct, authority := accounts[0], accounts[1], accounts[2], accounts[3]

	if !payer.Signer {
		return errors.Wrapf(errs.ErrMissingRequiredSignature, "payer %s", payer.Address)
	}
	if !payer.Writable {
		return errors.Wrapf(errs.ErrAccountNotWritable, "payer %s", payer.Address)
	}
	if !state.Writable {
		return errors.Wrapf(errs.ErrAccountNotWritable, "state %s", state.Address)
	}
	if rentAcct.Address != account.RentAddress {
		return errors.Wrapf(errs.ErrInvalidAccount, "%s is not the rent account", rentAcct.Address)
	}
	if authority.Address != account.SystemAddress {
		return errors.Wrapf(errs.ErrInvalidAccount, "%s is not the allocation authority", authority.Address)
	}
	rent, err := capacity.DecodeRent(rentAcct.Data)
	if err != nil {
		return err
	}
	if err := p.binder.Validate(args.Bump, state.Address, args.Owner); err != nil {
		return err
	}

	mgr := capacity.NewManager(p.binder.Namespace(), rent, p.limits, p.logger)
	if len(state.Data) == 0 {
		if err := mgr.Allocate(ctx, state, codec.BaseLen, payer); err != nil {
			return err
		}
	} else if state.Owner != p.binder.Namespace() {
		return errors.Wrapf(errs.ErrInvalidAccount, "state %s is owned by %s", state.Address, state.Owner)
	}

	if err := codec.Initialize(state.Data, args.Owner, args.Payload, args.Bump); err != nil {
		return err
	}
	p.logger.Debug().
		Str("state", state.Address.String()).
		Str("owner", args.Owner.String()).
		Uint8("bump", args.Bump).
		Msg("initialized base record")

	return p.extensionLifecycle(ctx, directory.New(p.registry, mgr, p.logger), state, payer)
}

// extensionLifecycle walks a freshly initialized buffer through add, update
// and zero.
func (p *Processor) extensionLifecycle(ctx context.Context, dir *directory.Directory, state, payer *account.Account) error {
	adds := []extension.Kind{
		extension.Note{ID: 255, Data: account.Fill(4)},
		extension.Ownership{ID: 10, Data: account.Fill(9), Flag: 1},
		extension.Custody{ID: 50, Data: account.Fill(9)},
	}
	for _, k := range adds {
		if err := dir.Add(ctx, state, k, payer); err != nil {
			return errors.Wrapf(err, "add %s", k.ExtensionTag())
		}
	}
	if err := dir.Update(state.Data, extension.Note{ID: 1, Data: account.Fill(7)}); err != nil {
		return errors.Wrap(err, "update note")
	}
	if err := dir.Zero(state.Data, extension.TagNote); err != nil {
		return errors.Wrap(err, "zero note")
	}
	p.logger.Debug().
		Str("state", state.Address.String()).
		Int("size", state.Len()).
		Msg("extension lifecycle complete")
	return nil
}
