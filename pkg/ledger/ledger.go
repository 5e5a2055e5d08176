// Package ledger loads accounts from a persistent store, runs one
// instruction at a time against copies of them and persists the result only
// when the instruction succeeds.
package ledger

import (
	"bytes"
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/capacity"
	"github.com/ssargent/statext/pkg/directory"
	"github.com/ssargent/statext/pkg/errs"
	"github.com/ssargent/statext/pkg/program"
)

// AccountStore persists account snapshots.
type AccountStore interface {
	Get(addr account.Address) (*account.Account, bool, error)
	Put(acct *account.Account) error
	// PutBatch must make all accounts visible or none.
	PutBatch(accounts []*account.Account) error
	Close() error
}

// AccountMeta names an account and the roles it plays in one instruction.
type AccountMeta struct {
	Address  account.Address `json:"address"`
	Signer   bool            `json:"signer"`
	Writable bool            `json:"writable"`
}

// Instruction is a unit of work.
type Instruction struct {
	Accounts []AccountMeta `json:"accounts"`
	Data     []byte        `json:"data"`
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Receipt records the outcome of one instruction.
type Receipt struct {
	ID        ksuid.KSUID       `json:"id"`
	Status    string            `json:"status"`
	Code      uint32            `json:"code"`
	CodeName  string            `json:"code_name,omitempty"`
	Error     string            `json:"error,omitempty"`
	Written   []account.Address `json:"written,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Duration  time.Duration     `json:"duration"`
}

// Ledger serializes instructions against an account store.
type Ledger struct {
	mu        sync.Mutex
	store     AccountStore
	processor *program.Processor
	dir       *directory.Directory
	logger    zerolog.Logger
}

// New wraps store. The rent parameter account is seeded from rent when the
// store does not hold one yet.
func New(store AccountStore, processor *program.Processor, rent capacity.Rent, logger zerolog.Logger) (*Ledger, error) {
	l := &Ledger{
		store:     store,
		processor: processor,
		dir:       directory.New(processor.Registry(), nil, logger),
		logger:    logger.With().Str("component", "ledger").Logger(),
	}
	if err := l.seedRent(rent); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) seedRent(rent capacity.Rent) error {
	_, ok, err := l.store.Get(account.RentAddress)
	if err != nil {
		return errors.Wrap(err, "load rent account")
	}
	if ok {
		return nil
	}
	acct := &account.Account{
		Address:  account.RentAddress,
		Owner:    account.SystemAddress,
		Lamports: rent.MinimumBalance(capacity.RentLen),
		Data:     rent.Encode(),
	}
	if err := l.store.Put(acct); err != nil {
		return errors.Wrap(err, "seed rent account")
	}
	l.logger.Info().
		Uint64("lamports_per_byte_year", rent.LamportsPerByteYear).
		Float64("exemption_threshold", rent.ExemptionThreshold).
		Msg("seeded rent account")
	return nil
}

// Processor returns the instruction processor.
func (l *Ledger) Processor() *program.Processor {
	return l.processor
}

// load returns the stored account or an empty system-owned one.
func (l *Ledger) load(addr account.Address) (*account.Account, error) {
	acct, ok, err := l.store.Get(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", addr)
	}
	if !ok {
		return account.New(addr), nil
	}
	return acct, nil
}

// Account returns the stored account.
func (l *Ledger) Account(addr account.Address) (*account.Account, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Get(addr)
}

// Airdrop credits lamports to addr out of thin air.
func (l *Ledger) Airdrop(ctx context.Context, addr account.Address, lamports uint64) (*account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	if acct.Lamports > math.MaxUint64-lamports {
		return nil, errors.Wrapf(errs.ErrInvalidAccount, "airdrop of %d overflows %s", lamports, addr)
	}
	acct.Lamports += lamports
	if err := l.store.Put(acct); err != nil {
		return nil, err
	}

	l.logger.Info().Str("account", addr.String()).Uint64("lamports", lamports).Uint64("balance", acct.Lamports).Msg("airdrop")
	return acct, nil
}

// Execute runs ix. On success every writable account is persisted in one
// batch; on failure the store is left untouched. The receipt is returned in
// both cases.
func (l *Ledger) Execute(ctx context.Context, ix Instruction) (*Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	receipt := &Receipt{ID: ksuid.New(), Timestamp: start.UTC()}

	written, err := l.execute(ctx, ix)
	receipt.Duration = time.Since(start)
	if err != nil {
		code := program.ErrorCode(err)
		receipt.Status = StatusFailed
		receipt.Code = code
		receipt.CodeName = errs.Code(code).String()
		receipt.Error = err.Error()
		l.logger.Warn().
			Stringer("receipt", receipt.ID).
			Uint32("code", code).
			Err(err).
			Msg("instruction failed")
		return receipt, err
	}

	receipt.Status = StatusOK
	receipt.Written = written
	l.logger.Info().
		Stringer("receipt", receipt.ID).
		Int("written", len(written)).
		Dur("duration", receipt.Duration).
		Msg("instruction committed")
	return receipt, nil
}

func (l *Ledger) execute(ctx context.Context, ix Instruction) ([]account.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[account.Address]bool, len(ix.Accounts))
	originals := make([]*account.Account, len(ix.Accounts))
	working := make([]*account.Account, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		if seen[meta.Address] {
			return nil, errors.Wrapf(errs.ErrInvalidAccount, "%s listed twice", meta.Address)
		}
		seen[meta.Address] = true

		acct, err := l.load(meta.Address)
		if err != nil {
			return nil, err
		}
		originals[i] = acct
		working[i] = acct.Clone()
		working[i].Signer = meta.Signer
		working[i].Writable = meta.Writable
	}

	if err := l.processor.Process(ctx, working, ix.Data); err != nil {
		return nil, err
	}

	var before, after uint64
	var dirty []*account.Account
	for i, acct := range working {
		before += originals[i].Lamports
		after += acct.Lamports
		if !acct.Writable {
			if changed(originals[i], acct) {
				return nil, errors.Wrapf(errs.ErrAccountNotWritable, "read-only %s was modified", acct.Address)
			}
			continue
		}
		dirty = append(dirty, acct)
	}
	if before != after {
		return nil, errors.Wrapf(errs.ErrUnbalancedInstruction, "lamports before %d, after %d", before, after)
	}
	if len(dirty) == 0 {
		return nil, nil
	}

	if err := l.store.PutBatch(dirty); err != nil {
		return nil, errors.Wrap(err, "persist accounts")
	}
	written := make([]account.Address, len(dirty))
	for i, a := range dirty {
		written[i] = a.Address
	}
	return written, nil
}

func changed(a, b *account.Account) bool {
	return a.Lamports != b.Lamports || a.Owner != b.Owner || !bytes.Equal(a.Data, b.Data)
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Close()
}
