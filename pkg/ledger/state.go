package ledger

import (
	"context"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/program"
)

// StateRequest asks for a new state buffer owned by Owner, funded by Payer.
type StateRequest struct {
	Payer   account.Address `json:"payer"`
	Owner   account.Address `json:"owner"`
	Payload account.Blob    `json:"payload"`
}

// StateResult is the outcome of InitializeState.
type StateResult struct {
	Address account.Address `json:"address"`
	Bump    uint8           `json:"bump"`
	Receipt *Receipt        `json:"receipt"`
}

// StateInstruction derives the canonical state address for owner and
// builds the matching initialize-state instruction.
func (l *Ledger) StateInstruction(req StateRequest) (Instruction, account.Address, uint8, error) {
	addr, bump, err := l.processor.Binder().Find(req.Owner)
	if err != nil {
		return Instruction{}, account.Address{}, 0, err
	}

	args := program.InitializeStateArgs{Owner: req.Owner, Payload: req.Payload, Bump: bump}
	ix := Instruction{
		Accounts: []AccountMeta{
			{Address: req.Payer, Signer: true, Writable: true},
			{Address: addr, Writable: true},
			{Address: account.RentAddress},
			{Address: account.SystemAddress},
		},
		Data: args.Encode(),
	}
	return ix, addr, bump, nil
}

// InitializeState derives the state address for req.Owner and submits the
// initialize-state instruction for it.
func (l *Ledger) InitializeState(ctx context.Context, req StateRequest) (*StateResult, error) {
	ix, addr, bump, err := l.StateInstruction(req)
	if err != nil {
		return nil, err
	}
	receipt, err := l.Execute(ctx, ix)
	return &StateResult{Address: addr, Bump: bump, Receipt: receipt}, err
}
