package api

import (
	"context"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/extension"
	"github.com/ssargent/statext/pkg/ledger"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Code is the engine error code when the failure came from an
	// instruction.
	Code     uint32 `json:"code,omitempty"`
	CodeName string `json:"code_name,omitempty"`
}

// AirdropRequest credits lamports to the account in the URL.
type AirdropRequest struct {
	Lamports uint64 `json:"lamports" validate:"gt=0"`
}

// InstructionRequest is a raw instruction. Data is base64 in JSON.
type InstructionRequest struct {
	Accounts []ledger.AccountMeta `json:"accounts" validate:"dive"`
	Data     []byte               `json:"data" validate:"required"`
}

// StateRequest asks for a new state buffer. Payload defaults to zero.
type StateRequest struct {
	Payer   account.Address `json:"payer"`
	Owner   account.Address `json:"owner"`
	Payload account.Blob    `json:"payload"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string
}

// Ledger is the part of *ledger.Ledger the server needs.
type Ledger interface {
	Account(addr account.Address) (*account.Account, bool, error)
	Describe(acct *account.Account) *ledger.AccountView
	Extension(acct *account.Account, tag extension.Tag) (*ledger.ExtensionView, error)
	Airdrop(ctx context.Context, addr account.Address, lamports uint64) (*account.Account, error)
	Execute(ctx context.Context, ix ledger.Instruction) (*ledger.Receipt, error)
	InitializeState(ctx context.Context, req ledger.StateRequest) (*ledger.StateResult, error)
}

var _ Ledger = (*ledger.Ledger)(nil)
