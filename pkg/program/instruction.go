package program

import (
	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/errs"
)

// Opcode is the first byte of instruction data.
type Opcode uint8

const (
	OpInitializeState Opcode = 0
)

func (o Opcode) String() string {
	switch o {
	case OpInitializeState:
		return "InitializeState"
	default:
		return "Unknown"
	}
}

// InitializeStateArgsLen is the exact argument length of OpInitializeState:
// [Owner(32)][Payload(32)][Bump(1)]
const InitializeStateArgsLen = account.AddressLen + 32 + 1

// InitializeStateArgs are the arguments of OpInitializeState.
type InitializeStateArgs struct {
	Owner   account.Address `json:"owner"`
	Payload account.Blob    `json:"payload"`
	Bump    uint8           `json:"bump"`
}

// Encode returns the full instruction data, opcode included.
func (a InitializeStateArgs) Encode() []byte {
	buf := make([]byte, 1+InitializeStateArgsLen)
	buf[0] = byte(OpInitializeState)
	copy(buf[1:33], a.Owner[:])
	copy(buf[33:65], a.Payload[:])
	buf[65] = a.Bump
	return buf
}

func decodeInitializeState(args []byte) (InitializeStateArgs, error) {
	if len(args) != InitializeStateArgsLen {
		return InitializeStateArgs{}, errors.Wrapf(errs.ErrInvalidInstructionData,
			"initialize state takes %d bytes, got %d", InitializeStateArgsLen, len(args))
	}
	var a InitializeStateArgs
	copy(a.Owner[:], args[0:32])
	copy(a.Payload[:], args[32:64])
	a.Bump = args[64]
	return a, nil
}

// ParseInstruction splits data into its opcode and arguments. Unknown opcodes
// are rejected by the processor, not here.
func ParseInstruction(data []byte) (Opcode, []byte, error) {
	if len(data) == 0 {
		return 0, nil, errors.Wrap(errs.ErrInvalidInstructionData, "empty instruction")
	}
	return Opcode(data[0]), data[1:], nil
}

// ErrorCode maps err to the numeric code returned across the instruction
// boundary. Nil maps to zero.
func ErrorCode(err error) uint32 {
	if err == nil {
		return 0
	}
	return uint32(errs.CodeOf(err))
}
