// Package errs defines the closed error taxonomy shared by the state engine.
//
// Every failure that can cross the instruction boundary is one of the
// sentinel *Error values below. Callers wrap them with context using
// github.com/cockroachdb/errors and recover the numeric code with CodeOf.
package errs

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Code is the stable numeric identity of a failure. Codes are never reused.
type Code uint32

const (
	CodeUnknown Code = iota
	CodeLayoutTooSmall
	CodeAlreadyInitialized
	CodeNotInitialized
	CodeAddressMismatch
	CodeDirectoryFull
	CodeDuplicateExtension
	CodeExtensionNotFound
	CodeCorruptExtension
	CodeInsufficientFunds
	CodeGrowthDenied
	CodeInvalidInstructionData
	CodeCorruptRecord
	CodeNotEnoughAccountKeys
	CodeMissingRequiredSignature
	CodeAccountNotWritable
	CodeInvalidAccount
	CodeUnbalancedInstruction
)

var codeNames = map[Code]string{
	CodeUnknown:                  "Unknown",
	CodeLayoutTooSmall:           "LayoutTooSmall",
	CodeAlreadyInitialized:       "AlreadyInitialized",
	CodeNotInitialized:           "NotInitialized",
	CodeAddressMismatch:          "AddressMismatch",
	CodeDirectoryFull:            "DirectoryFull",
	CodeDuplicateExtension:       "DuplicateExtension",
	CodeExtensionNotFound:        "ExtensionNotFound",
	CodeCorruptExtension:         "CorruptExtension",
	CodeInsufficientFunds:        "InsufficientFunds",
	CodeGrowthDenied:             "GrowthDenied",
	CodeInvalidInstructionData:   "InvalidInstructionData",
	CodeCorruptRecord:            "CorruptRecord",
	CodeNotEnoughAccountKeys:     "NotEnoughAccountKeys",
	CodeMissingRequiredSignature: "MissingRequiredSignature",
	CodeAccountNotWritable:       "AccountNotWritable",
	CodeInvalidAccount:           "InvalidAccount",
	CodeUnbalancedInstruction:    "UnbalancedInstruction",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint32(c))
}

// Error is a taxonomy member.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrLayoutTooSmall           = &Error{CodeLayoutTooSmall, "buffer too small for layout"}
	ErrAlreadyInitialized       = &Error{CodeAlreadyInitialized, "base record already initialized"}
	ErrNotInitialized           = &Error{CodeNotInitialized, "base record not initialized"}
	ErrAddressMismatch          = &Error{CodeAddressMismatch, "derived address mismatch"}
	ErrDirectoryFull            = &Error{CodeDirectoryFull, "extension directory full"}
	ErrDuplicateExtension       = &Error{CodeDuplicateExtension, "extension already present"}
	ErrExtensionNotFound        = &Error{CodeExtensionNotFound, "extension not found"}
	ErrCorruptExtension         = &Error{CodeCorruptExtension, "corrupt extension data"}
	ErrInsufficientFunds        = &Error{CodeInsufficientFunds, "insufficient funds"}
	ErrGrowthDenied             = &Error{CodeGrowthDenied, "growth denied"}
	ErrInvalidInstructionData   = &Error{CodeInvalidInstructionData, "invalid instruction data"}
	ErrCorruptRecord            = &Error{CodeCorruptRecord, "corrupt base record"}
	ErrNotEnoughAccountKeys     = &Error{CodeNotEnoughAccountKeys, "not enough account keys"}
	ErrMissingRequiredSignature = &Error{CodeMissingRequiredSignature, "missing required signature"}
	ErrAccountNotWritable       = &Error{CodeAccountNotWritable, "account not writable"}
	ErrInvalidAccount           = &Error{CodeInvalidAccount, "invalid account"}
	ErrUnbalancedInstruction    = &Error{CodeUnbalancedInstruction, "instruction changed total lamports"}
)

// CodeOf returns the code of the first taxonomy member in err's chain, or
// CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
