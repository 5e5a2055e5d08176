// Package capacity grows state buffers and moves the lamports needed to keep
// them paid for at their new size.
package capacity

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/errs"
)

const (
	// AccountStorageOverhead is charged on top of every account's data length.
	AccountStorageOverhead = 128
	// RentLen is the encoded size of Rent:
	// [LamportsPerByteYear(8)][ExemptionThreshold(8)][BurnPercent(1)]
	RentLen = 17

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50
)

// Rent holds the economics parameters read from the rent account.
type Rent struct {
	LamportsPerByteYear uint64  `yaml:"lamports_per_byte_year" json:"lamports_per_byte_year" validate:"gt=0"`
	ExemptionThreshold  float64 `yaml:"exemption_threshold" json:"exemption_threshold" validate:"gt=0"`
	BurnPercent         uint8   `yaml:"burn_percent" json:"burn_percent" validate:"lte=100"`
}

// DefaultRent returns the stock parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance is the balance an account of dataLen bytes must hold to be
// exempt from rent collection.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytes := uint64(AccountStorageOverhead + dataLen)
	return uint64(float64(bytes*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// Encode returns the RentLen-byte wire form.
func (r Rent) Encode() []byte {
	buf := make([]byte, RentLen)
	binary.LittleEndian.PutUint64(buf[0:], r.LamportsPerByteYear)
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(r.ExemptionThreshold))
	buf[16] = r.BurnPercent
	return buf
}

// DecodeRent parses the rent account's data.
func DecodeRent(data []byte) (Rent, error) {
	if len(data) < RentLen {
		return Rent{}, errors.Wrapf(errs.ErrInvalidAccount, "rent data is %d bytes, want %d", len(data), RentLen)
	}
	r := Rent{
		LamportsPerByteYear: binary.LittleEndian.Uint64(data[0:8]),
		ExemptionThreshold:  math.Float64frombits(binary.LittleEndian.Uint64(data[8:16])),
		BurnPercent:         data[16],
	}
	if math.IsNaN(r.ExemptionThreshold) || r.ExemptionThreshold < 0 {
		return Rent{}, errors.Wrapf(errs.ErrInvalidAccount, "bad exemption threshold %v", r.ExemptionThreshold)
	}
	return r, nil
}
