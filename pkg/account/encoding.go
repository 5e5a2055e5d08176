package account

import (
	"encoding/binary"
	"fmt"
)

// SnapshotHeaderLen is the fixed prefix of an encoded account:
// [Owner(32)][Lamports(8)][DataLen(4)]
const SnapshotHeaderLen = AddressLen + 8 + 4

// MarshalBinary encodes the persisted part of the account (everything but
// the address, which is the storage key, and the per-call roles).
func (a *Account) MarshalBinary() ([]byte, error) {
	if uint64(len(a.Data)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("account data too large: %d bytes", len(a.Data))
	}

	buf := make([]byte, SnapshotHeaderLen+len(a.Data))
	copy(buf[0:], a.Owner[:])
	binary.LittleEndian.PutUint64(buf[32:], a.Lamports)
	binary.LittleEndian.PutUint32(buf[40:], uint32(len(a.Data)))
	copy(buf[SnapshotHeaderLen:], a.Data)
	return buf, nil
}

// UnmarshalBinary decodes a snapshot produced by MarshalBinary. The address
// is left untouched.
func (a *Account) UnmarshalBinary(buf []byte) error {
	if len(buf) < SnapshotHeaderLen {
		return fmt.Errorf("account snapshot too short: %d bytes", len(buf))
	}

	dataLen := binary.LittleEndian.Uint32(buf[40:44])
	if uint64(len(buf)-SnapshotHeaderLen) != uint64(dataLen) {
		return fmt.Errorf("account snapshot length mismatch: header says %d, have %d", dataLen, len(buf)-SnapshotHeaderLen)
	}

	copy(a.Owner[:], buf[0:32])
	a.Lamports = binary.LittleEndian.Uint64(buf[32:40])
	a.Data = make([]byte, dataLen)
	copy(a.Data, buf[SnapshotHeaderLen:])
	return nil
}
