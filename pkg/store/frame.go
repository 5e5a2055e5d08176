package store

import (
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/account"
)

// Frame layout:
//
//	[CRC32(4)][Timestamp(8)][Count(4)][BodyLen(4)][Body]
//
// Body holds Count entries of [Address(32)][SnapshotLen(4)][Snapshot]. The
// CRC covers every byte after itself, so a frame, and with it every account
// written in one batch, is either entirely valid or discarded on recovery.
const (
	FrameHeaderSize = 20
	entryHeaderSize = account.AddressLen + 4

	// MaxFrameBody bounds a single frame's body.
	MaxFrameBody = 64 << 20
)

// FrameEntry is one account snapshot inside a frame.
type FrameEntry struct {
	Address  account.Address
	Snapshot []byte
}

// Frame is a decoded, CRC-checked batch of account snapshots.
type Frame struct {
	CRC32     uint32
	Timestamp uint64
	Entries   []FrameEntry
	size      int
}

// Size returns the encoded size in bytes.
func (f *Frame) Size() int {
	return f.size
}

// Find returns the snapshot for addr.
func (f *Frame) Find(addr account.Address) ([]byte, bool) {
	for _, e := range f.Entries {
		if e.Address == addr {
			return e.Snapshot, true
		}
	}
	return nil, false
}

// EncodeFrame serializes accounts into one frame stamped with the current
// time.
func EncodeFrame(accounts []*account.Account) ([]byte, error) {
	if len(accounts) == 0 {
		return nil, ErrEmptyBatch
	}

	snaps := make([][]byte, len(accounts))
	bodyLen := 0
	for i, a := range accounts {
		snap, err := a.MarshalBinary()
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s", a.Address)
		}
		snaps[i] = snap
		bodyLen += entryHeaderSize + len(snap)
	}
	if bodyLen > MaxFrameBody {
		return nil, ErrFrameTooBig
	}

	buf := make([]byte, FrameHeaderSize+bodyLen)
	binary.LittleEndian.PutUint64(buf[4:12], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(accounts)))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(bodyLen))

	off := FrameHeaderSize
	for i, a := range accounts {
		copy(buf[off:], a.Address[:])
		binary.LittleEndian.PutUint32(buf[off+account.AddressLen:], uint32(len(snaps[i])))
		off += entryHeaderSize
		off += copy(buf[off:], snaps[i])
	}

	binary.LittleEndian.PutUint32(buf[0:4], crc32.ChecksumIEEE(buf[4:]))
	return buf, nil
}

// frameBodyLen reads the body length out of a frame header.
func frameBodyLen(header []byte) (int, error) {
	n := binary.LittleEndian.Uint32(header[16:20])
	if n > MaxFrameBody {
		return 0, ErrCorruption
	}
	return int(n), nil
}

// DecodeFrame parses and validates one complete frame.
func DecodeFrame(buf []byte) (*Frame, error) {
	if len(buf) < FrameHeaderSize {
		return nil, ErrCorruption
	}
	bodyLen, err := frameBodyLen(buf)
	if err != nil {
		return nil, err
	}
	if len(buf) != FrameHeaderSize+bodyLen {
		return nil, ErrCorruption
	}

	f := &Frame{
		CRC32:     binary.LittleEndian.Uint32(buf[0:4]),
		Timestamp: binary.LittleEndian.Uint64(buf[4:12]),
		size:      len(buf),
	}
	if crc32.ChecksumIEEE(buf[4:]) != f.CRC32 {
		return nil, ErrCorruption
	}

	count := int(binary.LittleEndian.Uint32(buf[12:16]))
	off := FrameHeaderSize
	for i := 0; i < count; i++ {
		if off+entryHeaderSize > len(buf) {
			return nil, ErrCorruption
		}
		var e FrameEntry
		copy(e.Address[:], buf[off:off+account.AddressLen])
		n := int(binary.LittleEndian.Uint32(buf[off+account.AddressLen:]))
		off += entryHeaderSize
		if n > len(buf)-off {
			return nil, ErrCorruption
		}
		e.Snapshot = buf[off : off+n]
		off += n
		f.Entries = append(f.Entries, e)
	}
	if off != len(buf) {
		return nil, ErrCorruption
	}
	return f, nil
}
