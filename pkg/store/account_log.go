// Package store is an append-only account log in the bitcask style: every
// commit appends one CRC-framed batch of account snapshots to a single data
// file and an in-memory hash index points each address at its latest frame.
package store

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/account"
)

// DataFileName is the active data file inside the data directory.
const DataFileName = "accounts.data"

// AccountLog provides durable account storage
type AccountLog struct {
	config   AccountLogConfig
	writer   *LogWriter
	reader   *LogReader
	index    *HashIndex
	dataFile string
	frames   int64
	mutex    sync.Mutex
	isOpen   bool
}

// NewAccountLog creates a new account log instance
func NewAccountLog(config AccountLogConfig) (*AccountLog, error) {
	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, err
	}

	return &AccountLog{
		config:   config,
		dataFile: filepath.Join(config.DataDir, DataFileName),
		index:    NewHashIndex(),
	}, nil
}

// Open initializes the store and loads existing data with crash recovery
func (l *AccountLog) Open() (*RecoveryResult, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.isOpen {
		return &RecoveryResult{}, nil
	}

	recoveryResult, err := l.validateLogFile(l.dataFile)
	if err != nil {
		return nil, err
	}

	writer, err := NewLogWriter(LogWriterConfig{
		FilePath:      l.dataFile,
		FsyncInterval: l.config.FsyncInterval,
		BufferSize:    64 * 1024,
	})
	if err != nil {
		return nil, err
	}
	l.writer = writer

	reader, err := NewLogReader(LogReaderConfig{FilePath: l.dataFile})
	if err != nil {
		_ = l.writer.Close()
		return nil, err
	}
	l.reader = reader

	frames, err := l.index.BuildFromLog(l.reader)
	if err != nil {
		_ = l.reader.Close()
		_ = l.writer.Close()
		return nil, err
	}
	l.frames = frames

	l.isOpen = true
	return recoveryResult, nil
}

// Get returns the latest snapshot of addr.
func (l *AccountLog) Get(addr account.Address) (*account.Account, bool, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.isOpen {
		return nil, false, ErrNotOpen
	}

	entry, exists := l.index.Get(addr)
	if !exists {
		return nil, false, nil
	}

	frame, err := l.reader.ReadAt(entry.Offset, entry.Size)
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %s", addr)
	}
	snap, ok := frame.Find(addr)
	if !ok {
		return nil, false, errors.Wrapf(ErrCorruption, "%s missing from its frame", addr)
	}

	acct := account.New(addr)
	if err := acct.UnmarshalBinary(snap); err != nil {
		return nil, false, errors.Wrapf(err, "decode %s", addr)
	}
	return acct, true, nil
}

// Put stores one account.
func (l *AccountLog) Put(acct *account.Account) error {
	return l.PutBatch([]*account.Account{acct})
}

// PutBatch stores accounts as one frame: after a crash either all of them
// are visible or none are.
func (l *AccountLog) PutBatch(accounts []*account.Account) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.isOpen {
		return ErrNotOpen
	}

	buf, err := EncodeFrame(accounts)
	if err != nil {
		return err
	}

	offset, err := l.writer.Append(buf)
	if err != nil {
		return err
	}

	entry := &IndexEntry{
		FileID: 0, // Single file for now
		Offset: offset,
		Size:   uint32(len(buf)),
	}
	for _, a := range accounts {
		l.index.Put(a.Address, entry)
	}
	l.frames++
	return nil
}

// Addresses returns every stored address in byte order.
func (l *AccountLog) Addresses() ([]account.Address, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.isOpen {
		return nil, ErrNotOpen
	}
	return l.index.Addresses(), nil
}

// Close shuts down the store
func (l *AccountLog) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.isOpen {
		return nil
	}
	l.isOpen = false

	// Writer first so everything is flushed.
	if err := l.writer.Close(); err != nil {
		_ = l.reader.Close()
		return err
	}
	return l.reader.Close()
}

// validateLogFile validates the log file integrity and truncates a torn or
// corrupted tail
func (l *AccountLog) validateLogFile(filePath string) (*RecoveryResult, error) {
	startTime := time.Now()

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{
				IndexRebuilt: true,
				RecoveryTime: time.Since(startTime),
			}, nil
		}
		return nil, err
	}

	fileSizeBefore := fileInfo.Size()

	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var framesValidated int64
	var lastValidOffset int64
	var corruptionFound bool

	for {
		_, err := reader.ReadNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			if !errors.Is(err, ErrCorruption) {
				return nil, err
			}
			corruptionFound = true
			break
		}
		framesValidated++
		lastValidOffset = reader.Offset()
	}

	fileSizeAfter := fileSizeBefore
	var framesTruncated int64

	if corruptionFound {
		if err := os.Truncate(filePath, lastValidOffset); err != nil {
			return nil, err
		}
		fileSizeAfter = lastValidOffset
		// Everything after the first bad frame is unreachable.
		framesTruncated = 1
	}

	return &RecoveryResult{
		FramesValidated: framesValidated,
		FramesTruncated: framesTruncated,
		FileSizeBefore:  fileSizeBefore,
		FileSizeAfter:   fileSizeAfter,
		IndexRebuilt:    true,
		RecoveryTime:    time.Since(startTime),
	}, nil
}

// Stats returns store statistics
func (l *AccountLog) Stats() *Stats {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if !l.isOpen {
		return &Stats{}
	}

	return &Stats{
		Accounts: l.index.Size(),
		Frames:   l.frames,
		DataSize: l.writer.Size(),
	}
}
