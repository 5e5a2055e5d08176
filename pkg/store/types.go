package store

import (
	"time"
)

// IndexEntry represents the location of an account's latest snapshot in the log
type IndexEntry struct {
	FileID    uint32 // ID of the data file
	Offset    int64  // Byte offset of the frame within the file
	Size      uint32 // Size of the frame in bytes
	Timestamp uint64 // Frame timestamp
}

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath      string        // Path to the active data file
	FsyncInterval time.Duration // How often to fsync (0 = every write)
	BufferSize    int           // Write buffer size
}

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath    string // Path to the data file
	StartOffset int64  // Offset to start reading from
}

// AccountLogConfig holds configuration for the account log
type AccountLogConfig struct {
	DataDir       string        // Directory for data files
	FsyncInterval time.Duration // Fsync interval for durability
}

// FrameIterator provides streaming access to frames
type FrameIterator interface {
	Next() bool
	Frame() *Frame
	Offset() int64
	Err() error
	Close() error
}

// RecoveryResult reports what Open found and repaired in the log
type RecoveryResult struct {
	FramesValidated int64
	FramesTruncated int64
	FileSizeBefore  int64
	FileSizeAfter   int64
	IndexRebuilt    bool
	RecoveryTime    time.Duration
}

// Stats holds statistics about the account log
type Stats struct {
	Accounts int   `json:"accounts"`
	Frames   int64 `json:"frames"`
	DataSize int64 `json:"data_size"`
}

// Errors
var (
	ErrNotOpen     = &StoreError{"store is not open"}
	ErrEmptyBatch  = &StoreError{"empty batch"}
	ErrCorruption  = &StoreError{"data corruption detected"}
	ErrFrameTooBig = &StoreError{"frame exceeds maximum size"}
)

// StoreError represents an account log error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}
