package store

import (
	"bufio"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// LogReader provides sequential and random access to frames in a log file
type LogReader struct {
	file   *os.File
	reader *bufio.Reader
	offset int64
	config LogReaderConfig
}

// NewLogReader creates a new log reader for the specified file
func NewLogReader(config LogReaderConfig) (*LogReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	return &LogReader{
		file:   file,
		reader: bufio.NewReader(file),
		offset: config.StartOffset,
		config: config,
	}, nil
}

// ReadNext reads the frame at the current offset. It returns io.EOF at a
// clean end of file and ErrCorruption for a torn or damaged frame.
func (r *LogReader) ReadNext() (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r.reader, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, ErrCorruption
		}
		return nil, err
	}

	bodyLen, err := frameBodyLen(header)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, FrameHeaderSize+bodyLen)
	copy(buf, header)
	if _, err := io.ReadFull(r.reader, buf[FrameHeaderSize:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrCorruption
		}
		return nil, err
	}

	frame, err := DecodeFrame(buf)
	if err != nil {
		return nil, err
	}
	r.offset += int64(len(buf))
	return frame, nil
}

// ReadAt reads the frame at offset without moving the sequential cursor.
func (r *LogReader) ReadAt(offset int64, size uint32) (*Frame, error) {
	buf := make([]byte, size)
	n, err := r.file.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		if err == io.EOF {
			return nil, errors.Wrapf(ErrCorruption, "short frame at %d", offset)
		}
		return nil, err
	}
	return DecodeFrame(buf)
}

// Seek sets the read offset
func (r *LogReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.reader = bufio.NewReader(r.file)
	r.offset = offset
	return nil
}

// Offset returns the current read offset
func (r *LogReader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator over frames from the current offset
func (r *LogReader) Iterator() FrameIterator {
	return &logFrameIterator{reader: r}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	return r.file.Close()
}

type logFrameIterator struct {
	reader *LogReader
	frame  *Frame
	offset int64
	err    error
}

func (it *logFrameIterator) Next() bool {
	it.offset = it.reader.Offset()
	it.frame, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *logFrameIterator) Frame() *Frame {
	return it.frame
}

// Offset is where the current frame starts.
func (it *logFrameIterator) Offset() int64 {
	return it.offset
}

// Err returns the error that stopped iteration, or nil at a clean end.
func (it *logFrameIterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

func (it *logFrameIterator) Close() error {
	// The reader is owned by the caller.
	return nil
}
