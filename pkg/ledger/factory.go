package ledger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/capacity"
	"github.com/ssargent/statext/pkg/codec"
	"github.com/ssargent/statext/pkg/extension"
	"github.com/ssargent/statext/pkg/program"
	"github.com/ssargent/statext/pkg/storage"
	"github.com/ssargent/statext/pkg/store"
)

const (
	BackendLog    = "log"
	BackendPebble = "pebble"
)

// Options configure a ledger.
type Options struct {
	Backend       string
	DataDir       string
	FsyncInterval time.Duration
	Namespace     account.Address
	Rent          capacity.Rent
	Limits        capacity.Limits
}

// Factory opens ledgers.
type Factory interface {
	Open(opts Options, logger zerolog.Logger) (*Ledger, error)
}

// DefaultFactory opens a ledger on the configured backend.
type DefaultFactory struct{}

// OpenStore opens the account store for backend under dataDir.
func OpenStore(opts Options, logger zerolog.Logger) (AccountStore, error) {
	switch opts.Backend {
	case "", BackendLog:
		l, err := store.NewAccountLog(store.AccountLogConfig{
			DataDir:       filepath.Join(opts.DataDir, "log"),
			FsyncInterval: opts.FsyncInterval,
		})
		if err != nil {
			return nil, err
		}
		res, err := l.Open()
		if err != nil {
			return nil, err
		}
		logger.Info().
			Int64("frames", res.FramesValidated).
			Int64("truncated", res.FramesTruncated).
			Int64("size", res.FileSizeAfter).
			Dur("took", res.RecoveryTime).
			Msg("opened account log")
		return l, nil

	case BackendPebble:
		s, err := storage.NewPebbleStore(filepath.Join(opts.DataDir, "pebble"))
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", filepath.Join(opts.DataDir, "pebble")).Msg("opened pebble store")
		return s, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}

// Open builds the processor and store and wraps them in a ledger.
func (DefaultFactory) Open(opts Options, logger zerolog.Logger) (*Ledger, error) {
	s, err := OpenStore(opts, logger)
	if err != nil {
		return nil, err
	}

	processor := program.NewProcessor(
		codec.NewBinder(codec.SHA256Deriver{}, opts.Namespace),
		extension.DefaultRegistry(),
		opts.Limits,
		logger,
	)

	l, err := New(s, processor, opts.Rent, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return l, nil
}
