// Package storage keeps account snapshots in a pebble LSM database.
package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"github.com/ssargent/statext/pkg/account"
)

var accountPrefix = []byte("acct/")

func accountKey(addr account.Address) []byte {
	key := make([]byte, 0, len(accountPrefix)+account.AddressLen)
	key = append(key, accountPrefix...)
	return append(key, addr[:]...)
}

// PebbleStore stores one snapshot per account address.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens or creates the database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %s", path)
	}
	return &PebbleStore{db: db}, nil
}

// Get returns the stored snapshot of addr.
func (s *PebbleStore) Get(addr account.Address) (*account.Account, bool, error) {
	data, closer, err := s.db.Get(accountKey(addr))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	// data is only valid until closer.Close.
	acct := account.New(addr)
	if err := acct.UnmarshalBinary(data); err != nil {
		return nil, false, errors.Wrapf(err, "decode %s", addr)
	}
	return acct, true, nil
}

// Put stores one account.
func (s *PebbleStore) Put(acct *account.Account) error {
	return s.PutBatch([]*account.Account{acct})
}

// PutBatch commits every account in one synced batch.
func (s *PebbleStore) PutBatch(accounts []*account.Account) error {
	if len(accounts) == 0 {
		return errors.New("empty batch")
	}

	b := s.db.NewBatch()
	defer b.Close()

	for _, a := range accounts {
		snap, err := a.MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "encode %s", a.Address)
		}
		if err := b.Set(accountKey(a.Address), snap, nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

// Close closes the database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
