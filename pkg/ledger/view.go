package ledger

import (
	"encoding/hex"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/capacity"
	"github.com/ssargent/statext/pkg/codec"
	"github.com/ssargent/statext/pkg/errs"
	"github.com/ssargent/statext/pkg/extension"
)

// ExtensionView is one decoded extension.
type ExtensionView struct {
	Tag   extension.Tag  `json:"tag"`
	Name  string         `json:"name"`
	Value extension.Kind `json:"value"`
}

// AccountView is the decoded, display-ready form of an account.
type AccountView struct {
	Address    account.Address   `json:"address"`
	Owner      account.Address   `json:"owner"`
	Lamports   uint64            `json:"lamports"`
	Size       int               `json:"size"`
	RentExempt bool              `json:"rent_exempt"`
	Rent       *capacity.Rent    `json:"rent,omitempty"`
	Record     *codec.BaseRecord `json:"record,omitempty"`
	Extensions []ExtensionView   `json:"extensions,omitempty"`
	Problem    string            `json:"problem,omitempty"`
	Data       string            `json:"data"`
}

// Rent returns the stored rent parameters.
func (l *Ledger) Rent() (capacity.Rent, error) {
	acct, ok, err := l.Account(account.RentAddress)
	if err != nil {
		return capacity.Rent{}, err
	}
	if !ok {
		return capacity.Rent{}, errors.Wrap(errs.ErrInvalidAccount, "rent account missing")
	}
	return capacity.DecodeRent(acct.Data)
}

// Describe decodes acct as far as it can. Decoding problems end up in
// Problem rather than failing the call.
func (l *Ledger) Describe(acct *account.Account) *AccountView {
	v := &AccountView{
		Address:  acct.Address,
		Owner:    acct.Owner,
		Lamports: acct.Lamports,
		Size:     acct.Len(),
		Data:     hex.EncodeToString(acct.Data),
	}

	if rent, err := l.Rent(); err == nil {
		v.RentExempt = acct.Lamports >= rent.MinimumBalance(acct.Len())
	}

	switch {
	case acct.Address == account.RentAddress:
		rent, err := capacity.DecodeRent(acct.Data)
		if err != nil {
			v.Problem = err.Error()
			break
		}
		v.Rent = &rent

	case acct.Owner == l.processor.Namespace() && codec.IsInitialized(acct.Data):
		rec, err := codec.Decode(acct.Data)
		if err != nil {
			v.Problem = err.Error()
			break
		}
		v.Record = rec

		snap, err := l.dir.Scan(acct.Data)
		if err != nil {
			v.Problem = err.Error()
			break
		}
		for _, e := range snap.Entries {
			ext, err := l.extension(acct, e.Tag)
			if err != nil {
				v.Problem = err.Error()
				break
			}
			v.Extensions = append(v.Extensions, *ext)
		}
	}
	return v
}

// Extension decodes the extension tagged tag stored in acct.
func (l *Ledger) Extension(acct *account.Account, tag extension.Tag) (*ExtensionView, error) {
	if acct.Owner != l.processor.Namespace() {
		return nil, errors.Wrapf(errs.ErrInvalidAccount, "%s is not owned by %s", acct.Address, l.processor.Namespace())
	}
	return l.extension(acct, tag)
}

func (l *Ledger) extension(acct *account.Account, tag extension.Tag) (*ExtensionView, error) {
	kind, err := l.dir.Get(acct.Data, tag)
	if err != nil {
		return nil, err
	}
	spec, _ := l.dir.Registry().Lookup(tag)
	return &ExtensionView{Tag: tag, Name: spec.Name, Value: kind}, nil
}
