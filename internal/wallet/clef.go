package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"token-payment-api/internal/chain"
)

// Clef delegates signing to an external Clef instance, where the account owner
// approves or denies each transaction.
type Clef struct {
	signer *external.ExternalSigner
}

// DialClef connects to the Clef RPC endpoint.
func DialClef(endpoint string) (*Clef, error) {
	s, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, fmt.Errorf("wallet: dial clef: %w", err)
	}
	return &Clef{signer: s}, nil
}

// Accounts lists the addresses Clef exposes.
func (c *Clef) Accounts() []common.Address {
	accts := c.signer.Accounts()
	out := make([]common.Address, len(accts))
	for i, a := range accts {
		out[i] = a.Address
	}
	return out
}

// Signer returns transact options that ask Clef to sign as from.
func (c *Clef) Signer(ctx context.Context, from common.Address) (*bind.TransactOpts, error) {
	opts := bind.NewClefTransactor(c.signer, accounts.Account{Address: from})
	opts.Signer = withRejection(opts.Signer)
	opts.Context = ctx
	return opts, nil
}

// withRejection maps Clef's denial into a code 4001 error.
func withRejection(sign func(common.Address, *types.Transaction) (*types.Transaction, error)) func(common.Address, *types.Transaction) (*types.Transaction, error) {
	return func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
		signed, err := sign(addr, tx)
		if err != nil && isDenied(err) {
			return nil, &chain.RejectedError{Reason: err.Error()}
		}
		return signed, err
	}
}

func isDenied(err error) bool {
	return chain.IsUserRejected(err) || strings.Contains(strings.ToLower(err.Error()), "request denied")
}
