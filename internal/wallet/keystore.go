package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Keystore signs with accounts from a local encrypted key directory. Every
// account is unlocked once at startup.
type Keystore struct {
	ks      *keystore.KeyStore
	chainID *big.Int
}

// OpenKeystore loads the key files in dir and unlocks them with passphrase.
func OpenKeystore(dir, passphrase string, chainID int64, log *zap.Logger) (*Keystore, error) {
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)

	for _, acct := range ks.Accounts() {
		if err := ks.Unlock(acct, passphrase); err != nil {
			return nil, fmt.Errorf("wallet: unlock %s: %w", acct.Address.Hex(), err)
		}
		log.Info("Unlocked keystore account", zap.String("address", acct.Address.Hex()))
	}

	return &Keystore{ks: ks, chainID: big.NewInt(chainID)}, nil
}

// Accounts lists the addresses this wallet can sign for.
func (k *Keystore) Accounts() []common.Address {
	accts := k.ks.Accounts()
	out := make([]common.Address, len(accts))
	for i, a := range accts {
		out[i] = a.Address
	}
	return out
}

// Signer returns transact options that sign as from.
func (k *Keystore) Signer(ctx context.Context, from common.Address) (*bind.TransactOpts, error) {
	acct, err := k.ks.Find(accounts.Account{Address: from})
	if err != nil {
		return nil, fmt.Errorf("wallet: %s is not in the keystore: %w", from.Hex(), err)
	}

	opts, err := bind.NewKeyStoreTransactorWithChainID(k.ks, acct, k.chainID)
	if err != nil {
		return nil, fmt.Errorf("wallet: transactor for %s: %w", from.Hex(), err)
	}
	opts.Context = ctx
	return opts, nil
}
