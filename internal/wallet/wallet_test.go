package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"token-payment-api/internal/chain"
)

func newTestKeystore(t *testing.T, passphrase string) (string, common.Address) {
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.NewAccount(passphrase)
	require.NoError(t, err)
	return dir, acct.Address
}

func TestKeystoreSigner(t *testing.T) {
	dir, addr := newTestKeystore(t, "secret")

	w, err := OpenKeystore(dir, "secret", 56, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{addr}, w.Accounts())

	opts, err := w.Signer(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, addr, opts.From)

	tx := types.NewTx(&types.LegacyTx{Nonce: 0, GasPrice: big.NewInt(1), Gas: 21000, To: &addr, Value: big.NewInt(0)})
	signed, err := opts.Signer(addr, tx)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(56)), signed)
	require.NoError(t, err)
	assert.Equal(t, addr, sender)
}

func TestKeystoreUnknownAccount(t *testing.T) {
	dir, _ := newTestKeystore(t, "secret")

	w, err := OpenKeystore(dir, "secret", 56, zap.NewNop())
	require.NoError(t, err)

	_, err = w.Signer(context.Background(), common.HexToAddress("0x00000000000000000000000000000000000000ff"))
	assert.Error(t, err)
}

func TestKeystoreWrongPassphrase(t *testing.T) {
	dir, _ := newTestKeystore(t, "secret")

	_, err := OpenKeystore(dir, "wrong", 56, zap.NewNop())
	assert.Error(t, err)
}

func TestWithRejection(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000000001")
	tx := types.NewTx(&types.LegacyTx{})

	denied := withRejection(func(common.Address, *types.Transaction) (*types.Transaction, error) {
		return nil, errors.New("Request denied")
	})
	_, err := denied(addr, tx)
	assert.True(t, chain.IsUserRejected(err))

	failing := withRejection(func(common.Address, *types.Transaction) (*types.Transaction, error) {
		return nil, errors.New("clef unreachable")
	})
	_, err = failing(addr, tx)
	require.Error(t, err)
	assert.False(t, chain.IsUserRejected(err))

	passing := withRejection(func(_ common.Address, tx *types.Transaction) (*types.Transaction, error) {
		return tx, nil
	})
	out, err := passing(addr, tx)
	require.NoError(t, err)
	assert.Same(t, tx, out)
}
