package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract is a binding to a deployed ERC-20 token.
type Contract struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewContract binds the token at address to a full chain backend such as an
// *ethclient.Client.
func NewContract(address common.Address, backend bind.ContractBackend) (*Contract, error) {
	return newContract(address, backend, backend)
}

func newContract(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor) (*Contract, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("token: parse abi: %w", err)
	}
	return &Contract{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, caller, transactor, nil),
	}, nil
}

// Address returns the token contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// BalanceOf returns the raw balance of owner.
func (c *Contract) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner); err != nil {
		return nil, fmt.Errorf("token: balanceOf: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("token: balanceOf: empty result")
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// Decimals returns the token's declared decimal places.
func (c *Contract) Decimals(ctx context.Context) (uint8, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, fmt.Errorf("token: decimals: %w", err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("token: decimals: empty result")
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// Symbol returns the token ticker.
func (c *Contract) Symbol(ctx context.Context) (string, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "symbol"); err != nil {
		return "", fmt.Errorf("token: symbol: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("token: symbol: empty result")
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Transfer submits transfer(to, amount) signed by opts. The error is returned as
// produced by the signer or node so callers can classify and decode it.
func (c *Contract) Transfer(opts *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error) {
	return c.contract.Transact(opts, "transfer", to, amount)
}
