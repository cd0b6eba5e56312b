package token

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

//go:generate mockgen -source=fetcher.go -destination=../mocks/mock_token.go -package=mocks

// BalanceReader reads raw ERC-20 balances from the chain.
type BalanceReader interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
}

// Balance is a fetched balance together with its display form.
type Balance struct {
	Raw     *big.Int
	Display string
	Zero    bool
}

// FetcherConfig controls how balances are formatted.
type FetcherConfig struct {
	Decimals uint8
	// ZeroText is shown instead of a formatted zero balance.
	ZeroText string
	Timeout  time.Duration
}

// Fetcher turns raw balanceOf results into display strings.
type Fetcher struct {
	reader BalanceReader
	cfg    FetcherConfig
}

func NewFetcher(reader BalanceReader, cfg FetcherConfig) *Fetcher {
	return &Fetcher{reader: reader, cfg: cfg}
}

// Fetch reads the balance of owner. A zero or missing balance is reported with
// Zero set and the configured placeholder as Display.
func (f *Fetcher) Fetch(ctx context.Context, owner common.Address) (Balance, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	raw, err := f.reader.BalanceOf(ctx, owner)
	if err != nil {
		return Balance{}, err
	}
	if raw == nil || raw.Sign() == 0 {
		return Balance{Raw: new(big.Int), Display: f.cfg.ZeroText, Zero: true}, nil
	}
	return Balance{
		Raw:     raw,
		Display: FormatUnits(raw, f.cfg.Decimals, DisplayPrecision),
	}, nil
}
