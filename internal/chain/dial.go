package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// DialConfig controls the startup connection to the RPC endpoint.
type DialConfig struct {
	URL        string
	ChainID    int64
	MaxRetries uint64
}

// Dial connects to the RPC endpoint and checks that it serves the expected chain.
// Transport failures are retried with exponential backoff; a chain id mismatch is not.
func Dial(ctx context.Context, cfg DialConfig, log *zap.Logger) (*ethclient.Client, error) {
	var client *ethclient.Client

	operation := func() error {
		c, err := ethclient.DialContext(ctx, cfg.URL)
		if err != nil {
			return err
		}
		id, err := c.ChainID(ctx)
		if err != nil {
			c.Close()
			return err
		}
		if id.Int64() != cfg.ChainID {
			c.Close()
			return backoff.Permanent(fmt.Errorf("rpc serves chain %s, expected %d", id, cfg.ChainID))
		}
		client = c
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("RPC connection failed, retrying",
			zap.Error(err),
			zap.Duration("wait", wait),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.MaxRetries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.URL, err)
	}

	log.Info("Connected to chain RPC", zap.Int64("chain_id", cfg.ChainID))
	return client, nil
}
