package session

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// observe starts a refresh cycle and, when an address on the right chain is
// present, loads its balance. Any fetch still running for the session is
// cancelled and its result is dropped.
func (svc *Service) observe(ctx context.Context, s *Session, ws WalletState) State {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	wrongNetwork := ws.Address != nil && ws.ChainID != 0 && ws.ChainID != svc.cfg.ChainID
	st := s.apply(AccountChanged{Address: ws.Address, ChainID: ws.ChainID, WrongNetwork: wrongNetwork})
	if st.Status != BalanceLoading {
		s.mu.Unlock()
		return st
	}

	gen := st.Generation
	owner := *st.Address
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	bal, err := svc.fetcher.Fetch(fetchCtx, owner)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Generation == gen {
		s.cancel = nil
	}

	if err != nil {
		if s.state.Generation != gen && errors.Is(err, context.Canceled) {
			return s.state
		}
		svc.log.Warn("Balance fetch failed",
			zap.String("session", s.id.String()),
			zap.String("address", owner.Hex()),
			zap.Error(err),
		)
		return s.apply(BalanceFailed{Generation: gen})
	}

	svc.log.Debug("Balance fetched",
		zap.String("session", s.id.String()),
		zap.String("address", owner.Hex()),
		zap.String("balance", bal.Display),
	)
	return s.apply(BalanceLoaded{Generation: gen, Balance: bal})
}
