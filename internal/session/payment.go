package session

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"token-payment-api/internal/chain"
	"token-payment-api/internal/model"
	"token-payment-api/internal/token"
)

// pay submits one transfer. Every outcome ends up in the session notification;
// nothing is returned as an error.
func (svc *Service) pay(ctx context.Context, s *Session, amount string) State {
	st := s.Snapshot()

	if st.Address == nil {
		return svc.notify(s, Failure{Message: MsgNotConnected})
	}
	if !svc.supported(amount) {
		return svc.notify(s, Failure{Message: fmt.Sprintf(MsgUnsupportedAmount, amount)})
	}

	scaled, err := token.ToBaseUnits(amount, svc.cfg.Decimals)
	if err != nil {
		return svc.notify(s, Failure{Message: err.Error()})
	}

	from, to := *st.Address, st.Recipient
	rec := &model.Payment{
		ID:        uuid.NewString(),
		SessionID: st.ID,
		From:      from.Hex(),
		To:        to.Hex(),
		Amount:    amount,
		BaseUnits: scaled.String(),
		CreatedAt: time.Now().UTC(),
	}

	svc.notify(s, Submitting{})

	var ev Event
	tx, err := svc.submit(ctx, from, to, scaled)
	switch {
	case err == nil:
		rec.Status = model.PaymentSubmitted
		rec.TxHash = tx.Hash().Hex()
		ev = PaymentSucceeded{TxHash: tx.Hash()}
		svc.log.Info("Payment submitted",
			zap.String("session", st.ID),
			zap.String("from", rec.From),
			zap.String("to", rec.To),
			zap.String("amount", amount),
			zap.String("tx_hash", rec.TxHash),
		)
	case chain.IsUserRejected(err):
		rec.Status = model.PaymentRejected
		rec.Error = err.Error()
		ev = Failure{Message: MsgRejected}
		svc.log.Info("Payment rejected by user", zap.String("session", st.ID), zap.Error(err))
	default:
		reason := svc.decoder.Reason(err)
		rec.Status = model.PaymentFailed
		rec.Error = reason
		ev = Failure{Message: reason}
		svc.log.Warn("Payment failed",
			zap.String("session", st.ID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}

	svc.record(ctx, rec)
	return svc.notify(s, ev)
}

func (svc *Service) submit(ctx context.Context, from, to common.Address, amount *big.Int) (*types.Transaction, error) {
	opts, err := svc.signers.Signer(ctx, from)
	if err != nil {
		return nil, err
	}
	return svc.transfer.Transfer(opts, to, amount)
}

func (svc *Service) record(ctx context.Context, p *model.Payment) {
	if svc.ledger == nil {
		return
	}
	if err := svc.ledger.RecordPayment(ctx, p); err != nil {
		svc.log.Error("Failed to record payment",
			zap.String("payment_id", p.ID),
			zap.Error(err),
		)
	}
}

func (svc *Service) notify(s *Session, ev Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ev)
}
