package session

//go:generate mockgen -source=collaborators.go -destination=../mocks/mock_session.go -package=mocks

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"token-payment-api/internal/model"
)

// Transferer submits ERC-20 transfers.
type Transferer interface {
	Transfer(opts *bind.TransactOpts, to common.Address, amount *big.Int) (*types.Transaction, error)
}

// SignerProvider hands out signers bound to a connected wallet account.
type SignerProvider interface {
	Signer(ctx context.Context, from common.Address) (*bind.TransactOpts, error)
}

// ReasonDecoder turns a submission failure into a readable reason.
type ReasonDecoder interface {
	Reason(err error) string
}

// PaymentRecorder persists submission attempts.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, p *model.Payment) error
}
