package session

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"token-payment-api/internal/token"
)

const (
	MsgRejected          = "Transaction rejected by user"
	MsgNotConnected      = "Wallet is not connected"
	MsgUnsupportedAmount = "Unsupported payment amount: %s"
	MsgInvalidRecipient  = "Invalid recipient address: %s"
)

// Config is the part of the application configuration the payment flow needs.
type Config struct {
	ChainID  int64
	Decimals uint8
	// Amounts are the payment tiers a user may choose from.
	Amounts []string
}

// WalletState is what the wallet reports about its connection.
type WalletState struct {
	Address *common.Address
	ChainID int64
}

// Service runs the balance refresh and payment flows of every session.
type Service struct {
	sessions *Manager
	fetcher  *token.Fetcher
	transfer Transferer
	signers  SignerProvider
	decoder  ReasonDecoder
	ledger   PaymentRecorder
	cfg      Config
	log      *zap.Logger
}

// Deps groups the collaborators of a Service. Ledger may be nil.
type Deps struct {
	Sessions *Manager
	Fetcher  *token.Fetcher
	Transfer Transferer
	Signers  SignerProvider
	Decoder  ReasonDecoder
	Ledger   PaymentRecorder
	Logger   *zap.Logger
}

func NewService(cfg Config, deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		sessions: deps.Sessions,
		fetcher:  deps.Fetcher,
		transfer: deps.Transfer,
		signers:  deps.Signers,
		decoder:  deps.Decoder,
		ledger:   deps.Ledger,
		cfg:      cfg,
		log:      log,
	}
}

// Open starts a new session.
func (svc *Service) Open() State {
	return svc.sessions.Open().Snapshot()
}

// Get returns the current state of a session.
func (svc *Service) Get(id string) (State, error) {
	s, err := svc.sessions.Get(id)
	if err != nil {
		return State{}, err
	}
	return s.Snapshot(), nil
}

// Close ends a session.
func (svc *Service) Close(id string) error {
	return svc.sessions.Close(id)
}

// ChangeAccount feeds a wallet account or chain change into the session.
func (svc *Service) ChangeAccount(ctx context.Context, id string, ws WalletState) (State, error) {
	s, err := svc.sessions.Get(id)
	if err != nil {
		return State{}, err
	}
	return svc.observe(ctx, s, ws), nil
}

// SetRecipient replaces the payment recipient. Malformed addresses are refused
// with a notification.
func (svc *Service) SetRecipient(id, address string) (State, error) {
	s, err := svc.sessions.Get(id)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !common.IsHexAddress(address) {
		return s.apply(Failure{Message: fmt.Sprintf(MsgInvalidRecipient, address)}), nil
	}
	return s.apply(RecipientChanged{Recipient: common.HexToAddress(address)}), nil
}

// Pay submits a transfer of amount tokens from the connected account.
func (svc *Service) Pay(ctx context.Context, id, amount string) (State, error) {
	s, err := svc.sessions.Get(id)
	if err != nil {
		return State{}, err
	}
	return svc.pay(ctx, s, amount), nil
}

// Dismiss closes the session's notification.
func (svc *Service) Dismiss(id string) (State, error) {
	s, err := svc.sessions.Get(id)
	if err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(Dismissed{}), nil
}

// Amounts returns the configured payment tiers.
func (svc *Service) Amounts() []string {
	return append([]string(nil), svc.cfg.Amounts...)
}

func (svc *Service) supported(amount string) bool {
	for _, a := range svc.cfg.Amounts {
		if a == amount {
			return true
		}
	}
	return false
}
