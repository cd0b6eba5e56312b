package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"token-payment-api/internal/model"
	"token-payment-api/internal/session"
	"token-payment-api/internal/token"
)

// ErrLedgerDisabled is returned by Payments when no database is configured.
var ErrLedgerDisabled = errors.New("payment history is not enabled")

// PaymentLister reads the payment ledger.
type PaymentLister interface {
	ListPayments(ctx context.Context, address string, limit int) ([]model.Payment, error)
}

type Resolver struct {
	Sessions *session.Service
	Balances *token.Fetcher
	Ledger   PaymentLister
	Config   model.PaymentConfig
}

type ChangeAccountArgs struct {
	SessionID string  `json:"session"`
	Address   *string `json:"address"`
	ChainID   int64   `json:"chainId"`
}

type PayArgs struct {
	SessionID string `json:"session"`
	Amount    string `json:"amount"`
}

type RecipientArgs struct {
	SessionID string `json:"session"`
	Address   string `json:"address"`
}

// PaymentConfig reports the token settings and the tiers the service accepts.
func (r *Resolver) PaymentConfig() model.PaymentConfig {
	cfg := r.Config
	cfg.Amounts = r.Sessions.Amounts()
	return cfg
}

// Wallet reads the balance of any address without a session.
func (r *Resolver) Wallet(ctx context.Context, address string) (*model.Wallet, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	owner := common.HexToAddress(address)

	bal, err := r.Balances.Fetch(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("balance unavailable: %w", err)
	}
	return &model.Wallet{Address: owner.Hex(), Balance: bal.Display}, nil
}

func (r *Resolver) Session(id string) (*model.Session, error) {
	st, err := r.Sessions.Get(id)
	return view(st, err)
}

func (r *Resolver) OpenSession() (*model.Session, error) {
	return view(r.Sessions.Open(), nil)
}

func (r *Resolver) CloseSession(id string) (bool, error) {
	if err := r.Sessions.Close(id); err != nil {
		return false, err
	}
	return true, nil
}

// ChangeAccount reports a wallet account or network switch. A nil address means
// the wallet disconnected.
func (r *Resolver) ChangeAccount(ctx context.Context, args ChangeAccountArgs) (*model.Session, error) {
	ws := session.WalletState{ChainID: args.ChainID}
	if args.Address != nil && *args.Address != "" {
		if !common.IsHexAddress(*args.Address) {
			return nil, fmt.Errorf("invalid address %q", *args.Address)
		}
		addr := common.HexToAddress(*args.Address)
		ws.Address = &addr
	}
	return view(r.Sessions.ChangeAccount(ctx, args.SessionID, ws))
}

func (r *Resolver) SetRecipient(args RecipientArgs) (*model.Session, error) {
	return view(r.Sessions.SetRecipient(args.SessionID, args.Address))
}

func (r *Resolver) Pay(ctx context.Context, args PayArgs) (*model.Session, error) {
	return view(r.Sessions.Pay(ctx, args.SessionID, args.Amount))
}

func (r *Resolver) Dismiss(id string) (*model.Session, error) {
	return view(r.Sessions.Dismiss(id))
}

func (r *Resolver) Payments(ctx context.Context, address string, limit int) ([]model.Payment, error) {
	if r.Ledger == nil {
		return nil, ErrLedgerDisabled
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	return r.Ledger.ListPayments(ctx, common.HexToAddress(address).Hex(), limit)
}

func view(st session.State, err error) (*model.Session, error) {
	if err != nil {
		return nil, err
	}
	out := &model.Session{
		ID:            st.ID,
		ChainID:       st.ChainID,
		Recipient:     st.Recipient.Hex(),
		Balance:       st.Balance,
		BalanceStatus: string(st.Status),
		Notification: model.Notification{
			Open:    st.Notification.Open,
			Message: st.Notification.Message,
			Success: st.Notification.Success,
			TxHash:  st.Notification.TxHash,
		},
	}
	if st.Address != nil {
		out.Address = st.Address.Hex()
	}
	return out, nil
}
