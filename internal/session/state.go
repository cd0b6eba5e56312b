package session

import (
	"github.com/ethereum/go-ethereum/common"

	"token-payment-api/internal/token"
)

// BalanceStatus describes what the balance display currently shows.
type BalanceStatus string

const (
	BalanceEmpty        BalanceStatus = "empty"
	BalanceLoading      BalanceStatus = "loading"
	BalanceReady        BalanceStatus = "ready"
	BalanceZero         BalanceStatus = "zero"
	BalanceUnavailable  BalanceStatus = "unavailable"
	BalanceWrongNetwork BalanceStatus = "wrong_network"
)

// Notification is the single message a session shows to its user.
type Notification struct {
	Open    bool
	Message string
	Success bool
	TxHash  string
}

// State is everything a connected page renders. It only changes through Reduce.
type State struct {
	ID           string
	Address      *common.Address
	ChainID      int64
	Recipient    common.Address
	Balance      string
	Status       BalanceStatus
	Notification Notification
	// Generation identifies the current balance refresh cycle.
	Generation uint64
}

// Event is an input to Reduce.
type Event interface {
	event()
}

// AccountChanged starts a new refresh cycle for the wallet's current account.
type AccountChanged struct {
	Address      *common.Address
	ChainID      int64
	WrongNetwork bool
}

type BalanceLoaded struct {
	Generation uint64
	Balance    token.Balance
}

type BalanceFailed struct {
	Generation uint64
}

type RecipientChanged struct {
	Recipient common.Address
}

type PaymentSucceeded struct {
	TxHash common.Hash
}

// Failure opens an error notification.
type Failure struct {
	Message string
}

type Dismissed struct{}

// Submitting clears the previous notification before a transfer is sent.
type Submitting struct{}

func (AccountChanged) event()   {}
func (BalanceLoaded) event()    {}
func (BalanceFailed) event()    {}
func (RecipientChanged) event() {}
func (PaymentSucceeded) event() {}
func (Failure) event()          {}
func (Dismissed) event()        {}
func (Submitting) event()       {}

// Reduce returns the state that results from applying ev to s. Balance results
// from an older generation are dropped.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case AccountChanged:
		s.Generation++
		s.Notification = Notification{}
		s.Address = e.Address
		s.ChainID = e.ChainID
		s.Balance = ""
		switch {
		case e.Address == nil:
			s.Status = BalanceEmpty
		case e.WrongNetwork:
			s.Status = BalanceWrongNetwork
		default:
			s.Status = BalanceLoading
		}

	case BalanceLoaded:
		if e.Generation != s.Generation || s.Status != BalanceLoading {
			return s
		}
		s.Balance = e.Balance.Display
		s.Status = BalanceReady
		if e.Balance.Zero {
			s.Status = BalanceZero
		}

	case BalanceFailed:
		if e.Generation != s.Generation || s.Status != BalanceLoading {
			return s
		}
		s.Balance = ""
		s.Status = BalanceUnavailable

	case RecipientChanged:
		s.Recipient = e.Recipient

	case PaymentSucceeded:
		s.Notification = Notification{
			Open:    true,
			Message: s.Notification.Message,
			Success: true,
			TxHash:  e.TxHash.Hex(),
		}

	case Failure:
		s.Notification = Notification{Open: true, Message: e.Message}

	case Dismissed, Submitting:
		s.Notification = Notification{}
	}
	return s
}
