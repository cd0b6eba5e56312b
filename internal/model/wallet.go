package model

import "time"

type Wallet struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type Notification struct {
	Open    bool   `json:"open"`
	Message string `json:"message"`
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
}

type Session struct {
	ID            string       `json:"id"`
	Address       string       `json:"address,omitempty"`
	ChainID       int64        `json:"chainId,omitempty"`
	Recipient     string       `json:"recipient"`
	Balance       string       `json:"balance"`
	BalanceStatus string       `json:"balanceStatus"`
	Notification  Notification `json:"notification"`
}

// Payment is one submission attempt as kept in the ledger.
type Payment struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	BaseUnits string    `json:"baseUnits"`
	TxHash    string    `json:"txHash,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	PaymentSubmitted = "submitted"
	PaymentRejected  = "rejected"
	PaymentFailed    = "failed"
)

type PaymentConfig struct {
	TokenAddress     string   `json:"tokenAddress"`
	TokenSymbol      string   `json:"tokenSymbol"`
	ChainID          int64    `json:"chainId"`
	Decimals         int      `json:"decimals"`
	Amounts          []string `json:"amounts"`
	DefaultRecipient string   `json:"defaultRecipient"`
	Accounts         []string `json:"accounts"`
}
