package models

import (
	"github.com/shopspring/decimal"
)

// LedgerRequest is a single balance-changing operation.
type LedgerRequest struct {
	Email          string
	Type           TransactionType
	Coins          int64
	Amount         decimal.Decimal
	Description    string
	PaymentMethod  string
	Source         string
	Reference      string
	IdempotencyKey string
}

// LedgerResult is the outcome of a credit or debit. Replayed is true when the idempotency key
// matched an earlier request and nothing new was applied.
type LedgerResult struct {
	Transaction *Transaction `json:"transaction"`
	CoinBalance int64        `json:"coinBalance"`
	Replayed    bool         `json:"replayed"`
}

// TopupRequest credits coins bought with money.
type TopupRequest struct {
	Coins          *int64          `json:"coins" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"paymentMethod" binding:"required"`
	Description    string          `json:"description"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// SpendRequest debits coins, e.g. at checkout.
type SpendRequest struct {
	Coins          *int64 `json:"coins" binding:"required"`
	Description    string `json:"description" binding:"required"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// AdjustRequest is an admin credit or debit.
type AdjustRequest struct {
	Coins          *int64 `json:"coins" binding:"required"`
	Description    string `json:"description" binding:"required"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Wallet is the customer's balance with recent ledger history.
type Wallet struct {
	Email        string         `json:"email"`
	CoinBalance  int64          `json:"coinBalance"`
	Transactions []*Transaction `json:"transactions"`
}

// Reconciliation compares the stored balance with the sum of the ledger.
type Reconciliation struct {
	Email         string `json:"email"`
	CoinBalance   int64  `json:"coinBalance"`
	LedgerBalance int64  `json:"ledgerBalance"`
	Transactions  int    `json:"transactions"`
	Consistent    bool   `json:"consistent"`
}
