package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantPayment records one customer payment against a merchant code.
// Same write discipline as Transaction: inserted once, after provider success.
type MerchantPayment struct {
	ID         int64           `db:"id"`
	MerchantID int64           `db:"merchant_id"`
	CustomerID int64           `db:"customer_id"`
	Amount     decimal.Decimal `db:"amount"`
	TxID       string          `db:"tx_id"`
	Status     TxStatus        `db:"status"`
	Network    string          `db:"network"`
	CreatedAt  time.Time       `db:"created_at"`

	// CustomerPhone is populated by list queries that join accounts.
	CustomerPhone string `db:"customer_phone"`
}
