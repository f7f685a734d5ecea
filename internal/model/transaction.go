package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxSend            TxType = "send"
	TxExternalSend    TxType = "external_send"
	TxWithdraw        TxType = "withdraw"
	TxMerchantPayment TxType = "merchant_payment"
)

func (t TxType) String() string { return string(t) }

func (t TxType) Valid() bool {
	switch t {
	case TxSend, TxExternalSend, TxWithdraw, TxMerchantPayment:
		return true
	}
	return false
}

type TxStatus string

const (
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

func (s TxStatus) String() string { return string(s) }

// Transaction is a durable record of one completed fund movement. A row is
// written exactly once, after the provider has confirmed the transfer; there
// is no pending state.
type Transaction struct {
	ID               string          `db:"id"` // ULID
	SenderID         int64           `db:"sender_id"`
	RecipientID      *int64          `db:"recipient_id"` // nullable, set for internal recipients
	RecipientAddress string          `db:"recipient_address"`
	Amount           decimal.Decimal `db:"amount"`
	Type             TxType          `db:"type"`
	TxID             string          `db:"tx_id"` // provider transaction id
	Status           TxStatus        `db:"status"`
	Network          string          `db:"network"`
	CreatedAt        time.Time       `db:"created_at"`
}

// TransactionView is a Transaction tagged with the direction ("sent" or
// "received") relative to the account a history query was made for.
type TransactionView struct {
	Transaction
	Direction string `db:"direction"`
}
