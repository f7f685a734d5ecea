package model

import "time"

// Envelope is the payload published to Kafka (via Debezium outbox SMT) for
// every completed fund movement, consumed by the archive worker.
type Envelope struct {
	ID          string    `json:"id"` // transaction ULID
	SenderID    int64     `json:"sender_id"`
	RecipientID *int64    `json:"recipient_id,omitempty"`
	Address     string    `json:"recipient_address"`
	Amount      string    `json:"amount"` // decimal string
	Type        TxType    `json:"type"`
	TxID        string    `json:"tx_id"`
	Status      TxStatus  `json:"status"`
	Network     string    `json:"network"`
	CreatedAt   time.Time `json:"created_at"`
}
