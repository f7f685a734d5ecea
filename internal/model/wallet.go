package model

import "time"

// Wallet is one per (account, network). The private key is stored encrypted
// and only decrypted in memory right before a provider call; addresses and
// keys are never shared across networks.
type Wallet struct {
	AccountID    int64     `db:"account_id"`
	Network      string    `db:"network"`
	Address      string    `db:"address"`
	KeyEncrypted string    `db:"key_encrypted"`
	CreatedAt    time.Time `db:"created_at"`
}
