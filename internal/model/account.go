package model

import "time"

type AccountType string

const (
	AccountRegular  AccountType = "regular"
	AccountMerchant AccountType = "merchant"
)

func (t AccountType) String() string { return string(t) }

func (t AccountType) Valid() bool {
	return t == AccountRegular || t == AccountMerchant
}

// Account is the DB entity persisted in the accounts table. account_type is
// immutable after creation; business_name and merchant_code are set for
// merchants only.
type Account struct {
	ID           int64       `db:"id"`
	PhoneNumber  string      `db:"phone_number"`
	AccountType  AccountType `db:"account_type"`
	PINHash      string      `db:"pin_hash"`
	BusinessName *string     `db:"business_name"` // nullable, merchants only
	MerchantCode *string     `db:"merchant_code"` // nullable, unique, merchants only
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (a *Account) IsMerchant() bool { return a.AccountType == AccountMerchant }
