package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/jmoiron/sqlx"
)

type AccountsRepository interface {
	GetByPhone(ctx context.Context, phone string) (*model.Account, error)
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetMerchantByCode(ctx context.Context, code string) (*model.Account, error)
	CreateRegular(ctx context.Context, phone, pinHash string) (int64, error)
	CreateMerchant(ctx context.Context, phone, pinHash, businessName, merchantCode string) (int64, error)
}

type AccountsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAccountsRepository(db *sqlx.DB) *AccountsRepositoryImpl {
	return &AccountsRepositoryImpl{db: db}
}

var _ AccountsRepository = (*AccountsRepositoryImpl)(nil)

const accountCols = `id, phone_number, account_type, pin_hash, business_name, merchant_code, created_at, updated_at`

func (r *AccountsRepositoryImpl) GetByPhone(ctx context.Context, phone string) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a, `
		SELECT `+accountCols+`
		  FROM accounts
		 WHERE phone_number = ? LIMIT 1
	`, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountsRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a, `
		SELECT `+accountCols+`
		  FROM accounts
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountsRepositoryImpl) GetMerchantByCode(ctx context.Context, code string) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a, `
		SELECT `+accountCols+`
		  FROM accounts
		 WHERE merchant_code = ? AND account_type = 'merchant' LIMIT 1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountsRepositoryImpl) CreateRegular(ctx context.Context, phone, pinHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (phone_number, account_type, pin_hash, created_at, updated_at)
		VALUES (?, 'regular', ?, NOW(), NOW())
	`, phone, pinHash)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *AccountsRepositoryImpl) CreateMerchant(ctx context.Context, phone, pinHash, businessName, merchantCode string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (phone_number, account_type, pin_hash, business_name, merchant_code, created_at, updated_at)
		VALUES (?, 'merchant', ?, ?, ?, NOW(), NOW())
	`, phone, pinHash, businessName, merchantCode)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
