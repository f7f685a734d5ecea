package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/jmoiron/sqlx"
)

// WalletsRepository persists per-network wallet rows. The (account_id,
// network) pair is unique; a wallet is never reassigned across networks.
type WalletsRepository interface {
	Get(ctx context.Context, accountID int64, network string) (*model.Wallet, error)
	Insert(ctx context.Context, w model.Wallet) error
}

type WalletsRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletsRepository(db *sqlx.DB) *WalletsRepositoryImpl {
	return &WalletsRepositoryImpl{db: db}
}

var _ WalletsRepository = (*WalletsRepositoryImpl)(nil)

func (r *WalletsRepositoryImpl) Get(ctx context.Context, accountID int64, network string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT account_id, network, address, key_encrypted, created_at
		  FROM account_wallets
		 WHERE account_id = ? AND network = ? LIMIT 1
	`, accountID, network)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletsRepositoryImpl) Insert(ctx context.Context, w model.Wallet) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_wallets (account_id, network, address, key_encrypted, created_at)
		VALUES (?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE account_id = account_id
	`, w.AccountID, w.Network, w.Address, w.KeyEncrypted)
	return err
}
