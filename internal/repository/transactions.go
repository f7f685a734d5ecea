package repository

import (
	"context"

	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/jmoiron/sqlx"
)

// TransactionsRepository persists the ledger. Rows are insert-only: a row
// exists if and only if the provider confirmed the transfer.
type TransactionsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, t model.Transaction) error
	ListRecent(ctx context.Context, accountID int64, network string, limit int) ([]model.TransactionView, error)
	ListWithdrawals(ctx context.Context, accountID int64, network string, limit int) ([]model.Transaction, error)
}

type TransactionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionsRepository(db *sqlx.DB) *TransactionsRepositoryImpl {
	return &TransactionsRepositoryImpl{db: db}
}

var _ TransactionsRepository = (*TransactionsRepositoryImpl)(nil)

func (r *TransactionsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *TransactionsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, t model.Transaction) error {
	const q = `
		INSERT INTO transactions
		    (id, sender_id, recipient_id, recipient_address, amount, type, tx_id, status, network, created_at)
		VALUES
		    (?,  ?,         ?,            ?,                 ?,      ?,    ?,     ?,      ?,       NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			t.ID, t.SenderID, t.RecipientID, t.RecipientAddress,
			t.Amount, t.Type.String(), t.TxID, t.Status.String(), t.Network,
		)
		return err
	})
}

// ListRecent returns the newest movements where the account is sender or
// recipient, tagged with direction relative to that account.
func (r *TransactionsRepositoryImpl) ListRecent(ctx context.Context, accountID int64, network string, limit int) ([]model.TransactionView, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []model.TransactionView
	err := r.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.sender_id, t.recipient_id, t.recipient_address, t.amount,
		       t.type, t.tx_id, t.status, t.network, t.created_at,
		       CASE WHEN t.sender_id = ? THEN 'sent' ELSE 'received' END AS direction
		  FROM transactions t
		 WHERE (t.sender_id = ? OR t.recipient_id = ?) AND t.network = ?
		 ORDER BY t.created_at DESC
		 LIMIT ?
	`, accountID, accountID, accountID, network, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TransactionsRepositoryImpl) ListWithdrawals(ctx context.Context, accountID int64, network string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []model.Transaction
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, sender_id, recipient_id, recipient_address, amount,
		       type, tx_id, status, network, created_at
		  FROM transactions
		 WHERE sender_id = ? AND type = 'withdraw' AND network = ?
		 ORDER BY created_at DESC
		 LIMIT ?
	`, accountID, network, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
