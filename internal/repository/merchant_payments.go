package repository

import (
	"context"

	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/jmoiron/sqlx"
)

type MerchantPaymentsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, p model.MerchantPayment) error
	ListForMerchant(ctx context.Context, merchantID int64, network string, limit int) ([]model.MerchantPayment, error)
}

type MerchantPaymentsRepositoryImpl struct {
	db *sqlx.DB
}

func NewMerchantPaymentsRepository(db *sqlx.DB) *MerchantPaymentsRepositoryImpl {
	return &MerchantPaymentsRepositoryImpl{db: db}
}

var _ MerchantPaymentsRepository = (*MerchantPaymentsRepositoryImpl)(nil)

func (r *MerchantPaymentsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *MerchantPaymentsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, p model.MerchantPayment) error {
	const q = `
		INSERT INTO merchant_payments
		    (merchant_id, customer_id, amount, tx_id, status, network, created_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			p.MerchantID, p.CustomerID, p.Amount, p.TxID, p.Status.String(), p.Network,
		)
		return err
	})
}

// ListForMerchant joins accounts so each payment carries the paying
// customer's phone number for display.
func (r *MerchantPaymentsRepositoryImpl) ListForMerchant(ctx context.Context, merchantID int64, network string, limit int) ([]model.MerchantPayment, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []model.MerchantPayment
	err := r.db.SelectContext(ctx, &rows, `
		SELECT mp.id, mp.merchant_id, mp.customer_id, mp.amount, mp.tx_id,
		       mp.status, mp.network, mp.created_at,
		       a.phone_number AS customer_phone
		  FROM merchant_payments mp
		  JOIN accounts a ON a.id = mp.customer_id
		 WHERE mp.merchant_id = ? AND mp.network = ?
		 ORDER BY mp.created_at DESC
		 LIMIT ?
	`, merchantID, network, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
