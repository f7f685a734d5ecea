package repository

import (
	"context"
	"strings"
	"time"

	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHTransactionsRepository is the ClickHouse archive of completed fund
// movements: written in batches by the archive worker, read by the reports
// endpoint.
type CHTransactionsRepository interface {
	InsertBatch(ctx context.Context, envs []model.Envelope) error
	List(ctx context.Context, network string, accountID int64, txType model.TxType, limit, offset int) ([]model.Envelope, error)
}

type chTransactionsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHTransactionsRepository(ch *sqlx.DB) CHTransactionsRepository {
	return &chTransactionsRepository{ch: ch}
}

func (r *chTransactionsRepository) InsertBatch(ctx context.Context, envs []model.Envelope) error {
	if len(envs) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(envs)*9)

	sb.WriteString(`
		INSERT INTO cryptofono.transactions_archive
		    (id, sender_id, recipient_id, recipient_address, amount, type, tx_id, status, network, created_at)
		VALUES `)
	for i, e := range envs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		var recipient int64
		if e.RecipientID != nil {
			recipient = *e.RecipientID
		}
		args = append(args, e.ID, e.SenderID, recipient, e.Address, e.Amount,
			string(e.Type), e.TxID, string(e.Status), e.Network, e.CreatedAt)
	}

	_, err := r.ch.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *chTransactionsRepository) List(ctx context.Context, network string, accountID int64, txType model.TxType, limit, offset int) ([]model.Envelope, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, sender_id, recipient_id, recipient_address, amount, type, tx_id, status, network, created_at
		FROM cryptofono.transactions_archive
		WHERE network = ?
	`
	args := []any{network}

	if accountID > 0 {
		q += " AND (sender_id = ? OR recipient_id = ?)"
		args = append(args, accountID, accountID)
	}
	if txType != "" {
		q += " AND type = ?"
		args = append(args, string(txType))
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []archiveRow
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}

	out := make([]model.Envelope, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.envelope())
	}
	return out, nil
}

// archiveRow flattens the nullable recipient_id for ClickHouse scanning
// (0 means external recipient).
type archiveRow struct {
	ID          string    `db:"id"`
	SenderID    int64     `db:"sender_id"`
	RecipientID int64     `db:"recipient_id"`
	Address     string    `db:"recipient_address"`
	Amount      string    `db:"amount"`
	Type        string    `db:"type"`
	TxID        string    `db:"tx_id"`
	Status      string    `db:"status"`
	Network     string    `db:"network"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r archiveRow) envelope() model.Envelope {
	e := model.Envelope{
		ID:        r.ID,
		SenderID:  r.SenderID,
		Address:   r.Address,
		Amount:    r.Amount,
		Type:      model.TxType(r.Type),
		TxID:      r.TxID,
		Status:    model.TxStatus(r.Status),
		Network:   r.Network,
		CreatedAt: r.CreatedAt,
	}
	if r.RecipientID != 0 {
		id := r.RecipientID
		e.RecipientID = &id
	}
	return e
}
