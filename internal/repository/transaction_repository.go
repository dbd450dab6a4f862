package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foodbridge/internal/model"
)

const txColumns = "id, user_id, amount, phone_number, transaction_date, status, reference, last_updated"

type TransactionRepository struct {
	base
	notifier *Notifier
}

func NewTransactionRepository(db *pgxpool.Pool, notifier *Notifier) *TransactionRepository {
	return &TransactionRepository{base: base{db: db}, notifier: notifier}
}

func scanTransaction(row pgx.Row) (model.MpesaTransaction, error) {
	var t model.MpesaTransaction
	err := row.Scan(&t.ID, &t.User, &t.Amount, &t.PhoneNumber,
		&t.TransactionDate, &t.Status, &t.Reference, &t.LastUpdated)
	return t, err
}

func (r *TransactionRepository) Put(ctx context.Context, t model.MpesaTransaction) error {
	t.LastUpdated = time.Now().UnixMilli()
	_, err := r.getExecutor(ctx).Exec(ctx, `INSERT INTO mpesa_transactions (`+txColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			amount = EXCLUDED.amount,
			phone_number = EXCLUDED.phone_number,
			transaction_date = EXCLUDED.transaction_date,
			status = EXCLUDED.status,
			reference = EXCLUDED.reference,
			last_updated = EXCLUDED.last_updated`,
		t.ID, t.User, t.Amount, t.PhoneNumber, t.TransactionDate, t.Status,
		t.Reference, t.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to put transaction: %w", err)
	}
	r.notifier.Notify(KindTransaction)
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, id int64) (model.MpesaTransaction, error) {
	row := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT "+txColumns+" FROM mpesa_transactions WHERE id = $1", id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MpesaTransaction{}, ErrNotFound
		}
		return model.MpesaTransaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64) ([]model.MpesaTransaction, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		"SELECT "+txColumns+" FROM mpesa_transactions WHERE user_id = $1 ORDER BY last_updated DESC, id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	out := []model.MpesaTransaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepository) Clear(ctx context.Context) error {
	_, err := r.getExecutor(ctx).Exec(ctx, "DELETE FROM mpesa_transactions")
	if err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}
	r.notifier.Notify(KindTransaction)
	return nil
}
