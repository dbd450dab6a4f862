package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by Get-style methods when no row matches.
var ErrNotFound = errors.New("not found")

// PgxExecutor is an interface that matches both *pgxpool.Pool and pgx.Tx
type PgxExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// base carries the shared pool and transaction plumbing for the three
// entity repositories.
type base struct {
	db *pgxpool.Pool
}

// RunAtomic executes fn within a single transaction. Queries issued through
// getExecutor inside fn run on that transaction, so a multi-statement write
// commits or rolls back as one unit.
func (b *base) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := b.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// If commit succeeds, rollback does nothing.
	defer tx.Rollback(ctx)

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (b *base) getExecutor(ctx context.Context) PgxExecutor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return b.db
}

// Migrate creates the local tables if they do not exist yet. The store is a
// durable cache: rows survive restarts and are only removed explicitly.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL,
			username TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			phone_number TEXT,
			date_joined TEXT NOT NULL,
			is_donor BOOLEAN NOT NULL DEFAULT FALSE,
			is_beneficiary BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS donations (
			id BIGINT PRIMARY KEY,
			donor BIGINT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			description TEXT NOT NULL,
			food_type TEXT NOT NULL,
			quantity INT NOT NULL,
			location TEXT NOT NULL,
			created_at TEXT NOT NULL,
			status TEXT NOT NULL,
			beneficiary BIGINT,
			synced BOOLEAN NOT NULL DEFAULT TRUE,
			last_updated BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS mpesa_transactions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			phone_number TEXT NOT NULL,
			transaction_date TEXT NOT NULL,
			status TEXT NOT NULL,
			reference TEXT NOT NULL,
			last_updated BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
