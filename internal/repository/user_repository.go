package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foodbridge/internal/model"
)

const userColumns = "id, email, username, first_name, last_name, phone_number, date_joined, is_donor, is_beneficiary"

// UserRepository caches users locally after successful authentication so
// login details remain available offline.
type UserRepository struct {
	base
	notifier *Notifier
}

func NewUserRepository(db *pgxpool.Pool, notifier *Notifier) *UserRepository {
	return &UserRepository{base: base{db: db}, notifier: notifier}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.PhoneNumber, &u.DateJoined, &u.IsDonor, &u.IsBeneficiary)
	return u, err
}

func (r *UserRepository) Put(ctx context.Context, u model.User) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone_number = EXCLUDED.phone_number,
			date_joined = EXCLUDED.date_joined,
			is_donor = EXCLUDED.is_donor,
			is_beneficiary = EXCLUDED.is_beneficiary`,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.PhoneNumber,
		u.DateJoined, u.IsDonor, u.IsBeneficiary)
	if err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	r.notifier.Notify(KindUser)
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (model.User, error) {
	row := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.getExecutor(ctx).Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	r.notifier.Notify(KindUser)
	return nil
}

func (r *UserRepository) Clear(ctx context.Context) error {
	_, err := r.getExecutor(ctx).Exec(ctx, "DELETE FROM users")
	if err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	r.notifier.Notify(KindUser)
	return nil
}
