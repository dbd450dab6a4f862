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

const donationColumns = "id, donor, amount, description, food_type, quantity, location, created_at, status, beneficiary, synced, last_updated"

const upsertDonation = `INSERT INTO donations (` + donationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		donor = EXCLUDED.donor,
		amount = EXCLUDED.amount,
		description = EXCLUDED.description,
		food_type = EXCLUDED.food_type,
		quantity = EXCLUDED.quantity,
		location = EXCLUDED.location,
		created_at = EXCLUDED.created_at,
		status = EXCLUDED.status,
		beneficiary = EXCLUDED.beneficiary,
		synced = EXCLUDED.synced,
		last_updated = EXCLUDED.last_updated`

type DonationRepository struct {
	base
	notifier *Notifier
}

func NewDonationRepository(db *pgxpool.Pool, notifier *Notifier) *DonationRepository {
	return &DonationRepository{base: base{db: db}, notifier: notifier}
}

func scanDonation(row pgx.Row) (model.Donation, error) {
	var d model.Donation
	err := row.Scan(&d.ID, &d.Donor, &d.Amount, &d.Description, &d.FoodType,
		&d.Quantity, &d.Location, &d.CreatedAt, &d.Status, &d.Beneficiary,
		&d.Synced, &d.LastUpdated)
	return d, err
}

func collectDonations(rows pgx.Rows) ([]model.Donation, error) {
	defer rows.Close()
	// Non-nil so an empty result encodes as a JSON array, not null.
	out := []model.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Put inserts or replaces a donation keyed by id. Overwrite is not an error.
func (r *DonationRepository) Put(ctx context.Context, d model.Donation) error {
	d.LastUpdated = time.Now().UnixMilli()
	_, err := r.getExecutor(ctx).Exec(ctx, upsertDonation,
		d.ID, d.Donor, d.Amount, d.Description, d.FoodType, d.Quantity,
		d.Location, d.CreatedAt, d.Status, d.Beneficiary, d.Synced, d.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to put donation: %w", err)
	}
	r.notifier.Notify(KindDonation)
	return nil
}

// PutAll writes the batch in one transaction; a failure leaves no partial state.
func (r *DonationRepository) PutAll(ctx context.Context, donations []model.Donation) error {
	err := r.RunAtomic(ctx, func(ctx context.Context) error {
		now := time.Now().UnixMilli()
		for _, d := range donations {
			d.LastUpdated = now
			if _, err := r.getExecutor(ctx).Exec(ctx, upsertDonation,
				d.ID, d.Donor, d.Amount, d.Description, d.FoodType, d.Quantity,
				d.Location, d.CreatedAt, d.Status, d.Beneficiary, d.Synced, d.LastUpdated); err != nil {
				return fmt.Errorf("failed to put donation %d: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.notifier.Notify(KindDonation)
	return nil
}

func (r *DonationRepository) Get(ctx context.Context, id int64) (model.Donation, error) {
	row := r.getExecutor(ctx).QueryRow(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE id = $1", id)
	d, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Donation{}, ErrNotFound
		}
		return model.Donation{}, fmt.Errorf("failed to get donation: %w", err)
	}
	return d, nil
}

func (r *DonationRepository) ListAll(ctx context.Context) ([]model.Donation, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		"SELECT "+donationColumns+" FROM donations ORDER BY last_updated DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return collectDonations(rows)
}

func (r *DonationRepository) ListByStatus(ctx context.Context, status string) ([]model.Donation, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE status = $1 ORDER BY last_updated DESC, id", status)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations by status: %w", err)
	}
	return collectDonations(rows)
}

func (r *DonationRepository) ListByDonor(ctx context.Context, donorID int64) ([]model.Donation, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE donor = $1 ORDER BY last_updated DESC, id", donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations by donor: %w", err)
	}
	return collectDonations(rows)
}

func (r *DonationRepository) ListByBeneficiary(ctx context.Context, userID int64) ([]model.Donation, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE beneficiary = $1 ORDER BY last_updated DESC, id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations by beneficiary: %w", err)
	}
	return collectDonations(rows)
}

// ListUnsynced returns every donation still waiting for server confirmation.
func (r *DonationRepository) ListUnsynced(ctx context.Context) ([]model.Donation, error) {
	rows, err := r.getExecutor(ctx).Query(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE synced = FALSE ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced donations: %w", err)
	}
	return collectDonations(rows)
}

// Delete removes a donation row; absent rows are a no-op.
func (r *DonationRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.getExecutor(ctx).Exec(ctx, "DELETE FROM donations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete donation: %w", err)
	}
	r.notifier.Notify(KindDonation)
	return nil
}

func (r *DonationRepository) Clear(ctx context.Context) error {
	_, err := r.getExecutor(ctx).Exec(ctx, "DELETE FROM donations")
	if err != nil {
		return fmt.Errorf("failed to clear donations: %w", err)
	}
	r.notifier.Notify(KindDonation)
	return nil
}

// ReplaceSynced makes the fetched server set authoritative. Rows with
// synced = TRUE that the server no longer returns are removed; rows with
// synced = FALSE are local-only and the server knows nothing about them,
// so they stay untouched. Runs as one transaction.
func (r *DonationRepository) ReplaceSynced(ctx context.Context, fetched []model.Donation) error {
	err := r.RunAtomic(ctx, func(ctx context.Context) error {
		if _, err := r.getExecutor(ctx).Exec(ctx, "DELETE FROM donations WHERE synced = TRUE"); err != nil {
			return fmt.Errorf("failed to drop synced donations: %w", err)
		}
		now := time.Now().UnixMilli()
		for _, d := range fetched {
			d.Synced = true
			d.LastUpdated = now
			if _, err := r.getExecutor(ctx).Exec(ctx, upsertDonation,
				d.ID, d.Donor, d.Amount, d.Description, d.FoodType, d.Quantity,
				d.Location, d.CreatedAt, d.Status, d.Beneficiary, d.Synced, d.LastUpdated); err != nil {
				return fmt.Errorf("failed to put fetched donation %d: %w", d.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.notifier.Notify(KindDonation)
	return nil
}

// ConfirmCreate swaps the temporary-id row for the server-confirmed one in a
// single transaction, so a crash cannot lose the record between the delete
// and the insert.
func (r *DonationRepository) ConfirmCreate(ctx context.Context, tempID int64, confirmed model.Donation) error {
	err := r.RunAtomic(ctx, func(ctx context.Context) error {
		if _, err := r.getExecutor(ctx).Exec(ctx, "DELETE FROM donations WHERE id = $1", tempID); err != nil {
			return fmt.Errorf("failed to delete temporary donation: %w", err)
		}
		confirmed.Synced = true
		confirmed.LastUpdated = time.Now().UnixMilli()
		if _, err := r.getExecutor(ctx).Exec(ctx, upsertDonation,
			confirmed.ID, confirmed.Donor, confirmed.Amount, confirmed.Description,
			confirmed.FoodType, confirmed.Quantity, confirmed.Location,
			confirmed.CreatedAt, confirmed.Status, confirmed.Beneficiary,
			confirmed.Synced, confirmed.LastUpdated); err != nil {
			return fmt.Errorf("failed to insert confirmed donation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.notifier.Notify(KindDonation)
	return nil
}

// WatchAll emits a fresh snapshot of all donations on every change.
func (r *DonationRepository) WatchAll(ctx context.Context) <-chan []model.Donation {
	return Watch(ctx, r.notifier, KindDonation, r.ListAll)
}

// WatchByStatus emits matching donations on every change.
func (r *DonationRepository) WatchByStatus(ctx context.Context, status string) <-chan []model.Donation {
	return Watch(ctx, r.notifier, KindDonation, func(ctx context.Context) ([]model.Donation, error) {
		return r.ListByStatus(ctx, status)
	})
}
