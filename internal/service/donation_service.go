package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"foodbridge/internal/model"
	"foodbridge/internal/repository"
	"foodbridge/internal/service/donorapi"
)

// ErrInvalidStatus is returned for a donation carrying an unknown status.
var ErrInvalidStatus = errors.New("invalid donation status")

// ErrInvalidTransition is returned for a backward status move or a
// claimed/delivered status without a beneficiary.
var ErrInvalidTransition = errors.New("invalid status transition")

// DonationService is the single authority through which donation reads and
// writes flow. It composes the local store and the remote client and owns
// the optimistic-write and reconciliation protocol. The remote service is
// authoritative when reachable; the local store is the fallback and the
// holding pen for writes the server has not confirmed yet.
type DonationService struct {
	repo    *repository.DonationRepository
	client  *donorapi.Client
	tempIDs *tempIDSource
	locks   *keyedMutex
	flight  singleflight.Group
}

func NewDonationService(repo *repository.DonationRepository, client *donorapi.Client) *DonationService {
	return &DonationService{
		repo:    repo,
		client:  client,
		tempIDs: newTempIDSource(),
		locks:   newKeyedMutex(),
	}
}

// GetDonations tries the remote service first. On success the fetched set
// replaces all server-confirmed local rows while unconfirmed rows are kept,
// and the merged view is returned. On any remote failure the local store is
// served as-is; an error only surfaces when both paths are empty.
func (s *DonationService) GetDonations(ctx context.Context) ([]model.Donation, error) {
	fetched, remoteErr := s.client.FetchDonations(ctx)
	if remoteErr == nil {
		if err := s.repo.ReplaceSynced(ctx, fetched); err != nil {
			return nil, err
		}
		return s.repo.ListAll(ctx)
	}

	local, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(local) == 0 {
		return nil, remoteErr
	}
	return local, nil
}

func (s *DonationService) GetDonation(ctx context.Context, id int64) (model.Donation, error) {
	return s.repo.Get(ctx, id)
}

func (s *DonationService) GetDonationsByStatus(ctx context.Context, status string) ([]model.Donation, error) {
	return s.repo.ListByStatus(ctx, status)
}

func (s *DonationService) GetDonationsByDonor(ctx context.Context, donorID int64) ([]model.Donation, error) {
	return s.repo.ListByDonor(ctx, donorID)
}

func (s *DonationService) GetClaimedDonations(ctx context.Context, userID int64) ([]model.Donation, error) {
	return s.repo.ListByBeneficiary(ctx, userID)
}

// WatchDonations emits a fresh snapshot whenever donation rows change,
// until ctx is cancelled.
func (s *DonationService) WatchDonations(ctx context.Context) <-chan []model.Donation {
	return s.repo.WatchAll(ctx)
}

// CreateDonation applies the write locally under a fresh temporary id before
// touching the network; the moment that insert commits, the caller's action
// is durable. The remote create is then attempted: on success the temporary
// row is swapped for the server-confirmed one, on a recoverable failure the
// row stays pending for the next reconciliation pass. The returned bool is
// true while the donation is still awaiting server confirmation.
func (s *DonationService) CreateDonation(ctx context.Context, d model.Donation) (model.Donation, bool, error) {
	if d.Status == "" {
		d.Status = model.StatusAvailable
	}
	if !model.ValidStatus(d.Status) {
		return model.Donation{}, false, fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}

	tempID, err := s.tempIDs.Next(ctx, s.idExists)
	if err != nil {
		return model.Donation{}, false, err
	}

	unlock := s.locks.Lock(tempID)
	defer unlock()

	d.ID = tempID
	d.Synced = false
	// Local writes run detached from the caller's cancellation: once
	// started, the optimistic write always completes.
	storeCtx := context.WithoutCancel(ctx)
	if err := s.repo.Put(storeCtx, d); err != nil {
		// Store failure is fatal: the durability guarantee is gone.
		return model.Donation{}, false, err
	}

	confirmed, remoteErr := s.client.CreateDonation(ctx, d)
	if remoteErr == nil {
		if err := s.repo.ConfirmCreate(storeCtx, tempID, confirmed); err != nil {
			return model.Donation{}, false, err
		}
		confirmed.Synced = true
		return confirmed, false, nil
	}

	if donorapi.Retryable(remoteErr) {
		// The action is not lost, only deferred.
		return d, true, nil
	}
	// Server-rejected: the row stays as recorded intent, but the caller
	// gets the rejection message.
	return d, true, remoteErr
}

// UpdateDonation validates the status transition, applies the change
// locally, and pushes it to the remote service when the row is already
// server-confirmed. Rows still awaiting confirmation are only updated
// locally; the reconciliation pass pushes their current state. For a
// confirmed row a failed remote push surfaces as an error while the local
// change is kept.
func (s *DonationService) UpdateDonation(ctx context.Context, id int64, d model.Donation) (model.Donation, bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Donation{}, false, err
	}

	if !model.CanTransition(current.Status, d.Status, d.Beneficiary) {
		return model.Donation{}, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, d.Status)
	}

	d.ID = id
	d.Synced = current.Synced
	storeCtx := context.WithoutCancel(ctx)
	if err := s.repo.Put(storeCtx, d); err != nil {
		return model.Donation{}, false, err
	}

	if !current.Synced {
		return d, true, nil
	}

	updated, remoteErr := s.client.UpdateDonation(ctx, id, d)
	if remoteErr == nil {
		updated.Synced = true
		if err := s.repo.Put(storeCtx, updated); err != nil {
			return model.Donation{}, false, err
		}
		return updated, false, nil
	}
	// The reconciliation pass only re-pushes unconfirmed rows, so a failed
	// update of a confirmed row has no retry path: the local write stays as
	// recorded intent, and the failure surfaces to the caller.
	return d, false, remoteErr
}

// DeleteDonation withdraws a donation from the local store.
func (s *DonationService) DeleteDonation(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.repo.Delete(ctx, id)
}

// SyncUnsynced pushes every locally-created, unconfirmed donation to the
// remote service and swaps confirmed rows in under their server ids. The
// pass is single-flight: concurrent callers share one in-progress pass, so
// the same temporary row can never be pushed twice. A failing row is
// skipped and retried on the next pass; it never blocks the others.
// Returns the number of rows confirmed in this pass.
func (s *DonationService) SyncUnsynced(ctx context.Context) (int, error) {
	v, err, _ := s.flight.Do("sync", func() (any, error) {
		return s.runSyncPass(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *DonationService) runSyncPass(ctx context.Context) (int, error) {
	unsynced, err := s.repo.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}

	var mu sync.Mutex
	var confirmed int

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, row := range unsynced {
		row := row
		g.Go(func() error {
			unlock := s.locks.Lock(row.ID)
			defer unlock()

			// The snapshot may be stale by the time the lock is held: an
			// in-flight create can have confirmed this row already, and a
			// concurrent edit can have changed its contents. Push only the
			// row's current state, and only while it is still unconfirmed.
			current, err := s.repo.Get(ctx, row.ID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil
				}
				return err
			}
			if current.Synced {
				return nil
			}

			serverRow, remoteErr := s.client.CreateDonation(ctx, current)
			if remoteErr != nil {
				// Retried on the next pass.
				return nil
			}
			// Once the server confirmed, the local replace must land even
			// if the caller of the pass has gone away.
			if err := s.repo.ConfirmCreate(context.WithoutCancel(ctx), row.ID, serverRow); err != nil {
				return err
			}
			mu.Lock()
			confirmed++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return confirmed, err
	}
	return confirmed, nil
}

func (s *DonationService) idExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}
