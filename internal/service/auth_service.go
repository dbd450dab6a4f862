package service

import (
	"context"
	"errors"
	"fmt"

	"foodbridge/internal/model"
	"foodbridge/internal/repository"
	"foodbridge/internal/service/donorapi"
)

// ErrAuthFailed is returned when the server reaches a verdict and rejects
// the credentials or registration, as opposed to being unreachable.
var ErrAuthFailed = errors.New("authentication failed")

// AuthService handles login and registration. Authenticated users are
// cached in the local store so a login can still resolve while offline.
type AuthService struct {
	users        *repository.UserRepository
	donations    *repository.DonationRepository
	transactions *repository.TransactionRepository
	client       *donorapi.Client
}

func NewAuthService(users *repository.UserRepository, donations *repository.DonationRepository,
	transactions *repository.TransactionRepository, client *donorapi.Client) *AuthService {
	return &AuthService{
		users:        users,
		donations:    donations,
		transactions: transactions,
		client:       client,
	}
}

// Login authenticates against the remote service and caches the user row
// locally. When the remote is unreachable the cached user for that username
// is served instead; the returned bool is true for such an offline login.
func (s *AuthService) Login(ctx context.Context, username, password string) (model.User, bool, error) {
	resp, remoteErr := s.client.Login(ctx, donorapi.LoginRequest{Username: username, Password: password})
	if remoteErr == nil {
		if !resp.Success || resp.User == nil {
			msg := "login failed"
			if resp.Message != nil {
				msg = *resp.Message
			}
			return model.User{}, false, fmt.Errorf("%w: %s", ErrAuthFailed, msg)
		}
		if err := s.users.Put(ctx, *resp.User); err != nil {
			return model.User{}, false, err
		}
		return *resp.User, false, nil
	}

	if !donorapi.Retryable(remoteErr) {
		return model.User{}, false, remoteErr
	}

	cached, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, false, remoteErr
		}
		return model.User{}, false, err
	}
	return cached, true, nil
}

// Register has no offline path: an account only exists once the server
// accepts it.
func (s *AuthService) Register(ctx context.Context, req donorapi.RegisterRequest) (model.User, error) {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return model.User{}, err
	}
	if !resp.Success || resp.User == nil {
		msg := "registration failed"
		if resp.Message != nil {
			msg = *resp.Message
		}
		return model.User{}, fmt.Errorf("%w: %s", ErrAuthFailed, msg)
	}
	if err := s.users.Put(ctx, *resp.User); err != nil {
		return model.User{}, err
	}
	return *resp.User, nil
}

// Logout drops all locally cached data.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.donations.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear donations on logout: %w", err)
	}
	if err := s.transactions.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear transactions on logout: %w", err)
	}
	if err := s.users.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear users on logout: %w", err)
	}
	return nil
}
