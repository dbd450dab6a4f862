package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"foodbridge/internal/model"
	"foodbridge/internal/repository"
	"foodbridge/internal/service"
	"foodbridge/internal/service/donorapi"
)

func newAuthService(t *testing.T, handler http.HandlerFunc) (*service.AuthService, *repository.UserRepository, func()) {
	pool := setupTestDB(t)

	ts := httptest.NewServer(handler)
	client := donorapi.NewClient(donorapi.Config{BaseURL: ts.URL})

	notifier := repository.NewNotifier()
	users := repository.NewUserRepository(pool, notifier)
	donations := repository.NewDonationRepository(pool, notifier)
	transactions := repository.NewTransactionRepository(pool, notifier)

	svc := service.NewAuthService(users, donations, transactions, client)
	cleanup := func() {
		ts.Close()
		pool.Close()
	}
	return svc, users, cleanup
}

func TestLogin_CachesUser(t *testing.T) {
	svc, users, cleanup := newAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(donorapi.LoginResponse{
			Success: true,
			User:    &model.User{ID: 3, Username: "jane", Email: "jane@example.com", IsDonor: true},
		})
	})
	defer cleanup()

	user, offline, err := svc.Login(context.Background(), "jane", "pw")
	assert.NoError(t, err)
	assert.False(t, offline)
	assert.Equal(t, int64(3), user.ID)

	cached, err := users.GetByUsername(context.Background(), "jane")
	assert.NoError(t, err)
	assert.Equal(t, "jane@example.com", cached.Email)
}

func TestLogin_OfflineFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // remote unreachable

	pool := setupTestDB(t)
	defer pool.Close()

	notifier := repository.NewNotifier()
	users := repository.NewUserRepository(pool, notifier)
	donations := repository.NewDonationRepository(pool, notifier)
	transactions := repository.NewTransactionRepository(pool, notifier)
	client := donorapi.NewClient(donorapi.Config{BaseURL: ts.URL})
	svc := service.NewAuthService(users, donations, transactions, client)

	// Nothing cached yet: the transport error surfaces.
	_, _, err := svc.Login(context.Background(), "jane", "pw")
	assert.Error(t, err)

	// After a cached row exists, offline login serves it.
	assert.NoError(t, users.Put(context.Background(), model.User{
		ID: 3, Username: "jane", Email: "jane@example.com",
	}))

	user, offline, err := svc.Login(context.Background(), "jane", "pw")
	assert.NoError(t, err)
	assert.True(t, offline)
	assert.Equal(t, int64(3), user.ID)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	svc, _, cleanup := newAuthService(t, func(w http.ResponseWriter, r *http.Request) {
		msg := "invalid credentials"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(donorapi.LoginResponse{Success: false, Message: &msg})
	})
	defer cleanup()

	_, _, err := svc.Login(context.Background(), "jane", "wrong")
	assert.ErrorIs(t, err, service.ErrAuthFailed)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestRegister_NoOfflinePath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	pool := setupTestDB(t)
	defer pool.Close()

	notifier := repository.NewNotifier()
	users := repository.NewUserRepository(pool, notifier)
	donations := repository.NewDonationRepository(pool, notifier)
	transactions := repository.NewTransactionRepository(pool, notifier)
	client := donorapi.NewClient(donorapi.Config{BaseURL: ts.URL})
	svc := service.NewAuthService(users, donations, transactions, client)

	_, err := svc.Register(context.Background(), donorapi.RegisterRequest{Username: "new"})
	assert.Error(t, err)

	// No account row materializes without server acceptance.
	_, err = users.GetByUsername(context.Background(), "new")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLogout_ClearsLocalData(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	notifier := repository.NewNotifier()
	users := repository.NewUserRepository(pool, notifier)
	donations := repository.NewDonationRepository(pool, notifier)
	transactions := repository.NewTransactionRepository(pool, notifier)
	client := donorapi.NewClient(donorapi.Config{BaseURL: "http://127.0.0.1:0"})
	svc := service.NewAuthService(users, donations, transactions, client)

	assert.NoError(t, users.Put(ctx, model.User{ID: 3, Username: "jane"}))
	assert.NoError(t, donations.Put(ctx, model.Donation{ID: 1, Donor: 3, FoodType: "Rice", Status: model.StatusAvailable, Synced: true}))
	assert.NoError(t, transactions.Put(ctx, model.MpesaTransaction{ID: 1, User: 3, Status: model.TxCompleted}))

	assert.NoError(t, svc.Logout(ctx))

	_, err := users.Get(ctx, 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	all, err := donations.ListAll(ctx)
	assert.NoError(t, err)
	assert.Empty(t, all)
	txs, err := transactions.ListByUser(ctx, 3)
	assert.NoError(t, err)
	assert.Empty(t, txs)
}
