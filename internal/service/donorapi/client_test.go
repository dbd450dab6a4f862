package donorapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"

	"foodbridge/internal/model"
)

func TestFetchDonations_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Token auth check
		if r.Header.Get("Authorization") != "Token secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/donations/", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]model.Donation{
			{ID: 1, Donor: 10, FoodType: "Rice", Quantity: 5, Status: model.StatusAvailable},
			{ID: 2, Donor: 11, FoodType: "Beans", Quantity: 2, Status: model.StatusClaimed},
		})
	}))
	defer ts.Close()

	client := NewClient(Config{BaseURL: ts.URL, Token: "secret"})

	donations, err := client.FetchDonations(context.Background())
	assert.NoError(t, err)
	assert.Len(t, donations, 2)
	assert.Equal(t, int64(1), donations[0].ID)
	assert.Equal(t, "Beans", donations[1].FoodType)
}

func TestFetchDonations_Brotli(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "br", r.Header.Get("Accept-Encoding"))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		json.NewEncoder(bw).Encode([]model.Donation{{ID: 5, FoodType: "Maize"}})
		bw.Close()
	}))
	defer ts.Close()

	client := NewClient(Config{BaseURL: ts.URL})

	donations, err := client.FetchDonations(context.Background())
	assert.NoError(t, err)
	assert.Len(t, donations, 1)
	assert.Equal(t, "Maize", donations[0].FoodType)
}

func TestCreateDonation_StripsID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var d model.Donation
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		// The temporary id must never reach the server.
		assert.Equal(t, int64(0), d.ID)

		d.ID = 99
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d)
	}))
	defer ts.Close()

	client := NewClient(Config{BaseURL: ts.URL})

	created, err := client.CreateDonation(context.Background(), model.Donation{
		ID:       -12345,
		FoodType: "Rice",
		Quantity: 5,
		Status:   model.StatusAvailable,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(99), created.ID)
	assert.Equal(t, "Rice", created.FoodType)
}

func TestClassification_Offline(t *testing.T) {
	// A closed server gives a connection error.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	client := NewClient(Config{BaseURL: ts.URL})

	_, err := client.FetchDonations(context.Background())
	assert.Error(t, err)

	var apiErr *Error
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindOffline, apiErr.Kind)
	assert.True(t, Retryable(err))
}

func TestClassification_BadRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"duplicate username"}`))
	}))
	defer ts.Close()

	client := NewClient(Config{BaseURL: ts.URL})

	_, err := client.Register(context.Background(), RegisterRequest{Username: "taken"})
	assert.Error(t, err)

	var apiErr *Error
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindBadRequest, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "duplicate username", apiErr.Message)
	assert.False(t, Retryable(err))
}

func TestClassification_ServerFault(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer ts.Close()

	client := NewClient(Config{BaseURL: ts.URL})

	_, err := client.FetchDonations(context.Background())
	assert.Error(t, err)

	var apiErr *Error
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServerFault, apiErr.Kind)
	assert.True(t, Retryable(err))
}

func TestLogin_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/login/", r.URL.Path)

		var req LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jane", req.Username)

		token := "abc123"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoginResponse{
			Success: true,
			User:    &model.User{ID: 3, Username: "jane", IsDonor: true},
			Token:   &token,
		})
	}))
	defer ts.Close()

	client := NewClient(Config{BaseURL: ts.URL})

	resp, err := client.Login(context.Background(), LoginRequest{Username: "jane", Password: "pw"})
	assert.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(3), resp.User.ID)
	assert.Equal(t, "abc123", *resp.Token)
}

func TestInitiatePayment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mpesa/payment/", r.URL.Path)

		var req PaymentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 250.0, req.Amount)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(model.MpesaTransaction{
			ID: 41, Amount: req.Amount, PhoneNumber: req.PhoneNumber,
			Status: model.TxPending, Reference: "MP-41",
		})
	}))
	defer ts.Close()

	client := NewClient(Config{BaseURL: ts.URL})

	tx, err := client.InitiatePayment(context.Background(), PaymentRequest{
		PhoneNumber: "+254700000000",
		Amount:      250.0,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(41), tx.ID)
	assert.Equal(t, model.TxPending, tx.Status)
}
