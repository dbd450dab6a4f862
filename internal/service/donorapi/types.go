package donorapi

import (
	"errors"
	"fmt"

	"foodbridge/internal/model"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user,omitempty"`
	Token   *string     `json:"token,omitempty"`
	Message *string     `json:"message,omitempty"`
}

type RegisterRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	PhoneNumber   string `json:"phoneNumber"`
	IsDonor       bool   `json:"isDonor"`
	IsBeneficiary bool   `json:"isBeneficiary"`
}

type RegisterResponse struct {
	Success bool        `json:"success"`
	User    *model.User `json:"user,omitempty"`
	Message *string     `json:"message,omitempty"`
}

type PaymentRequest struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	DonationID  *int64  `json:"donationId,omitempty"`
}

// Kind classifies a remote failure so callers can decide between the
// local-fallback path and surfacing the error.
type Kind int

const (
	// KindOffline covers transport failures and timeouts. Always recoverable:
	// reads fall back to the local store, writes stay queued for sync.
	KindOffline Kind = iota
	// KindBadRequest is a 4xx rejection. Not retried automatically.
	KindBadRequest
	// KindServerFault is a 5xx, recoverable like offline.
	KindServerFault
)

func (k Kind) String() string {
	switch k {
	case KindOffline:
		return "offline"
	case KindBadRequest:
		return "bad_request"
	case KindServerFault:
		return "server_fault"
	}
	return "unknown"
}

// Error is the classified failure returned by every client operation.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("donor api: %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("donor api: %s: %s", e.Kind, e.Message)
}

// Retryable reports whether err is a remote failure worth retrying later
// (offline or server fault).
func Retryable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == KindOffline || apiErr.Kind == KindServerFault
}
