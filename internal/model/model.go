package model

// Donation status lifecycle. Transitions only move forward:
// available -> claimed -> delivered.
const (
	StatusAvailable = "available"
	StatusClaimed   = "claimed"
	StatusDelivered = "delivered"
)

// Mpesa transaction statuses.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
)

// Donation is a food donation record. Server-issued ids are positive;
// locally generated temporary ids are negative, so the two can never collide.
// Synced is false while the record exists only in the local store.
type Donation struct {
	ID          int64   `json:"id"`
	Donor       int64   `json:"donor"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	FoodType    string  `json:"foodType"`
	Quantity    int     `json:"quantity"`
	Location    string  `json:"location"`
	CreatedAt   string  `json:"createdAt"`
	Status      string  `json:"status"`
	Beneficiary *int64  `json:"beneficiary,omitempty"`
	Synced      bool    `json:"-"`
	LastUpdated int64   `json:"-"`
}

// IsTemporary reports whether the donation still carries a locally
// generated placeholder id.
func (d Donation) IsTemporary() bool {
	return d.ID < 0
}

var statusRank = map[string]int{
	StatusAvailable: 0,
	StatusClaimed:   1,
	StatusDelivered: 2,
}

// ValidStatus reports whether s is a known donation status.
func ValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether a donation may move from one status to the
// next. Backward moves are never allowed; claimed and delivered require a
// beneficiary.
func CanTransition(from, to string, beneficiary *int64) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if toRank < fromRank {
		return false
	}
	if to != StatusAvailable && beneficiary == nil {
		return false
	}
	return true
}

type User struct {
	ID            int64   `json:"id"`
	Email         string  `json:"email"`
	Username      string  `json:"username"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	PhoneNumber   *string `json:"phoneNumber,omitempty"`
	DateJoined    string  `json:"dateJoined"`
	IsDonor       bool    `json:"isDonor"`
	IsBeneficiary bool    `json:"isBeneficiary"`
}

// MpesaTransaction records a payment initiated through the remote gateway.
// There is no offline path for these: a row exists only after the remote
// initiation call succeeded.
type MpesaTransaction struct {
	ID              int64   `json:"id"`
	User            int64   `json:"user"`
	Amount          float64 `json:"amount"`
	PhoneNumber     string  `json:"phoneNumber"`
	TransactionDate string  `json:"transactionDate"`
	Status          string  `json:"status"`
	Reference       string  `json:"reference"`
	LastUpdated     int64   `json:"-"`
}
