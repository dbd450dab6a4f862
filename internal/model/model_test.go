package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestCanTransition(t *testing.T) {
	beneficiary := int64Ptr(42)

	tests := []struct {
		name        string
		from, to    string
		beneficiary *int64
		want        bool
	}{
		{"available to claimed with beneficiary", StatusAvailable, StatusClaimed, beneficiary, true},
		{"claimed to delivered with beneficiary", StatusClaimed, StatusDelivered, beneficiary, true},
		{"available to delivered with beneficiary", StatusAvailable, StatusDelivered, beneficiary, true},
		{"same status stays valid", StatusClaimed, StatusClaimed, beneficiary, true},
		{"claimed back to available", StatusClaimed, StatusAvailable, nil, false},
		{"delivered back to claimed", StatusDelivered, StatusClaimed, beneficiary, false},
		{"delivered back to available", StatusDelivered, StatusAvailable, nil, false},
		{"claimed without beneficiary", StatusAvailable, StatusClaimed, nil, false},
		{"delivered without beneficiary", StatusClaimed, StatusDelivered, nil, false},
		{"unknown target status", StatusAvailable, "lost", beneficiary, false},
		{"unknown source status", "lost", StatusClaimed, beneficiary, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to, tt.beneficiary))
		})
	}
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, Donation{ID: -7}.IsTemporary())
	assert.False(t, Donation{ID: 7}.IsTemporary())
	assert.False(t, Donation{ID: 0}.IsTemporary())
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusAvailable))
	assert.True(t, ValidStatus(StatusClaimed))
	assert.True(t, ValidStatus(StatusDelivered))
	assert.False(t, ValidStatus("pending"))
	assert.False(t, ValidStatus(""))
}
