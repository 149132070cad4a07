package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOwner(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Owner
		err      error
	}{
		{
			name:     "lowercase address is checksummed",
			input:    "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			expected: Owner("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
		},
		{
			name:     "checksummed address is unchanged",
			input:    "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			expected: Owner("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
		},
		{
			name:     "surrounding whitespace is kept",
			input:    "  manufacturer-a ",
			expected: Owner("  manufacturer-a "),
		},
		{
			name:     "padded address is not an address",
			input:    " 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			expected: Owner(" 0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"),
		},
		{
			name:     "opaque principal kept verbatim",
			input:    "Acme Pharma",
			expected: Owner("Acme Pharma"),
		},
		{
			name:  "empty owner",
			input: "   ",
			err:   ErrOwnerRequired,
		},
	}

	t.Run("principals differing in whitespace stay distinct", func(t *testing.T) {
		a, err := NormalizeOwner("acme")
		require.NoError(t, err)
		b, err := NormalizeOwner("acme ")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, err := NormalizeOwner(tt.input)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, owner)
		})
	}
}

func TestRegisterInput_ValidateRequired(t *testing.T) {
	valid := RegisterInput{ID: "DRUG001", Name: "Paracetamol 500mg", BatchNumber: "LOT2024001"}
	require.NoError(t, valid.ValidateRequired())

	// every field missing: name is reported first
	assert.ErrorIs(t, RegisterInput{}.ValidateRequired(), ErrNameRequired)

	noID := valid
	noID.ID = ""
	noID.BatchNumber = ""
	assert.ErrorIs(t, noID.ValidateRequired(), ErrIDRequired)

	noBatch := valid
	noBatch.BatchNumber = ""
	assert.EqualError(t, noBatch.ValidateRequired(), "batch required")
}

func TestRegisterInput_ValidateTemporal(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name        string
		manufacture int64
		expiry      int64
		err         error
	}{
		{name: "past manufacture, future expiry", manufacture: now.Unix() - 86400, expiry: now.Unix() + 31536000},
		{name: "manufacture exactly now", manufacture: now.Unix(), expiry: now.Unix() + 1},
		{name: "already expired window", manufacture: now.Unix() - 200000, expiry: now.Unix() - 86400},
		{name: "equal timestamps", manufacture: now.Unix() - 10, expiry: now.Unix() - 10, err: ErrManufactureAfterExpiry},
		{name: "expiry before manufacture", manufacture: now.Unix() - 10, expiry: now.Unix() - 20, err: ErrManufactureAfterExpiry},
		{name: "future manufacture", manufacture: now.Unix() + 86400, expiry: now.Unix() + 200000, err: ErrManufactureInFuture},
		// ordering is checked before the future rule
		{name: "future and inverted", manufacture: now.Unix() + 100, expiry: now.Unix() + 50, err: ErrManufactureAfterExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := RegisterInput{ManufactureTimestamp: tt.manufacture, ExpiryTimestamp: tt.expiry}
			err := in.ValidateTemporal(now)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestRegistryError_Kinds(t *testing.T) {
	wrapped := fmt.Errorf("failed to register: %w", ErrDrugAlreadyRegistered)

	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.True(t, errors.Is(wrapped, ErrDrugAlreadyRegistered))
	assert.True(t, IsNotFound(ErrDrugNotFound))
	assert.True(t, IsValidation(ErrManufactureInFuture))
	assert.Equal(t, "id already registered", ErrDrugAlreadyRegistered.Error())
}

func TestDrug_IsExpiredAt(t *testing.T) {
	d := &Drug{ExpiryTimestamp: 1000}

	assert.False(t, d.IsExpiredAt(time.Unix(999, 0)))
	assert.False(t, d.IsExpiredAt(time.Unix(1000, 0)))
	assert.True(t, d.IsExpiredAt(time.Unix(1001, 0)))
}

func TestEventFilter_NormalizedLimit(t *testing.T) {
	assert.Equal(t, DefaultEventLimit, EventFilter{}.NormalizedLimit())
	assert.Equal(t, 10, EventFilter{Limit: 10}.NormalizedLimit())
	assert.Equal(t, MaxEventLimit, EventFilter{Limit: 5000}.NormalizedLimit())
}
