package service

import (
	"testing"
	"time"

	"github.com/panvault/panvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePAN(t *testing.T) {
	t.Run("valid PANs", func(t *testing.T) {
		cases := map[string]string{
			"4111111111111111":        "4111111111111111",
			"4111 1111 1111 1111":     "4111111111111111",
			"  4242424242424242  ":    "4242424242424242",
			"1234567890123":           "1234567890123",
			"1234567890123456789":     "1234567890123456789",
			"1234\t5678\t90123456789": "1234567890123456789",
		}

		for input, expected := range cases {
			got, err := NormalizePAN(input)
			require.NoError(t, err, "input %q", input)
			assert.Equal(t, expected, got)
		}
	})

	t.Run("invalid PANs", func(t *testing.T) {
		cases := []string{
			"",
			"123456789012",         // 12 digits
			"12345678901234567890", // 20 digits
			"4111-1111-1111-1111",
			"411111111111111a",
			"not a card number",
		}

		for _, input := range cases {
			_, err := NormalizePAN(input)
			assert.Error(t, err, "input %q", input)
		}
	})
}

func TestValidateLuhn(t *testing.T) {
	valid := []string{
		"4111111111111111",
		"4242424242424242",
		"5555555555554444",
		"378282246310005",
	}
	for _, pan := range valid {
		assert.NoError(t, ValidateLuhn(pan), "pan %s", pan)
	}

	invalid := []string{
		"4111111111111112",
		"1234567890123456",
	}
	for _, pan := range invalid {
		assert.Error(t, ValidateLuhn(pan), "pan %s", pan)
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now()

	t.Run("future date is valid", func(t *testing.T) {
		assert.NoError(t, ValidateExpiry(12, now.Year()+2))
	})

	t.Run("current month is valid", func(t *testing.T) {
		assert.NoError(t, ValidateExpiry(int(now.Month()), now.Year()))
	})

	t.Run("past year is rejected", func(t *testing.T) {
		assert.Error(t, ValidateExpiry(12, now.Year()-1))
	})

	t.Run("month out of range", func(t *testing.T) {
		assert.Error(t, ValidateExpiry(0, now.Year()+1))
		assert.Error(t, ValidateExpiry(13, now.Year()+1))
	})
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.NoError(t, ValidateAmount(1000000))
	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-500))
}

func TestValidateStatusTransition(t *testing.T) {
	t.Run("writable statuses", func(t *testing.T) {
		assert.NoError(t, ValidateStatusTransition(models.TokenStatusActive))
		assert.NoError(t, ValidateStatusTransition(models.TokenStatusSuspended))
		assert.NoError(t, ValidateStatusTransition(models.TokenStatusRevoked))
	})

	t.Run("expired cannot be set directly", func(t *testing.T) {
		assert.Error(t, ValidateStatusTransition(models.TokenStatusExpired))
	})

	t.Run("unknown status", func(t *testing.T) {
		assert.Error(t, ValidateStatusTransition(models.TokenStatus("frozen")))
	})
}
