package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/panvault/panvault/internal/models"
)

var panPattern = regexp.MustCompile(`^\d{13,19}$`)

// NormalizePAN strips whitespace and validates the PAN format. Runs before
// any encryption is attempted.
func NormalizePAN(pan string) (string, error) {
	cleaned := strings.Join(strings.Fields(pan), "")

	if !panPattern.MatchString(cleaned) {
		return "", fmt.Errorf("invalid PAN format: must be 13-19 digits")
	}

	return cleaned, nil
}

// ValidateLuhn validates a card number using the Luhn algorithm
func ValidateLuhn(pan string) error {
	sum := 0
	isSecond := false

	for i := len(pan) - 1; i >= 0; i-- {
		digit := int(pan[i] - '0')

		if isSecond {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		isSecond = !isSecond
	}

	if sum%10 != 0 {
		return fmt.Errorf("invalid card number: failed Luhn check")
	}

	return nil
}

// ValidateExpiry checks if a card has expired
func ValidateExpiry(expiryMonth, expiryYear int) error {
	if expiryMonth < 1 || expiryMonth > 12 {
		return fmt.Errorf("invalid month: must be between 1 and 12")
	}

	now := time.Now()
	currentYear := now.Year()
	currentMonth := int(now.Month())

	if expiryYear < currentYear {
		return fmt.Errorf("card expired: year %d is in the past", expiryYear)
	}

	if expiryYear == currentYear && expiryMonth < currentMonth {
		return fmt.Errorf("card expired: %02d/%d", expiryMonth, expiryYear)
	}

	return nil
}

// ValidateAmount checks if amount is valid (positive)
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("invalid amount: must be greater than 0")
	}

	return nil
}

// ValidateStatusTransition checks the requested target status. Any of the
// three writable statuses may be set from any current state, including
// revoked back to active; the original API imposes no legality table and
// clients depend on that.
func ValidateStatusTransition(status models.TokenStatus) error {
	switch status {
	case models.TokenStatusActive, models.TokenStatusSuspended, models.TokenStatusRevoked:
		return nil
	default:
		return fmt.Errorf("invalid status %q: must be one of active, suspended, revoked", status)
	}
}
