package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusDeclined  TransactionStatus = "declined"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction is a payment logged against an active token.
type Transaction struct {
	CreatedAt       time.Time         `db:"created_at"`
	Currency        string            `db:"currency"`
	ReferenceNumber string            `db:"reference_number"`
	DeviceID        string            `db:"device_id"`
	Status          TransactionStatus `db:"status"`
	Amount          int64             `db:"amount"`
	ID              uuid.UUID         `db:"id"`
	TokenID         uuid.UUID         `db:"token_id"`
	MerchantID      uuid.UUID         `db:"merchant_id"`
}
