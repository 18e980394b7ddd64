package models

import (
	"time"

	"github.com/google/uuid"
)

// RiskDecision is the outcome of a risk assessment
type RiskDecision string

const (
	RiskDecisionApprove   RiskDecision = "approve"
	RiskDecisionDecline   RiskDecision = "decline"
	RiskDecisionReview    RiskDecision = "review"
	RiskDecisionChallenge RiskDecision = "challenge"
)

// RiskSeverity grades a risk event
type RiskSeverity string

const (
	RiskSeverityLow      RiskSeverity = "low"
	RiskSeverityMedium   RiskSeverity = "medium"
	RiskSeverityHigh     RiskSeverity = "high"
	RiskSeverityCritical RiskSeverity = "critical"
)

// RiskEvent records one risk assessment. Immutable once written.
type RiskEvent struct {
	CreatedAt     time.Time    `db:"created_at"`
	TransactionID *uuid.UUID   `db:"transaction_id"`
	TokenID       *uuid.UUID   `db:"token_id"`
	EventType     string       `db:"event_type"`
	Severity      RiskSeverity `db:"severity"`
	Decision      RiskDecision `db:"decision"`
	Reason        string       `db:"reason"`
	RiskScore     int          `db:"risk_score"`
	ID            uuid.UUID    `db:"id"`
}
