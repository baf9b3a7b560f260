// Package email defines the interface for alert email delivery and provides a
// Resend-backed implementation.
package email

import (
	"context"
	"time"
)

// HighRiskAlertParams holds the data for the clinician alert sent when a
// recorded assessment comes back high.
type HighRiskAlertParams struct {
	To          string // recipient email address
	PatientID   string // e.g. "USR004"; inserted into the patient URL
	PatientName string
	Condition   string  // e.g. "heart disease"
	RiskScore   float64 // 0–100
	Explanation string  // model output; escaped before rendering
	AssessedAt  time.Time
}

// Sender is the interface the worker uses to send email. Tests inject a stub
// that records calls without hitting the network.
type Sender interface {
	// SendHighRiskAlert sends the high-risk alert for one assessment.
	SendHighRiskAlert(ctx context.Context, p HighRiskAlertParams) error
}
