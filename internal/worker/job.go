package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nyashahama/vitalwatch-backend/internal/email"
)

// Alert is one high-risk assessment waiting to be mailed.
type Alert struct {
	PatientID   string
	PatientName string
	Condition   string
	RiskScore   float64
	Explanation string
	AssessedAt  time.Time
}

// Job delivers a single alert. It holds the recipient so the api package
// only has to describe what happened, not who to tell.
type Job struct {
	mailer email.Sender
	to     string
	logger *slog.Logger
}

// NewJob constructs a Job that mails alerts to to.
func NewJob(mailer email.Sender, to string, logger *slog.Logger) *Job {
	return &Job{
		mailer: mailer,
		to:     to,
		logger: logger,
	}
}

// Run sends the alert email. Any error is returned to the Runner, which
// retries up to MaxRetries times.
func (j *Job) Run(ctx context.Context, a Alert) error {
	log := j.logger.With("patient_id", a.PatientID, "condition", a.Condition)
	log.Debug("job: sending high-risk alert")

	err := j.mailer.SendHighRiskAlert(ctx, email.HighRiskAlertParams{
		To:          j.to,
		PatientID:   a.PatientID,
		PatientName: a.PatientName,
		Condition:   a.Condition,
		RiskScore:   a.RiskScore,
		Explanation: a.Explanation,
		AssessedAt:  a.AssessedAt,
	})
	if err != nil {
		return fmt.Errorf("job: send alert: %w", err)
	}

	log.Info("job: high-risk alert sent")
	return nil
}
