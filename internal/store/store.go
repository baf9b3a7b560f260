// Package store persists the patient registry and its assessment history.
//
// Two implementations satisfy Repository: Postgres, for deployments with a
// DATABASE_URL, and Memory, seeded with the mock dataset for local runs and
// tests. Both apply the same filters and the same id/avatar assignment.
//
// Dependency rule: store imports patient and assessment only. It never
// imports api, worker, ai, or email.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/patient"
)

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrNotFound is returned when a patient id does not exist.
var ErrNotFound = errors.New("store: not found")

// ─── TYPES ───────────────────────────────────────────────────────────────────

// Assessment is one recorded model assessment of a patient.
type Assessment struct {
	ID          uuid.UUID            `json:"id"`
	PatientID   string               `json:"patientId"`
	Condition   string               `json:"condition"`
	RiskScore   float64              `json:"riskScore"`
	RiskLevel   assessment.RiskLevel `json:"riskLevel"`
	Explanation string               `json:"explanation"`
	Provider    string               `json:"provider"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// RecordAssessmentParams is what the API hands over after a successful
// assessment of a stored patient.
type RecordAssessmentParams struct {
	PatientID string
	Condition string
	Provider  string
	Result    assessment.Result
}

// Repository is the registry's persistence boundary.
type Repository interface {
	// ListPatients returns the patients matching f, newest first.
	ListPatients(ctx context.Context, f patient.Filter) ([]patient.Patient, error)

	// GetPatient returns ErrNotFound when id is unknown.
	GetPatient(ctx context.Context, id string) (patient.Patient, error)

	// CreatePatient stores an already validated intake form and assigns its
	// id, avatar and creation time.
	CreatePatient(ctx context.Context, n patient.NewPatient) (patient.Patient, error)

	// RecordAssessment stores the assessment and sets the patient's risk
	// level to the assessed level in one atomic step. It returns the new
	// record and the updated patient.
	RecordAssessment(ctx context.Context, p RecordAssessmentParams) (Assessment, patient.Patient, error)

	// ListAssessments returns a patient's history, newest first. Unknown
	// patients yield ErrNotFound.
	ListAssessments(ctx context.Context, patientID string) ([]Assessment, error)
}
