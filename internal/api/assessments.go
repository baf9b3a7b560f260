package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/patient"
	"github.com/nyashahama/vitalwatch-backend/internal/store"
	"github.com/nyashahama/vitalwatch-backend/internal/worker"
)

// ─── POST /api/risk-predictions ───────────────────────────────────────────────

// handlePredictRisk assesses an ad-hoc health profile. Nothing is stored.
func (s *Server) handlePredictRisk(w http.ResponseWriter, r *http.Request) {
	var req assessment.HealthProfileRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.assessor.Assess(r.Context(), req)
	if err != nil {
		s.respondAssessErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, res)
}

// ─── GET /api/patients/{patientID}/assessments ────────────────────────────────

type listAssessmentsResponse struct {
	Assessments []store.Assessment `json:"assessments"`
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "patientID")

	history, err := s.repo.ListAssessments(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list assessments %s: %w", id, err))
		return
	}

	respond(w, http.StatusOK, listAssessmentsResponse{Assessments: history})
}

// ─── POST /api/patients/{patientID}/assessments ───────────────────────────────

type assessPatientRequest struct {
	Condition string `json:"condition"`
}

type assessPatientResponse struct {
	Assessment store.Assessment `json:"assessment"`
	Patient    patient.Patient  `json:"patient"`
}

// handleAssessPatient assesses a stored patient's vitals for one condition,
// records the result, and updates the patient's risk level. A high result
// also enqueues an alert email; alert failures never fail the request.
func (s *Server) handleAssessPatient(w http.ResponseWriter, r *http.Request) {
	var req assessPatientRequest
	if !decode(w, r, &req) {
		return
	}

	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}

	profile, err := p.Profile(req.Condition).Validate()
	if err != nil {
		s.respondAssessErr(w, r, err)
		return
	}

	res, err := s.assessor.Assess(r.Context(), profile)
	if err != nil {
		s.respondAssessErr(w, r, err)
		return
	}

	rec, updated, err := s.repo.RecordAssessment(r.Context(), store.RecordAssessmentParams{
		PatientID: p.ID,
		Condition: profile.Condition,
		Provider:  s.assessor.Provider(),
		Result:    res,
	})
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("record assessment %s: %w", p.ID, err))
		return
	}

	s.logger.Info("assessment recorded",
		"patient_id", p.ID,
		"condition", rec.Condition,
		"risk_level", rec.RiskLevel,
		logField(r),
	)

	if rec.RiskLevel == assessment.RiskHigh {
		s.enqueueAlert(r, updated, rec)
	}

	respond(w, http.StatusCreated, assessPatientResponse{Assessment: rec, Patient: updated})
}

// enqueueAlert hands a high-risk result to the worker. It only logs on
// failure: the assessment is already recorded.
func (s *Server) enqueueAlert(r *http.Request, p patient.Patient, rec store.Assessment) {
	if s.alerts == nil {
		return
	}

	err := s.alerts.Enqueue(r.Context(), worker.Alert{
		PatientID:   p.ID,
		PatientName: p.Name,
		Condition:   rec.Condition,
		RiskScore:   rec.RiskScore,
		Explanation: rec.Explanation,
		AssessedAt:  rec.CreatedAt,
	})
	if err != nil {
		s.logger.Error("alert enqueue failed",
			"patient_id", p.ID,
			"error", err,
			logField(r),
		)
	}
}
