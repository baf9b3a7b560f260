package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/patient"
	"github.com/nyashahama/vitalwatch-backend/internal/store"
)

// ─── GET /api/patients ────────────────────────────────────────────────────────

type listPatientsResponse struct {
	Patients []patient.Patient `json:"patients"`
	Count    int               `json:"count"`
}

// handleListPatients serves the registry table. Query parameters:
//
//	risk=all|low|medium|high        the tab
//	q=...                           search over name and id
//	condition=hypertension|diabetes|obesity   a dashboard bar
func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	f, err := patient.ParseFilter(query.Get("risk"), query.Get("q"), query.Get("condition"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	ps, err := s.repo.ListPatients(r.Context(), f)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list patients: %w", err))
		return
	}

	respond(w, http.StatusOK, listPatientsResponse{Patients: ps, Count: len(ps)})
}

// ─── POST /api/patients ───────────────────────────────────────────────────────

// handleCreatePatient adds a patient from the intake form. The server assigns
// id, avatar and creation time.
func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req patient.NewPatient
	if !decode(w, r, &req) {
		return
	}

	valid, err := req.Validate()
	if err != nil {
		var ve *assessment.ValidationError
		if errors.As(err, &ve) {
			respond(w, http.StatusBadRequest, errorResponse{
				Error:  "invalid patient",
				Kind:   "validation",
				Fields: ve.Fields(),
			})
			return
		}
		s.respondInternalErr(w, r, err)
		return
	}

	p, err := s.repo.CreatePatient(r.Context(), valid)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create patient: %w", err))
		return
	}

	s.logger.Info("patient created", "patient_id", p.ID, logField(r))
	respond(w, http.StatusCreated, p)
}

// ─── GET /api/patients/{patientID} ────────────────────────────────────────────

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPatient(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, p)
}

// loadPatient resolves the {patientID} URL parameter. It writes 404 or 500
// and returns false when the patient cannot be loaded.
func (s *Server) loadPatient(w http.ResponseWriter, r *http.Request) (patient.Patient, bool) {
	id := chi.URLParam(r, "patientID")

	p, err := s.repo.GetPatient(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondErr(w, http.StatusNotFound, "patient not found")
		return patient.Patient{}, false
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get patient %s: %w", id, err))
		return patient.Patient{}, false
	}
	return p, true
}
