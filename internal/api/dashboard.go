package api

import (
	"fmt"
	"net/http"

	"github.com/nyashahama/vitalwatch-backend/internal/patient"
	"github.com/nyashahama/vitalwatch-backend/internal/stats"
)

// ─── GET /api/dashboard ───────────────────────────────────────────────────────

// handleDashboard returns the headline totals, the three chart
// distributions, and the high-risk patient list.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ps, err := s.repo.ListPatients(r.Context(), patient.Filter{})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("dashboard: list patients: %w", err))
		return
	}

	respond(w, http.StatusOK, stats.Compute(ps))
}
