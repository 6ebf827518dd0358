package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// dashboardHandler summarises a period.
// @Summary Dashboard
// @Produce json
// @Param start query string false "First day, YYYY-MM-DD"
// @Param end query string false "Last day, YYYY-MM-DD"
// @Success 200 {object} report.Dashboard
// @Security ApiKeyAuth
// @Router /api/reports/dashboard [get]
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.svc.Reports.Dashboard(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, d, "")
}

func (s *Server) slotOccupancyHandler(w http.ResponseWriter, r *http.Request) {
	slots, err := s.svc.Reports.SlotOccupancy(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, slots, "")
}
