package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"restaurantcore/pkg/reservation"
)

func (s *Server) listReservationsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rs, err := s.svc.Reservations.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, rs, "")
}

// createReservationHandler books a table.
// @Summary Create reservation
// @Accept json
// @Produce json
// @Param reservation body reservation.NewReservation true "Reservation"
// @Param Idempotency-Key header string false "Replay protection"
// @Success 201 {object} reservation.Reservation
// @Failure 409 "Slot full"
// @Security ApiKeyAuth
// @Router /api/reservations [post]
func (s *Server) createReservationHandler(w http.ResponseWriter, r *http.Request) {
	var in reservation.NewReservation
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.UserID == "" {
		in.UserID = UserFrom(r.Context())
	}
	res, err := s.svc.Reservations.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, res, "reservation created")
}

func (s *Server) reservationStatsHandler(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.svc.Reservations.Stats(r.Context(),
		start.Format(reservation.DateLayout), end.Format(reservation.DateLayout))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, st, "")
}

func (s *Server) reservationsByUserHandler(w http.ResponseWriter, r *http.Request) {
	history := r.URL.Query().Get("history") == "true"
	rs, err := s.svc.Reservations.ByUser(r.Context(), mux.Vars(r)["userId"], history)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, rs, "")
}

func (s *Server) reservationsByDateHandler(w http.ResponseWriter, r *http.Request) {
	rs, err := s.svc.Reservations.ByDate(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, rs, "")
}

func (s *Server) reservationsByStatusHandler(w http.ResponseWriter, r *http.Request) {
	rs, err := s.svc.Reservations.ByStatus(r.Context(), reservation.Status(mux.Vars(r)["status"]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, rs, "")
}

func (s *Server) getReservationHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Reservations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, res, "")
}

// updateReservationHandler moves a booking or edits its party size and notes.
// @Summary Update reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param changes body reservation.Changes true "Changes"
// @Success 200 {object} reservation.Reservation
// @Failure 409 "Slot full or reservation closed"
// @Security ApiKeyAuth
// @Router /api/reservations/{id} [put]
func (s *Server) updateReservationHandler(w http.ResponseWriter, r *http.Request) {
	var ch reservation.Changes
	if err := decode(r, &ch); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Reservations.Update(r.Context(), mux.Vars(r)["id"], ch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, res, "reservation updated")
}

func (s *Server) deleteReservationHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reservations.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "reservation deleted")
}

func (s *Server) reservationStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status reservation.Status `json:"status"`
		Notes  string             `json:"notes"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Reservations.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, res, "reservation status updated")
}

func (s *Server) confirmReservationHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Reservations.Confirm(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, res, "reservation confirmed")
}

func (s *Server) cancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	res, err := s.svc.Reservations.Cancel(r.Context(), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, res, "reservation cancelled")
}
