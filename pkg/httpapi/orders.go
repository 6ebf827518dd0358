package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"restaurantcore/pkg/order"
)

// listOrdersHandler pages through orders.
// @Summary List orders
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} order.Order
// @Security ApiKeyAuth
// @Router /api/orders [get]
func (s *Server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", order.DefaultUserLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	orders, err := s.svc.Orders.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, orders, "")
}

// createOrderHandler creates a new order.
// @Summary Create order
// @Accept json
// @Produce json
// @Param order body order.NewOrder true "Order"
// @Param Idempotency-Key header string false "Replay protection"
// @Success 201 {object} order.Order
// @Security ApiKeyAuth
// @Router /api/orders [post]
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var in order.NewOrder
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.UserID == "" {
		in.UserID = UserFrom(r.Context())
	}
	o, err := s.svc.Orders.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, o, "order created")
}

func (s *Server) activeOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := s.svc.Orders.Active(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, orders, "")
}

func (s *Server) orderStatsHandler(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.dateRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.svc.Orders.Stats(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, st, "")
}

func (s *Server) topSellingHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", order.DefaultTopLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	top, err := s.svc.Orders.TopSelling(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, top, "")
}

func (s *Server) ordersByUserHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", order.DefaultUserLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	orders, err := s.svc.Orders.ByUser(r.Context(), mux.Vars(r)["userId"], limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, orders, "")
}

func (s *Server) ordersByStatusHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := s.svc.Orders.ByStatus(r.Context(), order.Status(mux.Vars(r)["status"]))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, orders, "")
}

// getOrderHandler retrieves an order by ID.
// @Summary Get order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} order.Order
// @Security ApiKeyAuth
// @Router /api/orders/{id} [get]
func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.Orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, o, "")
}

// updateOrderHandler edits the notes or delivery address of an order.
// @Summary Update order
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param changes body order.Changes true "Changes"
// @Success 200 {object} order.Order
// @Failure 409 "Order is closed"
// @Security ApiKeyAuth
// @Router /api/orders/{id} [put]
func (s *Server) updateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var ch order.Changes
	if err := decode(r, &ch); err != nil {
		s.writeError(w, r, err)
		return
	}
	o, err := s.svc.Orders.Update(r.Context(), mux.Vars(r)["id"], ch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, o, "order updated")
}

// deleteOrderHandler removes an order.
// @Summary Delete order
// @Param id path string true "Order ID"
// @Success 200
// @Security ApiKeyAuth
// @Router /api/orders/{id} [delete]
func (s *Server) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Orders.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "order deleted")
}

// orderStatusHandler sets an order status.
// @Summary Update order status
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} order.Order
// @Security ApiKeyAuth
// @Router /api/orders/{id}/status [patch]
func (s *Server) orderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status order.Status `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	o, err := s.svc.Orders.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, o, "order status updated")
}

func (s *Server) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	o, err := s.svc.Orders.Cancel(r.Context(), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, o, "order cancelled")
}

func (s *Server) debitOrderHandler(w http.ResponseWriter, r *http.Request) {
	moves, err := s.svc.Orders.Debit(r.Context(), mux.Vars(r)["id"], UserFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, moves, "inventory debited")
}

// ownerRequest optionally names the user a cancellation is made for.
type ownerRequest struct {
	UserID string `json:"user_id"`
}
