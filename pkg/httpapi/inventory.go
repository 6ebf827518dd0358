package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/inventory"
)

func (s *Server) listInventoryHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Inventory.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, items, "")
}

// createInventoryItemHandler adds a stock item.
// @Summary Create inventory item
// @Accept json
// @Produce json
// @Param item body inventory.NewItem true "Inventory item"
// @Success 201 {object} inventory.Item
// @Security ApiKeyAuth
// @Router /api/inventory [post]
func (s *Server) createInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	var in inventory.NewItem
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Inventory.CreateItem(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, item, "inventory item created")
}

func (s *Server) lowStockHandler(w http.ResponseWriter, r *http.Request) {
	threshold, err := intQuery(r, "threshold", inventory.DefaultThreshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.svc.Inventory.LowStock(r.Context(), threshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, items, "")
}

func (s *Server) outOfStockHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Inventory.OutOfStock(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, items, "")
}

// purchaseOrderHandler suggests reorders for low stock.
// @Summary Purchase order
// @Produce json
// @Param threshold query int false "Low stock threshold"
// @Success 200 {object} inventory.PurchaseOrder
// @Security ApiKeyAuth
// @Router /api/inventory/purchase-order [get]
func (s *Server) purchaseOrderHandler(w http.ResponseWriter, r *http.Request) {
	threshold, err := intQuery(r, "threshold", inventory.DefaultThreshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	po, err := s.svc.Inventory.PurchaseOrder(r.Context(), threshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, po, "")
}

func (s *Server) inventoryStatsHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Inventory.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, st, "")
}

// recordMovementHandler appends a stock movement.
// @Summary Record movement
// @Accept json
// @Produce json
// @Param movement body inventory.MovementInput true "Movement"
// @Param Idempotency-Key header string false "Replay protection"
// @Success 201 {object} inventory.Movement
// @Security ApiKeyAuth
// @Router /api/inventory/movement [post]
func (s *Server) recordMovementHandler(w http.ResponseWriter, r *http.Request) {
	var in inventory.MovementInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if in.UserID == "" {
		in.UserID = UserFrom(r.Context())
	}
	mv, err := s.svc.Inventory.RecordMovement(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, mv, "movement recorded")
}

func (s *Server) getInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Inventory.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, item, "")
}

func (s *Server) updateInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	var ch inventory.ItemChanges
	if err := decode(r, &ch); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Inventory.UpdateItem(r.Context(), mux.Vars(r)["id"], ch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, item, "inventory item updated")
}

func (s *Server) deleteInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Inventory.DeleteItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "inventory item deleted")
}

func (s *Server) inventoryHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", inventory.DefaultHistoryLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	moves, err := s.svc.Inventory.History(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, moves, "")
}

func (s *Server) setQuantityHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity *int           `json:"quantity"`
		Type     inventory.Mode `json:"type"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Quantity == nil {
		s.writeError(w, r, apperr.Validation("inventory.set_quantity", "quantity is required"))
		return
	}
	if req.Type == "" {
		req.Type = inventory.ModeSet
	}
	item, err := s.svc.Inventory.SetQuantity(r.Context(), mux.Vars(r)["id"], *req.Quantity, req.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, item, "quantity updated")
}
