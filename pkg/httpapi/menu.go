package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"restaurantcore/pkg/catalog"
)

// listMenuHandler lists orderable menu items.
// @Summary List menu
// @Produce json
// @Success 200 {array} catalog.MenuItem
// @Security ApiKeyAuth
// @Router /api/menu [get]
func (s *Server) listMenuHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Menu.Available(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, items, "")
}

// createMenuItemHandler adds a menu item.
// @Summary Create menu item
// @Accept json
// @Produce json
// @Param item body catalog.NewMenuItem true "Menu item"
// @Success 201 {object} catalog.MenuItem
// @Security ApiKeyAuth
// @Router /api/menu [post]
func (s *Server) createMenuItemHandler(w http.ResponseWriter, r *http.Request) {
	var in catalog.NewMenuItem
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Menu.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, item, "menu item created")
}

func (s *Server) menuCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Menu.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, cats, "")
}

func (s *Server) searchMenuHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Menu.Search(r.Context(), mux.Vars(r)["term"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, items, "")
}

func (s *Server) menuByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Menu.ByCategory(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, items, "")
}

// getMenuItemHandler retrieves a menu item by ID.
// @Summary Get menu item
// @Produce json
// @Param id path string true "Menu item ID"
// @Success 200 {object} catalog.MenuItem
// @Security ApiKeyAuth
// @Router /api/menu/{id} [get]
func (s *Server) getMenuItemHandler(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Menu.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, item, "")
}

// updateMenuItemHandler edits a menu item. Placed orders keep their prices.
// @Summary Update menu item
// @Accept json
// @Produce json
// @Param id path string true "Menu item ID"
// @Param changes body catalog.MenuChanges true "Changes"
// @Success 200 {object} catalog.MenuItem
// @Security ApiKeyAuth
// @Router /api/menu/{id} [put]
func (s *Server) updateMenuItemHandler(w http.ResponseWriter, r *http.Request) {
	var ch catalog.MenuChanges
	if err := decode(r, &ch); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Menu.Update(r.Context(), mux.Vars(r)["id"], ch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, item, "menu item updated")
}

func (s *Server) menuAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Available bool `json:"available"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Menu.SetAvailability(r.Context(), mux.Vars(r)["id"], req.Available)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, item, "availability updated")
}

func (s *Server) menuPriceHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price decimal.Decimal `json:"price"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	item, err := s.svc.Menu.SetPrice(r.Context(), mux.Vars(r)["id"], req.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, item, "price updated")
}

func (s *Server) deleteMenuItemHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Menu.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "menu item deleted")
}
