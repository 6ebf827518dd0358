// Package httpapi exposes the restaurant core over HTTP: JSON handlers,
// Redis-backed sessions and idempotency keys, and the mapping from error
// kinds to status codes.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/catalog"
	"restaurantcore/pkg/inventory"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/order"
	tracing "restaurantcore/pkg/otel"
	"restaurantcore/pkg/report"
	"restaurantcore/pkg/reservation"
)

const sessionCookie = "session_id"

func sessionKey(sid string) string { return "session:" + sid }

// Services are the core components served by the API.
type Services struct {
	Menu         *catalog.Service
	Inventory    *inventory.Ledger
	Reservations *reservation.Scheduler
	Orders       *order.Manager
	Reports      *report.Service
}

// Server routes HTTP requests to the core.
type Server struct {
	svc        Services
	kv         KV
	log        *logger.Logger
	tracer     trace.Tracer
	sessionTTL time.Duration
	idemTTL    time.Duration
	secure     bool
	now        func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithTracer sets the tracer carried by request contexts.
func WithTracer(t trace.Tracer) Option { return func(s *Server) { s.tracer = t } }

// WithSessionTTL sets how long a login lasts.
func WithSessionTTL(d time.Duration) Option { return func(s *Server) { s.sessionTTL = d } }

// WithIdempotencyTTL sets how long a stored response is replayed.
func WithIdempotencyTTL(d time.Duration) Option { return func(s *Server) { s.idemTTL = d } }

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(on bool) Option { return func(s *Server) { s.secure = on } }

// New creates a server.
func New(svc Services, kv KV, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		svc:        svc,
		kv:         kv,
		log:        log,
		tracer:     noop.NewTracerProvider().Tracer("restaurantcore"),
		sessionTTL: time.Hour,
		idemTTL:    24 * time.Hour,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// traced runs h inside a span named after the route.
func (s *Server) traced(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.AddSpan(r.Context(), name)
		defer span.End()
		h(w, r.WithContext(ctx))
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware, s.logMiddleware)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/login", s.traced("loginHandler", s.loginHandler)).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.traced("logoutHandler", s.logoutHandler)).Methods(http.MethodPost)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)

	menu := api.PathPrefix("/menu").Subrouter()
	menu.HandleFunc("", s.traced("listMenuHandler", s.listMenuHandler)).Methods(http.MethodGet)
	menu.HandleFunc("", s.traced("createMenuItemHandler", s.createMenuItemHandler)).Methods(http.MethodPost)
	menu.HandleFunc("/categories", s.traced("menuCategoriesHandler", s.menuCategoriesHandler)).Methods(http.MethodGet)
	menu.HandleFunc("/popular", s.traced("popularMenuHandler", s.topSellingHandler)).Methods(http.MethodGet)
	menu.HandleFunc("/search/{term}", s.traced("searchMenuHandler", s.searchMenuHandler)).Methods(http.MethodGet)
	menu.HandleFunc("/category/{category}", s.traced("menuByCategoryHandler", s.menuByCategoryHandler)).Methods(http.MethodGet)
	menu.HandleFunc("/{id}", s.traced("getMenuItemHandler", s.getMenuItemHandler)).Methods(http.MethodGet)
	menu.HandleFunc("/{id}", s.traced("updateMenuItemHandler", s.updateMenuItemHandler)).Methods(http.MethodPut)
	menu.HandleFunc("/{id}/availability", s.traced("menuAvailabilityHandler", s.menuAvailabilityHandler)).Methods(http.MethodPatch)
	menu.HandleFunc("/{id}/price", s.traced("menuPriceHandler", s.menuPriceHandler)).Methods(http.MethodPatch)
	menu.HandleFunc("/{id}", s.traced("deleteMenuItemHandler", s.deleteMenuItemHandler)).Methods(http.MethodDelete)

	inv := api.PathPrefix("/inventory").Subrouter()
	inv.HandleFunc("", s.traced("listInventoryHandler", s.listInventoryHandler)).Methods(http.MethodGet)
	inv.HandleFunc("", s.traced("createInventoryItemHandler", s.createInventoryItemHandler)).Methods(http.MethodPost)
	inv.HandleFunc("/low-stock", s.traced("lowStockHandler", s.lowStockHandler)).Methods(http.MethodGet)
	inv.HandleFunc("/out-of-stock", s.traced("outOfStockHandler", s.outOfStockHandler)).Methods(http.MethodGet)
	inv.HandleFunc("/purchase-order", s.traced("purchaseOrderHandler", s.purchaseOrderHandler)).Methods(http.MethodGet)
	inv.HandleFunc("/stats", s.traced("inventoryStatsHandler", s.inventoryStatsHandler)).Methods(http.MethodGet)
	inv.HandleFunc("/movement", s.traced("recordMovementHandler", s.idempotent(s.recordMovementHandler))).Methods(http.MethodPost)
	inv.HandleFunc("/{id}", s.traced("getInventoryItemHandler", s.getInventoryItemHandler)).Methods(http.MethodGet)
	inv.HandleFunc("/{id}", s.traced("updateInventoryItemHandler", s.updateInventoryItemHandler)).Methods(http.MethodPut)
	inv.HandleFunc("/{id}", s.traced("deleteInventoryItemHandler", s.deleteInventoryItemHandler)).Methods(http.MethodDelete)
	inv.HandleFunc("/{id}/history", s.traced("inventoryHistoryHandler", s.inventoryHistoryHandler)).Methods(http.MethodGet)
	inv.HandleFunc("/{id}/quantity", s.traced("setQuantityHandler", s.setQuantityHandler)).Methods(http.MethodPatch)

	orders := api.PathPrefix("/orders").Subrouter()
	orders.HandleFunc("", s.traced("listOrdersHandler", s.listOrdersHandler)).Methods(http.MethodGet)
	orders.HandleFunc("", s.traced("createOrderHandler", s.idempotent(s.createOrderHandler))).Methods(http.MethodPost)
	orders.HandleFunc("/active", s.traced("activeOrdersHandler", s.activeOrdersHandler)).Methods(http.MethodGet)
	orders.HandleFunc("/stats", s.traced("orderStatsHandler", s.orderStatsHandler)).Methods(http.MethodGet)
	orders.HandleFunc("/top-selling", s.traced("topSellingHandler", s.topSellingHandler)).Methods(http.MethodGet)
	orders.HandleFunc("/user/{userId}", s.traced("ordersByUserHandler", s.ordersByUserHandler)).Methods(http.MethodGet)
	orders.HandleFunc("/status/{status}", s.traced("ordersByStatusHandler", s.ordersByStatusHandler)).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", s.traced("getOrderHandler", s.getOrderHandler)).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", s.traced("updateOrderHandler", s.updateOrderHandler)).Methods(http.MethodPut)
	orders.HandleFunc("/{id}", s.traced("deleteOrderHandler", s.deleteOrderHandler)).Methods(http.MethodDelete)
	orders.HandleFunc("/{id}/status", s.traced("orderStatusHandler", s.orderStatusHandler)).Methods(http.MethodPatch)
	orders.HandleFunc("/{id}/cancel", s.traced("cancelOrderHandler", s.cancelOrderHandler)).Methods(http.MethodPost)
	orders.HandleFunc("/{id}/debit", s.traced("debitOrderHandler", s.idempotent(s.debitOrderHandler))).Methods(http.MethodPost)

	res := api.PathPrefix("/reservations").Subrouter()
	res.HandleFunc("", s.traced("listReservationsHandler", s.listReservationsHandler)).Methods(http.MethodGet)
	res.HandleFunc("", s.traced("createReservationHandler", s.idempotent(s.createReservationHandler))).Methods(http.MethodPost)
	res.HandleFunc("/stats", s.traced("reservationStatsHandler", s.reservationStatsHandler)).Methods(http.MethodGet)
	res.HandleFunc("/user/{userId}", s.traced("reservationsByUserHandler", s.reservationsByUserHandler)).Methods(http.MethodGet)
	res.HandleFunc("/date/{date}", s.traced("reservationsByDateHandler", s.reservationsByDateHandler)).Methods(http.MethodGet)
	res.HandleFunc("/status/{status}", s.traced("reservationsByStatusHandler", s.reservationsByStatusHandler)).Methods(http.MethodGet)
	res.HandleFunc("/{id}", s.traced("getReservationHandler", s.getReservationHandler)).Methods(http.MethodGet)
	res.HandleFunc("/{id}", s.traced("updateReservationHandler", s.updateReservationHandler)).Methods(http.MethodPut)
	res.HandleFunc("/{id}", s.traced("deleteReservationHandler", s.deleteReservationHandler)).Methods(http.MethodDelete)
	res.HandleFunc("/{id}/status", s.traced("reservationStatusHandler", s.reservationStatusHandler)).Methods(http.MethodPatch)
	res.HandleFunc("/{id}/confirm", s.traced("confirmReservationHandler", s.confirmReservationHandler)).Methods(http.MethodPost)
	res.HandleFunc("/{id}/cancel", s.traced("cancelReservationHandler", s.cancelReservationHandler)).Methods(http.MethodPost)

	reports := api.PathPrefix("/reports").Subrouter()
	reports.HandleFunc("/dashboard", s.traced("dashboardHandler", s.dashboardHandler)).Methods(http.MethodGet)
	reports.HandleFunc("/slots/{date}", s.traced("slotOccupancyHandler", s.slotOccupancyHandler)).Methods(http.MethodGet)

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

// loginHandler handles user login and session creation.
// @Summary Login
// @Description Authenticates user and sets session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200
// @Router /login [post]
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil || req.Username == "" {
		fail(w, http.StatusBadRequest, "invalid credentials")
		return
	}
	sid := uuid.NewString()
	if err := s.kv.Set(r.Context(), sessionKey(sid), req.Username, s.sessionTTL); err != nil {
		s.log.Error(r.Context(), "create session", "error", err)
		fail(w, http.StatusInternalServerError, "session error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		Expires:  s.now().Add(s.sessionTTL),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	ok(w, http.StatusOK, map[string]string{"username": req.Username}, "logged in")
}

// logoutHandler drops the session.
// @Summary Logout
// @Success 200
// @Router /logout [post]
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.kv.Del(r.Context(), sessionKey(c.Value)); err != nil {
			s.log.Warn(r.Context(), "delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secure})
	ok(w, http.StatusOK, nil, "logged out")
}

// loginRequest represents login credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("query", "%s must be an integer", name)
	}
	return n, nil
}

// dateRange reads start and end as YYYY-MM-DD days, inclusive. The default
// is the last 30 days.
func (s *Server) dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	today := s.now().UTC().Truncate(24 * time.Hour)
	start, end := today.AddDate(0, 0, -30), today
	var err error
	if v := q.Get("start"); v != "" {
		if start, err = time.Parse(reservation.DateLayout, v); err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("query", "start must be YYYY-MM-DD")
		}
	}
	if v := q.Get("end"); v != "" {
		if end, err = time.Parse(reservation.DateLayout, v); err != nil {
			return time.Time{}, time.Time{}, apperr.Validation("query", "end must be YYYY-MM-DD")
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperr.Validation("query", "end is before start")
	}
	return start, end.Add(24*time.Hour - time.Nanosecond), nil
}
