// Package report derives read-only aggregates from orders, reservations and
// stock.
package report

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"restaurantcore/pkg/inventory"
	"restaurantcore/pkg/order"
	"restaurantcore/pkg/otel"
	"restaurantcore/pkg/reservation"
)

// Orders is the order view a report needs.
type Orders interface {
	Stats(ctx context.Context, start, end time.Time) (order.Stats, error)
	TopSelling(ctx context.Context, limit int) ([]order.TopItem, error)
}

// Reservations is the reservation view a report needs.
type Reservations interface {
	Stats(ctx context.Context, start, end string) (reservation.Stats, error)
	ByDate(ctx context.Context, date string) ([]reservation.Reservation, error)
}

// Stock is the inventory view a report needs.
type Stock interface {
	Stats(ctx context.Context) (inventory.Stats, error)
	LowStock(ctx context.Context, threshold int) ([]inventory.Item, error)
}

// Dashboard is the manager overview for a period.
type Dashboard struct {
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	Orders       order.Stats       `json:"orders"`
	TopSelling   []order.TopItem   `json:"top_selling"`
	Reservations reservation.Stats `json:"reservations"`
	Inventory    inventory.Stats   `json:"inventory"`
	LowStock     []inventory.Item  `json:"low_stock"`
}

// Slot is the occupancy of one reservation time.
type Slot struct {
	Time      string `json:"time"`
	Active    int    `json:"active"`
	Guests    int    `json:"guests"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}

// Service builds reports.
type Service struct {
	orders       Orders
	reservations Reservations
	stock        Stock
	topLimit     int
}

// NewService creates a report service.
func NewService(orders Orders, reservations Reservations, stock Stock) *Service {
	return &Service{orders: orders, reservations: reservations, stock: stock, topLimit: 5}
}

// Dashboard gathers every section concurrently. Reservation dates are
// compared as calendar days of start and end in their own location.
func (s *Service) Dashboard(ctx context.Context, start, end time.Time) (Dashboard, error) {
	ctx, span := otel.AddSpan(ctx, "report.dashboard")
	defer span.End()

	d := Dashboard{Start: start, End: end}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Orders, err = s.orders.Stats(ctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		d.TopSelling, err = s.orders.TopSelling(ctx, s.topLimit)
		return err
	})
	g.Go(func() (err error) {
		d.Reservations, err = s.reservations.Stats(ctx,
			start.Format(reservation.DateLayout), end.Format(reservation.DateLayout))
		return err
	})
	g.Go(func() (err error) {
		d.Inventory, err = s.stock.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.LowStock, err = s.stock.LowStock(ctx, inventory.DefaultThreshold)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// SlotOccupancy lists the booked times of date with their free seats.
func (s *Service) SlotOccupancy(ctx context.Context, date string) ([]Slot, error) {
	rs, err := s.reservations.ByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	byTime := map[string]*Slot{}
	for _, r := range rs {
		sl, ok := byTime[r.Time]
		if !ok {
			sl = &Slot{Time: r.Time, Capacity: reservation.SlotCapacity}
			byTime[r.Time] = sl
		}
		sl.Active++
		sl.Guests += r.Guests
	}
	out := make([]Slot, 0, len(byTime))
	for _, sl := range byTime {
		sl.Available = max(sl.Capacity-sl.Active, 0)
		out = append(out, *sl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
