package reservation

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/events"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/otel"
	"restaurantcore/pkg/store"
)

// Scheduler creates reservations and moves them through their lifecycle.
type Scheduler struct {
	gw  store.Gateway
	pub events.Publisher
	log *logger.Logger
	now func() time.Time
	loc *time.Location
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// WithLocation sets the restaurant's time zone used for "today" and slot
// starts. Defaults to UTC.
func WithLocation(loc *time.Location) Option { return func(s *Scheduler) { s.loc = loc } }

// WithPublisher sets where reservation events go.
func WithPublisher(p events.Publisher) Option { return func(s *Scheduler) { s.pub = p } }

// NewScheduler creates a scheduler over gw.
func NewScheduler(gw store.Gateway, log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{gw: gw, pub: events.Nop{}, log: log, now: time.Now, loc: time.UTC}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scheduler) today() string {
	return s.now().In(s.loc).Format(DateLayout)
}

func slotFull(op, date, tm string) error {
	return &apperr.Error{Kind: apperr.KindConflict, Op: op, Msg: "no availability at " + date + " " + tm, Err: ErrSlotFull}
}

func slotQuery(date, tm string) store.Query {
	return store.Where(
		store.Eq("date", date),
		store.Eq("time", tm),
		store.In("status", ActiveStatuses...),
	)
}

// normalizeTime accepts HH:MM and HH:MM:SS and returns HH:MM.
func normalizeTime(tm string) (string, bool) {
	for _, layout := range []string{TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, tm); err == nil {
			return t.Format(TimeLayout), true
		}
	}
	return "", false
}

// Create books a pending reservation. A full slot yields a Conflict wrapping
// ErrSlotFull. After the insert the slot is re-ranked by creation order, and
// a row that landed past capacity is removed again.
func (s *Scheduler) Create(ctx context.Context, in NewReservation) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "reservation.create",
		attribute.String("date", in.Date), attribute.String("time", in.Time))
	defer span.End()

	const op = "reservation.create"
	in.UserID = strings.TrimSpace(in.UserID)
	switch {
	case in.UserID == "":
		return Reservation{}, apperr.Validation(op, "user_id is required")
	case in.Date == "":
		return Reservation{}, apperr.Validation(op, "date is required")
	case in.Time == "":
		return Reservation{}, apperr.Validation(op, "time is required")
	}
	if _, err := time.ParseInLocation(DateLayout, in.Date, s.loc); err != nil {
		return Reservation{}, apperr.Validation(op, "date must be YYYY-MM-DD")
	}
	tm, ok := normalizeTime(in.Time)
	if !ok {
		return Reservation{}, apperr.Validation(op, "time must be HH:MM")
	}
	if in.Date < s.today() {
		return Reservation{}, apperr.Validation(op, "date %s is in the past", in.Date)
	}
	if in.Guests < MinGuests || in.Guests > MaxGuests {
		return Reservation{}, apperr.Validation(op, "guests must be between %d and %d", MinGuests, MaxGuests)
	}

	n, err := s.Occupancy(ctx, in.Date, tm)
	if err != nil {
		return Reservation{}, err
	}
	if n >= SlotCapacity {
		return Reservation{}, slotFull(op, in.Date, tm)
	}

	r, err := store.Insert(ctx, s.gw, Table, Reservation{
		UserID: in.UserID,
		Date:   in.Date,
		Time:   tm,
		Guests: in.Guests,
		Status: Pending,
		Notes:  in.Notes,
	})
	if apperr.Is(err, apperr.KindConflict) {
		return Reservation{}, slotFull(op, in.Date, tm)
	}
	if err != nil {
		return Reservation{}, err
	}

	if err := s.recheck(ctx, r); err != nil {
		return Reservation{}, err
	}
	s.log.Info(ctx, "reservation created", "reservation_id", r.ID, "date", r.Date, "time", r.Time, "guests", r.Guests)
	events.Emit(ctx, s.pub, s.log, events.New(events.ReservationCreated, r.ID, r))
	return r, nil
}

// recheck ranks the active rows of r's slot by creation and removes r when it
// ranks at or past capacity.
func (s *Scheduler) recheck(ctx context.Context, r Reservation) error {
	const op = "reservation.create"
	rows, err := s.gw.Find(ctx, Table, slotQuery(r.Date, r.Time).Sort(store.Asc("created_at"), store.Asc("id")))
	if err != nil {
		return apperr.Step(op, "recount slot for "+r.ID, err)
	}
	rank := -1
	for i, row := range rows {
		if row.ID == r.ID {
			rank = i
			break
		}
	}
	if rank < SlotCapacity {
		return nil
	}
	s.log.Warn(ctx, "slot overbooked by concurrent create, rolling back", "reservation_id", r.ID, "date", r.Date, "time", r.Time, "rank", rank)
	if _, err := s.gw.HardDelete(ctx, Table, store.Where(store.Eq("id", r.ID))); err != nil {
		return apperr.Step(op, "remove overbooked reservation "+r.ID, err)
	}
	return slotFull(op, r.Date, r.Time)
}

// Get returns a reservation by id.
func (s *Scheduler) Get(ctx context.Context, id string) (Reservation, error) {
	r, err := store.Get[Reservation](ctx, s.gw, Table, id)
	if err != nil {
		return Reservation{}, err
	}
	if r.Deleted() {
		return Reservation{}, apperr.NotFound("reservation.get", "reservation %s not found", id)
	}
	return r, nil
}

// UpdateStatus sets any valid status without consulting the transition
// graph. Moving a reservation back into an active status still requires room
// in its slot.
func (s *Scheduler) UpdateStatus(ctx context.Context, id string, status Status, notes string) (Reservation, error) {
	return s.updateStatus(ctx, "reservation.update_status", id, status, notes, nil)
}

// updateStatus writes status under a version precondition. guard sees the
// row the write is conditioned on.
func (s *Scheduler) updateStatus(ctx context.Context, op, id string, status Status, notes string, guard func(Reservation) error) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, op,
		attribute.String("reservation_id", id), attribute.String("status", string(status)))
	defer span.End()

	if !status.Valid() {
		return Reservation{}, apperr.Validation(op, "invalid status %q", status)
	}
	patch := store.Patch{"status": status}
	if notes != "" {
		patch["notes"] = notes
	}
	var before, after Reservation
	err := store.WithRetry(ctx, op, store.DefaultAttempts, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(cur); err != nil {
				return err
			}
		}
		if status.Active() && !cur.Status.Active() {
			if err := s.ensureRoom(ctx, op, cur.Date, cur.Time); err != nil {
				return err
			}
		}
		upd, err := store.Update[Reservation](ctx, s.gw, Table, id, patch, cur.Version)
		if err != nil {
			return err
		}
		before, after = cur, upd
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	if status.Active() && !before.Status.Active() {
		if err := s.recount(ctx, op, before, after, patch); err != nil {
			return Reservation{}, err
		}
	}
	s.log.Info(ctx, "reservation status changed", "reservation_id", id, "from", before.Status, "to", after.Status)
	events.Emit(ctx, s.pub, s.log, events.New(events.ReservationStatusChanged, id, map[string]any{
		"from": before.Status, "to": after.Status,
	}))
	return after, nil
}

// recount re-counts the slot after upd entered it. When concurrent writers
// pushed the slot past capacity, the fields in patch are restored to their
// values in before and SlotFull is returned. Every writer that sees the
// overflow backs out, so the slot may end up under-booked but never over.
func (s *Scheduler) recount(ctx context.Context, op string, before, upd Reservation, patch store.Patch) error {
	n, err := s.Occupancy(ctx, upd.Date, upd.Time)
	if err != nil {
		return apperr.Step(op, "recount slot for "+upd.ID, err)
	}
	if n <= SlotCapacity {
		return nil
	}
	s.log.Warn(ctx, "slot overbooked by concurrent write, reverting", "reservation_id", upd.ID, "date", upd.Date, "time", upd.Time, "occupancy", n)
	revert := store.Patch{}
	for k := range patch {
		switch k {
		case "date":
			revert[k] = before.Date
		case "time":
			revert[k] = before.Time
		case "guests":
			revert[k] = before.Guests
		case "notes":
			revert[k] = before.Notes
		case "status":
			revert[k] = before.Status
		}
	}
	if _, err := s.gw.Update(ctx, Table, upd.ID, revert, upd.Version); err != nil {
		return apperr.Step(op, "revert overbooked reservation "+upd.ID, err)
	}
	return slotFull(op, upd.Date, upd.Time)
}

func (s *Scheduler) ensureRoom(ctx context.Context, op, date, tm string) error {
	n, err := s.Occupancy(ctx, date, tm)
	if err != nil {
		return err
	}
	if n >= SlotCapacity {
		return slotFull(op, date, tm)
	}
	return nil
}

// Confirm forces the reservation to confirmed.
func (s *Scheduler) Confirm(ctx context.Context, id string) (Reservation, error) {
	return s.UpdateStatus(ctx, id, Confirmed, "")
}

// Cancel cancels a reservation that has not started yet and is not already
// closed. A non-empty userID must own it.
func (s *Scheduler) Cancel(ctx context.Context, id, userID string) (Reservation, error) {
	const op = "reservation.cancel"
	return s.updateStatus(ctx, op, id, Cancelled, "", func(r Reservation) error {
		if userID != "" && r.UserID != userID {
			return apperr.Conflict(op, "reservation %s belongs to another user", id)
		}
		if r.Status == Cancelled {
			return apperr.Conflict(op, "reservation %s is already cancelled", id)
		}
		if r.Status.Terminal() {
			return apperr.Conflict(op, "reservation %s is %s", id, r.Status)
		}
		start, err := r.Start(s.loc)
		if err != nil {
			return apperr.Store(op, err)
		}
		if start.Before(s.now()) {
			return apperr.Conflict(op, "reservation %s has already passed", id)
		}
		return nil
	})
}

// Update edits the date, time, party size or notes. A new slot for an active
// reservation must have room, and closed reservations only take notes.
func (s *Scheduler) Update(ctx context.Context, id string, ch Changes) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "reservation.update", attribute.String("reservation_id", id))
	defer span.End()

	const op = "reservation.update"
	if ch.Date != nil {
		if _, err := time.ParseInLocation(DateLayout, *ch.Date, s.loc); err != nil {
			return Reservation{}, apperr.Validation(op, "date must be YYYY-MM-DD")
		}
		if *ch.Date < s.today() {
			return Reservation{}, apperr.Validation(op, "date %s is in the past", *ch.Date)
		}
	}
	var tm string
	if ch.Time != nil {
		norm, ok := normalizeTime(*ch.Time)
		if !ok {
			return Reservation{}, apperr.Validation(op, "time must be HH:MM")
		}
		tm = norm
	}
	if ch.Guests != nil && (*ch.Guests < MinGuests || *ch.Guests > MaxGuests) {
		return Reservation{}, apperr.Validation(op, "guests must be between %d and %d", MinGuests, MaxGuests)
	}

	var (
		before, after Reservation
		patch         store.Patch
		entered       bool
	)
	err := store.WithRetry(ctx, op, store.DefaultAttempts, func(ctx context.Context) error {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		patch = store.Patch{}
		date, slotTime := cur.Date, cur.Time
		if ch.Date != nil && *ch.Date != cur.Date {
			date = *ch.Date
			patch["date"] = date
		}
		if ch.Time != nil && tm != cur.Time {
			slotTime = tm
			patch["time"] = slotTime
		}
		if ch.Guests != nil && *ch.Guests != cur.Guests {
			patch["guests"] = *ch.Guests
		}
		if len(patch) > 0 && cur.Status.Terminal() {
			return apperr.Conflict(op, "reservation %s is %s", id, cur.Status)
		}
		moved := date != cur.Date || slotTime != cur.Time
		if moved && cur.Status.Active() {
			if err := s.ensureRoom(ctx, op, date, slotTime); err != nil {
				return err
			}
		}
		if ch.Notes != nil {
			patch["notes"] = *ch.Notes
		}
		if len(patch) == 0 {
			before, after, entered = cur, cur, false
			return nil
		}
		upd, err := store.Update[Reservation](ctx, s.gw, Table, id, patch, cur.Version)
		if apperr.Is(err, apperr.KindConflict) {
			return slotFull(op, date, slotTime)
		}
		if err != nil {
			return err
		}
		before, after, entered = cur, upd, moved && cur.Status.Active()
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}
	if entered {
		if err := s.recount(ctx, op, before, after, patch); err != nil {
			return Reservation{}, err
		}
	}
	s.log.Info(ctx, "reservation updated", "reservation_id", id, "date", after.Date, "time", after.Time, "guests", after.Guests)
	return after, nil
}

// Delete soft-deletes a reservation, which frees its slot.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	_, err := s.gw.SoftDelete(ctx, Table, id)
	return err
}

// List pages through every live reservation, latest slot first.
func (s *Scheduler) List(ctx context.Context, limit, offset int) ([]Reservation, error) {
	return store.Find[Reservation](ctx, s.gw, Table,
		store.Query{}.Sort(store.Desc("date"), store.Desc("time"), store.Asc("id")).Page(limit, offset))
}

// Occupancy counts active reservations in a slot.
func (s *Scheduler) Occupancy(ctx context.Context, date, tm string) (int, error) {
	if norm, ok := normalizeTime(tm); ok {
		tm = norm
	}
	return s.gw.Count(ctx, Table, slotQuery(date, tm))
}

// ByDate lists the active reservations of a day by time.
func (s *Scheduler) ByDate(ctx context.Context, date string) ([]Reservation, error) {
	return store.Find[Reservation](ctx, s.gw, Table, store.Where(
		store.Eq("date", date),
		store.In("status", ActiveStatuses...),
	).Sort(store.Asc("time")))
}

// ByStatus lists reservations with status, soonest first.
func (s *Scheduler) ByStatus(ctx context.Context, status Status) ([]Reservation, error) {
	if !status.Valid() {
		return nil, apperr.Validation("reservation.by_status", "invalid status %q", status)
	}
	return store.Find[Reservation](ctx, s.gw, Table,
		store.Where(store.Eq("status", status)).Sort(store.Asc("date"), store.Asc("time")))
}

// ByUser lists a user's reservations. Without history only upcoming active
// ones are returned, soonest first; with history all of them, latest first.
func (s *Scheduler) ByUser(ctx context.Context, userID string, includeHistory bool) ([]Reservation, error) {
	if includeHistory {
		return store.Find[Reservation](ctx, s.gw, Table,
			store.Where(store.Eq("user_id", userID)).Sort(store.Desc("date"), store.Desc("time")))
	}
	return store.Find[Reservation](ctx, s.gw, Table, store.Where(
		store.Eq("user_id", userID),
		store.In("status", ActiveStatuses...),
		store.Gte("date", s.today()),
	).Sort(store.Asc("date"), store.Asc("time")))
}

// InRange lists every reservation dated within [start, end].
func (s *Scheduler) InRange(ctx context.Context, start, end string) ([]Reservation, error) {
	return store.Find[Reservation](ctx, s.gw, Table, store.Where(
		store.Gte("date", start),
		store.Lte("date", end),
	).Sort(store.Asc("date"), store.Asc("time")))
}

// Stats counts reservations per status dated within [start, end].
func (s *Scheduler) Stats(ctx context.Context, start, end string) (Stats, error) {
	rs, err := s.InRange(ctx, start, end)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(rs), nil
}
