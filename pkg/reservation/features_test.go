package reservation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/reservation"
	"restaurantcore/pkg/store/memory"
)

type reservationTestContext struct {
	now       time.Time
	scheduler *reservation.Scheduler
	last      reservation.Reservation
	err       error
}

func (c *reservationTestContext) reset() {
	c.now = time.Now()
	c.scheduler = reservation.NewScheduler(memory.New(), logger.Nop(),
		reservation.WithClock(func() time.Time { return c.now }))
	c.last = reservation.Reservation{}
	c.err = nil
}

func (c *reservationTestContext) todayIsAt(date, hhmm string) error {
	t, err := time.Parse("2006-01-02 15:04", date+" "+hhmm)
	if err != nil {
		return err
	}
	c.now = t
	return nil
}

func (c *reservationTestContext) theSlotAlreadyHoldsReservations(date, hhmm string, n int) error {
	for i := 0; i < n; i++ {
		_, err := c.scheduler.Create(context.Background(), reservation.NewReservation{
			UserID: fmt.Sprintf("guest-%d", i), Date: date, Time: hhmm, Guests: 2,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *reservationTestContext) userBooksGuestsOnAt(user string, guests int, date, hhmm string) error {
	c.last, c.err = c.scheduler.Create(context.Background(), reservation.NewReservation{
		UserID: user, Date: date, Time: hhmm, Guests: guests,
	})
	return nil
}

func (c *reservationTestContext) theReservationIsConfirmed() error {
	c.last, c.err = c.scheduler.Confirm(context.Background(), c.last.ID)
	return c.err
}

func (c *reservationTestContext) userCancelsTheReservation(user string) error {
	id := c.last.ID
	r, err := c.scheduler.Cancel(context.Background(), id, user)
	c.err = err
	if err == nil {
		c.last = r
	}
	return nil
}

func (c *reservationTestContext) theBookingSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected booking to succeed but got: %v", c.err)
	}
	return nil
}

func (c *reservationTestContext) theBookingFailsValidation() error {
	if !apperr.Is(c.err, apperr.KindValidation) {
		return fmt.Errorf("expected validation error but got: %v", c.err)
	}
	return nil
}

func (c *reservationTestContext) theBookingFailsBecauseTheSlotIsFull() error {
	if !errors.Is(c.err, reservation.ErrSlotFull) {
		return fmt.Errorf("expected slot full but got: %v", c.err)
	}
	return nil
}

func (c *reservationTestContext) theCancellationIsRejectedAsAConflict() error {
	if !apperr.Is(c.err, apperr.KindConflict) {
		return fmt.Errorf("expected conflict but got: %v", c.err)
	}
	return nil
}

func (c *reservationTestContext) theReservationStatusIs(status string) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %v", c.err)
	}
	if string(c.last.Status) != status {
		return fmt.Errorf("expected status %q but got %q", status, c.last.Status)
	}
	return nil
}

func (c *reservationTestContext) theSlotHoldsActiveReservations(date, hhmm string, n int) error {
	got, err := c.scheduler.Occupancy(context.Background(), date, hhmm)
	if err != nil {
		return err
	}
	if got != n {
		return fmt.Errorf("expected %d active reservations but got %d", n, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &reservationTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^today is "([^"]*)" at "([^"]*)"$`, tc.todayIsAt)
	ctx.Step(`^the slot "([^"]*)" at "([^"]*)" already holds (\d+) reservations$`, tc.theSlotAlreadyHoldsReservations)

	// When steps
	ctx.Step(`^user "([^"]*)" books (\d+) guests on "([^"]*)" at "([^"]*)"$`, tc.userBooksGuestsOnAt)
	ctx.Step(`^the reservation is confirmed$`, tc.theReservationIsConfirmed)
	ctx.Step(`^user "([^"]*)" cancels the reservation$`, tc.userCancelsTheReservation)

	// Then steps
	ctx.Step(`^the booking succeeds$`, tc.theBookingSucceeds)
	ctx.Step(`^the booking fails validation$`, tc.theBookingFailsValidation)
	ctx.Step(`^the booking fails because the slot is full$`, tc.theBookingFailsBecauseTheSlotIsFull)
	ctx.Step(`^the cancellation is rejected as a conflict$`, tc.theCancellationIsRejectedAsAConflict)
	ctx.Step(`^the reservation status is "([^"]*)"$`, tc.theReservationStatusIs)
	ctx.Step(`^the slot "([^"]*)" at "([^"]*)" holds (\d+) active reservations$`, tc.theSlotHoldsActiveReservations)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/reservation.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
