// Package reminder fires best-effort side effects after a repair order's
// primary write has committed. Today that is one effect: a payment-due
// calendar reminder when an order reaches a terminal status with a cost on
// NET payment terms.
//
// Every dispatch runs as a detached goroutine. Its error is observed only for
// logging; nothing about a reminder failure may reach the caller of the
// status update, because by the time the reminder runs the row write has
// already committed.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/skylinemro/ro-dashboard/internal/domain"
	"github.com/skylinemro/ro-dashboard/internal/graph"
)

// EventCreator is the slice of the Graph client the dispatcher needs.
type EventCreator interface {
	CreateCalendarEvent(ctx context.Context, ev graph.Event) error
}

// Dispatcher schedules fire-and-forget reminders.
type Dispatcher struct {
	events  EventCreator
	log     zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup

	// now is replaceable in tests.
	now func() time.Time
}

// NewDispatcher builds a Dispatcher. Each dispatched call gets its own
// detached context bounded by timeout (default 30s) so a hung calendar call
// cannot pile up goroutines forever.
func NewDispatcher(events EventCreator, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		events:  events,
		log:     log,
		timeout: 30 * time.Second,
		now:     time.Now,
	}
}

// PaymentDue schedules a payment-due calendar reminder for a repair order
// that just reached a terminal status, if all trigger conditions hold:
// terminal status, a cost present, and "NET n" payment terms. Orders that
// miss any condition are skipped silently.
//
// The reminder runs detached from the caller's context: the status update
// that triggered it has already committed and must not wait on, or fail
// because of, the calendar write.
func (d *Dispatcher) PaymentDue(ro domain.RepairOrder, cost *float64) {
	if !domain.IsTerminalStatus(ro.Status) || cost == nil {
		return
	}
	days, ok := domain.ParseNetTerms(ro.PaymentTerms)
	if !ok {
		return
	}

	due := d.now().AddDate(0, 0, days)
	ev := graph.Event{
		Subject: fmt.Sprintf("Payment due: RO %s (%s)", ro.RONumber, ro.ShopName),
		Body: fmt.Sprintf("Repair order %s at %s: $%.2f due on %s (%s).",
			ro.RONumber, ro.ShopName, *cost, due.Format("Jan 2, 2006"), ro.PaymentTerms),
		Start: due,
		End:   due.Add(30 * time.Minute),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.events.CreateCalendarEvent(ctx, ev); err != nil {
			d.log.Warn().
				Err(err).
				Str("ro_number", ro.RONumber).
				Msg("reminder: payment-due calendar event failed, dropping")
		}
	}()
}

// Wait blocks until all in-flight reminders have finished. Used on shutdown
// and in tests; the request path never calls it.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
