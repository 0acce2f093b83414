package alarm

import (
	"context"
	"fmt"
	"log"

	"vitalrite-api/internal/clock"
	"vitalrite-api/internal/notify"
)

const defaultBatch = 100

// Dispatcher drains due alarms from a Queue into a Notifier.
type Dispatcher struct {
	q     Queue
	n     notify.Notifier
	clk   clock.Clock
	batch int
}

func NewDispatcher(q Queue, n notify.Notifier, clk clock.Clock) *Dispatcher {
	return &Dispatcher{q: q, n: n, clk: clk, batch: defaultBatch}
}

// Tick fires everything due now and returns how many alarms it handed
// to the notifier. A failed delivery is logged and not retried.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	fired := 0
	for {
		due, err := d.q.Due(ctx, d.clk.Now(), d.batch)
		if err != nil {
			return fired, err
		}
		for _, a := range due {
			if err := d.n.Notify(ctx, Message(a)); err != nil {
				log.Printf("alarm: notify %s: %v", a.ID, err)
				continue
			}
			fired++
		}
		if len(due) < d.batch {
			return fired, nil
		}
	}
}

// Message renders a as a notification.
func Message(a Alarm) notify.Message {
	switch a.Kind {
	case KindAppointment:
		return notify.Message{
			Channel: notify.ChannelAppointment,
			To:      a.Email,
			Title:   "Upcoming appointment",
			Body:    fmt.Sprintf("You have an appointment with Dr. %s on %s at %s", a.DoctorName, a.Date, a.Time),
			Data: map[string]string{
				"appointmentId": a.AppointmentID,
			},
		}
	default:
		return notify.Message{
			Channel: notify.ChannelMedicine,
			To:      a.Email,
			Title:   "Medicine Reminder",
			Body:    fmt.Sprintf("Time to take %s (%s)", a.MedicineName, a.Label),
			Data: map[string]string{
				"reminderId":   a.ReminderID,
				"medicineName": a.MedicineName,
				"label":        a.Label,
				"index":        fmt.Sprint(a.Index),
			},
		}
	}
}
