package store

import (
	"context"
	"log"
	"strings"
)

// Postgres channels raised by the triggers in db/migrations.
const (
	chanReminders    = "reminders"
	chanAppointments = "appointments"
)

// WatchReminders signals whenever uid's reminders change. The channel
// closes when ctx ends.
func (s *Store) WatchReminders(ctx context.Context, uid string) (<-chan struct{}, error) {
	return s.listen(ctx, chanReminders, func(payload string) bool {
		return payload == uid
	})
}

// WatchAppointments signals whenever an appointment with uid as patient
// or doctor changes.
func (s *Store) WatchAppointments(ctx context.Context, uid string) (<-chan struct{}, error) {
	return s.listen(ctx, chanAppointments, func(payload string) bool {
		user, doctor, _ := strings.Cut(payload, ",")
		return user == uid || doctor == uid
	})
}

// listen holds a pooled connection for the life of ctx. Signals are
// coalesced: a slow reader sees one pending signal, not a backlog.
func (s *Store) listen(ctx context.Context, channel string, match func(string) bool) (<-chan struct{}, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("store: listen %s: %v", channel, err)
				}
				return
			}
			if !match(n.Payload) {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, nil
}
