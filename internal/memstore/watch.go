package memstore

import (
	"context"
	"sync"
)

type hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]bool
}

func reminderTopic(uid string) string    { return "reminders/" + uid }
func appointmentTopic(uid string) string { return "appointments/" + uid }

func (h *hub) subscribe(ctx context.Context, topic string) <-chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan struct{}]bool)
	}
	h.subs[topic][ch] = true
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[topic], ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func (h *hub) publish(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) WatchReminders(ctx context.Context, uid string) (<-chan struct{}, error) {
	return s.hub.subscribe(ctx, reminderTopic(uid)), nil
}

func (s *Store) WatchAppointments(ctx context.Context, uid string) (<-chan struct{}, error) {
	return s.hub.subscribe(ctx, appointmentTopic(uid)), nil
}
