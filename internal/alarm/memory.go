package alarm

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemQueue is an in-process Queue. Alarms are lost on restart, which the
// startup restore covers.
type MemQueue struct {
	mu     sync.Mutex
	alarms map[string]Alarm
}

func NewMemQueue() *MemQueue {
	return &MemQueue{alarms: make(map[string]Alarm)}
}

func (q *MemQueue) Schedule(_ context.Context, a Alarm) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.alarms[a.ID] = a
	return nil
}

func (q *MemQueue) Cancel(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.alarms, id)
	return nil
}

func (q *MemQueue) Due(_ context.Context, now time.Time, limit int) ([]Alarm, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []Alarm
	for _, a := range q.alarms {
		if !a.FireAt.After(now) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for _, a := range due {
		delete(q.alarms, a.ID)
	}
	return due, nil
}

// Get returns the pending alarm with id.
func (q *MemQueue) Get(id string) (Alarm, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.alarms[id]
	return a, ok
}

func (q *MemQueue) Lookup(_ context.Context, id string) (Alarm, bool, error) {
	a, ok := q.Get(id)
	return a, ok, nil
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.alarms)
}
