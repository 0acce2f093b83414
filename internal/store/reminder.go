package store

import (
	"context"

	"vitalrite-api/internal/model"
)

func (s *Store) Reminders(ctx context.Context, uid string) ([]model.Reminder, error) {
	return many[model.Reminder](s.pool.Query(ctx,
		`SELECT doc FROM reminders WHERE user_id = $1 ORDER BY created_at, id`, uid,
	))
}

func (s *Store) Reminder(ctx context.Context, uid, id string) (*model.Reminder, error) {
	return one[model.Reminder](s.pool.QueryRow(ctx,
		`SELECT doc FROM reminders WHERE user_id = $1 AND id = $2`, uid, id,
	))
}

func (s *Store) SaveReminder(ctx context.Context, uid string, r *model.Reminder) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reminders (user_id, id, date, doc) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (user_id, id) DO UPDATE SET date = EXCLUDED.date, doc = EXCLUDED.doc`,
		uid, r.ID, r.Date, r,
	)
	return err
}

func (s *Store) DeleteReminder(ctx context.Context, uid, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reminders WHERE user_id = $1 AND id = $2`, uid, id)
	return err
}
