package store

import (
	"context"

	"vitalrite-api/internal/model"
)

func (s *Store) Prescription(ctx context.Context, id string) (*model.Prescription, error) {
	return one[model.Prescription](s.pool.QueryRow(ctx, `SELECT doc FROM prescriptions WHERE id = $1`, id))
}

func (s *Store) SavePrescription(ctx context.Context, p *model.Prescription) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO prescriptions (id, user_id, doc) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		p.ID, p.UserID, p,
	)
	return err
}

func (s *Store) PrescriptionsForUser(ctx context.Context, uid string) ([]model.Prescription, error) {
	return many[model.Prescription](s.pool.Query(ctx,
		`SELECT doc FROM prescriptions WHERE user_id = $1 ORDER BY created_at, id`, uid,
	))
}
