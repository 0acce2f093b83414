package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"vitalrite-api/internal/model"
)

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, role) VALUES ($1,$2,$3,$4)`,
		a.ID, a.Email, a.PasswordHash, a.Role,
	)
	return mapErr(err)
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.account(ctx, `WHERE email = $1`, email)
}

func (s *Store) AccountByID(ctx context.Context, id string) (*model.Account, error) {
	return s.account(ctx, `WHERE id = $1`, id)
}

func (s *Store) account(ctx context.Context, where string, arg string) (*model.Account, error) {
	a := &model.Account{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, role, created_at, updated_at
		 FROM accounts `+where, arg,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// User loads the patient document at Users/{uid}.
func (s *Store) User(ctx context.Context, uid string) (*model.User, error) {
	return one[model.User](s.pool.QueryRow(ctx, `SELECT doc FROM users WHERE uid = $1`, uid))
}

func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	if u.ActivePrescriptions == nil {
		u.ActivePrescriptions = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (uid, doc) VALUES ($1,$2)
		 ON CONFLICT (uid) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		u.UID, u,
	)
	return err
}

func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT uid FROM users ORDER BY uid`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) SetLastReset(ctx context.Context, uid, date string) error {
	return s.updateUser(ctx, uid, func(u *model.User) {
		u.LastReminderResetDate = date
	})
}

func (s *Store) AddActivePrescription(ctx context.Context, uid, prescriptionID string) error {
	return s.updateUser(ctx, uid, func(u *model.User) {
		for _, id := range u.ActivePrescriptions {
			if id == prescriptionID {
				return
			}
		}
		u.ActivePrescriptions = append(u.ActivePrescriptions, prescriptionID)
	})
}

func (s *Store) RemoveActivePrescriptions(ctx context.Context, uid string, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return s.updateUser(ctx, uid, func(u *model.User) {
		kept := u.ActivePrescriptions[:0]
		for _, id := range u.ActivePrescriptions {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		u.ActivePrescriptions = kept
	})
}

// read-modify-write under a row lock
func (s *Store) updateUser(ctx context.Context, uid string, fn func(u *model.User)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	u, err := one[model.User](tx.QueryRow(ctx, `SELECT doc FROM users WHERE uid = $1 FOR UPDATE`, uid))
	if err != nil {
		return err
	}
	fn(u)
	if u.ActivePrescriptions == nil {
		u.ActivePrescriptions = []string{}
	}

	_, err = tx.Exec(ctx, `UPDATE users SET doc = $2, updated_at = NOW() WHERE uid = $1`, uid, u)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
