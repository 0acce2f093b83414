package store

import (
	"context"
	"strings"

	"vitalrite-api/internal/model"
)

func (s *Store) Doctor(ctx context.Context, uid string) (*model.Doctor, error) {
	return one[model.Doctor](s.pool.QueryRow(ctx, `SELECT doc FROM doctors WHERE uid = $1`, uid))
}

func (s *Store) SaveDoctor(ctx context.Context, d *model.Doctor) error {
	d.NameLowercase = strings.ToLower(d.Name)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO doctors (uid, name_lowercase, doc) VALUES ($1,$2,$3)
		 ON CONFLICT (uid) DO UPDATE SET name_lowercase = EXCLUDED.name_lowercase, doc = EXCLUDED.doc`,
		d.UID, d.NameLowercase, d,
	)
	return err
}

// SearchDoctors matches a case-insensitive name prefix.
func (s *Store) SearchDoctors(ctx context.Context, prefix string) ([]model.Doctor, error) {
	p := strings.ToLower(prefix)
	// escape LIKE metacharacters
	p = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(p)
	return many[model.Doctor](s.pool.Query(ctx,
		`SELECT doc FROM doctors WHERE name_lowercase LIKE $1 ORDER BY name_lowercase LIMIT 50`,
		p+"%",
	))
}

func (s *Store) Availability(ctx context.Context, doctorID string) (*model.DoctorAvailability, error) {
	return one[model.DoctorAvailability](s.pool.QueryRow(ctx,
		`SELECT doc FROM doctor_availability WHERE doctor_id = $1`, doctorID,
	))
}

func (s *Store) SaveAvailability(ctx context.Context, a *model.DoctorAvailability) error {
	if a.Holidays == nil {
		a.Holidays = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO doctor_availability (doctor_id, doc) VALUES ($1,$2)
		 ON CONFLICT (doctor_id) DO UPDATE SET doc = EXCLUDED.doc`,
		a.DoctorID, a,
	)
	return err
}
