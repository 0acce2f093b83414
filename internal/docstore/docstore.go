// Package docstore is the Cloud Firestore backend. It keeps the
// collection layout the mobile clients already read and write:
//
//	Users/{uid}
//	Users/{uid}/Reminders/{id}
//	Doctors/{uid}
//	DoctorAvailability/{doctorId}
//	Appointments/{id}
//	Prescriptions/{id}
//
// Accounts and refresh tokens are not stored here.
package docstore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vitalrite-api/internal/model"
	"vitalrite-api/internal/store"
)

const (
	colUsers         = "Users"
	colReminders     = "Reminders"
	colDoctors       = "Doctors"
	colAvailability  = "DoctorAvailability"
	colAppointments  = "Appointments"
	colPrescriptions = "Prescriptions"
)

type Store struct {
	fs *firestore.Client
}

func New(fs *firestore.Client) *Store {
	return &Store{fs: fs}
}

func mapErr(err error) error {
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	return err
}

func get[T any](ctx context.Context, ref *firestore.DocumentRef) (*T, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var v T
	if err := snap.DataTo(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

func all[T any](ctx context.Context, q firestore.Query) ([]T, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(snaps))
	for _, s := range snaps {
		var v T
		if err := s.DataTo(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) user(uid string) *firestore.DocumentRef {
	return s.fs.Collection(colUsers).Doc(uid)
}

func (s *Store) reminders(uid string) *firestore.CollectionRef {
	return s.user(uid).Collection(colReminders)
}

// ---- users

func (s *Store) User(ctx context.Context, uid string) (*model.User, error) {
	return get[model.User](ctx, s.user(uid))
}

func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	if u.ActivePrescriptions == nil {
		u.ActivePrescriptions = []string{}
	}
	_, err := s.user(u.UID).Set(ctx, u)
	return err
}

func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	it := s.fs.Collection(colUsers).DocumentRefs(ctx)
	var ids []string
	for {
		ref, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, ref.ID)
	}
}

func (s *Store) SetLastReset(ctx context.Context, uid, date string) error {
	_, err := s.user(uid).Update(ctx, []firestore.Update{
		{Path: "lastReminderResetDate", Value: date},
	})
	return mapErr(err)
}

func (s *Store) AddActivePrescription(ctx context.Context, uid, prescriptionID string) error {
	_, err := s.user(uid).Update(ctx, []firestore.Update{
		{Path: "activePrescriptions", Value: firestore.ArrayUnion(prescriptionID)},
	})
	return mapErr(err)
}

func (s *Store) RemoveActivePrescriptions(ctx context.Context, uid string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	_, err := s.user(uid).Update(ctx, []firestore.Update{
		{Path: "activePrescriptions", Value: firestore.ArrayRemove(vals...)},
	})
	return mapErr(err)
}

// ---- doctors

func (s *Store) Doctor(ctx context.Context, uid string) (*model.Doctor, error) {
	return get[model.Doctor](ctx, s.fs.Collection(colDoctors).Doc(uid))
}

func (s *Store) SaveDoctor(ctx context.Context, d *model.Doctor) error {
	d.NameLowercase = strings.ToLower(d.Name)
	_, err := s.fs.Collection(colDoctors).Doc(d.UID).Set(ctx, d)
	return err
}

// SearchDoctors is a range scan over nameLowercase.
func (s *Store) SearchDoctors(ctx context.Context, prefix string) ([]model.Doctor, error) {
	p := strings.ToLower(prefix)
	q := s.fs.Collection(colDoctors).
		Where("nameLowercase", ">=", p).
		Where("nameLowercase", "<=", p+"\uf8ff").
		OrderBy("nameLowercase", firestore.Asc).
		Limit(50)
	return all[model.Doctor](ctx, q)
}

func (s *Store) Availability(ctx context.Context, doctorID string) (*model.DoctorAvailability, error) {
	return get[model.DoctorAvailability](ctx, s.fs.Collection(colAvailability).Doc(doctorID))
}

func (s *Store) SaveAvailability(ctx context.Context, a *model.DoctorAvailability) error {
	if a.Holidays == nil {
		a.Holidays = []string{}
	}
	_, err := s.fs.Collection(colAvailability).Doc(a.DoctorID).Set(ctx, a)
	return err
}
