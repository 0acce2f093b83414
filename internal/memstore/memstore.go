// Package memstore is an in-process backend with the same method set as
// the Postgres and Firestore stores. It backs STORE_BACKEND=memory and
// the service tests. Records are copied on the way in and out.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vitalrite-api/internal/model"
	"vitalrite-api/internal/store"
)

type Store struct {
	mu sync.RWMutex

	accounts      map[string]model.Account
	refresh       map[string]model.RefreshToken
	users         map[string]model.User
	doctors       map[string]model.Doctor
	availability  map[string]model.DoctorAvailability
	reminders     map[string]map[string]model.Reminder
	reminderOrder map[string][]string
	appointments  map[string]model.Appointment
	prescriptions map[string]model.Prescription
	rxOrder       []string

	hub    hub
	writes int
}

func New() *Store {
	return &Store{
		accounts:      make(map[string]model.Account),
		refresh:       make(map[string]model.RefreshToken),
		users:         make(map[string]model.User),
		doctors:       make(map[string]model.Doctor),
		availability:  make(map[string]model.DoctorAvailability),
		reminders:     make(map[string]map[string]model.Reminder),
		reminderOrder: make(map[string][]string),
		appointments:  make(map[string]model.Appointment),
		prescriptions: make(map[string]model.Prescription),
		hub:           hub{subs: make(map[string]map[chan struct{}]bool)},
	}
}

// Writes counts document writes so far.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// clone deep-copies through JSON, the same shape every backend stores.
func clone[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

// ---- accounts

func (s *Store) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.accounts {
		if strings.EqualFold(x.Email, a.Email) {
			return store.ErrConflict
		}
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.accounts[a.ID] = *a
	return nil
}

func (s *Store) AccountByEmail(_ context.Context, email string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) AccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.refresh[id] = model.RefreshToken{ID: id, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return id, nil
}

func (s *Store) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rt := range s.refresh {
		if rt.TokenHash == tokenHash {
			return &rt, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.refresh[oldID]
	if !ok || old.Revoked {
		return store.ErrNotFound
	}
	old.Revoked = true
	old.ReplacedBy = &newID
	s.refresh[oldID] = old
	s.refresh[newID] = model.RefreshToken{ID: newID, UserID: userID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: time.Now()}
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rt := range s.refresh {
		if rt.UserID == userID {
			rt.Revoked = true
			s.refresh[id] = rt
		}
	}
	return nil
}

// ---- users

func (s *Store) User(_ context.Context, uid string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	u = clone(u)
	return &u, nil
}

func (s *Store) SaveUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UID] = clone(*u)
	s.writes++
	return nil
}

func (s *Store) UserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) updateUser(uid string, fn func(u *model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return store.ErrNotFound
	}
	u = clone(u)
	fn(&u)
	s.users[uid] = u
	s.writes++
	return nil
}

func (s *Store) SetLastReset(_ context.Context, uid, date string) error {
	return s.updateUser(uid, func(u *model.User) { u.LastReminderResetDate = date })
}

func (s *Store) AddActivePrescription(_ context.Context, uid, prescriptionID string) error {
	return s.updateUser(uid, func(u *model.User) {
		for _, id := range u.ActivePrescriptions {
			if id == prescriptionID {
				return
			}
		}
		u.ActivePrescriptions = append(u.ActivePrescriptions, prescriptionID)
	})
}

func (s *Store) RemoveActivePrescriptions(_ context.Context, uid string, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return s.updateUser(uid, func(u *model.User) {
		var kept []string
		for _, id := range u.ActivePrescriptions {
			if !drop[id] {
				kept = append(kept, id)
			}
		}
		u.ActivePrescriptions = kept
	})
}

// ---- doctors

func (s *Store) Doctor(_ context.Context, uid string) (*model.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (s *Store) SaveDoctor(_ context.Context, d *model.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.NameLowercase = strings.ToLower(d.Name)
	s.doctors[d.UID] = *d
	s.writes++
	return nil
}

func (s *Store) SearchDoctors(_ context.Context, prefix string) ([]model.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := strings.ToLower(prefix)
	var out []model.Doctor
	for _, d := range s.doctors {
		if strings.HasPrefix(d.NameLowercase, p) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameLowercase < out[j].NameLowercase })
	return out, nil
}

func (s *Store) Availability(_ context.Context, doctorID string) (*model.DoctorAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.availability[doctorID]
	if !ok {
		return nil, store.ErrNotFound
	}
	a = clone(a)
	return &a, nil
}

func (s *Store) SaveAvailability(_ context.Context, a *model.DoctorAvailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.availability[a.DoctorID] = clone(*a)
	s.writes++
	return nil
}
