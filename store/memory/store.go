// Package memory provides an in-process fitAuth.AccountStore. It is meant
// for examples, tests and single-instance development servers; accounts do
// not survive a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	fitAuth "github.com/fitgoal/fitAuth"
	"github.com/oklog/ulid/v2"
)

// Store is a mutex-guarded map of accounts keyed by ULID, with a secondary
// index on the lowercased email.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]fitAuth.AccountRecord
	byEmail map[string]string
	now     func() time.Time
}

var _ fitAuth.AccountStore = (*Store)(nil)

func New() *Store {
	return &Store{
		byID:    make(map[string]fitAuth.AccountRecord),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) CreateAccount(ctx context.Context, a fitAuth.NewAccount) (fitAuth.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return fitAuth.AccountRecord{}, err
	}

	key := emailKey(a.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[key]; ok {
		return fitAuth.AccountRecord{}, fitAuth.ErrStoreDuplicate
	}

	rec := fitAuth.AccountRecord{
		Account: fitAuth.Account{
			ID:        ulid.Make().String(),
			Email:     a.Email,
			FirstName: a.FirstName,
			LastName:  a.LastName,
			CreatedAt: s.now().UTC(),
		},
		PasswordHash: a.PasswordHash,
	}
	s.byID[rec.ID] = rec
	s.byEmail[key] = rec.ID
	return rec, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (fitAuth.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return fitAuth.AccountRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return fitAuth.AccountRecord{}, fitAuth.ErrStoreNotFound
	}
	return s.byID[id], nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (fitAuth.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return fitAuth.AccountRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return fitAuth.AccountRecord{}, fitAuth.ErrStoreNotFound
	}
	return rec, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return fitAuth.ErrStoreNotFound
	}
	rec.PasswordHash = passwordHash
	s.byID[id] = rec
	return nil
}

// Delete removes an account. Tokens already issued to it will fail with an
// unknown-principal error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byEmail, emailKey(rec.Email))
	delete(s.byID, id)
}

// Len reports the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
