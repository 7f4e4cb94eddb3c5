// Package memstore is an in-memory [snapzy.AccountStore] for tests and local
// development. It enforces the same uniqueness semantics a database-backed
// store does, so engine tests exercise the real duplicate-error paths.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snapzy-app/snapzy"
)

// Store holds account records guarded by a single mutex. All returned
// records are copies; mutations only take effect through Save.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]snapzy.AccountRecord
	byEmail    map[string]string
	byUsername map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]snapzy.AccountRecord),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

// FindByEmail looks up the record owning email.
func (s *Store) FindByEmail(_ context.Context, email string) (*snapzy.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, snapzy.ErrAccountNotFound
	}
	return s.copyOut(id)
}

// FindByUsername looks up the record owning username.
func (s *Store) FindByUsername(_ context.Context, username string) (*snapzy.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, snapzy.ErrAccountNotFound
	}
	return s.copyOut(id)
}

// CreatePending inserts a new email-only record in pending shape.
func (s *Store) CreatePending(_ context.Context, email string) (*snapzy.AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(email)
	if _, exists := s.byEmail[email]; exists {
		return nil, snapzy.ErrDuplicateEmail
	}

	now := time.Now()
	record := snapzy.AccountRecord{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.byID[record.ID] = record
	s.byEmail[email] = record.ID

	out := cloneRecord(record)
	return &out, nil
}

// Save upserts account by ID, enforcing the email and username unique
// indexes.
func (s *Store) Save(_ context.Context, account *snapzy.AccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	if owner, ok := s.byEmail[email]; ok && owner != account.ID {
		return snapzy.ErrDuplicateEmail
	}
	if account.Username != "" {
		if owner, ok := s.byUsername[account.Username]; ok && owner != account.ID {
			return snapzy.ErrDuplicateUsername
		}
	}

	prev, existed := s.byID[account.ID]
	if existed {
		if prev.Email != email {
			delete(s.byEmail, prev.Email)
		}
		if prev.Username != "" && prev.Username != account.Username {
			delete(s.byUsername, prev.Username)
		}
	}

	record := cloneRecord(*account)
	record.Email = email
	record.UpdatedAt = time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}

	s.byID[record.ID] = record
	s.byEmail[email] = record.ID
	if record.Username != "" {
		s.byUsername[record.Username] = record.ID
	}
	return nil
}

func (s *Store) copyOut(id string) (*snapzy.AccountRecord, error) {
	record, ok := s.byID[id]
	if !ok {
		return nil, snapzy.ErrAccountNotFound
	}
	out := cloneRecord(record)
	return &out, nil
}

func cloneRecord(r snapzy.AccountRecord) snapzy.AccountRecord {
	out := r
	out.Followers = append([]string(nil), r.Followers...)
	out.Following = append([]string(nil), r.Following...)
	return out
}
