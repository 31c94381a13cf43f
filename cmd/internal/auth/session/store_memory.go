package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development. It
// honors the same atomicity contract as the Postgres store: Rotate holds the
// lock across the revoke-and-insert pair.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]*Record
	byHash map[string]string // token_hash -> id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Record),
		byHash: make(map[string]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(rec)
}

func (s *MemoryStore) insertLocked(rec Record) error {
	cp := rec
	s.byID[cp.ID] = &cp
	s.byHash[cp.TokenHash] = cp.ID
	return nil
}

func (s *MemoryStore) FindValidByHash(_ context.Context, hash string, now time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupLocked(hash)
	if !ok || !rec.Live(now) {
		return Record{}, ErrRecordNotFound
	}
	return *rec, nil
}

func (s *MemoryStore) FindAnyByHash(_ context.Context, hash string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookupLocked(hash)
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return *rec, nil
}

func (s *MemoryStore) lookupLocked(hash string) (*Record, bool) {
	id, ok := s.byHash[hash]
	if !ok {
		return nil, false
	}
	rec, ok := s.byID[id]
	return rec, ok
}

func (s *MemoryStore) Rotate(_ context.Context, now time.Time, predecessorID string, successor Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pred, ok := s.byID[predecessorID]
	if !ok || pred.Revoked() {
		return ErrRotationConflict
	}

	at := now
	reason := ReasonRotation
	succID := successor.ID
	pred.RevokedAt = &at
	pred.RevokedReason = &reason
	pred.ReplacedByID = &succID

	return s.insertLocked(successor)
}

func (s *MemoryStore) MarkRevoked(_ context.Context, now time.Time, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || rec.Revoked() {
		return nil
	}
	s.revokeLocked(rec, now, reason)
	return nil
}

func (s *MemoryStore) RevokeFamily(_ context.Context, now time.Time, familyID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.byID {
		if rec.FamilyID == familyID && !rec.Revoked() {
			s.revokeLocked(rec, now, reason)
		}
	}
	return nil
}

func (s *MemoryStore) RevokeAllForAccount(_ context.Context, now time.Time, accountID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.byID {
		if rec.AccountID == accountID && !rec.Revoked() {
			s.revokeLocked(rec, now, reason)
		}
	}
	return nil
}

func (s *MemoryStore) revokeLocked(rec *Record, now time.Time, reason string) {
	at := now
	r := reason
	rec.RevokedAt = &at
	rec.RevokedReason = &r
}

func (s *MemoryStore) SweepExpired(_ context.Context, now time.Time, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-retention)
	var n int64
	for id, rec := range s.byID {
		if rec.ExpiresAt.Before(cutoff) {
			delete(s.byHash, rec.TokenHash)
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of retained records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
