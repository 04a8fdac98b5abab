// Package session bridges session records between durable storage and the
// cache, and applies the sliding-refresh validation policy on top.
package session

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"tenant-gateway/internal/cache"
	"tenant-gateway/internal/session/domain"
	"tenant-gateway/internal/session/repository"
)

// Store is the cache-through session store adapter. Reads go cache-first;
// writes land in the durable store first and then populate the cache.
// Cache failures are logged and absorbed, never escalated: the durable store
// is authoritative and the cache is a performance optimization.
type Store struct {
	repo  repository.Repository
	cache *cache.Namespace
}

// NewStore returns a Store over repo with the given cache namespace.
func NewStore(repo repository.Repository, ns *cache.Namespace) *Store {
	return &Store{repo: repo, cache: ns}
}

// CreateSession writes the session row, then best-effort caches the record
// under its token. A cache write failure does not fail the operation.
func (s *Store) CreateSession(ctx context.Context, rec *domain.SessionWithCaller) error {
	if err := s.repo.Create(ctx, &rec.Session); err != nil {
		return err
	}
	s.cachePut(ctx, rec)
	return nil
}

// GetSessionWithAccount returns the session and its caller projection for
// token, or nil if no record exists. Cache hits skip the durable store; misses
// query it and populate the cache. Expiry is NOT checked here; callers must
// re-check ExpiresAt on every use regardless of where the record came from.
func (s *Store) GetSessionWithAccount(ctx context.Context, token string) (*domain.SessionWithCaller, error) {
	if b, ok, err := s.cache.Get(ctx, token); err != nil {
		log.Printf("session cache get failed: %v", err)
	} else if ok {
		var rec domain.SessionWithCaller
		if err := json.Unmarshal(b, &rec); err == nil {
			return &rec, nil
		}
		_ = s.cache.Delete(ctx, token)
	}

	rec, err := s.repo.GetWithCaller(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	s.cachePut(ctx, rec)
	return rec, nil
}

// RefreshSessionExpiry extends the session's expiry in the durable store and
// rewrites the cached copy so a soon-to-expire record is not served stale.
func (s *Store) RefreshSessionExpiry(ctx context.Context, rec *domain.SessionWithCaller, expiresAt time.Time) error {
	if err := s.repo.UpdateExpiry(ctx, rec.Session.Token, expiresAt); err != nil {
		return err
	}
	rec.Session.ExpiresAt = expiresAt
	s.cachePut(ctx, rec)
	return nil
}

// DeleteSession removes the durable row and the cache entry. Idempotent:
// deleting an absent session is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if err := s.repo.DeleteByToken(ctx, token); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, token); err != nil {
		log.Printf("session cache delete failed: %v", err)
	}
	return nil
}

// DeleteAllSessionsForAccount enumerates the account's session tokens, deletes
// the durable rows in one bulk operation, then best-effort deletes each cache
// entry. Partial cache-invalidation failures are logged, not escalated.
func (s *Store) DeleteAllSessionsForAccount(ctx context.Context, accountID int64) error {
	tokens, err := s.repo.ListTokensByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}
	if err := s.repo.DeleteByTokens(ctx, tokens); err != nil {
		return err
	}
	for _, t := range tokens {
		if err := s.cache.Delete(ctx, t); err != nil {
			log.Printf("session cache delete failed for account %d: %v", accountID, err)
		}
	}
	return nil
}

// PurgeExpiredSessions deletes all durable rows whose expiry is at or before
// now and returns the count. The cache is left alone: expired entries are
// harmless because validity is re-checked against ExpiresAt on every use.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}

func (s *Store) cachePut(ctx context.Context, rec *domain.SessionWithCaller) {
	b, err := json.Marshal(rec)
	if err != nil {
		log.Printf("session cache encode failed: %v", err)
		return
	}
	if err := s.cache.Set(ctx, rec.Session.Token, b); err != nil {
		log.Printf("session cache set failed: %v", err)
	}
}
