package session

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryingStore decorates a Store with bounded exponential backoff for
// transient failures. Domain outcomes (ErrRecordNotFound,
// ErrRotationConflict) and context cancellation pass through untouched. When
// attempts are exhausted the error is wrapped in StoreUnavailableError so
// callers surface it as ErrStoreUnavailable instead of a crash.
type RetryingStore struct {
	inner    Store
	attempts uint64
	base     time.Duration
}

// NewRetryingStore wraps inner with up to attempts tries per operation.
func NewRetryingStore(inner Store, attempts uint64, base time.Duration) *RetryingStore {
	if attempts == 0 {
		attempts = 3
	}
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	return &RetryingStore{inner: inner, attempts: attempts, base: base}
}

func (s *RetryingStore) backoff() retry.Backoff {
	return retry.WithMaxRetries(s.attempts-1, retry.NewExponential(s.base))
}

func (s *RetryingStore) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil || !retryable(err) {
		return err
	}
	return &StoreUnavailableError{Op: op, Attempts: int(s.attempts), Err: err}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrRotationConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (s *RetryingStore) Insert(ctx context.Context, rec Record) error {
	return s.do(ctx, "store.Insert", func(ctx context.Context) error {
		return s.inner.Insert(ctx, rec)
	})
}

func (s *RetryingStore) FindValidByHash(ctx context.Context, hash string, now time.Time) (Record, error) {
	var rec Record
	err := s.do(ctx, "store.FindValidByHash", func(ctx context.Context) error {
		var err error
		rec, err = s.inner.FindValidByHash(ctx, hash, now)
		return err
	})
	return rec, err
}

func (s *RetryingStore) FindAnyByHash(ctx context.Context, hash string) (Record, error) {
	var rec Record
	err := s.do(ctx, "store.FindAnyByHash", func(ctx context.Context) error {
		var err error
		rec, err = s.inner.FindAnyByHash(ctx, hash)
		return err
	})
	return rec, err
}

// Rotate is not retried past a conflict: a conflict is a real outcome, not a
// transient fault.
func (s *RetryingStore) Rotate(ctx context.Context, now time.Time, predecessorID string, successor Record) error {
	return s.do(ctx, "store.Rotate", func(ctx context.Context) error {
		return s.inner.Rotate(ctx, now, predecessorID, successor)
	})
}

func (s *RetryingStore) MarkRevoked(ctx context.Context, now time.Time, id string, reason string) error {
	return s.do(ctx, "store.MarkRevoked", func(ctx context.Context) error {
		return s.inner.MarkRevoked(ctx, now, id, reason)
	})
}

func (s *RetryingStore) RevokeFamily(ctx context.Context, now time.Time, familyID string, reason string) error {
	return s.do(ctx, "store.RevokeFamily", func(ctx context.Context) error {
		return s.inner.RevokeFamily(ctx, now, familyID, reason)
	})
}

func (s *RetryingStore) RevokeAllForAccount(ctx context.Context, now time.Time, accountID string, reason string) error {
	return s.do(ctx, "store.RevokeAllForAccount", func(ctx context.Context) error {
		return s.inner.RevokeAllForAccount(ctx, now, accountID, reason)
	})
}

func (s *RetryingStore) SweepExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	var n int64
	err := s.do(ctx, "store.SweepExpired", func(ctx context.Context) error {
		var err error
		n, err = s.inner.SweepExpired(ctx, now, retention)
		return err
	})
	return n, err
}
