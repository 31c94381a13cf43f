package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/semaphore"

	"aegis/cmd/directory"
	"aegis/cmd/security/password"
	"aegis/cmd/security/token"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	Bearer          string
	BearerExpiresAt time.Time

	// RefreshSecret is the raw opaque secret. It exists only here, on its way
	// to the client; the store keeps a digest.
	RefreshSecret    string
	RefreshExpiresAt time.Time

	SessionID string
	FamilyID  string
}

// ClientInfo carries optional request context recorded on refresh records.
type ClientInfo struct {
	UserAgent string
	IP        string
}

// Service is the session lifecycle engine. It owns credential verification,
// token issuance, refresh rotation with replay detection, and revocation.
type Service struct {
	cfg     Config
	log     *slog.Logger
	dir     directory.Directory
	store   Store
	tokens  BearerTokenManager
	hasher  password.Config
	hashSem *semaphore.Weighted
	decoy   string
	metrics *Metrics

	now func() time.Time
}

// NewService wires the engine. metrics may be nil.
func NewService(cfg Config, log *slog.Logger, dir directory.Directory, store Store, hasher password.Config, metrics *Metrics) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir == nil || store == nil {
		return nil, fmt.Errorf("%w: nil directory or store", ErrConfig)
	}

	tokens, err := NewJWTManager(cfg)
	if err != nil {
		return nil, err
	}

	// Precomputed at full cost so verification against a nonexistent account
	// takes the same time as against a real one.
	decoy, err := hasher.DecoyHash()
	if err != nil {
		return nil, fmt.Errorf("%w: decoy hash: %v", ErrConfig, err)
	}

	conc := cfg.HashConcurrency
	if conc < 1 {
		conc = 1
	}

	return &Service{
		cfg:     cfg,
		log:     log,
		dir:     dir,
		store:   store,
		tokens:  tokens,
		hasher:  hasher,
		hashSem: semaphore.NewWeighted(conc),
		decoy:   decoy,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// verify runs an argon2 comparison under the concurrency cap.
func (s *Service) verify(ctx context.Context, encodedHash, candidate string) (bool, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.hashSem.Release(1)
	return s.hasher.Verify(encodedHash, candidate)
}

// Authenticate checks an email/password pair and returns the account.
//
// A nonexistent account burns a full-cost decoy verification so response
// timing does not reveal which emails are registered. The active check runs
// after the password check for the same reason.
func (s *Service) Authenticate(ctx context.Context, email, pw string) (directory.Account, error) {
	acct, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		if directory.IsNotFound(err) {
			_, _ = s.verify(ctx, s.decoy, pw)
			s.metrics.login("invalid")
			return directory.Account{}, ErrInvalidCredentials
		}
		return directory.Account{}, err
	}

	ok, err := s.verify(ctx, acct.PasswordHash, pw)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			s.log.ErrorContext(ctx, "session.credential_hash_corrupt", "account_id", acct.ID)
			s.metrics.login("invalid")
			return directory.Account{}, ErrInvalidCredentials
		}
		return directory.Account{}, err
	}
	if !ok {
		s.metrics.login("invalid")
		return directory.Account{}, ErrInvalidCredentials
	}

	if !acct.IsActive {
		s.metrics.login("inactive")
		return directory.Account{}, ErrInactiveAccount
	}

	s.maybeRehash(ctx, acct, pw)
	return acct, nil
}

// maybeRehash upgrades the stored hash when cost parameters have moved on.
// Best effort: a failure here never fails the login.
func (s *Service) maybeRehash(ctx context.Context, acct directory.Account, pw string) {
	stale, err := s.hasher.NeedsRehash(acct.PasswordHash)
	if err != nil || !stale {
		return
	}
	fresh, err := s.hasher.Hash(pw)
	if err == nil {
		err = s.dir.SetPasswordHash(ctx, acct.ID, fresh)
	}
	if err != nil {
		s.log.WarnContext(ctx, "session.rehash_failed", "account_id", acct.ID, "error", err)
		return
	}
	s.log.InfoContext(ctx, "session.rehash", "account_id", acct.ID)
}

// Login authenticates and starts a new session family.
func (s *Service) Login(ctx context.Context, email, pw string, client ClientInfo) (TokenPair, error) {
	acct, err := s.Authenticate(ctx, email, pw)
	if err != nil {
		return TokenPair{}, err
	}

	now := s.now()
	rec, pair, err := s.mint(acct, uuid.NewString(), client, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return TokenPair{}, err
	}

	s.metrics.login("ok")
	s.log.InfoContext(ctx, "session.login",
		"account_id", acct.ID, "session_id", rec.ID, "family_id", rec.FamilyID)
	return pair, nil
}

// mint builds a fresh refresh record and its token pair. The record is not
// yet persisted.
func (s *Service) mint(acct directory.Account, familyID string, client ClientInfo, now time.Time) (Record, TokenPair, error) {
	secret, err := token.NewOpaqueSecret(s.cfg.RefreshSecretBytes)
	if err != nil {
		return Record{}, TokenPair{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	rec := Record{
		ID:        ulid.Make().String(),
		AccountID: acct.ID,
		FamilyID:  familyID,
		TokenHash: token.HashSecretHex(secret),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}
	if client.UserAgent != "" {
		ua := client.UserAgent
		rec.UserAgent = &ua
	}
	if client.IP != "" {
		ip := client.IP
		rec.IP = &ip
	}

	bearer, bearerExp, err := s.tokens.Issue(acct.ID, acct.Epoch, now)
	if err != nil {
		return Record{}, TokenPair{}, err
	}

	return rec, TokenPair{
		Bearer:           bearer,
		BearerExpiresAt:  bearerExp,
		RefreshSecret:    secret,
		RefreshExpiresAt: rec.ExpiresAt,
		SessionID:        rec.ID,
		FamilyID:         rec.FamilyID,
	}, nil
}

// Refresh rotates a refresh secret: the presented record is retired, a
// successor in the same family is issued, and a new bearer is signed.
//
// A dead record being presented again is classified before rejection; a
// rotated-away secret outside the grace window means two parties hold the
// same secret, and the whole family is revoked before ErrTokenReused
// surfaces.
func (s *Service) Refresh(ctx context.Context, refreshSecret string, client ClientInfo) (TokenPair, error) {
	now := s.now()
	hash := token.HashSecretHex(refreshSecret)

	rec, err := s.store.FindValidByHash(ctx, hash, now)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return TokenPair{}, s.handleDeadSecret(ctx, hash, now)
		}
		return TokenPair{}, err
	}

	acct, err := s.dir.FindByID(ctx, rec.AccountID)
	if err != nil {
		if directory.IsNotFound(err) {
			return TokenPair{}, s.killFamily(ctx, rec, now, ReasonSessionDead, ErrSessionInvalid)
		}
		return TokenPair{}, err
	}
	if !acct.IsActive {
		return TokenPair{}, s.killFamily(ctx, rec, now, ReasonSessionDead, ErrSessionInvalid)
	}

	succ, pair, err := s.mint(acct, rec.FamilyID, client, now)
	if err != nil {
		return TokenPair{}, err
	}

	err = s.store.Rotate(ctx, now, rec.ID, succ)
	if errors.Is(err, ErrRotationConflict) {
		// Lost a race on this record. Someone else rotated (or revoked) it
		// between our read and our claim; that someone presented the same
		// secret, so this goes through the same dead-secret analysis.
		return TokenPair{}, s.handleDeadSecret(ctx, hash, now)
	}
	if err != nil {
		return TokenPair{}, err
	}

	s.metrics.refresh("ok")
	s.metrics.revoked(ReasonRotation)
	s.log.InfoContext(ctx, "session.refresh",
		"account_id", acct.ID, "family_id", rec.FamilyID,
		"session_id", rec.ID, "successor_id", succ.ID)
	return pair, nil
}

// handleDeadSecret converts a known-dead (or unknown) refresh hash into the
// right caller-facing error, revoking the family on replay.
func (s *Service) handleDeadSecret(ctx context.Context, hash string, now time.Time) error {
	rec, err := s.store.FindAnyByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			s.metrics.refresh("invalid")
			return ErrTokenInvalid
		}
		return err
	}

	switch classifyReuse(rec, now, s.cfg.ReuseGraceWindow) {
	case VerdictExpired:
		s.metrics.refresh("expired")
		return ErrTokenExpired
	case VerdictGraced:
		s.metrics.refresh("graced")
		s.log.InfoContext(ctx, "session.refresh_graced",
			"account_id", rec.AccountID, "family_id", rec.FamilyID, "session_id", rec.ID)
		return ErrTokenInvalid
	case VerdictReplay:
		if err := s.store.RevokeFamily(ctx, now, rec.FamilyID, ReasonReuseDetected); err != nil {
			return err
		}
		s.metrics.refresh("reuse")
		s.metrics.reuseDetected()
		s.metrics.revoked(ReasonReuseDetected)
		s.log.WarnContext(ctx, "session.reuse_detected",
			"account_id", rec.AccountID, "family_id", rec.FamilyID, "session_id", rec.ID)
		return ErrTokenReused
	default:
		s.metrics.refresh("invalid")
		return ErrTokenInvalid
	}
}

// killFamily revokes a family mid-refresh (dead or disabled account) and
// returns the caller-facing error.
func (s *Service) killFamily(ctx context.Context, rec Record, now time.Time, reason string, out error) error {
	if err := s.store.RevokeFamily(ctx, now, rec.FamilyID, reason); err != nil {
		return err
	}
	s.metrics.refresh("session_invalid")
	s.metrics.revoked(reason)
	s.log.InfoContext(ctx, "session.family_revoked",
		"account_id", rec.AccountID, "family_id", rec.FamilyID, "reason", reason)
	return out
}

// Logout ends the session the refresh secret belongs to. Idempotent: an
// unknown or already-dead secret is a no-op.
func (s *Service) Logout(ctx context.Context, refreshSecret string) error {
	rec, err := s.store.FindAnyByHash(ctx, token.HashSecretHex(refreshSecret))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := s.store.RevokeFamily(ctx, s.now(), rec.FamilyID, ReasonLogout); err != nil {
		return err
	}
	s.metrics.revoked(ReasonLogout)
	s.log.InfoContext(ctx, "session.logout",
		"account_id", rec.AccountID, "family_id", rec.FamilyID)
	return nil
}

// LogoutAll ends every session of an account and advances its epoch so
// outstanding bearer tokens stop verifying immediately.
func (s *Service) LogoutAll(ctx context.Context, accountID string) error {
	now := s.now()
	if err := s.store.RevokeAllForAccount(ctx, now, accountID, ReasonLogoutAll); err != nil {
		return err
	}

	epoch, err := s.dir.IncrementEpoch(ctx, accountID)
	if err != nil && !directory.IsNotFound(err) {
		return err
	}

	s.metrics.revoked(ReasonLogoutAll)
	s.log.InfoContext(ctx, "session.logout_all", "account_id", accountID, "epoch", epoch)
	return nil
}

// VerifyBearer validates a bearer token and, when the epoch check is on,
// cross-checks the embedded epoch against the live account.
func (s *Service) VerifyBearer(ctx context.Context, bearer string) (BearerClaims, error) {
	claims, err := s.tokens.Verify(bearer, s.now())
	if err != nil {
		return BearerClaims{}, err
	}

	if !s.cfg.EpochCheck {
		return claims, nil
	}

	acct, err := s.dir.FindByID(ctx, claims.Subject)
	if err != nil {
		if directory.IsNotFound(err) {
			return BearerClaims{}, ErrTokenInvalid
		}
		return BearerClaims{}, err
	}
	if !acct.IsActive {
		return BearerClaims{}, ErrInactiveAccount
	}
	if acct.Epoch != claims.Epoch {
		return BearerClaims{}, ErrEpochMismatch
	}

	return claims, nil
}

// Sweep deletes records expired longer ago than the retention window.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.SweepExpired(ctx, s.now(), s.cfg.SweepRetention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.swept(n)
		s.log.InfoContext(ctx, "session.sweep", "removed", n)
	}
	return n, nil
}
