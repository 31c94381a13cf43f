package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BearerClaims is the minimal identity envelope carried by a bearer token.
type BearerClaims struct {
	Subject   string
	Epoch     int64
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// BearerTokenManager issues and verifies short-lived bearer tokens.
//
// Verification is self-contained: it never consults persistent storage. The
// epoch cross-check against the live account is the engine's job.
type BearerTokenManager interface {
	Issue(subject string, epoch int64, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (BearerClaims, error)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Epoch int64 `json:"epoch"`
}

type jwtHS256Manager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	secret    []byte
}

// NewJWTManager builds a BearerTokenManager signing HS256 JWTs with the
// configured shared secret.
func NewJWTManager(cfg Config) (BearerTokenManager, error) {
	if cfg.SigningSecret == "" || cfg.BearerTTL <= 0 {
		return nil, ErrConfig
	}

	return &jwtHS256Manager{
		issuer:    cfg.Issuer,
		ttl:       cfg.BearerTTL,
		clockSkew: cfg.ClockSkew,
		secret:    []byte(cfg.SigningSecret),
	}, nil
}

func (m *jwtHS256Manager) Issue(subject string, epoch int64, now time.Time) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrEncoding
	}

	exp := now.Add(m.ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Epoch: epoch,
	})

	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, ErrEncoding
	}
	return signed, exp, nil
}

func (m *jwtHS256Manager) Verify(token string, now time.Time) (BearerClaims, error) {
	claims := &jwtClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		// Expiry is the one verification failure callers may distinguish:
		// it is ordinary lifecycle, not tampering.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return BearerClaims{}, ErrTokenExpired
		}
		return BearerClaims{}, ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return BearerClaims{}, ErrTokenInvalid
	}

	out := BearerClaims{
		Subject: claims.Subject,
		Epoch:   claims.Epoch,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
