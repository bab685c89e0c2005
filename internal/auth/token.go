package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

const defaultTokenTTL = time.Hour

// TokenManager issues and validates bearer tokens whose subject is the
// caller identity.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithIssuer stamps issued tokens with iss and rejects tokens from any other
// issuer.
func WithIssuer(iss string) TokenOption {
	return func(tm *TokenManager) { tm.issuer = iss }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) { tm.now = now }
}

func NewTokenManager(secret string, ttlMinutes int, opts ...TokenOption) *TokenManager {
	tm := &TokenManager{secret: []byte(secret), ttl: defaultTokenTTL, now: time.Now}
	if ttlMinutes > 0 {
		tm.ttl = time.Duration(ttlMinutes) * time.Minute
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Claims is the token payload. Subject holds the identity and ID is a random
// token id for log correlation.
type Claims struct {
	jwt.RegisteredClaims
}

// Identity returns the normalized caller identity.
func (c *Claims) Identity() domain.Identity {
	return domain.NormalizeIdentity(c.Subject)
}

// GenerateToken signs a token for identity and returns it with its expiry.
func (tm *TokenManager) GenerateToken(identity domain.Identity) (string, time.Time, error) {
	if identity.IsZero() {
		return "", time.Time{}, errors.New("empty identity")
	}
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tm.issuer,
			Subject:   identity.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken verifies signature, expiry and issuer and returns the claims.
func (tm *TokenManager) ParseToken(raw string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	}
	if tm.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(tm.issuer))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, parserOpts...); err != nil {
		return nil, err
	}
	if claims.Identity().IsZero() {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
