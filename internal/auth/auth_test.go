package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/asset-marketplace/internal/domain"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, expiresAt, err := tm.GenerateToken("0xabc")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, domain.Identity("0xabc"), claims.Identity())
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	_, _, err := tm.GenerateToken("")
	require.Error(t, err)

	token, _, err := NewTokenManager("other", 5).GenerateToken("0xabc")
	require.NoError(t, err)
	_, err = tm.ParseToken(token)
	require.Error(t, err, "wrong secret")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "0xabc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(signed)
	require.Error(t, err, "expired")

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{})
	signed, err = noSubject.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(signed)
	require.Error(t, err, "empty subject")
}

func TestTokenManager_IssuerAndClock(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tm := NewTokenManager("secret", 10, WithIssuer("asset-marketplace"), WithClock(clock))

	token, expiresAt, err := tm.GenerateToken("0xabc")
	require.NoError(t, err)
	require.Equal(t, now.Add(10*time.Minute), expiresAt)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "asset-marketplace", claims.Issuer)
	require.NotEmpty(t, claims.ID)

	foreign := NewTokenManager("secret", 10, WithIssuer("someone-else"), WithClock(clock))
	_, err = foreign.ParseToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	now = now.Add(11 * time.Minute)
	_, err = tm.ParseToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestClaims_IdentityIsNormalized(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "  0xABC "}}
	require.Equal(t, domain.Identity("0xabc"), c.Identity())
}

func TestStaticGate(t *testing.T) {
	ctx := context.Background()
	g := NewStaticGate(map[domain.Capability][]domain.Identity{
		domain.CapabilityMinter: {"m"},
	})
	require.True(t, g.Can(ctx, "m", domain.CapabilityMinter))
	require.False(t, g.Can(ctx, "m", domain.CapabilityAdmin))
	require.False(t, g.Can(ctx, "x", domain.CapabilityMinter))

	g.Grant(domain.CapabilityAdmin, "x")
	require.True(t, g.Can(ctx, "x", domain.CapabilityAdmin))
	g.Revoke(domain.CapabilityAdmin, "x")
	require.False(t, g.Can(ctx, "x", domain.CapabilityAdmin))
}

type stubGrants struct {
	granted map[domain.Identity]bool
	err     error
}

func (s stubGrants) HasCapability(_ context.Context, identity domain.Identity, _ domain.Capability) (bool, error) {
	return s.granted[identity], s.err
}

func TestRepositoryGate(t *testing.T) {
	ctx := context.Background()
	static := NewStaticGate(map[domain.Capability][]domain.Identity{domain.CapabilityMinter: {"cfg"}})

	g := NewRepositoryGate(stubGrants{granted: map[domain.Identity]bool{"db": true}}, static, nil)
	require.True(t, g.Can(ctx, "cfg", domain.CapabilityMinter))
	require.True(t, g.Can(ctx, "db", domain.CapabilityMinter))
	require.False(t, g.Can(ctx, "none", domain.CapabilityMinter))

	failing := NewRepositoryGate(stubGrants{granted: map[domain.Identity]bool{"db": true}, err: errors.New("down")}, static, nil)
	require.False(t, failing.Can(ctx, "db", domain.CapabilityMinter))
	require.True(t, failing.Can(ctx, "cfg", domain.CapabilityMinter))
}

func newAuthApp(t *testing.T, tm *TokenManager, gate *StaticGate) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	mw := NewAuthMiddleware(tm)
	app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Identity.String())
	})
	app.Post("/mint", mw.Handle, RequireCapability(gate, domain.CapabilityMinter), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	gate := NewStaticGate(map[domain.Capability][]domain.Identity{domain.CapabilityMinter: {"0xminter"}})
	app := newAuthApp(t, tm, gate)

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, _, err := tm.GenerateToken("0xuser")
	require.NoError(t, err)
	req = httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/mint", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	minterToken, _, err := tm.GenerateToken("0xminter")
	require.NoError(t, err)
	req = httptest.NewRequest(fiber.MethodPost, "/mint", nil)
	req.Header.Set("Authorization", "Bearer "+minterToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc":     "abc",
		"bearer  abc  ":  "abc",
		" BEARER x.y.z ": "x.y.z",
	} {
		got, ok := bearerToken(header)
		require.True(t, ok, header)
		require.Equal(t, want, got)
	}
	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		_, ok := bearerToken(header)
		require.False(t, ok, header)
	}
}

func TestAuthMiddleware_PrincipalCarriesTokenID(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm)
	app := fiber.New()
	var seen *Principal
	app.Get("/who", mw.Handle, func(c *fiber.Ctx) error {
		seen, _ = PrincipalFromContext(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	token, expiresAt, err := tm.GenerateToken("0xabc")
	require.NoError(t, err)
	claims, err := tm.ParseToken(token)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/who", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.NotNil(t, seen)
	require.Equal(t, domain.Identity("0xabc"), seen.Identity)
	require.Equal(t, claims.ID, seen.TokenID)
	require.WithinDuration(t, expiresAt, seen.ExpiresAt, time.Second)
}
