package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-marketplace/internal/api/http/handlers"
	"github.com/spec-kit/asset-marketplace/internal/auth"
	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/events"
	"github.com/spec-kit/asset-marketplace/internal/observability"
	"github.com/spec-kit/asset-marketplace/internal/payment"
	"github.com/spec-kit/asset-marketplace/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gate := auth.NewStaticGate(map[domain.Capability][]domain.Identity{
		domain.CapabilityMinter: {"0xminter"},
		domain.CapabilityAdmin:  {"0xadmin"},
	})
	market, err := service.NewMarketplaceService(service.MarketplaceDependencies{
		Gate:       gate,
		Payments:   payment.NewMemoryLedger(map[domain.Identity]uint64{"0xb0b": 100}),
		Dispatcher: events.NewInMemoryDispatcher(),
		Treasury:   "0xtreasury",
	})
	require.NoError(t, err)

	tokens := auth.NewTokenManager("test-secret", 5)
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("asset-marketplace", "test", nil, metrics),
		Users:          handlers.NewUsersHandler(market),
		Assets:         handlers.NewAssetsHandler(market),
		Market:         handlers.NewMarketHandler(market),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Gate:           gate,
	})
	return &testServer{app: app, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, as domain.Identity, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if as != "" {
		token, _, err := s.tokens.GenerateToken(as)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestMarketplaceFlow(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodPost, "/users", "0xA11CE", map[string]string{"display_name": "Alice"})
	require.Equal(t, fiber.StatusCreated, status)
	aliceID := data(t, body)["user_id"].(string)
	require.Equal(t, "0xa11ce", data(t, body)["identity"])

	status, body = s.do(t, fiber.MethodPost, "/users", "0xb0b", map[string]string{"display_name": "Bob"})
	require.Equal(t, fiber.StatusCreated, status)
	bobID := data(t, body)["user_id"].(string)

	status, body = s.do(t, fiber.MethodPost, "/users", "0xa11ce", map[string]string{"display_name": "Again"})
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "ALREADY_REGISTERED", errorCode(body))

	mint := map[string]any{
		"holder":          "0xa11ce",
		"history_user_id": aliceID,
		"description":     "jewelry",
		"price":           41,
		"class":           "jewelry",
	}
	status, body = s.do(t, fiber.MethodPost, "/assets", "0xa11ce", mint)
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = s.do(t, fiber.MethodPost, "/assets", "0xminter", mint)
	require.Equal(t, fiber.StatusCreated, status)
	assetID := data(t, body)["asset_id"].(string)
	require.Equal(t, float64(41), data(t, body)["price"])

	status, body = s.do(t, fiber.MethodGet, "/assets/lookup?description=jewelry", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, assetID, data(t, body)["asset_id"])

	status, body = s.do(t, fiber.MethodPost, "/assets/"+assetID+"/listing", "0xa11ce", map[string]any{
		"user_id": aliceID, "description": "jewelry", "price": 15,
	})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, true, data(t, body)["listed"])

	purchase := map[string]any{
		"buyer_user_id":   bobID,
		"description":     "jewelry",
		"seller_user_id":  aliceID,
		"seller_identity": "0xa11ce",
		"payment":         14,
	}
	status, body = s.do(t, fiber.MethodPost, "/assets/"+assetID+"/purchase", "0xb0b", purchase)
	require.Equal(t, fiber.StatusPaymentRequired, status)
	require.Equal(t, "INSUFFICIENT_FUNDS", errorCode(body))

	purchase["payment"] = 15
	status, body = s.do(t, fiber.MethodPost, "/assets/"+assetID+"/purchase", "0xb0b", purchase)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "0xb0b", data(t, body)["holder"])
	require.Equal(t, false, data(t, body)["listed"])

	status, body = s.do(t, fiber.MethodPost, "/assets/"+assetID+"/purchase", "0xb0b", purchase)
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "NOT_LISTED", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/identities/0xb0b/holdings", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, float64(1), data(t, body)["count"])

	status, body = s.do(t, fiber.MethodGet, "/identities/0xa11ce/balance", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, float64(15), data(t, body)["balance"])

	status, body = s.do(t, fiber.MethodGet, "/users/"+bobID+"/transactions", "0xb0b", nil)
	require.Equal(t, fiber.StatusOK, status)
	records, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, records, 1)
	require.Equal(t, "PURCHASE", records[0].(map[string]any)["kind"])

	status, body = s.do(t, fiber.MethodGet, "/stats/holders", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, float64(2), data(t, body)["holders"])
}

func TestRoutes_Errors(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, fiber.MethodGet, "/users/me", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHENTICATED", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/users/me", "0xnobody", nil)
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "NOT_REGISTERED", errorCode(body))

	status, body = s.do(t, fiber.MethodGet, "/assets/not-hex", "", nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", errorCode(body))

	missing := domain.Keccak256ID([]byte("missing")).String()
	status, body = s.do(t, fiber.MethodGet, "/assets/"+missing, "", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "CANNOT_FIND_ASSET", errorCode(body))

	status, body = s.do(t, fiber.MethodPost, "/assets/"+missing+"/bids", "0xb0b", map[string]any{"amount": 5})
	require.Equal(t, fiber.StatusNotImplemented, status)
	require.Equal(t, "NOT_IMPLEMENTED", errorCode(body))

	status, _ = s.do(t, fiber.MethodDelete, "/assets/"+missing, "0xb0b", nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, body = s.do(t, fiber.MethodDelete, "/assets/"+missing, "0xadmin", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "CANNOT_FIND_ASSET", errorCode(body))

	status, _ = s.do(t, fiber.MethodPost, "/deposits", "0xb0b", map[string]any{"amount": 10})
	require.Equal(t, fiber.StatusAccepted, status)

	status, body = s.do(t, fiber.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "ready", body["status"])

	status, body = s.do(t, fiber.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, body, "data")
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(fiber.MethodGet, "/assets/not-hex", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "req-42", resp.Header.Get(fiber.HeaderXRequestID))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "req-42", body["error"].(map[string]any)["request_id"])

	resp, err = s.app.Test(httptest.NewRequest(fiber.MethodGet, "/health/live", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestReadiness_ReportsFailingDependency(t *testing.T) {
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	h := handlers.NewHealthHandler("asset-marketplace", "test", map[string]handlers.DependencyCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}, metrics)
	app.Get("/health/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Error struct {
			Code    string                    `json:"code"`
			Details map[string]map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "DEPENDENCY_UNAVAILABLE", body.Error.Code)
	require.Equal(t, "ok", body.Error.Details["postgres"]["status"])
	require.Equal(t, "down", body.Error.Details["redis"]["status"])
	require.Equal(t, "connection refused", body.Error.Details["redis"]["error"])
}
