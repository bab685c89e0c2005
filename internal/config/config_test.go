package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseBalances(t *testing.T) {
	got, err := parseBalances(" 0xa=10, 0xb = 25 ,,")
	require.NoError(t, err)
	require.Equal(t, map[string]uint64{"0xa": 10, "0xb": 25}, got)

	got, err = parseBalances("")
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = parseBalances("0xa")
	require.Error(t, err)
	_, err = parseBalances("=5")
	require.Error(t, err)
	_, err = parseBalances("0xa=-1")
	require.Error(t, err)
}

func TestLoad_Market(t *testing.T) {
	t.Setenv("MARKET_MAX_ASSETS_PER_HOLDER", "3")
	t.Setenv("MARKET_MINTER_IDENTITIES", "0xa, 0xb")
	t.Setenv("PAYMENT_BACKEND", "REDIS")
	t.Setenv("PAYMENT_INITIAL_BALANCES", "0xa=7")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Market.MaxAssetsPerHolder)
	require.Equal(t, []string{"0xa", "0xb"}, cfg.Market.MinterIdentities)
	require.Equal(t, PaymentBackendRedis, cfg.Payment.Backend)
	require.Equal(t, uint64(7), cfg.Payment.InitialBalances["0xa"])
	require.Equal(t, time.Duration(0), cfg.App.RequestTimeout())
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Setenv("PAYMENT_BACKEND", "carrier-pigeon")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("NOTIFY_WORKERS", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Empty(t, cfg.Redis.Addr)
	require.Equal(t, "json", cfg.Logger.Format)
	require.Equal(t, 2, cfg.Notification.Workers)
	require.Equal(t, 256, cfg.Notification.QueueSize)
	require.Equal(t, 5, cfg.Postgres.ConnectAttempts)
	require.Equal(t, "asset-marketplace", cfg.Auth.Issuer)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]map[string]string{
		"zero cap":           {"MARKET_MAX_ASSETS_PER_HOLDER": "0"},
		"dev secret in prod": {"APP_ENV": "production"},
		"unknown log format": {"LOG_FORMAT": "xml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}

	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "a-real-secret")
	_, err := Load()
	require.NoError(t, err)
}
