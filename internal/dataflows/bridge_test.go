package dataflows

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

func bridgeServer(t *testing.T, handler http.HandlerFunc) *BridgeClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBridgeClient(srv.URL, "test-key", 2*time.Second, zerolog.Nop())
}

func TestBridgeBars(t *testing.T) {
	client := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bars", r.URL.Path)
		assert.Equal(t, "EURUSD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "H1", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		_ = json.NewEncoder(w).Encode([]models.Bar{
			{Time: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC), Open: 1.08, High: 1.09, Low: 1.07, Close: 1.085, Volume: 1000},
		})
	})

	bars, err := client.Bars(context.Background(), "EURUSD", models.TFH1, 500)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.085, bars[0].Close)
}

func TestBridgeAccountAndPositions(t *testing.T) {
	client := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/account":
			_ = json.NewEncoder(w).Encode(models.AccountState{Balance: 10000, Equity: 9800, MarginLevel: 450})
		case "/positions":
			_ = json.NewEncoder(w).Encode([]models.Position{{Symbol: "XAUUSD", Direction: "buy", Volume: 0.02}})
		default:
			http.NotFound(w, r)
		}
	})

	acc, err := client.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10000.0, acc.Balance)

	pos, err := client.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "XAUUSD", pos[0].Symbol)
}

func TestBridgeErrorMapsToDataUnavailable(t *testing.T) {
	client := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "terminal not connected", http.StatusBadGateway)
	})
	client.retry = &RetryConfig{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	_, err := client.Account(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestBridgePlaceOrderSuccess(t *testing.T) {
	client := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/order", r.URL.Path)
		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "buy", req.Side)

		_ = json.NewEncoder(w).Encode(bridgeOrderResponse{OK: true, Ticket: 777001, FillPrice: 1.0851, Message: "filled"})
	})

	res, err := client.PlaceOrder(context.Background(), OrderRequest{Symbol: "EURUSD", Side: "buy", Volume: 0.01})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, int64(777001), res.Ticket)
	assert.Equal(t, models.RecExecuted, res.Status)
	assert.False(t, res.PaperTrade)
}

func TestBridgePlaceOrderRejectionIsNotAnError(t *testing.T) {
	client := bridgeServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "market closed", http.StatusConflict)
	})

	res, err := client.PlaceOrder(context.Background(), OrderRequest{Symbol: "EURUSD", Side: "sell", Volume: 0.01})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, models.RecFailed, res.Status)
	assert.Contains(t, res.Message, "market closed")
}
