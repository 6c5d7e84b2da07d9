package binance

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL}, logger.New(io.Discard, logger.LevelDebug, "test", nil))
	require.NoError(t, err)
	return c
}

func TestClient_Ticker(t *testing.T) {
	var gotReq *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"symbol":"ETHUSDT","price":"2512.34000000"}`)
	})

	price, err := c.Ticker(context.Background(), "ETHUSDT")
	require.NoError(t, err)

	require.NotNil(t, gotReq)
	assert.Equal(t, "/api/v3/ticker/price", gotReq.URL.Path)
	assert.Equal(t, "ETHUSDT", gotReq.URL.Query().Get("symbol"))
	assert.Equal(t, "2512.34", price.String())
}

func TestClient_TickerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "unknown symbol",
			status:  http.StatusBadRequest,
			body:    `{"code":-1121,"msg":"Invalid symbol."}`,
			wantMsg: "Invalid symbol.",
		},
		{
			name:    "malformed price",
			status:  http.StatusOK,
			body:    `{"symbol":"ETHUSDT","price":"n/a"}`,
			wantMsg: "malformed ticker price",
		},
		{
			name:    "zero price",
			status:  http.StatusOK,
			body:    `{"symbol":"ETHUSDT","price":"0.00000000"}`,
			wantMsg: "malformed ticker price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Ticker(context.Background(), "ETHUSDT")
			require.Error(t, err)
			assert.Equal(t, apperror.CodeBinanceAPIError, apperror.GetCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
