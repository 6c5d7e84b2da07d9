package infura

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

const sepoliaFees = `{
  "low": {"suggestedMaxPriorityFeePerGas": "0.05", "suggestedMaxFeePerGas": "16.334026964", "minWaitTimeEstimate": 15000, "maxWaitTimeEstimate": 30000},
  "medium": {"suggestedMaxPriorityFeePerGas": "0.1", "suggestedMaxFeePerGas": "22.083436402", "minWaitTimeEstimate": 15000, "maxWaitTimeEstimate": 45000},
  "high": {"suggestedMaxPriorityFeePerGas": "0.3", "suggestedMaxFeePerGas": "27.982845341", "minWaitTimeEstimate": 15000, "maxWaitTimeEstimate": 60000},
  "estimatedBaseFee": "16.284026964",
  "networkCongestion": 0.7015,
  "latestPriorityFeeRange": ["0.131690958", "3"]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		Timeout:        time.Second,
		RequestsPerMin: 6000,
	}, logger.New(io.Discard, logger.LevelDebug, "test", nil))
	require.NoError(t, err)
	return c
}

func TestClient_Suggest(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sepoliaFees))
	})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	snap, err := c.Suggest(context.Background(), 11155111)
	require.NoError(t, err)

	assert.Equal(t, "/v3/test-key/networks/11155111/suggestedGasFees", gotPath)
	assert.Equal(t, uint64(11155111), snap.ChainID)
	assert.Equal(t, fixed, snap.FetchedAt)
	assert.InDelta(t, 0.7015, snap.Congestion, 1e-9)

	assert.Equal(t, "50000000", snap.Low.MaxPriorityFee.String())
	assert.Equal(t, "16334026964", snap.Low.MaxFee.String())
	assert.Equal(t, "27982845341", snap.High.MaxFee.String())
	assert.Equal(t, "16284026964", snap.BaseFee.String())
	assert.Equal(t, 15*time.Second, snap.Medium.MinWait)
	assert.Equal(t, 45*time.Second, snap.Medium.MaxWait)
}

func TestClient_SuggestRejectsNonMonotonicTiers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
  "low": {"suggestedMaxPriorityFeePerGas": "2", "suggestedMaxFeePerGas": "30", "minWaitTimeEstimate": 1000, "maxWaitTimeEstimate": 2000},
  "medium": {"suggestedMaxPriorityFeePerGas": "1", "suggestedMaxFeePerGas": "20", "minWaitTimeEstimate": 1000, "maxWaitTimeEstimate": 2000},
  "high": {"suggestedMaxPriorityFeePerGas": "3", "suggestedMaxFeePerGas": "40", "minWaitTimeEstimate": 1000, "maxWaitTimeEstimate": 2000},
  "estimatedBaseFee": "10",
  "networkCongestion": 0.1
}`))
	})

	_, err := c.Suggest(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidFeeSnapshot, apperror.GetCode(err))
}

func TestClient_SuggestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid project id"}`))
	})

	_, err := c.Suggest(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInfuraAPIError, apperror.GetCode(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid project id", apiErr.Message)
}

func TestSuggestedFees_ToSnapshotBadGwei(t *testing.T) {
	f := SuggestedFees{
		Low:    TierFees{SuggestedMaxPriorityFeePerGas: "abc", SuggestedMaxFeePerGas: "1"},
		Medium: TierFees{SuggestedMaxPriorityFeePerGas: "1", SuggestedMaxFeePerGas: "1"},
		High:   TierFees{SuggestedMaxPriorityFeePerGas: "1", SuggestedMaxFeePerGas: "1"},
	}
	_, err := f.ToSnapshot(1, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidFeeSnapshot, apperror.GetCode(err))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, logger.New(io.Discard, logger.LevelInfo, "test", nil))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeConfigurationError, apperror.GetCode(err))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, millis(1500))
	assert.Equal(t, 2250*time.Microsecond, millis(2.25))
}
