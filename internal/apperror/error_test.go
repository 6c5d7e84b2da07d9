package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestErrorsIs_MatchesByCode(t *testing.T) {
	errInvalid := Sentinel(CodeInvalidAmount)
	err := fmt.Errorf("parse: %w", New(CodeInvalidAmount, WithContext("1.2.3")))

	if !errors.Is(err, errInvalid) {
		t.Error("expected wrapped error to match sentinel by code")
	}
	if errors.Is(err, Sentinel(CodeUserRejected)) {
		t.Error("different codes must not match")
	}
}

func TestErrorString(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := New(CodeEthereumConnectionFailed, WithCause(cause), WithContext("gas oracle"))

	got := err.Error()
	for _, want := range []string{"ETHEREUM_CONNECTION_FAILED", "gas oracle", "dial tcp: refused"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}

func TestDefaultStatusCodes(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidAmount, http.StatusBadRequest},
		{CodeInsufficientGasReserve, http.StatusBadRequest},
		{CodeTransactionNotFound, http.StatusNotFound},
		{CodeInfuraAPIError, http.StatusServiceUnavailable},
		{CodeRateLimitExceeded, http.StatusTooManyRequests},
		{CodeUserRejected, http.StatusConflict},
		{CodeUnknownTransferError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code).StatusCode; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapAndGetCode(t *testing.T) {
	if Wrap(nil, CodeInternalError, "x") != nil {
		t.Error("Wrap(nil) must be nil")
	}

	orig := New(CodeMoralisAPIError)
	if Wrap(orig, CodeInternalError, "tokens") != orig {
		t.Error("Wrap should keep an existing AppError")
	}
	if orig.Context != "tokens" {
		t.Errorf("context = %q", orig.Context)
	}

	if GetCode(errors.New("plain")) != CodeUnknownError {
		t.Error("plain errors map to unknown")
	}
	if GetCode(fmt.Errorf("w: %w", orig)) != CodeMoralisAPIError {
		t.Error("GetCode should unwrap")
	}
	if Message("NOPE") != "NOPE" {
		t.Error("unknown codes fall back to the code text")
	}
}
