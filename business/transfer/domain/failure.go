package domain

import (
	"strings"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

// failureCodes are the codes a transfer can end with.
var failureCodes = map[apperror.Code]bool{
	apperror.CodeUserRejected:         true,
	apperror.CodeInsufficientFunds:    true,
	apperror.CodeGasEstimationFailed:  true,
	apperror.CodeTransactionReverted:  true,
	apperror.CodeUnknownTransferError: true,
}

// ClassifyFailure maps a submission or receipt failure onto a transfer
// failure code. Errors already carrying one of those codes keep it; anything
// else is classified by its message.
func ClassifyFailure(err error) apperror.Code {
	if err == nil {
		return ""
	}
	if code := apperror.GetCode(err); failureCodes[code] {
		return code
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return apperror.CodeUserRejected
	case strings.Contains(msg, "insufficient funds"):
		return apperror.CodeInsufficientFunds
	case strings.Contains(msg, "gas"):
		return apperror.CodeGasEstimationFailed
	case strings.Contains(msg, "reverted"):
		return apperror.CodeTransactionReverted
	default:
		return apperror.CodeUnknownTransferError
	}
}

// Failure wraps err as an AppError with its classified code. The original
// error stays reachable through errors.Unwrap.
func Failure(err error) *apperror.AppError {
	if err == nil {
		return nil
	}
	code := ClassifyFailure(err)
	if apperror.GetCode(err) == code {
		return apperror.Wrap(err, code, "")
	}
	return apperror.New(code, apperror.WithCause(err))
}
