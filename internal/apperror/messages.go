package apperror

// messages holds the default, user-presentable text per code.
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",
	CodeCircuitOpen:          "Provider temporarily disabled after repeated failures",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeInvalidAmount:          "Amount must be a non-negative number within the token precision",
	CodeInvalidRecipient:       "Recipient must be a valid address",
	CodeInsufficientBalance:    "Amount exceeds balance",
	CodeInsufficientGasReserve: "Insufficient native balance to cover gas",
	CodeUnsupportedChain:       "Unsupported chain",
	CodeWalletNotConnected:     "Wallet not connected",

	CodeUserRejected:         "Transaction rejected in wallet",
	CodeInsufficientFunds:    "Insufficient funds for transfer and gas",
	CodeGasEstimationFailed:  "Gas estimation failed, the transfer would likely fail",
	CodeTransactionReverted:  "Transaction reverted on chain",
	CodeUnknownTransferError: "Transfer failed",

	CodeInvalidTransition:     "Action not allowed in the current transfer phase",
	CodeTransferInFlight:      "A transfer is already in progress",
	CodeEstimationUnavailable: "Estimate unavailable",
	CodeInvalidFeeSnapshot:    "Fee suggestion tiers are not ordered",
	CodeFeeSnapshotMissing:    "No fee suggestions available yet",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeTransactionNotFound:      "Transaction not found",
	CodeSignerUnavailable:        "Signing key unavailable",
	CodeInfuraAPIError:           "Gas suggestion service error",
	CodeMoralisAPIError:          "Token balance service error",
	CodeBinanceAPIError:          "Price service error",
	CodePriceUnavailable:         "No USD price for this token",
	CodeStreamSendError:          "Failed to send stream message",
}

// Message returns the default text for code.
func Message(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return string(code)
}
