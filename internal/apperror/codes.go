package apperror

// Code identifies an error condition across the application.
type Code string

// General codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen          Code = "CIRCUIT_OPEN"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Amount and pre-submission checks
const (
	CodeInvalidAmount          Code = "INVALID_AMOUNT"
	CodeInvalidRecipient       Code = "INVALID_RECIPIENT"
	CodeInsufficientBalance    Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientGasReserve Code = "INSUFFICIENT_GAS_RESERVE"
	CodeUnsupportedChain       Code = "UNSUPPORTED_CHAIN"
	CodeWalletNotConnected     Code = "WALLET_NOT_CONNECTED"
)

// Transfer failures reported to the user; each forces a lifecycle reset.
const (
	CodeUserRejected         Code = "USER_REJECTED"
	CodeInsufficientFunds    Code = "INSUFFICIENT_FUNDS"
	CodeGasEstimationFailed  Code = "GAS_ESTIMATION_FAILED"
	CodeTransactionReverted  Code = "TRANSACTION_REVERTED"
	CodeUnknownTransferError Code = "UNKNOWN_TRANSFER_ERROR"
)

// Lifecycle and estimation
const (
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeTransferInFlight      Code = "TRANSFER_IN_FLIGHT"
	CodeEstimationUnavailable Code = "ESTIMATION_UNAVAILABLE"
	CodeInvalidFeeSnapshot    Code = "INVALID_FEE_SNAPSHOT"
	CodeFeeSnapshotMissing    Code = "FEE_SNAPSHOT_MISSING"
)

// Providers
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeTransactionNotFound      Code = "TRANSACTION_NOT_FOUND"
	CodeSignerUnavailable        Code = "SIGNER_UNAVAILABLE"
	CodeInfuraAPIError           Code = "INFURA_API_ERROR"
	CodeMoralisAPIError          Code = "MORALIS_API_ERROR"
	CodeBinanceAPIError          Code = "BINANCE_API_ERROR"
	CodePriceUnavailable         Code = "PRICE_UNAVAILABLE"
	CodeStreamSendError          Code = "STREAM_SEND_ERROR"
)
