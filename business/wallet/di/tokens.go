// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/fd1az/transfer-dashboard/business/wallet/app"
	"github.com/fd1az/transfer-dashboard/internal/di"
)

// Public service tokens - exposed to other modules
var (
	WalletService  = di.NewToken[*app.Service]("wallet.Service")
	SessionTracker = di.NewToken[*app.SessionTracker]("wallet.SessionTracker")
)

// Private dependency tokens - internal to wallet module
var (
	// TokenLister is nil when no token API key is configured.
	TokenLister = di.NewToken[app.TokenLister]("wallet:tokenLister")
)

// Helper functions for type-safe access
func GetWalletService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, WalletService)
}

func GetSessionTracker(c di.ServiceRegistry) *app.SessionTracker {
	return di.GetToken(c, SessionTracker)
}

func GetTokenLister(c di.ServiceRegistry) app.TokenLister {
	return di.GetToken(c, TokenLister)
}
