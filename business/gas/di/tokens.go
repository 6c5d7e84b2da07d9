// Package di contains dependency injection tokens for the gas context.
package di

import (
	"github.com/fd1az/transfer-dashboard/business/gas/app"
	"github.com/fd1az/transfer-dashboard/internal/di"
)

// Public service tokens - exposed to other modules
var (
	FeeFeed            = di.NewToken[*app.FeeFeed]("gas.FeeFeed")
	RequirementService = di.NewToken[*app.RequirementService]("gas.RequirementService")
)

// Private dependency tokens - internal to gas module
var (
	FeeProvider = di.NewToken[app.FeeSuggestionProvider]("gas:feeProvider")
)

func GetFeeFeed(c di.ServiceRegistry) *app.FeeFeed {
	return di.GetToken(c, FeeFeed)
}

func GetRequirementService(c di.ServiceRegistry) *app.RequirementService {
	return di.GetToken(c, RequirementService)
}

func GetFeeProvider(c di.ServiceRegistry) app.FeeSuggestionProvider {
	return di.GetToken(c, FeeProvider)
}
