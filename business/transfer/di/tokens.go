// Package di contains dependency injection tokens for the transfer context.
package di

import (
	"github.com/fd1az/transfer-dashboard/business/transfer/app"
	"github.com/fd1az/transfer-dashboard/business/transfer/infra"
	"github.com/fd1az/transfer-dashboard/internal/di"
	"github.com/fd1az/transfer-dashboard/internal/wsconn"
)

// Public service tokens - exposed to other modules
var (
	Controller   = di.NewToken[*app.Controller]("transfer.Controller")
	InputSession = di.NewToken[*app.InputSession]("transfer.InputSession")
	// StreamHub is nil when the snapshot stream is disabled.
	StreamHub = di.NewToken[*wsconn.Hub]("transfer.StreamHub")
)

// Private dependency tokens - internal to transfer module
var (
	Lookup         = di.NewToken[app.TxLookup]("transfer:lookup")
	Estimator      = di.NewToken[*app.Estimator]("transfer:estimator")
	StatusPoller   = di.NewToken[*app.StatusPoller]("transfer:statusPoller")
	StreamReporter = di.NewToken[*infra.StreamReporter]("transfer:streamReporter")
)

// Helper functions for type-safe access
func GetController(c di.ServiceRegistry) *app.Controller {
	return di.GetToken(c, Controller)
}

func GetInputSession(c di.ServiceRegistry) *app.InputSession {
	return di.GetToken(c, InputSession)
}

func GetStreamHub(c di.ServiceRegistry) *wsconn.Hub {
	return di.GetToken(c, StreamHub)
}

func GetLookup(c di.ServiceRegistry) app.TxLookup {
	return di.GetToken(c, Lookup)
}

func GetEstimator(c di.ServiceRegistry) *app.Estimator {
	return di.GetToken(c, Estimator)
}

func GetStatusPoller(c di.ServiceRegistry) *app.StatusPoller {
	return di.GetToken(c, StatusPoller)
}

func GetStreamReporter(c di.ServiceRegistry) *infra.StreamReporter {
	return di.GetToken(c, StreamReporter)
}
