// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/config"
	"github.com/fd1az/transfer-dashboard/internal/di"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App implements the Monolith interface.
type App struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	assetRegistry *asset.Registry
	container     di.Container
	closers       []func() error
}

// New dials the configured node and registers the shared services.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*App, error) {
	url, err := cfg.Ethereum.RPCURL()
	if err != nil {
		return nil, err
	}

	ethClient, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum node: %w", err)
	}

	assetRegistry := asset.NewRegistry()

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("assetRegistry", assetRegistry)

	return &App{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		assetRegistry: assetRegistry,
		container:     container,
	}, nil
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *App) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *App) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *App) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

// OnClose registers fn to run on Close, last registered first.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// RegisterModules registers all provided modules in order.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %s: %w", ModuleName(m), err)
		}
	}
	return nil
}

// StartModules starts the modules in order and stops at the first failure.
// Startup may block on the node, so a cancelled ctx ends the sequence early.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := ModuleName(m)
		start := time.Now()
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		a.logger.Debug(ctx, "module started", "module", name, "took", time.Since(start).String())
	}
	return nil
}

// Close runs every registered closer, last registered first, then closes the
// node client. All closer errors are returned.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.ethClient != nil {
		a.ethClient.Close()
		a.ethClient = nil
	}
	return errors.Join(errs...)
}

// ModuleName names a module after its package, e.g. "gas" for *gas.Module.
func ModuleName(m Module) string {
	name := fmt.Sprintf("%T", m)
	name = strings.TrimPrefix(name, "*")
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}
