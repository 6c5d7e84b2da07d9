// Package main is the entry point for the Transfer Dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/transfer-dashboard/business/blockchain"
	blockchainDI "github.com/fd1az/transfer-dashboard/business/blockchain/di"
	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/business/gas"
	gasDI "github.com/fd1az/transfer-dashboard/business/gas/di"
	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/business/pricing"
	pricingDI "github.com/fd1az/transfer-dashboard/business/pricing/di"
	"github.com/fd1az/transfer-dashboard/business/transfer"
	transferApp "github.com/fd1az/transfer-dashboard/business/transfer/app"
	transferDI "github.com/fd1az/transfer-dashboard/business/transfer/di"
	transferDomain "github.com/fd1az/transfer-dashboard/business/transfer/domain"
	"github.com/fd1az/transfer-dashboard/business/transfer/infra"
	"github.com/fd1az/transfer-dashboard/business/wallet"
	walletDI "github.com/fd1az/transfer-dashboard/business/wallet/di"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/apm"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/config"
	"github.com/fd1az/transfer-dashboard/internal/health"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/metrics"
	"github.com/fd1az/transfer-dashboard/internal/monolith"
	"github.com/fd1az/transfer-dashboard/internal/wsconn"
	"github.com/fd1az/transfer-dashboard/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

type options struct {
	configPath string
	mode       string
	to         string
	amount     string
	token      string
	logLevel   string
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.mode, "mode", "tui", "Run mode: tui or cli")
	flag.StringVar(&opts.to, "to", "", "Recipient address (cli mode)")
	flag.StringVar(&opts.amount, "amount", "", "Amount to send in token units (cli mode)")
	flag.StringVar(&opts.token, "token", "", "Token symbol or contract address, the native coin when empty (cli mode)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Override app.log_level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("transfer-dashboard %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if opts.mode != "tui" && opts.mode != "cli" {
		fmt.Fprintf(os.Stderr, "error: unknown mode %q (want tui or cli)\n", opts.mode)
		os.Exit(2)
	}
	tuiMode := opts.mode == "tui"

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, opts, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, tuiMode bool) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.App.LogLevel = opts.logLevel
	}

	// TUI output owns the terminal; warnings reach it through the event hook.
	var out io.Writer = os.Stderr
	if tuiMode {
		out = io.Discard
	}
	log := newLogger(out, cfg)
	tuiSink := infra.NewTUIReporter()
	if tuiMode {
		log.AddEventHook(func(_ context.Context, r logger.Record) {
			if r.Level < logger.LevelWarn {
				return
			}
			tuiSink.Send(ui.LogMsg{
				Level:   strings.ToLower(slog.Level(r.Level).String()),
				Message: r.Message,
			})
		})
	}

	log.Info(ctx, "starting transfer dashboard",
		"version", version,
		"environment", cfg.App.Environment,
		"mode", opts.mode,
		"chain_id", cfg.Ethereum.ChainID,
	)

	stopTelemetry := startTelemetry(ctx, cfg, tuiMode, log)
	defer stopTelemetry()

	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "error during shutdown", "error", err)
		}
	}()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - node access and heads
		&gas.Module{},        // Fee tiers and the gas reserve
		&pricing.Module{},    // USD quotes for unpriced tokens
		&wallet.Module{},     // Session and token balances
		&transfer.Module{},   // Lifecycle, form and stream
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	sr := mono.Services()

	// Closers run last registered first.
	mono.OnClose(func() error {
		pricingDI.GetPricingService(sr).Close()
		return nil
	})
	mono.OnClose(func() error {
		walletDI.GetWalletService(sr).Close()
		return nil
	})
	mono.OnClose(func() error {
		gasDI.GetFeeFeed(sr).Stop()
		return nil
	})
	mono.OnClose(func() error {
		transferDI.GetInputSession(sr).Close()
		transferDI.GetController(sr).Close()
		return nil
	})

	stopServers := startServers(ctx, cfg, mono, log)
	defer stopServers()

	if tuiMode {
		return runTUI(ctx, mono, modules, tuiSink)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	return runCLI(ctx, mono, opts, log)
}

func newLogger(out io.Writer, cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.App.LogLevel)
	if cfg.App.LogFormat == "json" {
		return logger.NewJSON(out, level, cfg.App.Name, traceID)
	}
	return logger.New(out, level, cfg.App.Name, traceID)
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// startTelemetry installs the tracer and meter providers and serves the
// prometheus endpoint. The returned func flushes and stops them.
func startTelemetry(ctx context.Context, cfg *config.Config, tuiMode bool, log logger.LoggerInterface) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	provider := apm.ParseProvider(cfg.Telemetry.TraceProvider)
	if tuiMode && provider == apm.ConsoleProvider {
		// the console exporter would write over the TUI
		provider = apm.EmptyProvider
	}
	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		Provider:    provider,
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
	}, log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", "provider", provider, "error", err)
		tp = nil
	} else {
		log.Info(ctx, "tracing initialized", "provider", provider, "endpoint", cfg.Telemetry.OTLPEndpoint)
	}

	providers := []metrics.Provider{metrics.PrometheusProvider}
	if provider == apm.OTLPGRPCProvider && cfg.Telemetry.OTLPEndpoint != "" {
		providers = append(providers, metrics.OtelCollector)
	}
	mp, err := metrics.NewMetricProvider(ctx, metrics.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Providers:   providers,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		log.Warn(ctx, "metrics disabled", "error", err)
	}

	metricsServer := metrics.NewServer(cfg.Telemetry.PrometheusPort, nil, log)
	metricsServer.Start()
	log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "failed to stop metrics server", "error", err)
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				log.Warn(shutdownCtx, "failed to flush metrics", "error", err)
			}
		}
		if tp != nil {
			if err := tp.Stop(); err != nil {
				log.Warn(shutdownCtx, "failed to flush traces", "error", err)
			}
		}
	}
}

// startServers starts the health probes and, when enabled, the snapshot
// stream. The returned func shuts both down.
func startServers(ctx context.Context, cfg *config.Config, mono *monolith.App, log logger.LoggerInterface) func() {
	sr := mono.Services()
	feed := gasDI.GetFeeFeed(sr)

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	healthServer.RegisterCheck("rpc", health.Ping(func(ctx context.Context) error {
		_, err := blockchainDI.GetRPC(sr).ChainID(ctx)
		return err
	}))
	healthServer.RegisterCheck("fees", health.Freshness(func() (time.Time, bool) {
		snap, ok := feed.Latest(feed.ActiveChain())
		return snap.FetchedAt, ok
	}, cfg.Health.FeeStaleAfter, time.Now), health.Advisory())

	healthStarted := true
	if err := healthServer.Start(); err != nil {
		healthStarted = false
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "addr", healthServer.Addr())
	}

	var streamServer *wsconn.Server
	if hub := transferDI.GetStreamHub(sr); hub != nil {
		streamServer = wsconn.NewServer(cfg.Stream.Port, hub, log)
		streamServer.Start()
		log.Info(ctx, "snapshot stream started", "port", cfg.Stream.Port, "path", wsconn.StreamPath)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if streamServer != nil {
			if err := streamServer.Stop(shutdownCtx); err != nil {
				log.Warn(shutdownCtx, "failed to stop stream server", "error", err)
			}
		}
		if healthStarted {
			if err := healthServer.Stop(shutdownCtx); err != nil {
				log.Warn(shutdownCtx, "failed to stop health server", "error", err)
			}
		}
	}
}

// runCLI performs one transfer and prints its progress until it confirms or
// fails.
func runCLI(ctx context.Context, mono *monolith.App, opts options, log logger.LoggerInterface) error {
	if opts.to == "" || opts.amount == "" {
		return errors.New("cli mode needs -to and -amount")
	}

	sr := mono.Services()
	sess := walletDI.GetSessionTracker(sr).Current()
	if !sess.Connected {
		return apperror.New(apperror.CodeWalletNotConnected,
			apperror.WithMessage("no signer configured, set TRANSFER_PRIVATE_KEY or use the keyring"))
	}

	portfolio, err := walletDI.GetWalletService(sr).Portfolio(ctx, sess)
	if err != nil {
		return fmt.Errorf("failed to load balances: %w", err)
	}
	tok, ok := pickToken(portfolio, opts.token)
	if !ok {
		return apperror.New(apperror.CodeNotFound,
			apperror.WithMessage(fmt.Sprintf("token %q not held by %s", opts.token, sess.Account.Hex())))
	}

	inputs := transferDI.GetInputSession(sr)
	if native, ok := portfolio.Native(); ok {
		inputs.SetNativeBalance(native.Balance)
	}
	inputs.SelectToken(tok)
	inputs.SetAmount(opts.amount)
	inputs.SetRecipient(opts.to)

	state := inputs.Check(ctx)
	if err := inputs.Ready(); err != nil {
		return err
	}
	log.Info(ctx, "transfer ready",
		"token", tok.Symbol(),
		"amount", opts.amount,
		"to", opts.to,
		"gas_reserve_wei", state.Required)

	controller := transferDI.GetController(sr)
	reporter := infra.NewConsoleReporter()
	if err := transfer.Attach(ctx, controller, reporter); err != nil {
		return fmt.Errorf("failed to start reporter: %w", err)
	}
	defer reporter.Stop()

	if _, err := controller.Submit(ctx, inputs.Request()); err != nil {
		return err
	}

	n, err := reporter.Wait(ctx)
	if err != nil {
		log.Info(ctx, "shutting down before confirmation")
		return nil
	}
	if n.Kind == transferDomain.NotifyError {
		if n.Err != nil {
			return n.Err
		}
		return errors.New(n.Message)
	}
	return nil
}

func pickToken(p walletDomain.Portfolio, ref string) (walletDomain.Token, bool) {
	if ref == "" {
		return p.Native()
	}
	return p.Find(ref)
}

// runTUI shows the dashboard immediately and starts the modules behind it.
func runTUI(ctx context.Context, mono *monolith.App, modules []monolith.Module, sink *infra.TUIReporter) error {
	// Quitting the TUI stops the background work too.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sr := mono.Services()
	controller := transferDI.GetController(sr)
	inputs := transferDI.GetInputSession(sr)
	walletSvc := walletDI.GetWalletService(sr)
	tracker := walletDI.GetSessionTracker(sr)
	feed := gasDI.GetFeeFeed(sr)
	chain := blockchainDI.GetBlockchainService(sr)

	model := ui.New(ui.Deps{
		Context:   ctx,
		Form:      inputs,
		Transfers: controller,
		Portfolio: func(ctx context.Context) (walletDomain.Portfolio, error) {
			return walletSvc.Refresh(ctx, tracker.Current())
		},
		Session: tracker.Current(),
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Every producer goes through the sink so none blocks on the event loop.
	sink.Attach(p)
	if err := transfer.Attach(ctx, controller, sink); err != nil {
		return err
	}
	defer sink.Stop()

	feed.OnSnapshot(func(s gasDomain.FeeTierSnapshot) {
		sink.Send(ui.FeeSnapshotMsg{Snapshot: s})
	})
	inputs.OnChange(func(st transferApp.InputState) {
		sink.Send(ui.InputMsg{State: st})
	})
	tracker.OnChange(func(_ context.Context, c walletDomain.SessionChange) {
		sink.Send(ui.SessionMsg{Session: c.Current})
	})

	errCh := make(chan error, 1)
	go func() {
		if err := mono.StartModules(ctx, modules...); err != nil {
			err = fmt.Errorf("failed to start modules: %w", err)
			sink.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		if err := chain.FollowHeads(ctx, func(b *blockchainDomain.Block) {
			sink.Send(ui.BlockMsg{Number: b.Number, Timestamp: b.Timestamp})
		}); err != nil {
			sink.Send(ui.ErrorMsg{Error: err})
		}
		watchConnection(ctx, chain.ConnectionState, sink)
		errCh <- nil
	}()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// watchConnection reports node connection changes until ctx ends.
func watchConnection(ctx context.Context, state func() blockchainDomain.ConnectionState, sink *infra.TUIReporter) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	last := blockchainDomain.ConnectionState("")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := state()
			if cur == last {
				continue
			}
			last = cur
			sink.Send(ui.ConnectionStatusMsg{Name: "node", Connected: cur == blockchainDomain.StateConnected})
		}
	}
}
