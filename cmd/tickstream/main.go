// Package main is the entry point for the tick-stream client.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/brokerfeed/tickstream/internal/apm"
	"github.com/brokerfeed/tickstream/internal/config"
	"github.com/brokerfeed/tickstream/internal/health"
	"github.com/brokerfeed/tickstream/internal/logger"
	"github.com/brokerfeed/tickstream/internal/metrics"
	"github.com/brokerfeed/tickstream/internal/monolith"
	"github.com/brokerfeed/tickstream/internal/multimanager"
	"github.com/brokerfeed/tickstream/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tickstream %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting tick-stream client",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	app, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	healthServer := health.NewServer(8081, version)
	healthServer.RegisterCheck("stream", func(ctx context.Context) (bool, string) {
		if app.Manager().Health() {
			return true, "all connections healthy"
		}
		return false, "one or more connections unhealthy"
	})
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	if tuiMode {
		return runTUI(ctx, app)
	}
	return runCLI(ctx, app, log)
}

func runCLI(ctx context.Context, app *monolith.App, log *logger.Logger) error {
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start stream manager: %w", err)
	}
	log.Info(ctx, "all connections started, streaming ticks")

	sub := app.Manager().UnifiedChannel()
	go drainUnifiedChannel(ctx, sub, log)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "shutting down")
			sub.Close()
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.Stop(stopCtx); err != nil {
				log.Error(ctx, "error stopping stream manager", "error", err)
			}
			return nil
		case <-ticker.C:
			agg := app.Manager().Stats()
			log.Info(ctx, "stream stats",
				"connections", fmt.Sprintf("%d/%d", agg.HealthyConnections, agg.TotalConnections),
				"frames", agg.Frames, "packets", agg.Packets, "errors", agg.Errors, "dropped", agg.Dropped,
			)
		}
	}
}

func drainUnifiedChannel(ctx context.Context, sub interface {
	C() <-chan multimanager.TaggedItem
}, log *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-sub.C():
			if !ok {
				return
			}
			if item.Item.Err != nil {
				log.Warn(ctx, "decode error", "credential", item.CredentialID, "error", item.Item.Err)
				continue
			}
			if item.Item.Closing != "" {
				log.Warn(ctx, "connection closing", "credential", item.CredentialID, "reason", item.Item.Closing)
			}
		}
	}
}

func runTUI(ctx context.Context, app *monolith.App) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(app.Manager().Credentials()), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := app.Start(ctx); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		go pollStats(ctx, app)
		go forwardTicks(ctx, app)

		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		app.Stop(stopCtx)
		errCh <- nil
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

// pollStats periodically refreshes the TUI's aggregate counters, symbol
// distribution, and per-credential connection status.
func pollStats(ctx context.Context, app *monolith.App) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mgr := app.Manager()
			ui.Send(ui.StatsMsg{Aggregate: mgr.Stats()})

			perCred := make(map[string]int)
			for credID, byConn := range mgr.SymbolDistribution() {
				n := 0
				for _, toks := range byConn {
					n += len(toks)
				}
				perCred[credID] = n
			}
			ui.Send(ui.SymbolDistributionMsg{PerCredential: perCred})

			for credID, healthy := range mgr.HealthByCredential() {
				ui.Send(ui.ConnectionStatusMsg{
					CredentialID: credID,
					Connected:    healthy,
					State:        stateLabel(healthy),
				})
			}
		}
	}
}

func stateLabel(healthy bool) string {
	if healthy {
		return "open"
	}
	return "degraded"
}

// forwardTicks relays the unified output channel onto the TUI as activity
// and error messages.
func forwardTicks(ctx context.Context, app *monolith.App) {
	sub := app.Manager().UnifiedChannel()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-sub.C():
			if !ok {
				return
			}
			switch {
			case item.Item.Err != nil:
				ui.Send(ui.ErrorMsg{Error: fmt.Errorf("%s: %v", item.CredentialID, item.Item.Err)})
			case item.Item.Closing != "":
				ui.Send(ui.ErrorMsg{Error: fmt.Errorf("%s: %s", item.CredentialID, item.Item.Closing)})
			case len(item.Item.Ticks) > 0:
				ui.Send(ui.TickBatchMsg{CredentialID: item.CredentialID, TickCount: len(item.Item.Ticks)})
			}
		}
	}
}
