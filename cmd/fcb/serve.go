package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flight-bridge/fcb/internal/api"
	"github.com/flight-bridge/fcb/internal/audit"
	"github.com/flight-bridge/fcb/internal/auth"
	"github.com/flight-bridge/fcb/internal/bridge"
	"github.com/flight-bridge/fcb/internal/config"
	"github.com/flight-bridge/fcb/internal/dji"
	"github.com/flight-bridge/fcb/internal/dji/sim"
	"github.com/flight-bridge/fcb/internal/flightlog"
	"github.com/flight-bridge/fcb/internal/logging"
	"github.com/flight-bridge/fcb/internal/stick"
	"github.com/flight-bridge/fcb/internal/telemetry"
)

// errNoSDK is returned by serve when no flight-controller SDK is linked.
var errNoSDK = errors.New("no flight-controller SDK is linked into this build; run with --simulate")

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge and its HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().Bool("simulate", false, "use the in-memory simulated aircraft")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, v, err := config.Load(path)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if simulate, _ := cmd.Flags().GetBool("simulate"); simulate {
		cfg.Simulator.Enabled = true
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()
	log := logger.Component("main")
	log.Info("starting fcb", "version", Version, "config", v.ConfigFileUsed())

	config.Watch(v, log, func(next *config.Config) {
		logger.SetLevel(next.Logging.Level)
	})

	sdk, err := openSDK(cfg.Simulator, log)
	if err != nil {
		return err
	}
	if closer, ok := sdk.(interface{ Close() }); ok {
		defer closer.Close()
	}

	hub := telemetry.NewHub(cfg.Timing, logger.Component("telemetry"))
	defer hub.Stop()

	b := bridge.New(sdk, hub, cfg.Timing, logger.Component("bridge"))
	defer b.Close()
	hub.SetSnapshotFunc(b.Snapshot)

	recorder := flightlog.NewRecorder(sdk, cfg.Recorder, logger.Component("flightlog"))
	defer func() {
		if err := recorder.Close(); err != nil {
			log.Warn("flight log close failed", "error", err)
		}
	}()
	b.SetFlightDataLogger(recorder)

	vs := stick.NewController(sdk, hub, cfg.VirtualStick, logger.Component("stick"))
	defer vs.Close()
	b.SetVirtualStick(vs)

	if cfg.Audit.Enabled {
		auditLogger, err := audit.NewLogger(cfg.Audit, logger.Component("audit"))
		if err != nil {
			return err
		}
		defer func() { _ = auditLogger.Close() }()
		b.SetAuditLogger(auditLogger)
	}

	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		if verifier, err = auth.NewVerifier(cfg.Auth); err != nil {
			return fmt.Errorf("failed to initialize auth: %w", err)
		}
	}
	middleware := auth.NewMiddleware(verifier, logger.Component("auth"))

	server := api.NewServer(cfg.Server, hub, b, middleware, logger.Component("api"), Version)

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case sig := <-shutdown:
		log.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		return err
	}

	if err := server.Stop(context.Background()); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	log.Info("fcb shutdown complete")
	return nil
}

// openSDK returns the flight-controller SDK for this process.
func openSDK(cfg config.SimulatorConfig, log *slog.Logger) (dji.SDK, error) {
	if !cfg.Enabled {
		return nil, errNoSDK
	}
	log.Info("using simulated aircraft", "callbackDelay", cfg.CallbackDelay, "executionStep", cfg.ExecutionStep)
	return sim.New(sim.Options{
		CallbackDelay: cfg.CallbackDelay,
		ExecutionStep: cfg.ExecutionStep,
	}), nil
}
