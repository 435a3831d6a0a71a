package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"playhouse/engine/catalog"
	"playhouse/engine/internal/config"
	enginehub "playhouse/engine/internal/hub"
	enginenet "playhouse/engine/internal/net"
	"playhouse/engine/internal/telemetry"
	"playhouse/engine/logging"
	loggingSinks "playhouse/engine/logging/sinks"
)

// Config carries the handful of knobs main injects; everything else comes
// from the YAML file resolved by the config package.
type Config struct {
	ConfigPath string
	ClientDir  string
	Logger     telemetry.Logger
}

func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	fileCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}

	logCfg := fileCfg.Logging.Build()
	namedSinks := []logging.NamedSink{
		{Name: logging.SinkConsole, Sink: loggingSinks.NewConsoleSink(os.Stdout, logCfg.Console)},
	}
	if logCfg.HasSink(logging.SinkJSON) && logCfg.JSON.FilePath != "" {
		file, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log %s: %w", logCfg.JSON.FilePath, err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: logging.SinkJSON,
			Sink: loggingSinks.NewJSON(file, logCfg.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logCfg, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	catalogPaths := fileCfg.Catalog.ResolvedPaths()
	if len(catalogPaths) == 0 {
		catalogPaths = catalog.DefaultPaths()
	}
	resolver, err := catalog.Load(catalogPaths...)
	if err != nil {
		return fmt.Errorf("failed to load piece catalog: %w", err)
	}
	telemetryLogger.Printf("piece catalog loaded: %d entries", len(resolver.Entries()))

	metrics := logging.NewMetrics()

	hub := enginehub.NewHub(enginehub.Config{
		GroundSize:   fileCfg.Ground.Dimensions(),
		Roof:         fileCfg.Roof,
		Tuning:       fileCfg.Snap,
		Catalog:      resolver,
		TickInterval: fileCfg.Server.TickInterval(),
		Publisher:    router,
		Logger:       telemetryLogger,
		Metrics:      telemetry.WrapMetrics(metrics),
	})

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	tickRate := int(1e9 / fileCfg.Server.TickInterval().Nanoseconds())
	handler := enginenet.NewHTTPHandler(hub, enginenet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    fallbackLogger,
		TickRate:  tickRate,
		Metrics:   metrics,
	})

	srv := &http.Server{Addr: fileCfg.Server.ListenAddr(), Handler: handler}
	telemetryLogger.Printf("server listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
