// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"plc-service/internal/config"
	"plc-service/internal/plc"
	"plc-service/internal/routes"
	"plc-service/internal/service"
	"plc-service/internal/transport/s7"
	"plc-service/internal/transport/sim"
	"plc-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	schema     *plc.Schema
	plcService *service.PLCService

	pollCancel context.CancelFunc
}

func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "plc-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeSchema builds the field schema from configuration. Schema
// errors are definition errors and abort startup.
func (app *Application) initializeSchema() error {
	schema, err := config.BuildSchema(app.config.Schema)
	if err != nil {
		return err
	}
	app.schema = schema

	app.logger.Info("Schema initialized successfully",
		zap.Int("fields", schema.Len()),
		zap.Int("buffer_length", schema.BufferLength()),
	)
	return nil
}

// initializeServices wires the transport, connection and PLC service
func (app *Application) initializeServices() error {
	transport := app.buildTransport()

	conn := plc.NewConnection(app.schema, transport, app.config.PLC.DBNumber, app.logger)
	app.plcService = service.NewPLCService(conn, &app.config.PLC, app.logger)

	app.logger.Info("Services initialized successfully",
		zap.Int("db_number", app.config.PLC.DBNumber),
		zap.Bool("simulate", app.config.PLC.Simulate),
	)
	return nil
}

// buildTransport selects the device transport. Simulation mode backs
// the connection with an in-memory data block sized to the schema.
func (app *Application) buildTransport() plc.Transport {
	if app.config.PLC.Simulate {
		blocks := map[int][]byte{
			app.config.PLC.DBNumber: make([]byte, app.schema.BufferLength()),
		}
		return sim.NewTransport(blocks, app.logger)
	}

	return s7.NewClient(&s7.Config{
		Host:           app.config.PLC.Address,
		Port:           app.config.PLC.Port,
		Rack:           app.config.PLC.Rack,
		Slot:           app.config.PLC.Slot,
		ConnectTimeout: app.config.PLC.ConnectTimeout,
		ReadTimeout:    app.config.PLC.ReadTimeout,
		WriteTimeout:   app.config.PLC.WriteTimeout,
	}, app.logger)
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(app.config, app.logger, app.plcService)
	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// startBackgroundServices connects to the device and starts polling
// when configured. A failed auto-connect is logged, not fatal; the
// API can retry via /connect.
func (app *Application) startBackgroundServices() {
	ctx, cancel := context.WithCancel(context.Background())
	app.pollCancel = cancel

	if app.config.PLC.AutoConnect {
		connectCtx, connectCancel := context.WithTimeout(ctx, app.config.PLC.ConnectTimeout)
		if err := app.plcService.Connect(connectCtx); err != nil {
			app.logger.Warn("Auto-connect failed, PLC remains disconnected", zap.Error(err))
		} else if _, err := app.plcService.Read(connectCtx); err != nil {
			app.logger.Warn("Initial read failed", zap.Error(err))
		}
		connectCancel()
	}

	app.plcService.StartPolling(ctx)

	app.logger.Info("Background services started")
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "plc-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	if app.pollCancel != nil {
		app.pollCancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if err := app.plcService.Disconnect(); err != nil {
		app.logger.Error("PLC disconnect error", zap.Error(err))
	} else {
		app.logger.Info("PLC session closed")
	}

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}

	app.logger.Info("Application shutdown completed")
}

func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}
