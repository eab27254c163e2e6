package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"market-simulator/src/analysis"
	"market-simulator/src/config"
	"market-simulator/src/grpc_control"
	"market-simulator/src/logger"
	"market-simulator/src/market"
	"market-simulator/src/server"
	"market-simulator/src/storage"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	writeConfig := flag.String("write-config", "", "write the effective config to this path and exit")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Printf("Error loading %s: %v\n", *envPath, err)
		os.Exit(1)
	}

	// Load config from YAML file, then defaults and environment
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := cfg.Save(*writeConfig); err != nil {
			fmt.Printf("Error writing config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	appLogger := logger.NewLogger(cfg, cfg.Name)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	db, err := storage.NewDatabase(cfg.MConfig, logger.NewLogger(cfg, "Storage"))
	if err != nil {
		appLogger.Critical("Failed to create database: %v", err)
		os.Exit(1)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	if err := db.RegisterMarkets(cfg.Markets); err != nil {
		appLogger.Warning("Failed to register markets: %v", err)
	}

	// 2. Catalog and book sessions
	catalog, err := market.NewCatalog(cfg.Markets)
	if err != nil {
		appLogger.Critical("Invalid market catalog: %v", err)
		os.Exit(1)
	}

	journalCtx, stopJournal := context.WithCancel(context.Background())
	journal := market.NewJournal(db, logger.NewLogger(cfg, "Journal"))
	journal.Start(journalCtx)

	sessions := market.NewSessionManager(ctx, cfg.MConfig, catalog, journal, logger.NewLogger(cfg, "Sessions"))
	hist := market.NewHistoryService(catalog, nil, analysis.NewAnalysisFacade(logger.NewLogger(cfg, "Analysis")))
	appLogger.Info("Loaded %d markets (run %s)", catalog.Len(), sessions.RunID)

	// 3. HTTP and websocket server
	srv := server.NewMarketServer(cfg.MConfig, logger.NewLogger(cfg, "Server"), sessions, hist)
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
			stop()
		}
	}()

	// 4. gRPC control server
	var grpcServer *grpc.Server
	if cfg.GrpcPort != 0 {
		addr := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			appLogger.Critical("failed to listen for gRPC: %v", err)
			os.Exit(1)
		}
		grpcServer = grpc.NewServer()
		grpc_control.RegisterControlServer(grpcServer, grpc_control.NewControlService(sessions, logger.NewLogger(cfg, "ControlService")))

		go func() {
			appLogger.Info("Starting gRPC Control Server on %s", addr)
			if err := grpcServer.Serve(lis); err != nil {
				appLogger.Critical("failed to serve gRPC: %v", err)
			}
		}()
	}

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	if err := srv.Stop(); err != nil {
		appLogger.Warning("Server shutdown: %v", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	sessions.CloseAll()

	// Final flush after every book has stopped
	stopJournal()
	journal.Wait()
	if n := journal.Dropped(); n > 0 {
		appLogger.Warning("Journal dropped %d tick records", n)
	}

	if err := db.Close(); err != nil {
		appLogger.Warning("Failed to close database: %v", err)
	}
	appLogger.Info("Bye.")
}
