package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wfunc/traitorserver/broadcast"
	"github.com/wfunc/traitorserver/config"
	"github.com/wfunc/traitorserver/gateway"
	"github.com/wfunc/traitorserver/logger"
	"github.com/wfunc/traitorserver/monitor"
	"github.com/wfunc/traitorserver/persistence"
	"github.com/wfunc/traitorserver/room"
	"github.com/wfunc/traitorserver/rpc"
	"github.com/wfunc/traitorserver/server"
	"github.com/wfunc/traitorserver/services"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	flag.Parse()

	// Bootstrap logger so startup failures are visible before config is read
	if err := logger.Init("info", false); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Log.Warnf("Failed to read .env: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Re-initialize logger from config
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		logger.Log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Log.Infof("Database ready (driver %s).", cfg.Database.Driver)

	mon := monitor.NewMonitor(cfg.Server.MetricsNamespace)
	records := services.NewRecordService(db)
	rooms := room.NewRoomManager()
	gw := gateway.New(cfg.Game, rooms, broadcast.NewRoomBroadcaster(rooms, mon),
		gateway.WithMonitor(mon),
		gateway.WithArchiver(records),
	)

	// RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewGameService(records))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpcServer.Listen(); err != nil {
		logger.Log.Fatalf("Failed to bind RPC server: %v", err)
	}
	go rpcServer.Start()

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server, cfg.Rooms, gw, records, mon)
	errs := make(chan error, 1)
	go func() {
		errs <- gameServer.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errs:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	case <-ctx.Done():
		logger.Log.Info("Shutdown signal received.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Game server shutdown: %v", err)
	}
	rpcServer.Stop()
	gw.Wait()
	logger.Log.Info("Bye.")
}
