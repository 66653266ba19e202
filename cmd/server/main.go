package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"synergy/internal/api"
	"synergy/internal/config"
	"synergy/internal/game"
	"synergy/internal/render"
	"synergy/internal/session"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  SYNERGY - GAME SERVER")
	log.Println("🎮 ================================")

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	serverCfg := appConfig.Server
	tuning := appConfig.Tuning

	log.Printf("🎮 Tuning: grid %d, speed %d→%dms, waves %.0f%%/%v (max %d), %d lives",
		tuning.GridSize, tuning.InitialSpeed, tuning.MinSpeed,
		tuning.WaveSpawnChance*100, tuning.WaveSpawnInterval, tuning.MaxWaves, tuning.InitialLives)
	log.Printf("🛡️ Limits: %d sessions, idle timeout %v, %.0f req/s per IP",
		appConfig.Limits.MaxSessions, appConfig.Limits.IdleTimeout, appConfig.RateLimit.RequestsPerSecond)

	// Start event log
	eventLog := game.NewEventLog()
	if err := eventLog.Start(appConfig.EventLog.Path); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
		eventLog = nil
	} else if appConfig.EventLog.Path != "" {
		log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
	}

	// Start debug server
	debugSrv := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:       serverCfg.DebugAddr != "",
		ListenAddr:    serverCfg.DebugAddr,
		BasicAuthUser: serverCfg.DebugUser,
		BasicAuthPass: serverCfg.DebugPass,
	})

	manager := session.NewManager(session.Config{
		MaxSessions:  appConfig.Limits.MaxSessions,
		IdleTimeout:  appConfig.Limits.IdleTimeout,
		ReapInterval: appConfig.Limits.ReapInterval,
		Tuning:       tuning,
		EventLog:     eventLog,
		Hooks:        api.SessionHooks(),
	})
	manager.Start()

	server := api.NewServer(api.ServerConfig{
		Sessions: manager,
		EventLog: eventLog,
		Renderer: render.NewRenderer(appConfig.Render.CellSize),
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: appConfig.RateLimit.RequestsPerSecond,
			Burst:             appConfig.RateLimit.Burst,
		},
		MaxWSPerIP:     appConfig.RateLimit.MaxWSPerIP,
		CORSOrigins:    serverCfg.CORSOrigins,
		DisableLogging: !serverCfg.LogRequests,
	})

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	manager.StopAll()
	if debugSrv != nil {
		debugSrv.Shutdown(ctx)
	}
	if eventLog != nil {
		stats := eventLog.GetStats()
		eventLog.Stop()
		log.Printf("📝 Event log closed (%v events, %v dropped)", stats["total"], stats["dropped"])
	}

	log.Println("👋 Goodbye!")
}
