package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"synergy/internal/config"
	"synergy/internal/game"
	"synergy/internal/share"
	"synergy/internal/terminal"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
)

func main() {
	seed := flag.Int64("seed", 0, "RNG seed (0 picks one from the clock)")
	eventLogPath := flag.String("events", "", "append game events to this JSONL file")
	flag.Parse()

	// Optional; the terminal owns stdout so stay quiet when it is missing
	_ = godotenv.Load(".env")

	tuning, err := config.TuningFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Logs would corrupt the screen
	log.SetOutput(io.Discard)

	var eventLog *game.EventLog
	if *eventLogPath != "" {
		eventLog = game.NewEventLog()
		if err := eventLog.Start(*eventLogPath); err != nil {
			fmt.Fprintf(os.Stderr, "Event log: %v\n", err)
			os.Exit(1)
		}
		defer eventLog.Stop()
	}

	engine := game.NewEngine(game.EngineConfig{
		Tuning:    tuning,
		Seed:      *seed,
		SessionID: "local",
		EventLog:  eventLog,
	})
	scheduler := game.NewScheduler(engine, game.SchedulerConfig{
		WaveSpawnInterval: tuning.WaveSpawnInterval,
	})

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := terminal.Run(ctx, screen, engine, scheduler)
	screen.Fini()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", runErr)
		os.Exit(1)
	}

	snap := engine.Snapshot()
	fmt.Printf("Final score %d, energy %d (seed %d)\n", snap.Score, snap.Length, engine.Seed())
	if snap.GameOver {
		fmt.Printf("Share it: %s\n", share.IntentURL(snap.Score))
	}
}
