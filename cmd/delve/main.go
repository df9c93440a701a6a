package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/database"
	"github.com/lawnchairsociety/delve/internal/dungeon"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/logger"
	"github.com/lawnchairsociety/delve/internal/protocol"
	"github.com/lawnchairsociety/delve/internal/server"
)

func main() {
	configFile := flag.String("config", "data/delve.yaml", "Path to generator config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	seed := flag.String("seed", "", "Generation seed (default: random based on current time)")
	modeFlag := flag.String("mode", "batch", "Generation mode: batch or incremental")
	startFlag := flag.String("start", "", "Start position as x,y,z (default 0,0,0)")
	goalFlag := flag.String("goal", "", "Goal position as x,y,z (default 150,0,150)")
	outFile := flag.String("out", "", "Write the layout to this YAML file")
	name := flag.String("name", "", "Store the layout in the database under this name")
	dbFile := flag.String("db", "", "SQLite database path (overrides config)")
	driver := flag.String("driver", "", "Database driver: sqlite or postgres (overrides config)")
	verbose := flag.Bool("events", false, "Print every generation event")
	serve := flag.Bool("serve", false, "Run the WebSocket generation server")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbFile != "" {
		cfg.Database.SQLitePath = *dbFile
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}

	var db *database.Database
	if *serve || *name != "" {
		db, err = database.OpenWithConfig(database.FromConfig(cfg.Database))
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		logger.Info("Layout database initialized", "driver", cfg.Database.Driver)
	}

	if *serve {
		runServer(cfg, db)
		return
	}

	mode, err := dungeon.ParseMode(*modeFlag)
	if err != nil {
		log.Fatalf("Invalid mode: %v", err)
	}
	start, err := parseVec(*startFlag, dungeon.DefaultStart)
	if err != nil {
		log.Fatalf("Invalid start: %v", err)
	}
	goal, err := parseVec(*goalFlag, dungeon.DefaultGoal)
	if err != nil {
		log.Fatalf("Invalid goal: %v", err)
	}

	genSeed := *seed
	if genSeed == "" {
		genSeed = strconv.FormatInt(time.Now().UnixNano()%(1<<32), 10)
		logger.Info("Seed selected", "seed", genSeed, "random", true)
	}

	b := dungeon.NewBuilder(cfg)
	if *verbose {
		b.SetListener(protocol.ListenerFunc(func(e protocol.Event) {
			frame, err := protocol.Encode(0, e)
			if err == nil {
				fmt.Println(string(frame))
			}
		}))
	}

	l, err := b.Run(mode, genSeed, start, goal)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}
	if err := l.Validate(cfg.Resolver.TouchTolerance); err != nil {
		logger.Warning("Layout failed validation", "error", err)
	}

	fmt.Printf("seed %s (%d) mode %s\n", l.Seed, l.SeedValue, l.Mode)
	fmt.Printf("points %d, segments %d, branches %d, doorways %d, shifts %d\n",
		len(l.Points), len(l.Segments), len(l.Branches), len(l.Doorways), l.ShiftCount)
	fmt.Printf("fingerprint %s\n", l.Fingerprint)
	for _, w := range l.Warnings {
		fmt.Printf("warning: %s\n", w)
	}

	if *outFile != "" {
		if err := dungeon.SaveLayout(l, *outFile); err != nil {
			log.Fatalf("Failed to write layout: %v", err)
		}
		logger.Info("Layout written", "path", *outFile)
	}
	if *name != "" {
		id, err := db.SaveLayout(*name, l)
		if err != nil {
			log.Fatalf("Failed to store layout: %v", err)
		}
		logger.Info("Layout stored", "name", *name, "id", id)
	}
}

func runServer(cfg *config.Config, db *database.Database) {
	srv := server.NewServer(cfg)
	srv.SetDatabase(db)

	origins := cfg.Server.WebSocket.AllowedOrigins
	if len(origins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(origins) == 1 && origins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", origins)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	logger.Info("Press Ctrl+C to shutdown")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	srv.Shutdown()
	logger.Info("Server stopped")
}

// parseVec reads "x,y,z"; an empty string yields fallback.
func parseVec(s string, fallback layout.Vec3) (layout.Vec3, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return layout.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return layout.Vec3{}, fmt.Errorf("bad coordinate %q: %w", p, err)
		}
		v[i] = f
	}
	return layout.V(v[0], v[1], v[2]), nil
}
