package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/database"
	"github.com/lawnchairsociety/delve/internal/dungeon"
	"github.com/lawnchairsociety/delve/internal/logger"
)

func main() {
	inputFile := flag.String("input", "data/layout.yaml", "Path to a saved layout YAML file")
	name := flag.String("name", "", "Load the named layout from the database instead of -input")
	configFile := flag.String("config", "data/delve.yaml", "Generator config (database settings for -name)")
	levelNum := flag.Int("level", -1, "Level index to display, lowest first (-1 for all levels)")
	cell := flag.Float64("cell", 2, "World units per character")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend")
	view := flag.Bool("view", false, "Open the interactive terminal viewer")
	flag.Parse()

	logger.Disable()

	if *cell <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -cell must be positive")
		os.Exit(1)
	}

	l, err := loadLayout(*inputFile, *name, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading layout: %v\n", err)
		os.Exit(1)
	}

	if *view {
		start := *levelNum
		if start < 0 {
			start = 0
		}
		if err := runViewer(l, *cell, start); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	out, err := Render(l, *levelNum, *cell, *showLegend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(out), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Map written to %s\n", *outputFile)
	} else {
		fmt.Print(out)
	}
}

func loadLayout(inputFile, name, configFile string) (*dungeon.Layout, error) {
	if name == "" {
		return dungeon.LoadLayout(inputFile)
	}
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	db, err := database.OpenWithConfig(database.FromConfig(cfg.Database))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	stored, err := db.GetLayoutByName(name)
	if err != nil {
		return nil, err
	}
	return stored.Layout, nil
}

// Render draws one level, or all of them when level is negative.
func Render(l *dungeon.Layout, level int, cell float64, withLegend bool) (string, error) {
	levels := l.Levels()
	if level >= len(levels) {
		return "", fmt.Errorf("level %d not found (layout has %d levels)", level, len(levels))
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Layout %q  seed=%s  mode=%s  rooms=%d  doorways=%d\n",
		l.Name, l.Seed, l.Mode, len(l.Rooms), len(l.Doorways)))
	if withLegend {
		output.WriteString(legend())
	}
	output.WriteString("\n")

	for i, floor := range levels {
		if level >= 0 && i != level {
			continue
		}
		output.WriteString(strings.Repeat("=", 60) + "\n")
		output.WriteString(Rasterize(l, floor, cell).String())
		output.WriteString("\n")
	}
	return output.String(), nil
}
