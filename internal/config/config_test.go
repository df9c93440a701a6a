package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Generation.BaseUnit != 4 {
		t.Errorf("expected base unit 4, got %d", cfg.Generation.BaseUnit)
	}
	if cfg.Resolver.MaxShiftAttempts != 10 {
		t.Errorf("expected 10 shift attempts, got %d", cfg.Resolver.MaxShiftAttempts)
	}
	if len(cfg.Server.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.Server.WebSocket.AllowedOrigins)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/delve.yaml")
	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}
	if cfg.Generation.ScanDistance != 96 {
		t.Errorf("expected default scan distance, got %v", cfg.Generation.ScanDistance)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "delve.yaml")

	content := `
generation:
  base_unit: 8
  max_segments_per_branch: 5
rooms:
  junction:
    width_scale: 1.5
server:
  websocket:
    allowed_origins:
      - "https://example.com"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Generation.BaseUnit != 8 {
		t.Errorf("expected base unit 8, got %d", cfg.Generation.BaseUnit)
	}
	if cfg.Generation.MaxSegmentsPerBranch != 5 {
		t.Errorf("expected 5 segments per branch, got %d", cfg.Generation.MaxSegmentsPerBranch)
	}
	// Unset fields keep defaults.
	if cfg.Generation.ScanDistance != 96 {
		t.Errorf("scan distance should keep default, got %v", cfg.Generation.ScanDistance)
	}
	if cfg.Rooms.Junction.WidthScale != 1.5 {
		t.Errorf("expected junction width scale 1.5, got %v", cfg.Rooms.Junction.WidthScale)
	}
	if cfg.Rooms.Junction.HeightMultiplier != 1.25 {
		t.Errorf("junction height multiplier should keep default, got %v", cfg.Rooms.Junction.HeightMultiplier)
	}
	if len(cfg.Server.WebSocket.AllowedOrigins) != 1 {
		t.Errorf("expected 1 allowed origin, got %d", len(cfg.Server.WebSocket.AllowedOrigins))
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "delve.yaml")
	if err := os.WriteFile(configPath, []byte("generation: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
	if cfg == nil || cfg.Generation.BaseUnit != 4 {
		t.Error("expected defaults alongside the parse error")
	}
}

func TestConfigure_SparseMerge(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Configure(map[string]any{
		"generation": map[string]any{
			"spur_count_min": 0,
			"spur_count_max": 0,
		},
	})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if cfg.Generation.SpurCountMax != 0 {
		t.Errorf("expected spur count max 0, got %d", cfg.Generation.SpurCountMax)
	}
	if cfg.Generation.BaseUnit != 4 {
		t.Errorf("base unit should be untouched, got %d", cfg.Generation.BaseUnit)
	}

	if err := cfg.Configure(nil); err != nil {
		t.Errorf("empty Configure should be a no-op, got %v", err)
	}
}

func TestConfigure_RejectsInvalidAndKeepsPrior(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Configure(map[string]any{
		"generation": map[string]any{"room_scale_min": 9, "room_scale_max": 2},
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if cfg.Generation.RoomScaleMin != 2 {
		t.Errorf("failed merge must not modify config, got room_scale_min %d", cfg.Generation.RoomScaleMin)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero base unit", func(c *Config) { c.Generation.BaseUnit = 0 }},
		{"zero scan", func(c *Config) { c.Generation.ScanDistance = 0 }},
		{"inverted spur count", func(c *Config) { c.Generation.SpurCountMin = 3; c.Generation.SpurCountMax = 1 }},
		{"no segments", func(c *Config) { c.Generation.MaxSegmentsPerBranch = 0 }},
		{"inverted segment length", func(c *Config) { c.Generation.SegmentLengthMin = 12 }},
		{"bad profile", func(c *Config) { c.Rooms.Goal.WidthScale = 0 }},
		{"hallway thinner than walls", func(c *Config) { c.Hallways.Width = 2 }},
		{"zero door size", func(c *Config) { c.Doorways.MinDoorSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.WebSocket.AllowedOrigins = []string{"https://a.example"}

	cp := cfg.Clone()
	cp.Server.WebSocket.AllowedOrigins[0] = "https://b.example"
	cp.Generation.BaseUnit = 16

	if cfg.Server.WebSocket.AllowedOrigins[0] != "https://a.example" {
		t.Error("clone shares origins slice")
	}
	if cfg.Generation.BaseUnit != 4 {
		t.Error("clone shares generation config")
	}
}

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"same origin", nil, "http://localhost:4480", "localhost:4480", true},
		{"same origin trailing slash", nil, "https://example.com/", "example.com", true},
		{"cross origin", nil, "http://evil.com", "localhost:4480", false},
		{"no origin header", nil, "", "localhost:4480", true},
		{"wildcard", []string{"*"}, "http://anything.com", "localhost", true},
		{"listed", []string{"https://example.com"}, "https://example.com", "localhost", true},
		{"not listed", []string{"https://example.com"}, "https://other.com", "localhost", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := WebSocketConfig{AllowedOrigins: tt.allowed}
			if got := cfg.IsOriginAllowed(tt.origin, tt.host); got != tt.want {
				t.Errorf("IsOriginAllowed(%q, %q) = %v, want %v", tt.origin, tt.host, got, tt.want)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5435, User: "delve", Password: "pw", Database: "layouts", SSLMode: "disable"}
	want := "host=db port=5435 user=delve password=pw dbname=layouts sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
