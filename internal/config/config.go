// Package config holds the generator configuration and its YAML loading.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds every tunable of the generator and the tools around it.
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Rooms      RoomsConfig      `yaml:"rooms"`
	Hallways   HallwayConfig    `yaml:"hallways"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Doorways   DoorwayConfig    `yaml:"doorways"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
}

// GenerationConfig drives the graph growth engine.
type GenerationConfig struct {
	// BaseUnit is the grid increment in world units. All segment lengths
	// are multiples of it.
	BaseUnit int `yaml:"base_unit"`

	// ScanDistance caps the horizon scan; a direction with at least this
	// much free space counts as clear.
	ScanDistance float64 `yaml:"scan_distance"`

	// RoomScaleMin/Max bound the growth-time half extent per axis, in base units.
	RoomScaleMin int `yaml:"room_scale_min"`
	RoomScaleMax int `yaml:"room_scale_max"`

	MaxSegmentsPerBranch int `yaml:"max_segments_per_branch"`

	SpurCountMin    int `yaml:"spur_count_min"`
	SpurCountMax    int `yaml:"spur_count_max"`
	SpurSegmentsMin int `yaml:"spur_segments_min"`
	SpurSegmentsMax int `yaml:"spur_segments_max"`

	// Segment and spur lengths for incremental recipes, in base units.
	SegmentLengthMin int `yaml:"segment_length_min"`
	SegmentLengthMax int `yaml:"segment_length_max"`
	SpurLengthMin    int `yaml:"spur_length_min"`
	SpurLengthMax    int `yaml:"spur_length_max"`

	// AllowVertical enables growth along +Y/-Y.
	AllowVertical bool `yaml:"allow_vertical"`

	// GoalBias weights clear directions toward the goal. 0 keeps the pick uniform.
	GoalBias float64 `yaml:"goal_bias"`

	// MaxSegmentRetries is how many times one incremental segment may be
	// re-proposed after a rejection. The next rejection abandons the branch.
	MaxSegmentRetries int `yaml:"max_segment_retries"`
}

// RoomProfile scales a room category.
type RoomProfile struct {
	WidthScale       float64 `yaml:"width_scale"`
	HeightMultiplier float64 `yaml:"height_multiplier"`
}

// RoomsConfig sizes rooms by connectivity and role.
type RoomsConfig struct {
	// Size is the horizontal room size in base units before scaling.
	Size float64 `yaml:"size"`
	// Height is the room height in base units before scaling.
	Height float64 `yaml:"height"`
	// WallThickness pads every room and hallway on all sides.
	WallThickness float64 `yaml:"wall_thickness"`

	Start    RoomProfile `yaml:"start"`
	Goal     RoomProfile `yaml:"goal"`
	Junction RoomProfile `yaml:"junction"`
	Corridor RoomProfile `yaml:"corridor"`
	DeadEnd  RoomProfile `yaml:"dead_end"`
}

// HallwayConfig sizes hallways. Values are world units and include walls.
type HallwayConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ResolverConfig tunes batch conflict resolution.
type ResolverConfig struct {
	MaxShiftAttempts int     `yaml:"max_shift_attempts"`
	TouchTolerance   float64 `yaml:"touch_tolerance"`
	DefaultBaseUnit  int     `yaml:"default_base_unit"`

	// StrictPlacement turns exhausted shift attempts into an error instead
	// of a best-effort overlapping placement.
	StrictPlacement bool `yaml:"strict_placement"`
}

// DoorwayConfig shapes door openings in shared walls.
type DoorwayConfig struct {
	Margin        float64 `yaml:"margin"`
	WidthPercent  float64 `yaml:"width_percent"`
	HeightPercent float64 `yaml:"height_percent"`
	MaxWidth      float64 `yaml:"max_width"`
	MaxHeight     float64 `yaml:"max_height"`
	MinDoorSize   float64 `yaml:"min_door_size"`
	Tolerance     float64 `yaml:"tolerance"`
}

// ServerConfig holds settings for the generation stream server.
type ServerConfig struct {
	Address     string            `yaml:"address"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy. "*" allows all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum inbound message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DatabaseConfig selects the layout store.
type DatabaseConfig struct {
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DefaultConfig returns a Config that produces a medium-sized dungeon.
func DefaultConfig() *Config {
	return &Config{
		Generation: GenerationConfig{
			BaseUnit:             4,
			ScanDistance:         96,
			RoomScaleMin:         2,
			RoomScaleMax:         4,
			MaxSegmentsPerBranch: 8,
			SpurCountMin:         1,
			SpurCountMax:         3,
			SpurSegmentsMin:      2,
			SpurSegmentsMax:      4,
			SegmentLengthMin:     6,
			SegmentLengthMax:     10,
			SpurLengthMin:        5,
			SpurLengthMax:        8,
			AllowVertical:        true,
			GoalBias:             0,
			MaxSegmentRetries:    8,
		},
		Rooms: RoomsConfig{
			Size:          4,
			Height:        3,
			WallThickness: 1,
			Start:         RoomProfile{WidthScale: 1.25, HeightMultiplier: 1.5},
			Goal:          RoomProfile{WidthScale: 1.25, HeightMultiplier: 2.0},
			Junction:      RoomProfile{WidthScale: 1.1, HeightMultiplier: 1.25},
			Corridor:      RoomProfile{WidthScale: 0.75, HeightMultiplier: 1.0},
			DeadEnd:       RoomProfile{WidthScale: 1.0, HeightMultiplier: 1.0},
		},
		Hallways: HallwayConfig{
			Width:  10,
			Height: 12,
		},
		Resolver: ResolverConfig{
			MaxShiftAttempts: 10,
			TouchTolerance:   0.01,
			DefaultBaseUnit:  4,
		},
		Doorways: DoorwayConfig{
			Margin:        0.5,
			WidthPercent:  0.6,
			HeightPercent: 0.8,
			MaxWidth:      6,
			MaxHeight:     8,
			MinDoorSize:   3,
			Tolerance:     0.05,
		},
		Server: ServerConfig{
			Address: ":4480",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{},
				MaxMessageSize: 16384,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "data/layouts.db",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := cfg.Merge(data); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Merge applies a YAML fragment on top of the current values. Keys absent
// from the fragment keep their prior values.
func (c *Config) Merge(fragment []byte) error {
	next := c.Clone()
	if err := yaml.Unmarshal(fragment, next); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = *next
	return nil
}

// Configure sparse-merges free-form parameters, keyed like the YAML document,
// e.g. {"generation": {"base_unit": 8}}.
func (c *Config) Configure(params map[string]any) error {
	if len(params) == 0 {
		return nil
	}
	data, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	return c.Merge(data)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Server.WebSocket.AllowedOrigins = append([]string(nil), c.Server.WebSocket.AllowedOrigins...)
	return &cp
}

// Validate rejects values that would break generation contracts.
func (c *Config) Validate() error {
	g := c.Generation
	switch {
	case g.BaseUnit <= 0:
		return fmt.Errorf("%w: base_unit must be positive", ErrInvalidConfig)
	case g.ScanDistance <= 0:
		return fmt.Errorf("%w: scan_distance must be positive", ErrInvalidConfig)
	case g.RoomScaleMin < 1 || g.RoomScaleMin > g.RoomScaleMax:
		return fmt.Errorf("%w: room scale range [%d, %d]", ErrInvalidConfig, g.RoomScaleMin, g.RoomScaleMax)
	case g.MaxSegmentsPerBranch < 1:
		return fmt.Errorf("%w: max_segments_per_branch must be at least 1", ErrInvalidConfig)
	case g.SpurCountMin < 0 || g.SpurCountMin > g.SpurCountMax:
		return fmt.Errorf("%w: spur count range [%d, %d]", ErrInvalidConfig, g.SpurCountMin, g.SpurCountMax)
	case g.SpurSegmentsMin < 1 || g.SpurSegmentsMin > g.SpurSegmentsMax:
		return fmt.Errorf("%w: spur segments range [%d, %d]", ErrInvalidConfig, g.SpurSegmentsMin, g.SpurSegmentsMax)
	case g.SegmentLengthMin < 1 || g.SegmentLengthMin > g.SegmentLengthMax:
		return fmt.Errorf("%w: segment length range [%d, %d]", ErrInvalidConfig, g.SegmentLengthMin, g.SegmentLengthMax)
	case g.SpurLengthMin < 1 || g.SpurLengthMin > g.SpurLengthMax:
		return fmt.Errorf("%w: spur length range [%d, %d]", ErrInvalidConfig, g.SpurLengthMin, g.SpurLengthMax)
	case g.MaxSegmentRetries < 0:
		return fmt.Errorf("%w: max_segment_retries must not be negative", ErrInvalidConfig)
	case g.GoalBias < 0:
		return fmt.Errorf("%w: goal_bias must not be negative", ErrInvalidConfig)
	}

	r := c.Rooms
	if r.Size <= 0 || r.Height <= 0 || r.WallThickness < 0 {
		return fmt.Errorf("%w: room size, height and wall thickness", ErrInvalidConfig)
	}
	for name, p := range map[string]RoomProfile{
		"start": r.Start, "goal": r.Goal, "junction": r.Junction, "corridor": r.Corridor, "dead_end": r.DeadEnd,
	} {
		if p.WidthScale <= 0 || p.HeightMultiplier <= 0 {
			return fmt.Errorf("%w: room profile %s must have positive scales", ErrInvalidConfig, name)
		}
	}

	if c.Hallways.Width <= 2*r.WallThickness || c.Hallways.Height <= 2*r.WallThickness {
		return fmt.Errorf("%w: hallway must be wider and taller than its walls", ErrInvalidConfig)
	}
	if c.Resolver.MaxShiftAttempts < 0 || c.Resolver.TouchTolerance < 0 {
		return fmt.Errorf("%w: resolver attempts and tolerance must not be negative", ErrInvalidConfig)
	}
	d := c.Doorways
	if d.MinDoorSize <= 0 || d.Margin < 0 || d.WidthPercent <= 0 || d.HeightPercent <= 0 {
		return fmt.Errorf("%w: doorway sizing", ErrInvalidConfig)
	}
	return nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if AllowedOrigins contains "*" or the exact origin, or if the
// list is empty and the origin matches the request host.
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // non-browser clients send no Origin header
	}

	originHost := origin
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if len(originHost) > len(scheme) && originHost[:len(scheme)] == scheme {
			originHost = originHost[len(scheme):]
			break
		}
	}
	if n := len(originHost); n > 0 && originHost[n-1] == '/' {
		originHost = originHost[:n-1]
	}
	return originHost == requestHost
}

// DSN builds a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}
