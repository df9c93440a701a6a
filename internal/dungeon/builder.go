// Package dungeon runs a complete generation: graph growth, conflict
// resolution and doorway placement, reporting progress to a listener and
// returning the result as plain records.
package dungeon

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/growth"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/logger"
	"github.com/lawnchairsociety/delve/internal/protocol"
	"github.com/lawnchairsociety/delve/internal/resolver"
	"github.com/lawnchairsociety/delve/internal/rng"
)

// Mode selects how growth and resolution interact.
type Mode string

const (
	// ModeBatch grows the whole graph, then resolves it in one pass.
	ModeBatch Mode = "batch"
	// ModeIncremental validates every segment before growing the next.
	ModeIncremental Mode = "incremental"
)

// Default endpoints used when a caller does not pick its own.
var (
	DefaultStart = layout.V(0, 0, 0)
	DefaultGoal  = layout.V(150, 0, 150)
)

// ParseMode accepts "batch" (or empty) and "incremental".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeBatch:
		return ModeBatch, nil
	case ModeIncremental:
		return ModeIncremental, nil
	default:
		return "", fmt.Errorf("unknown generation mode %q", s)
	}
}

// NewRNG seeds a generator from text. Decimal seeds that fit in 32 bits are
// used as numbers; anything else is hashed.
func NewRNG(seed string) *rng.RNG {
	if n, err := strconv.ParseUint(seed, 10, 32); err == nil {
		return rng.New(uint32(n))
	}
	return rng.NewFromString(seed)
}

// Builder owns the configuration and listener of generation runs. Each run
// gets its own generator, resolver and graph.
type Builder struct {
	cfg      *config.Config
	listener protocol.Listener
	now      func() time.Time
}

// NewBuilder creates a builder over a copy of cfg.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg.Clone(), now: time.Now}
}

// Config returns the builder's configuration.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Configure sparse-merges parameters into the configuration. Keys not
// present keep their values; an invalid result leaves the config untouched.
func (b *Builder) Configure(params map[string]any) error {
	return b.cfg.Configure(params)
}

// SetListener registers the receiver of generation events.
func (b *Builder) SetListener(l protocol.Listener) {
	b.listener = l
}

// Run generates a layout in the given mode.
func (b *Builder) Run(mode Mode, seed string, start, goal layout.Vec3) (*Layout, error) {
	switch mode {
	case ModeIncremental:
		return b.GenerateIncremental(seed, start, goal)
	default:
		return b.Generate(seed, start, goal)
	}
}

// Generate grows the full graph and then resolves it.
func (b *Builder) Generate(seed string, start, goal layout.Vec3) (*Layout, error) {
	r := NewRNG(seed)
	out, err := growth.NewGenerator(b.cfg, r).Generate(start, goal)
	if err != nil {
		return nil, err
	}
	for _, w := range out.Warnings {
		b.emit(protocol.Warning{Message: w})
	}

	res, err := resolver.New(b.cfg).Resolve(out.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve layout for seed %q: %w", seed, err)
	}
	if res.ShiftCount > 0 {
		b.emit(protocol.PointsShifted{Updates: res.Updates, ShiftCount: res.ShiftCount})
	}
	for _, w := range res.Warnings {
		b.emit(protocol.Warning{Message: w})
	}

	l := &Layout{
		Seed:       seed,
		SeedValue:  r.Seed(),
		Mode:       ModeBatch,
		ShiftCount: res.ShiftCount,
		Warnings:   append(append([]string{}, out.Warnings...), res.Warnings...),
	}
	return b.finish(l, out.Graph, res.Geometry())
}

// GenerateIncremental grows the graph one validated segment at a time.
func (b *Builder) GenerateIncremental(seed string, start, goal layout.Vec3) (*Layout, error) {
	r := NewRNG(seed)
	session := growth.NewSession(b.cfg, r)
	session.SetListener(b.listener)
	validator := resolver.NewValidator(b.cfg)

	proposal, err := session.Start(start, goal)
	if err != nil {
		return nil, err
	}
	g := session.Graph()
	validator.EnsureRoom(g.StartID, start, 0, layout.RoleStart)

	rejections := 0
	for proposal != nil {
		result := validator.Validate(*proposal)
		b.emit(protocol.SegmentResolved{SegmentID: proposal.SegmentID, Result: result})
		if !result.OK {
			rejections++
		}
		if proposal, err = session.Submit(result); err != nil {
			return nil, err
		}
	}

	l := &Layout{
		Seed:       seed,
		SeedValue:  r.Seed(),
		Mode:       ModeIncremental,
		ShiftCount: rejections,
		Warnings:   append([]string{}, session.Warnings()...),
	}
	return b.finish(l, g, validator.Geometry())
}

// finish records topology and geometry, places doorways and closes the run.
func (b *Builder) finish(l *Layout, g *layout.Graph, geo protocol.Geometry) (*Layout, error) {
	b.emit(geo)

	l.GeneratedAt = b.now().UTC()
	l.BaseUnit = geo.BaseUnit
	l.Rooms = geo.Rooms
	l.Hallways = geo.Hallways
	recordGraph(l, g)

	l.Doorways = PlaceDoorways(g, geo, b.cfg)
	for _, d := range l.Doorways {
		b.emit(protocol.DoorwayCreated{Doorway: d})
	}

	fp, err := l.ComputeFingerprint()
	if err != nil {
		return nil, err
	}
	l.Fingerprint = fp

	b.emit(protocol.Completed{
		Seed:          l.Seed,
		SeedValue:     l.SeedValue,
		TotalPoints:   len(l.Points),
		TotalSegments: len(l.Segments),
		Fingerprint:   fp,
	})
	logger.Audit("Generation complete",
		"seed", l.Seed,
		"mode", string(l.Mode),
		"points", len(l.Points),
		"segments", len(l.Segments),
		"doorways", len(l.Doorways),
		"shifts", l.ShiftCount,
		"fingerprint", fp)
	return l, nil
}

func (b *Builder) emit(e protocol.Event) {
	if b.listener != nil {
		b.listener.OnEvent(e)
	}
}
