// Package growth grows the dungeon point graph, either in one batch pass or
// segment by segment under the control of a geometry validator.
package growth

import (
	"errors"
	"fmt"
	"math"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/logger"
	"github.com/lawnchairsociety/delve/internal/rng"
)

// ErrAlreadyStarted is returned when a generator or session is reused.
var ErrAlreadyStarted = errors.New("growth: generation already started")

// Phase is the state of a batch generator.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseMain
	PhaseSpur
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseMain:
		return "main"
	case PhaseSpur:
		return "spur"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result is the outcome of a batch run: the graph plus what is needed to
// replay it.
type Result struct {
	Graph    *layout.Graph
	Seed     uint32
	SeedText string
	Warnings []string
}

// Generator grows a graph by scanning the horizon around the current room
// and placing the next room flush against it.
type Generator struct {
	cfg *config.Config
	rng *rng.RNG

	graph      *layout.Graph
	footprints map[int]geometry.AABB

	phase     Phase
	branch    *layout.Branch
	current   int
	lastDir   layout.Direction
	hasLast   bool
	remaining int
	spurQueue []int
	goal      layout.Vec3
	warnings  []string
}

// NewGenerator creates an idle generator. The rng is owned by the generator
// for the rest of its life.
func NewGenerator(cfg *config.Config, r *rng.RNG) *Generator {
	return &Generator{
		cfg:        cfg,
		rng:        r,
		graph:      layout.NewGraph(),
		footprints: make(map[int]geometry.AABB),
	}
}

// Phase returns the current state.
func (g *Generator) Phase() Phase {
	return g.phase
}

// Graph returns the graph being grown.
func (g *Generator) Graph() *layout.Graph {
	return g.graph
}

// Footprint returns the growth-time box of a point.
func (g *Generator) Footprint(id int) (geometry.AABB, bool) {
	fp, ok := g.footprints[id]
	return fp, ok
}

// Generate runs a full generation from start. goal only steers direction
// weighting when GoalBias is set.
func (g *Generator) Generate(start, goal layout.Vec3) (*Result, error) {
	if err := g.Begin(start, goal); err != nil {
		return nil, err
	}
	for g.Step() {
	}
	return &Result{Graph: g.graph, Seed: g.rng.Seed(), SeedText: g.rng.Text(), Warnings: g.warnings}, nil
}

// Begin places the start room and enters the main phase.
func (g *Generator) Begin(start, goal layout.Vec3) error {
	if g.phase != PhaseIdle {
		return ErrAlreadyStarted
	}
	g.goal = goal

	p := g.graph.AddPoint(start)
	p.Role = layout.RoleStart
	g.graph.StartID = p.ID
	g.footprints[p.ID] = geometry.FromCenter(start, g.randomHalves())

	g.startBranch(layout.BranchMain, p.ID, g.cfg.Generation.MaxSegmentsPerBranch)
	g.phase = PhaseMain
	return nil
}

// Step advances by one segment or one branch transition. It returns false
// once the generator is done.
func (g *Generator) Step() bool {
	switch g.phase {
	case PhaseMain, PhaseSpur:
		if g.remaining > 0 && g.advance() {
			g.remaining--
			return true
		}
		if g.phase == PhaseMain && len(g.branch.Segments) == 0 {
			msg := fmt.Sprintf("no growth direction from start point %d (seed %d)", g.current, g.rng.Seed())
			g.warnings = append(g.warnings, msg)
			logger.Warning("Main branch dead-ended on first segment", "point", g.current, "seed", g.rng.Seed())
		}
		g.finishBranch()
		return g.phase != PhaseDone
	default:
		return false
	}
}

func (g *Generator) startBranch(kind layout.BranchKind, root, segments int) {
	g.branch = g.graph.NewBranch(kind, root)
	g.current = root
	g.hasLast = false
	g.remaining = segments
}

func (g *Generator) finishBranch() {
	logger.Debug("Branch complete", "branch", g.branch.ID, "kind", g.branch.Kind.String(), "segments", len(g.branch.Segments))

	if g.phase == PhaseMain {
		if g.current != g.graph.StartID {
			g.graph.Point(g.current).Role = layout.RoleGoal
			g.graph.GoalID = g.current
		}

		gen := g.cfg.Generation
		count := g.rng.Int(gen.SpurCountMin, gen.SpurCountMax)
		candidates := g.graph.JunctionCandidates()
		rng.Shuffle(g.rng, candidates)
		if count > len(candidates) {
			count = len(candidates)
		}
		g.spurQueue = candidates[:count]
		g.phase = PhaseSpur
	}

	if len(g.spurQueue) == 0 {
		g.phase = PhaseDone
		return
	}
	root := g.spurQueue[0]
	g.spurQueue = g.spurQueue[1:]
	gen := g.cfg.Generation
	g.startBranch(layout.BranchSpur, root, g.rng.Int(gen.SpurSegmentsMin, gen.SpurSegmentsMax))
}

// advance grows one segment from the current point. Returns false on a dead
// end.
func (g *Generator) advance() bool {
	gen := g.cfg.Generation
	current := g.footprints[g.current]
	tol := g.cfg.Resolver.TouchTolerance

	var horizons []Horizon
	for _, dir := range g.candidateDirections() {
		avail := scanHorizon(current, g.current, g.footprints, dir, g.cfg.Hallways.Width, gen.ScanDistance, tol)
		horizons = append(horizons, Horizon{Dir: dir, Available: avail})
	}
	clear, blocked := classifyHorizons(horizons, gen.ScanDistance, gen.BaseUnit)

	for len(clear) > 0 || len(blocked) > 0 {
		var pick Horizon
		if len(clear) > 0 {
			pick = g.pickClear(clear)
		} else {
			pick = widest(blocked)
		}

		pos, fp, length := g.propose(current, pick)
		if len(g.conflicts(fp, tol)) > 0 {
			clear = without(clear, pick.Dir)
			blocked = without(blocked, pick.Dir)
			continue
		}

		p := g.graph.AddPoint(pos)
		g.footprints[p.ID] = fp
		seg, err := g.graph.Connect(g.current, p.ID, pick.Dir, length)
		if err != nil {
			// Fresh points cannot already be linked; treat as a dead end.
			logger.Error("Failed to connect grown point", "from", g.current, "to", p.ID, "error", err)
			return false
		}
		g.branch.Segments = append(g.branch.Segments, seg.ID)
		g.current = p.ID
		g.lastDir = pick.Dir
		g.hasLast = true
		return true
	}
	return false
}

func (g *Generator) candidateDirections() []layout.Direction {
	var out []layout.Direction
	for _, dir := range layout.AllDirections() {
		if g.hasLast && dir == g.lastDir.Opposite() {
			continue
		}
		if dir.IsVertical() && !g.cfg.Generation.AllowVertical {
			continue
		}
		out = append(out, dir)
	}
	return out
}

// pickClear chooses among clear directions, uniformly unless a goal bias is
// configured.
func (g *Generator) pickClear(clear []Horizon) Horizon {
	bias := g.cfg.Generation.GoalBias
	if bias <= 0 {
		h, _ := rng.Choice(g.rng, clear)
		return h
	}

	toGoal := g.goal.Sub(g.graph.Point(g.current).Pos)
	dist := math.Sqrt(toGoal.X*toGoal.X + toGoal.Y*toGoal.Y + toGoal.Z*toGoal.Z)
	weights := make([]float64, len(clear))
	for i, h := range clear {
		weights[i] = 1
		if dist > 0 {
			along := toGoal.Get(h.Dir.Axis()) * float64(h.Dir.Sign()) / dist
			weights[i] += bias * math.Max(along, 0)
		}
	}
	return clear[g.rng.WeightedIndex(weights)]
}

// propose sizes the next room and places it flush against current.
func (g *Generator) propose(current geometry.AABB, h Horizon) (layout.Vec3, geometry.AABB, int) {
	bu := g.cfg.Generation.BaseUnit
	axis := h.Dir.Axis()

	halves := g.randomHalves()
	along := clampHalf(int(halves.Get(axis)), h.Available, bu)
	halves = halves.With(axis, float64(along))

	distance := current.Half().Get(axis) + halves.Get(axis)
	pos := current.Center().Add(h.Dir.Vector().Scale(distance))
	return pos, geometry.FromCenter(pos, halves), int(math.Round(distance))
}

func (g *Generator) randomHalves() layout.Vec3 {
	gen := g.cfg.Generation
	x := g.rng.Int(gen.RoomScaleMin, gen.RoomScaleMax) * gen.BaseUnit
	y := g.rng.Int(gen.RoomScaleMin, gen.RoomScaleMax) * gen.BaseUnit
	z := g.rng.Int(gen.RoomScaleMin, gen.RoomScaleMax) * gen.BaseUnit
	return layout.V(float64(x), float64(y), float64(z))
}

func (g *Generator) conflicts(fp geometry.AABB, tol float64) []int {
	var ids []int
	for _, p := range g.graph.Points() {
		if other, ok := g.footprints[p.ID]; ok && fp.Intersects(other, tol) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
