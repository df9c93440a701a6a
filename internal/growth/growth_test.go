package growth

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/protocol"
	"github.com/lawnchairsociety/delve/internal/rng"
)

var (
	origin = layout.V(0, 0, 0)
	goal   = layout.V(150, 0, 150)
)

func scenarioConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Generation.MaxSegmentsPerBranch = 5
	cfg.Generation.SpurCountMin = 0
	cfg.Generation.SpurCountMax = 0
	return cfg
}

func TestGenerateSingleBranchScenario(t *testing.T) {
	run := func() *Result {
		out, err := NewGenerator(scenarioConfig(), rng.NewFromString("abc123")).Generate(origin, goal)
		require.NoError(t, err)
		return out
	}

	first := run()
	second := run()

	require.Len(t, first.Graph.Branches(), 1)
	assert.Equal(t, layout.BranchMain, first.Graph.Branches()[0].Kind)
	assert.LessOrEqual(t, first.Graph.SegmentCount(), 5)
	assert.Equal(t, first.Graph.SegmentCount()+1, first.Graph.PointCount())
	assert.Equal(t, rng.HashString("abc123"), first.Seed)
	assert.Equal(t, "abc123", first.SeedText)

	assert.Equal(t, first.Graph.PointCount(), second.Graph.PointCount())
	assert.Equal(t, first.Graph.Positions(), second.Graph.Positions())
}

func TestGenerateDeterministicWithSpurs(t *testing.T) {
	cfg := config.DefaultConfig()
	a, err := NewGenerator(cfg, rng.NewFromString("delve")).Generate(origin, goal)
	require.NoError(t, err)
	b, err := NewGenerator(cfg, rng.NewFromString("delve")).Generate(origin, goal)
	require.NoError(t, err)

	assert.Equal(t, a.Graph.Positions(), b.Graph.Positions())
	require.Equal(t, a.Graph.SegmentCount(), b.Graph.SegmentCount())
	for i, s := range a.Graph.Segments() {
		o := b.Graph.Segments()[i]
		assert.Equal(t, *s, *o)
	}
	assert.Equal(t, len(a.Graph.Branches()), len(b.Graph.Branches()))
}

func TestGenerateInvariants(t *testing.T) {
	cfg := config.DefaultConfig()
	seeds := []string{"a", "b", "c", "abc123", "tower", "42"}

	for _, seed := range seeds {
		t.Run(seed, func(t *testing.T) {
			gen := NewGenerator(cfg, rng.NewFromString(seed))
			out, err := gen.Generate(origin, goal)
			require.NoError(t, err)
			g := out.Graph

			assert.Equal(t, PhaseDone, gen.Phase())
			assert.True(t, g.Connected())
			assert.Equal(t, g.PointCount()-1, g.SegmentCount(), "growth produces a tree")
			assert.Equal(t, layout.RoleStart, g.Point(g.StartID).Role)

			for _, s := range g.Segments() {
				assert.True(t, g.Orthogonal(s, 1e-9), "segment %d", s.ID)
				assert.Zero(t, s.Length%cfg.Generation.BaseUnit, "segment %d length %d", s.ID, s.Length)
				from, to := g.Point(s.From), g.Point(s.To)
				assert.InDelta(t, float64(s.Length), (to.Pos.Get(s.Dir.Axis())-from.Pos.Get(s.Dir.Axis()))*float64(s.Dir.Sign()), 1e-9)
			}

			points := g.Points()
			for i := range points {
				a, _ := gen.Footprint(points[i].ID)
				for j := i + 1; j < len(points); j++ {
					b, _ := gen.Footprint(points[j].ID)
					assert.False(t, a.Intersects(b, cfg.Resolver.TouchTolerance), "footprints %d and %d", points[i].ID, points[j].ID)
				}
			}

			for _, b := range g.Branches() {
				if b.Kind == layout.BranchSpur {
					assert.LessOrEqual(t, len(b.Segments), cfg.Generation.SpurSegmentsMax)
				} else {
					assert.LessOrEqual(t, len(b.Segments), cfg.Generation.MaxSegmentsPerBranch)
				}
			}
		})
	}
}

func TestGenerateHorizontalOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Generation.AllowVertical = false

	out, err := NewGenerator(cfg, rng.NewFromString("flat")).Generate(origin, goal)
	require.NoError(t, err)
	for _, s := range out.Graph.Segments() {
		assert.False(t, s.Dir.IsVertical())
	}
}

func TestGenerateDeadEndIsAWarning(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Generation.ScanDistance = 8 // below the three-unit minimum

	gen := NewGenerator(cfg, rng.NewFromString("cramped"))
	out, err := gen.Generate(origin, goal)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Graph.PointCount())
	assert.Len(t, out.Warnings, 1)

	_, err = gen.Generate(origin, goal)
	assert.True(t, errors.Is(err, ErrAlreadyStarted))
}

func TestScanHorizon(t *testing.T) {
	current := geometry.FromCenter(origin, layout.V(8, 8, 8))
	footprints := map[int]geometry.AABB{
		1: current,
		2: geometry.FromCenter(layout.V(40, 0, 0), layout.V(8, 8, 8)),   // ahead on +X, face at 32
		3: geometry.FromCenter(layout.V(0, 0, 100), layout.V(8, 8, 8)),  // beyond the cap on +Z
		4: geometry.FromCenter(layout.V(-40, 0, 30), layout.V(8, 8, 8)), // outside the -X slab
	}

	assert.InDelta(t, 24.0, scanHorizon(current, 1, footprints, layout.PosX, 10, 96, 0.01), 1e-9)
	assert.InDelta(t, 84.0, scanHorizon(current, 1, footprints, layout.PosZ, 10, 96, 0.01), 1e-9)
	assert.InDelta(t, 96.0, scanHorizon(current, 1, footprints, layout.NegX, 10, 96, 0.01), 1e-9)
	assert.InDelta(t, 50.0, scanHorizon(current, 1, footprints, layout.NegY, 10, 50, 0.01), 1e-9)
}

func TestClassifyAndClamp(t *testing.T) {
	hs := []Horizon{
		{Dir: layout.PosX, Available: 96},
		{Dir: layout.NegX, Available: 40},
		{Dir: layout.PosZ, Available: 11},
		{Dir: layout.NegZ, Available: 60},
	}
	clear, blocked := classifyHorizons(hs, 96, 4)
	require.Len(t, clear, 1)
	require.Len(t, blocked, 2)
	assert.Equal(t, layout.NegZ, widest(blocked).Dir)

	assert.Equal(t, 16, clampHalf(16, 96, 4))
	// (40 - 4) / 8 = 4.5 -> 4 units of 4
	assert.Equal(t, 16, clampHalf(20, 40, 4))
	assert.Equal(t, 4, clampHalf(16, 12, 4))

	assert.Len(t, without(hs, layout.NegX), 3)
	assert.Len(t, hs, 4)
}

// acceptAll drives a session, accepting every proposal.
func acceptAll(t *testing.T, s *Session, first *protocol.SegmentProposal) int {
	t.Helper()
	n := 0
	for p := first; p != nil; n++ {
		var err error
		p, err = s.Submit(protocol.SegmentResult{OK: true})
		require.NoError(t, err)
		require.Less(t, n, 1000)
	}
	return n
}

func TestSessionProposalsMatchCommittedGraph(t *testing.T) {
	cfg := config.DefaultConfig()
	s := NewSession(cfg, rng.NewFromString("incremental"))
	rec := &protocol.Recorder{}
	s.SetListener(rec)

	p, err := s.Start(origin, goal)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.FromID)
	assert.Equal(t, 2, p.ToID)
	assert.Equal(t, layout.RoleStart, p.FromRole)

	accepted := acceptAll(t, s, p)
	g := s.Graph()

	assert.True(t, s.Done())
	assert.Equal(t, accepted, g.SegmentCount())
	assert.Equal(t, accepted, rec.Count(protocol.EventSegmentProposed))
	assert.Equal(t, len(g.Branches()), rec.Count(protocol.EventBranchCompleted))
	assert.True(t, g.Connected())
	assert.NotZero(t, g.GoalID)
	assert.Equal(t, layout.RoleGoal, g.Point(g.GoalID).Role)

	for _, seg := range g.Segments() {
		assert.True(t, g.Orthogonal(seg, 1e-9))
		assert.Zero(t, seg.Length%cfg.Generation.BaseUnit)
	}

	_, err = s.Submit(protocol.SegmentResult{OK: true})
	assert.True(t, errors.Is(err, ErrNoPendingSegment))
}

func TestSessionSubmitWithoutProposal(t *testing.T) {
	s := NewSession(config.DefaultConfig(), rng.New(7))
	_, err := s.Submit(protocol.SegmentResult{OK: true})
	assert.True(t, errors.Is(err, ErrNoPendingSegment))
	assert.Zero(t, s.Graph().PointCount())
}

func TestSessionRejectionShiftsRemainder(t *testing.T) {
	cfg := scenarioConfig()
	bu := cfg.Generation.BaseUnit
	s := NewSession(cfg, rng.NewFromString("shift"))
	rec := &protocol.Recorder{}
	s.SetListener(rec)

	p, err := s.Start(origin, goal)
	require.NoError(t, err)
	require.NotNil(t, p)

	before := append([]layout.Vec3(nil), s.plan.positions...)
	retry, err := s.Submit(protocol.SegmentResult{OK: false, OverlapAmount: 6})
	require.NoError(t, err)
	require.NotNil(t, retry)

	// 6 rounds up to 8, plus one unit of margin
	want := layout.ShiftAlongHallway(p.Dir, 8, bu)
	assert.Equal(t, p.Dir.Vector().Scale(12), want)
	assert.Equal(t, p.SegmentID, retry.SegmentID)
	assert.Equal(t, p.ToID, retry.ToID)
	assert.Equal(t, 1, retry.Attempt)
	assert.Equal(t, p.From, retry.From)
	assert.Equal(t, p.To.Add(want), retry.To)
	assert.Equal(t, p.Length+12, retry.Length)

	assert.Equal(t, before[0], s.plan.positions[0])
	for k := 1; k < len(before); k++ {
		assert.Equal(t, before[k].Add(want), s.plan.positions[k], "position %d moved uniformly", k)
	}
	assert.Equal(t, 1, s.Graph().PointCount(), "nothing committed on rejection")
	assert.Zero(t, rec.Count(protocol.EventPointsShifted))

	next, err := s.Submit(protocol.SegmentResult{OK: true})
	require.NoError(t, err)

	g := s.Graph()
	seg := g.SegmentBetween(p.FromID, p.ToID)
	require.NotNil(t, seg)
	assert.Equal(t, retry.To, g.Point(p.ToID).Pos)
	assert.Equal(t, g.Span(seg), seg.Length)
	assert.Equal(t, retry.Length, seg.Length)
	assert.Zero(t, seg.Length%bu)
	if next != nil {
		assert.Equal(t, layout.Span(next.Dir, next.From, next.To), next.Length)
	}

	require.Equal(t, 1, rec.Count(protocol.EventPointsShifted))
	shifted := rec.Last(protocol.EventPointsShifted).(protocol.PointsShifted)
	assert.Equal(t, map[int]layout.Vec3{p.ToID: retry.To}, shifted.Updates)
	assert.Equal(t, 1, shifted.ShiftCount)
}

func TestSessionFractionalOverlapStaysOnGrid(t *testing.T) {
	cfg := scenarioConfig()
	bu := cfg.Generation.BaseUnit
	s := NewSession(cfg, rng.NewFromString("shift"))

	p, err := s.Start(origin, goal)
	require.NoError(t, err)
	require.NotNil(t, p)

	for _, overlap := range []float64{9.8, 0.3, 4} {
		p, err = s.Submit(protocol.SegmentResult{OK: false, OverlapAmount: overlap})
		require.NoError(t, err)
		require.NotNil(t, p)
	}
	_, err = s.Submit(protocol.SegmentResult{OK: true})
	require.NoError(t, err)

	g := s.Graph()
	seg := g.SegmentBetween(p.FromID, p.ToID)
	require.NotNil(t, seg)
	assert.Zero(t, seg.Length%bu)
	assert.Equal(t, g.Span(seg), seg.Length)
	for _, pos := range s.plan.positions {
		for _, a := range []layout.Axis{layout.AxisX, layout.AxisY, layout.AxisZ} {
			assert.Zero(t, math.Mod(pos.Get(a)-origin.Get(a), float64(bu)), "position %v off grid", pos)
		}
	}
}

func TestSessionRetryCapAbortsBranch(t *testing.T) {
	cfg := scenarioConfig()
	cfg.Generation.MaxSegmentRetries = 2
	s := NewSession(cfg, rng.NewFromString("stubborn"))
	rec := &protocol.Recorder{}
	s.SetListener(rec)

	p, err := s.Start(origin, goal)
	require.NoError(t, err)
	require.NotNil(t, p)

	// Two re-proposals are allowed; the third rejection gives up.
	for i := 1; i <= 2; i++ {
		p, err = s.Submit(protocol.SegmentResult{OK: false, OverlapAmount: 1})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, i, p.Attempt)
	}
	p, err = s.Submit(protocol.SegmentResult{OK: false, OverlapAmount: 1})
	require.NoError(t, err)
	assert.Nil(t, p, "main branch abandoned and no spurs configured")
	assert.True(t, s.Done())

	assert.Equal(t, 1+cfg.Generation.MaxSegmentRetries, rec.Count(protocol.EventSegmentProposed))
	require.Equal(t, 1, rec.Count(protocol.EventBranchAborted))
	aborted := rec.Last(protocol.EventBranchAborted).(protocol.BranchAborted)
	assert.Equal(t, cfg.Generation.MaxSegmentRetries+1, aborted.Attempts)
	assert.Zero(t, rec.Count(protocol.EventPointsShifted), "nothing was committed")
	assert.NotEmpty(t, s.Warnings())
	assert.Equal(t, 1, s.Graph().PointCount())
}
