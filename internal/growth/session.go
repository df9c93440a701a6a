package growth

import (
	"errors"
	"fmt"
	"math"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/logger"
	"github.com/lawnchairsociety/delve/internal/protocol"
	"github.com/lawnchairsociety/delve/internal/rng"
)

// ErrNoPendingSegment is returned by Submit when nothing awaits a result,
// including after the session has finished.
var ErrNoPendingSegment = errors.New("growth: no segment awaiting a result")

// Recipe is one planned segment, independent of absolute position.
type Recipe struct {
	Dir    layout.Direction
	Length int
}

// plan is the tentative layout of one branch. positions[k] is the start of
// recipes[k]; positions[k+1] its end. Only positions past the last
// committed point are tentative.
type plan struct {
	kind      layout.BranchKind
	recipes   []Recipe
	positions []layout.Vec3
}

// Session grows a graph one segment at a time. Each proposal must be
// answered with Submit before the next one is produced.
type Session struct {
	cfg      *config.Config
	rng      *rng.RNG
	graph    *layout.Graph
	listener protocol.Listener

	phase     Phase
	branch    *layout.Branch
	plan      plan
	index     int
	from      int
	attempt   int
	waiting   bool
	pending   protocol.SegmentProposal
	spurQueue []int
	warnings  []string
}

// NewSession creates an idle incremental session.
func NewSession(cfg *config.Config, r *rng.RNG) *Session {
	return &Session{cfg: cfg, rng: r, graph: layout.NewGraph()}
}

// SetListener registers the receiver of branch and proposal events.
func (s *Session) SetListener(l protocol.Listener) {
	s.listener = l
}

// Graph returns the committed graph.
func (s *Session) Graph() *layout.Graph {
	return s.graph
}

// Seed returns the numeric seed driving the session.
func (s *Session) Seed() uint32 {
	return s.rng.Seed()
}

// Warnings returns the non-fatal conditions met so far.
func (s *Session) Warnings() []string {
	return s.warnings
}

// Done reports whether every branch has been grown or abandoned.
func (s *Session) Done() bool {
	return s.phase == PhaseDone
}

// Pending returns the proposal awaiting a result, if any.
func (s *Session) Pending() (protocol.SegmentProposal, bool) {
	return s.pending, s.waiting
}

// Start places the start point, plans the main branch and returns the first
// proposal. A nil proposal means the session completed immediately.
func (s *Session) Start(start, goal layout.Vec3) (*protocol.SegmentProposal, error) {
	if s.phase != PhaseIdle {
		return nil, ErrAlreadyStarted
	}

	p := s.graph.AddPoint(start)
	p.Role = layout.RoleStart
	s.graph.StartID = p.ID

	gen := s.cfg.Generation
	s.phase = PhaseMain
	s.beginBranch(layout.BranchMain, p.ID, gen.MaxSegmentsPerBranch, gen.SegmentLengthMin, gen.SegmentLengthMax)
	if len(s.plan.recipes) == 0 {
		msg := fmt.Sprintf("no growth direction from start point %d (seed %d)", p.ID, s.rng.Seed())
		s.warn(msg)
	}
	return s.next(), nil
}

// Submit answers the pending proposal. On rejection the tentative remainder
// of the branch is shifted along the segment and the same segment is
// proposed again. The returned proposal is nil once the session is done.
func (s *Session) Submit(result protocol.SegmentResult) (*protocol.SegmentProposal, error) {
	if !s.waiting {
		logger.Warning("Segment result received with nothing pending", "ok", result.OK)
		return nil, ErrNoPendingSegment
	}
	s.waiting = false

	if result.OK {
		if err := s.commit(); err != nil {
			return nil, err
		}
		return s.next(), nil
	}

	s.attempt++
	if s.attempt > s.cfg.Generation.MaxSegmentRetries {
		s.abortBranch()
		return s.next(), nil
	}

	r := s.plan.recipes[s.index]
	bu := float64(s.cfg.Generation.BaseUnit)
	overlap := math.Ceil(result.OverlapAmount/bu) * bu
	shift := layout.ShiftAlongHallway(r.Dir, overlap, s.cfg.Generation.BaseUnit)
	for j := s.index + 1; j < len(s.plan.positions); j++ {
		s.plan.positions[j] = s.plan.positions[j].Add(shift)
	}
	logger.Debug("Segment rejected, shifting branch remainder",
		"branch", s.branch.ID, "segment", s.index, "overlap", result.OverlapAmount, "attempt", s.attempt)
	return s.next(), nil
}

// next produces the proposal for the current recipe, moving through branch
// transitions as needed. Returns nil when the session is done.
func (s *Session) next() *protocol.SegmentProposal {
	for s.index >= len(s.plan.recipes) {
		s.finishBranch()
		if s.phase == PhaseDone {
			return nil
		}
	}

	r := s.plan.recipes[s.index]
	from := s.graph.Point(s.from)
	to := s.plan.positions[s.index+1]

	toRole := layout.RolePlain
	if s.plan.kind == layout.BranchMain && s.index == len(s.plan.recipes)-1 {
		toRole = layout.RoleGoal
	}
	toConnections := 1
	if s.index < len(s.plan.recipes)-1 {
		toConnections++
	}

	s.pending = protocol.SegmentProposal{
		SegmentID:       s.graph.SegmentCount() + 1,
		BranchID:        s.branch.ID,
		FromID:          from.ID,
		ToID:            s.graph.NextPointID(),
		From:            from.Pos,
		To:              to,
		Dir:             r.Dir,
		Direction:       r.Dir.String(),
		Length:          layout.Span(r.Dir, from.Pos, to),
		FromRole:        from.Role,
		ToRole:          toRole,
		FromConnections: from.Connections() + 1,
		ToConnections:   toConnections,
		Attempt:         s.attempt,
	}
	s.waiting = true
	s.emit(protocol.SegmentProposed{Proposal: s.pending})

	proposal := s.pending
	return &proposal
}

func (s *Session) commit() error {
	prop := s.pending
	p := s.graph.AddPoint(prop.To)
	p.Role = prop.ToRole
	if p.Role == layout.RoleGoal {
		s.graph.GoalID = p.ID
	}

	seg, err := s.graph.Connect(prop.FromID, p.ID, prop.Dir, prop.Length)
	if err != nil {
		return fmt.Errorf("failed to commit segment %d: %w", prop.SegmentID, err)
	}
	s.branch.Segments = append(s.branch.Segments, seg.ID)
	if s.attempt > 0 {
		s.emit(protocol.PointsShifted{
			Updates:    map[int]layout.Vec3{p.ID: p.Pos},
			ShiftCount: s.attempt,
		})
	}
	s.from = p.ID
	s.index++
	s.attempt = 0
	return nil
}

func (s *Session) abortBranch() {
	dropped := len(s.plan.recipes) - s.index
	s.emit(protocol.BranchAborted{
		BranchID:  s.branch.ID,
		SegmentID: s.pending.SegmentID,
		Attempts:  s.attempt,
		Dropped:   dropped,
	})
	s.warn(fmt.Sprintf("branch %d abandoned after %d rejected attempts, %d segments dropped", s.branch.ID, s.attempt, dropped))

	s.plan.recipes = s.plan.recipes[:s.index]
	s.plan.positions = s.plan.positions[:s.index+1]
	s.attempt = 0
}

// finishBranch closes the current branch and opens the next one, or ends
// the session.
func (s *Session) finishBranch() {
	s.emit(protocol.BranchCompleted{
		BranchID: s.branch.ID,
		Kind:     s.branch.Kind.String(),
		Segments: len(s.branch.Segments),
	})

	gen := s.cfg.Generation
	if s.phase == PhaseMain {
		count := s.rng.Int(gen.SpurCountMin, gen.SpurCountMax)
		candidates := s.graph.JunctionCandidates()
		rng.Shuffle(s.rng, candidates)
		if count > len(candidates) {
			count = len(candidates)
		}
		s.spurQueue = candidates[:count]
		s.phase = PhaseSpur
	}

	if len(s.spurQueue) == 0 {
		s.phase = PhaseDone
		s.waiting = false
		return
	}
	root := s.spurQueue[0]
	s.spurQueue = s.spurQueue[1:]
	segments := s.rng.Int(gen.SpurSegmentsMin, gen.SpurSegmentsMax)
	s.beginBranch(layout.BranchSpur, root, segments, gen.SpurLengthMin, gen.SpurLengthMax)
}

func (s *Session) beginBranch(kind layout.BranchKind, root, segments, minLen, maxLen int) {
	s.branch = s.graph.NewBranch(kind, root)
	s.from = root
	s.index = 0
	s.attempt = 0
	s.plan = s.planBranch(kind, root, segments, minLen, maxLen)
}

// planBranch draws the recipes of a branch and walks them once to assign
// tentative positions. A recipe whose end would land too close to a known
// position is redrawn in another direction; when none fits, the branch is
// planned shorter.
func (s *Session) planBranch(kind layout.BranchKind, root, segments, minLen, maxLen int) plan {
	bu := s.cfg.Generation.BaseUnit
	spacing := float64(minLen * bu)

	known := make([]layout.Vec3, 0, s.graph.PointCount()+segments)
	for _, p := range s.graph.Points() {
		known = append(known, p.Pos)
	}

	excluded := make(map[layout.Direction]bool)
	for _, n := range s.graph.Point(root).Neighbors() {
		excluded[s.graph.SegmentBetween(root, n).DirectionFrom(root)] = true
	}

	pl := plan{kind: kind, positions: []layout.Vec3{s.graph.Point(root).Pos}}
	for k := 0; k < segments; k++ {
		length := s.rng.Int(minLen, maxLen) * bu
		cur := pl.positions[k]

		var options []layout.Direction
		for _, dir := range layout.AllDirections() {
			if excluded[dir] || (dir.IsVertical() && !s.cfg.Generation.AllowVertical) {
				continue
			}
			end := cur.Add(dir.Vector().Scale(float64(length)))
			if tooClose(end, known, spacing) {
				continue
			}
			options = append(options, dir)
		}

		dir, ok := rng.Choice(s.rng, options)
		if !ok {
			break
		}
		end := cur.Add(dir.Vector().Scale(float64(length)))
		pl.recipes = append(pl.recipes, Recipe{Dir: dir, Length: length})
		pl.positions = append(pl.positions, end)
		known = append(known, end)
		excluded = map[layout.Direction]bool{dir.Opposite(): true}
	}
	return pl
}

func tooClose(p layout.Vec3, known []layout.Vec3, spacing float64) bool {
	for _, k := range known {
		d := p.Sub(k)
		if math.Sqrt(d.X*d.X+d.Y*d.Y+d.Z*d.Z) < spacing {
			return true
		}
	}
	return false
}

func (s *Session) warn(msg string) {
	s.warnings = append(s.warnings, msg)
	logger.Warning(msg)
	s.emit(protocol.Warning{Message: msg})
}

func (s *Session) emit(e protocol.Event) {
	if s.listener != nil {
		s.listener.OnEvent(e)
	}
}
