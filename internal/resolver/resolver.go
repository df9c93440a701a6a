// Package resolver turns a point graph into non-overlapping room and hallway
// volumes, shifting unplaced parts of the graph along their hallways when
// they collide with what is already placed.
package resolver

import (
	"errors"
	"fmt"

	"github.com/zyedidia/generic/mapset"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/logger"
	"github.com/lawnchairsociety/delve/internal/protocol"
)

// ErrUnresolvedOverlap is returned in strict mode when a room still
// collides after every shift attempt.
var ErrUnresolvedOverlap = errors.New("resolver: overlap remains after shift attempts")

// Result is the resolved geometry of a graph.
type Result struct {
	Rooms    []protocol.RoomGeometry
	Hallways []protocol.HallwayGeometry
	BaseUnit int

	// ShiftCount is the number of downstream translations applied.
	ShiftCount int
	// Updates holds the final position of every point that moved.
	Updates map[int]layout.Vec3
	// Unresolved lists points placed despite a remaining overlap.
	Unresolved []int
	Warnings   []string
}

// Geometry returns the materialization-ready part of the result.
func (r *Result) Geometry() protocol.Geometry {
	return protocol.Geometry{Rooms: r.Rooms, Hallways: r.Hallways, BaseUnit: r.BaseUnit}
}

// Resolver places a complete graph in one pass.
type Resolver struct {
	cfg      *config.Config
	registry *geometry.Registry
}

// New creates a resolver with an empty registry.
func New(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg, registry: geometry.NewRegistry()}
}

// Registry exposes the placed volumes.
func (r *Resolver) Registry() *geometry.Registry {
	return r.registry
}

// Resolve walks g breadth-first from its start point and places every room
// and hallway. Shifts are applied to g itself.
func (r *Resolver) Resolve(g *layout.Graph) (*Result, error) {
	r.registry.Clear()

	var lengths []int
	for _, s := range g.Segments() {
		lengths = append(lengths, s.Length)
	}
	res := &Result{
		BaseUnit: geometry.InferBaseUnit(lengths, r.cfg.Resolver.DefaultBaseUnit),
		Updates:  make(map[int]layout.Vec3),
	}

	order, cameFrom := r.walk(g)
	placed := make(map[int]geometry.AABB, len(order))
	shifted := mapset.New[int]()

	for _, id := range order {
		if err := r.place(g, id, cameFrom[id], placed, &shifted, res); err != nil {
			return nil, err
		}
	}

	shifted.Each(func(id int) {
		res.Updates[id] = g.Point(id).Pos
	})
	if res.ShiftCount > 0 {
		logger.Info("Resolved placement conflicts", "shifts", res.ShiftCount, "moved", len(res.Updates))
	}
	return res, nil
}

// walk returns the breadth-first visiting order and the arrival point of
// each visited point. Points unreachable from the start are walked from
// their own roots afterwards.
func (r *Resolver) walk(g *layout.Graph) ([]int, map[int]int) {
	visited := mapset.New[int]()
	cameFrom := make(map[int]int)
	var order []int

	roots := []int{}
	if g.StartID != 0 {
		roots = append(roots, g.StartID)
	}
	for _, p := range g.Points() {
		roots = append(roots, p.ID)
	}

	for _, root := range roots {
		if visited.Has(root) {
			continue
		}
		visited.Put(root)
		queue := []int{root}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			order = append(order, current)

			for _, n := range g.Point(current).Neighbors() {
				if visited.Has(n) {
					continue
				}
				visited.Put(n)
				cameFrom[n] = current
				queue = append(queue, n)
			}
		}
	}
	return order, cameFrom
}

func (r *Resolver) place(g *layout.Graph, id, parent int, placed map[int]geometry.AABB, shifted *mapset.Set[int], res *Result) error {
	rooms := r.cfg.Rooms
	tol := r.cfg.Resolver.TouchTolerance
	p := g.Point(id)
	kind := geometry.Classify(p.Connections(), p.Role)

	dir := layout.PosX
	if parent != 0 {
		dir = g.SegmentBetween(parent, id).DirectionFrom(parent)
	}

	// A shift only lengthens the incoming hallway, so a hallway that already
	// collides keeps colliding. Only room conflicts are worth shifting for.
	candidate := func() (room geometry.AABB, roomHit, hallHit bool) {
		room = geometry.RoomBox(p.Pos, kind, rooms, res.BaseUnit)
		roomHit = len(r.registry.Conflicts(room, tol, nil)) > 0
		if parent == 0 {
			return room, roomHit, false
		}
		hall, ok := geometry.HallwayBox(dir, placed[parent], room, r.cfg.Hallways.Width, r.cfg.Hallways.Height)
		return room, roomHit, ok && len(r.registry.Conflicts(hall, tol, nil)) > 0
	}

	room, roomHit, hallHit := candidate()
	for attempt := 0; roomHit && attempt < r.cfg.Resolver.MaxShiftAttempts; attempt++ {
		ids := g.Downstream(id, parent)
		g.Translate(ids, layout.ShiftAlongHallway(dir, 0, res.BaseUnit))
		for _, moved := range ids {
			shifted.Put(moved)
		}
		res.ShiftCount++
		room, roomHit, hallHit = candidate()
	}

	if roomHit || hallHit {
		if r.cfg.Resolver.StrictPlacement {
			return fmt.Errorf("%w: point %d", ErrUnresolvedOverlap, id)
		}
		var msg string
		if roomHit {
			msg = fmt.Sprintf("point %d still overlaps after %d shifts, placed anyway", id, r.cfg.Resolver.MaxShiftAttempts)
		} else {
			msg = fmt.Sprintf("hallway into point %d crosses placed geometry, placed anyway", id)
		}
		logger.Warning("Best-effort placement", "point", id, "room", roomHit, "hallway", hallHit)
		res.Unresolved = append(res.Unresolved, id)
		res.Warnings = append(res.Warnings, msg)
	}

	r.registry.Add(room, id, geometry.KindRoom)
	placed[id] = room
	res.Rooms = append(res.Rooms, protocol.RoomGeometry{
		PointID:         id,
		Pos:             p.Pos,
		Size:            room.Size(),
		Type:            kind.String(),
		ConnectionCount: p.Connections(),
	})

	for _, n := range p.Neighbors() {
		if _, ok := placed[n]; !ok || n == id {
			continue
		}
		seg := g.SegmentBetween(n, id)
		hall, ok := geometry.HallwayBox(seg.Dir, placed[seg.From], placed[seg.To], r.cfg.Hallways.Width, r.cfg.Hallways.Height)
		if !ok {
			continue
		}
		r.registry.Add(hall, seg.ID, geometry.KindHallway)
		res.Hallways = append(res.Hallways, HallwayGeometry(seg, hall))
	}
	return nil
}

// HallwayGeometry describes a placed hallway box for segment s.
func HallwayGeometry(s *layout.Segment, box geometry.AABB) protocol.HallwayGeometry {
	axis := s.Dir.Axis()
	return protocol.HallwayGeometry{
		SegmentID: s.ID,
		From:      s.From,
		To:        s.To,
		Pos:       box.Center(),
		Size:      box.Size(),
		Axis:      axis.String(),
		Length:    box.Size().Get(axis),
	}
}
