package resolver

import (
	"math"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/logger"
	"github.com/lawnchairsociety/delve/internal/protocol"
)

// Validator answers incremental segment proposals. It builds volumes as
// proposals are accepted and never moves anything already built.
type Validator struct {
	cfg      *config.Config
	baseUnit int
	registry *geometry.Registry
	rooms    map[int]geometry.AABB

	roomGeometry    []protocol.RoomGeometry
	hallwayGeometry []protocol.HallwayGeometry
}

// NewValidator creates a validator using the configured base unit.
func NewValidator(cfg *config.Config) *Validator {
	return &Validator{
		cfg:      cfg,
		baseUnit: cfg.Generation.BaseUnit,
		registry: geometry.NewRegistry(),
		rooms:    make(map[int]geometry.AABB),
	}
}

// Registry exposes the placed volumes.
func (v *Validator) Registry() *geometry.Registry {
	return v.registry
}

// Validate checks the proposed to room and hallway against everything built.
// On success both are built and OK is returned; otherwise OverlapAmount is
// the push along the segment direction needed to clear every conflict.
func (v *Validator) Validate(p protocol.SegmentProposal) protocol.SegmentResult {
	from, ok := v.rooms[p.FromID]
	if !ok {
		from = v.buildRoom(p.FromID, p.From, p.FromConnections, p.FromRole)
	}

	kind := geometry.Classify(p.ToConnections, p.ToRole)
	to := geometry.RoomBox(p.To, kind, v.cfg.Rooms, v.baseUnit)
	hall, hasHall := geometry.HallwayBox(p.Dir, from, to, v.cfg.Hallways.Width, v.cfg.Hallways.Height)

	tol := v.cfg.Resolver.TouchTolerance
	overlap := 0.0
	for _, e := range v.registry.Conflicts(to, tol, nil) {
		overlap = math.Max(overlap, pushAlong(to, e.Box, p.Dir))
	}
	if hasHall {
		for _, e := range v.registry.Conflicts(hall, tol, nil) {
			overlap = math.Max(overlap, pushAlong(hall, e.Box, p.Dir))
		}
	}
	if overlap > 0 {
		logger.Debug("Rejected segment", "segment", p.SegmentID, "to", p.ToID, "overlap", overlap)
		return protocol.SegmentResult{OK: false, OverlapAmount: overlap}
	}

	v.commitRoom(p.ToID, to, kind, p.ToConnections)
	if hasHall {
		s := &layout.Segment{ID: p.SegmentID, From: p.FromID, To: p.ToID, Dir: p.Dir, Length: p.Length}
		v.registry.Add(hall, p.SegmentID, geometry.KindHallway)
		v.hallwayGeometry = append(v.hallwayGeometry, HallwayGeometry(s, hall))
	}
	return protocol.SegmentResult{OK: true}
}

// EnsureRoom builds the room of a point that no proposal has touched yet,
// such as the graph root. Existing rooms are left alone.
func (v *Validator) EnsureRoom(id int, pos layout.Vec3, connections int, role layout.Role) {
	if _, ok := v.rooms[id]; !ok {
		v.buildRoom(id, pos, connections, role)
	}
}

// Geometry returns everything built so far.
func (v *Validator) Geometry() protocol.Geometry {
	return protocol.Geometry{
		Rooms:    append([]protocol.RoomGeometry(nil), v.roomGeometry...),
		Hallways: append([]protocol.HallwayGeometry(nil), v.hallwayGeometry...),
		BaseUnit: v.baseUnit,
	}
}

// Reset drops every built volume.
func (v *Validator) Reset() {
	v.registry.Clear()
	v.rooms = make(map[int]geometry.AABB)
	v.roomGeometry = nil
	v.hallwayGeometry = nil
}

func (v *Validator) buildRoom(id int, pos layout.Vec3, connections int, role layout.Role) geometry.AABB {
	kind := geometry.Classify(connections, role)
	box := geometry.RoomBox(pos, kind, v.cfg.Rooms, v.baseUnit)
	v.commitRoom(id, box, kind, connections)
	return box
}

func (v *Validator) commitRoom(id int, box geometry.AABB, kind geometry.RoomKind, connections int) {
	v.registry.Add(box, id, geometry.KindRoom)
	v.rooms[id] = box
	v.roomGeometry = append(v.roomGeometry, protocol.RoomGeometry{
		PointID:         id,
		Pos:             box.Center(),
		Size:            box.Size(),
		Type:            kind.String(),
		ConnectionCount: connections,
	})
}

// pushAlong is the overlap to report for one conflict: the directional
// penetration, but never less than the smaller horizontal overlap.
func pushAlong(b, o geometry.AABB, dir layout.Direction) float64 {
	return math.Max(b.Penetration(o, dir), b.MinHorizontalOverlap(o))
}
