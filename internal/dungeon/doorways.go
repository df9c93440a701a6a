package dungeon

import (
	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/doorway"
	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/protocol"
)

// Door sides within a segment.
const (
	SideFrom   = "from"
	SideTo     = "to"
	SideDirect = "direct"
)

// PlaceDoorways cuts doors along every segment: one from the from room into
// the hallway and one from the hallway into the to room, or a single door
// when the two rooms share a wall. Pairs that are not adjacent or whose
// wall is too small get no door.
func PlaceDoorways(g *layout.Graph, geo protocol.Geometry, cfg *config.Config) []protocol.DoorwayGeometry {
	wall := cfg.Rooms.WallThickness

	rooms := make(map[int]geometry.AABB, len(geo.Rooms))
	for _, r := range geo.Rooms {
		rooms[r.PointID] = boxOf(r.Pos, r.Size).Shrink(wall)
	}
	halls := make(map[int]geometry.AABB, len(geo.Hallways))
	for _, h := range geo.Hallways {
		halls[h.SegmentID] = boxOf(h.Pos, h.Size).Shrink(wall)
	}

	var out []protocol.DoorwayGeometry
	add := func(s *layout.Segment, side string, a, b geometry.AABB) {
		d := doorway.Place(a, b, wall, cfg.Doorways)
		if d == nil {
			return
		}
		out = append(out, protocol.DoorwayGeometry{
			FromRoomID: s.From,
			ToRoomID:   s.To,
			SegmentID:  s.ID,
			Side:       side,
			Position:   d.Center,
			Width:      d.Width,
			Height:     d.Height,
			WallAxis:   d.WallAxis.String(),
			Normal:     d.Normal,
		})
	}

	for _, s := range g.Segments() {
		from, okFrom := rooms[s.From]
		to, okTo := rooms[s.To]
		if !okFrom || !okTo {
			continue
		}
		if hall, ok := halls[s.ID]; ok {
			add(s, SideFrom, from, hall)
			add(s, SideTo, hall, to)
			continue
		}
		add(s, SideDirect, from, to)
	}
	return out
}
