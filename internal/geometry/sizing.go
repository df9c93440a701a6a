package geometry

import (
	"math"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/layout"
)

// RoomKind is the sizing category of a room.
type RoomKind int

const (
	RoomDeadEnd RoomKind = iota
	RoomCorridor
	RoomJunction
	RoomStart
	RoomGoal
)

func (k RoomKind) String() string {
	switch k {
	case RoomDeadEnd:
		return "dead_end"
	case RoomCorridor:
		return "corridor"
	case RoomJunction:
		return "junction"
	case RoomStart:
		return "start"
	case RoomGoal:
		return "goal"
	default:
		return "unknown"
	}
}

// Classify picks the room category from the connection count and role.
// Start and goal roles take precedence over connectivity.
func Classify(connections int, role layout.Role) RoomKind {
	switch role {
	case layout.RoleStart:
		return RoomStart
	case layout.RoleGoal:
		return RoomGoal
	}
	switch {
	case connections <= 1:
		return RoomDeadEnd
	case connections == 2:
		return RoomCorridor
	default:
		return RoomJunction
	}
}

// Profile returns the sizing profile for a room category.
func Profile(cfg config.RoomsConfig, kind RoomKind) config.RoomProfile {
	switch kind {
	case RoomStart:
		return cfg.Start
	case RoomGoal:
		return cfg.Goal
	case RoomJunction:
		return cfg.Junction
	case RoomCorridor:
		return cfg.Corridor
	default:
		return cfg.DeadEnd
	}
}

// RoomBox returns the outer shell of a room centered at center: interior
// size from the profile plus the wall thickness on every side.
func RoomBox(center layout.Vec3, kind RoomKind, cfg config.RoomsConfig, baseUnit int) AABB {
	p := Profile(cfg, kind)
	bu := float64(baseUnit)
	horizontal := cfg.Size*bu*p.WidthScale/2 + cfg.WallThickness
	vertical := cfg.Height*bu*p.HeightMultiplier/2 + cfg.WallThickness
	return FromCenter(center, layout.V(horizontal, vertical, horizontal))
}

// HallwayBox returns the hallway shell joining two room shells along dir.
// It spans the gap between the facing walls and is width across. Level
// hallways stand on the higher of the two room floors and are height tall,
// cut down to the lower ceiling so they never leave the band both rooms
// share. Vertical shafts are width square and span floor to ceiling.
// Returns false when the rooms leave no gap.
func HallwayBox(dir layout.Direction, from, to AABB, width, height float64) (AABB, bool) {
	a := dir.Axis()
	var start, end float64
	if dir.Sign() > 0 {
		start, end = from.Max.Get(a), to.Min.Get(a)
	} else {
		start, end = to.Max.Get(a), from.Min.Get(a)
	}
	if end-start <= 0 {
		return AABB{}, false
	}

	center := from.Center()
	half := width / 2
	box := AABB{
		Min: layout.V(center.X-half, 0, center.Z-half),
		Max: layout.V(center.X+half, 0, center.Z+half),
	}
	if a == layout.AxisY {
		box.Min.Y, box.Max.Y = start, end
		return box, true
	}

	floor := math.Max(from.Min.Y, to.Min.Y)
	ceiling := math.Min(from.Max.Y, to.Max.Y)
	box.Min.Y, box.Max.Y = floor, math.Min(floor+height, ceiling)
	box.Min = box.Min.With(a, start)
	box.Max = box.Max.With(a, end)
	return box, true
}

// InferBaseUnit returns the greatest common divisor of the segment lengths,
// or fallback when the result is degenerate (no positive lengths).
func InferBaseUnit(lengths []int, fallback int) int {
	g := 0
	for _, l := range lengths {
		if l < 0 {
			l = -l
		}
		g = gcd(g, l)
	}
	if g <= 0 {
		return fallback
	}
	return g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
