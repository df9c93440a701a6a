package growth

import (
	"math"

	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
)

// Horizon is the free distance measured in one direction.
type Horizon struct {
	Dir       layout.Direction
	Available float64
}

// scanHorizon measures how far a room at current can grow along dir: the
// distance from current's face to the nearest footprint crossing a
// hallway-wide slab, capped at limit. Footprints not ahead of the face are
// ignored.
func scanHorizon(current geometry.AABB, currentID int, footprints map[int]geometry.AABB, dir layout.Direction, slabWidth, limit, tol float64) float64 {
	axis := dir.Axis()
	u, v := axis.Perpendicular()
	center := current.Center()
	half := slabWidth / 2

	face := current.Max.Get(axis)
	if dir.Sign() < 0 {
		face = current.Min.Get(axis)
	}

	nearest := limit
	for id, fp := range footprints {
		if id == currentID {
			continue
		}
		if !crossesSlab(fp, u, center.Get(u)-half, center.Get(u)+half, tol) ||
			!crossesSlab(fp, v, center.Get(v)-half, center.Get(v)+half, tol) {
			continue
		}

		var dist float64
		if dir.Sign() > 0 {
			if fp.Min.Get(axis) < face-tol {
				continue
			}
			dist = fp.Min.Get(axis) - face
		} else {
			if fp.Max.Get(axis) > face+tol {
				continue
			}
			dist = face - fp.Max.Get(axis)
		}
		nearest = math.Min(nearest, math.Max(dist, 0))
	}
	return nearest
}

func crossesSlab(b geometry.AABB, a layout.Axis, lo, hi, tol float64) bool {
	return math.Min(b.Max.Get(a), hi)-math.Max(b.Min.Get(a), lo) > tol
}

// classifyHorizons splits viable directions into clear (reaching the scan
// cap) and blocked (room for at least a minimal room plus one unit of gap).
func classifyHorizons(horizons []Horizon, limit float64, baseUnit int) (clear, blocked []Horizon) {
	minimum := float64(3 * baseUnit)
	for _, h := range horizons {
		switch {
		case h.Available < minimum:
		case h.Available >= limit:
			clear = append(clear, h)
		default:
			blocked = append(blocked, h)
		}
	}
	return clear, blocked
}

// widest returns the blocked horizon with the most room. Ties keep the
// earliest entry.
func widest(blocked []Horizon) Horizon {
	best := blocked[0]
	for _, h := range blocked[1:] {
		if h.Available > best.Available {
			best = h
		}
	}
	return best
}

// clampHalf limits a half extent so the room leaves one base unit free
// before the obstacle that bounded available.
func clampHalf(half int, available float64, baseUnit int) int {
	bu := float64(baseUnit)
	maxHalf := int(math.Floor((available-bu)/(2*bu))) * baseUnit
	if half > maxHalf {
		return maxHalf
	}
	return half
}

func without(hs []Horizon, dir layout.Direction) []Horizon {
	out := hs[:0:0]
	for _, h := range hs {
		if h.Dir != dir {
			out = append(out, h)
		}
	}
	return out
}
