// Package doorway places door openings in the wall shared by two adjacent
// volumes. All boxes handed to this package are interiors: the shell minus
// the wall thickness on every side.
package doorway

import (
	"math"

	"github.com/lawnchairsociety/delve/internal/config"
	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
)

// Wall is the rectangle two interiors share across a wall of thickness
// 2*wall. U and V are the in-plane axes; for vertical walls V is always Y.
type Wall struct {
	Axis   layout.Axis
	Normal int // +1 when b lies on the positive side of a
	Plane  float64
	U, V   layout.Axis
	MinU   float64
	MaxU   float64
	MinV   float64
	MaxV   float64
}

// Doorway is one opening.
type Doorway struct {
	Center   layout.Vec3
	Width    float64 // along U
	Height   float64 // along V
	U, V     layout.Axis
	WallAxis layout.Axis
	Normal   int
}

// FindAdjacencyAxis reports the axis along which a and b sit exactly one
// double wall apart, and the side b is on. Axes are tried in X, Y, Z order.
func FindAdjacencyAxis(a, b geometry.AABB, wall, tol float64) (layout.Axis, int, bool) {
	ca, cb := a.Center(), b.Center()
	ha, hb := a.Half(), b.Half()
	for _, axis := range []layout.Axis{layout.AxisX, layout.AxisY, layout.AxisZ} {
		delta := cb.Get(axis) - ca.Get(axis)
		want := ha.Get(axis) + hb.Get(axis) + 2*wall
		if math.Abs(math.Abs(delta)-want) <= tol {
			sign := 1
			if delta < 0 {
				sign = -1
			}
			return axis, sign, true
		}
	}
	return 0, 0, false
}

// SharedWall computes the overlap of a and b on the two axes perpendicular
// to axis. Returns false when either overlap is empty.
func SharedWall(a, b geometry.AABB, axis layout.Axis, sign int, wall float64) (Wall, bool) {
	u, v := inPlaneAxes(axis)

	w := Wall{Axis: axis, Normal: sign, U: u, V: v}
	w.MinU = math.Max(a.Min.Get(u), b.Min.Get(u))
	w.MaxU = math.Min(a.Max.Get(u), b.Max.Get(u))
	w.MinV = math.Max(a.Min.Get(v), b.Min.Get(v))
	w.MaxV = math.Min(a.Max.Get(v), b.Max.Get(v))
	if w.MaxU <= w.MinU || w.MaxV <= w.MinV {
		return Wall{}, false
	}

	if sign > 0 {
		w.Plane = a.Max.Get(axis) + wall
	} else {
		w.Plane = a.Min.Get(axis) - wall
	}
	return w, true
}

// Place returns the doorway between two interiors, or nil when they are not
// adjacent, share no wall, or the wall is too small for a door.
func Place(a, b geometry.AABB, wall float64, cfg config.DoorwayConfig) *Doorway {
	axis, sign, ok := FindAdjacencyAxis(a, b, wall, cfg.Tolerance)
	if !ok {
		return nil
	}
	w, ok := SharedWall(a, b, axis, sign, wall)
	if !ok {
		return nil
	}
	return Cut(w, cfg)
}

// Cut sizes a door inside the wall rectangle. Vertical walls put the door at
// floor level plus the margin; floors and ceilings center it.
func Cut(w Wall, cfg config.DoorwayConfig) *Doorway {
	availU := (w.MaxU - w.MinU) - 2*cfg.Margin
	availV := (w.MaxV - w.MinV) - 2*cfg.Margin
	if availU < cfg.MinDoorSize || availV < cfg.MinDoorSize {
		return nil
	}

	width := clampSize(availU*cfg.WidthPercent, cfg.MaxWidth, cfg.MinDoorSize)
	height := clampSize(availV*cfg.HeightPercent, cfg.MaxHeight, cfg.MinDoorSize)

	centerU := (w.MinU + w.MaxU) / 2
	centerV := w.MinV + cfg.Margin + height/2
	if w.Axis == layout.AxisY {
		centerV = (w.MinV + w.MaxV) / 2
	}

	var center layout.Vec3
	center = center.With(w.Axis, w.Plane).With(w.U, centerU).With(w.V, centerV)

	return &Doorway{
		Center:   center,
		Width:    width,
		Height:   height,
		U:        w.U,
		V:        w.V,
		WallAxis: w.Axis,
		Normal:   w.Normal,
	}
}

// clampSize caps target at max (when positive) and floors it at min.
func clampSize(target, max, min float64) float64 {
	if max > 0 && target > max {
		target = max
	}
	if target < min {
		target = min
	}
	return target
}

func inPlaneAxes(axis layout.Axis) (layout.Axis, layout.Axis) {
	switch axis {
	case layout.AxisX:
		return layout.AxisZ, layout.AxisY
	case layout.AxisZ:
		return layout.AxisX, layout.AxisY
	default:
		return layout.AxisX, layout.AxisZ
	}
}
