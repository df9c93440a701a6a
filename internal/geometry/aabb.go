// Package geometry turns graph points and segments into axis-aligned volumes
// and answers overlap questions about them.
package geometry

import (
	"math"

	"github.com/lawnchairsociety/delve/internal/layout"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min layout.Vec3 `yaml:"min" json:"min"`
	Max layout.Vec3 `yaml:"max" json:"max"`
}

// FromCenter builds a box from its center and half extents.
func FromCenter(center, half layout.Vec3) AABB {
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

func (b AABB) Center() layout.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

func (b AABB) Size() layout.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b AABB) Half() layout.Vec3 {
	return b.Size().Scale(0.5)
}

// Translate returns the box moved by delta.
func (b AABB) Translate(delta layout.Vec3) AABB {
	return AABB{Min: b.Min.Add(delta), Max: b.Max.Add(delta)}
}

// OverlapOn returns the length of the intersection of the two boxes'
// intervals on an axis; zero or negative means disjoint on that axis.
func (b AABB) OverlapOn(o AABB, a layout.Axis) float64 {
	return math.Min(b.Max.Get(a), o.Max.Get(a)) - math.Max(b.Min.Get(a), o.Min.Get(a))
}

// Intersects reports interpenetration deeper than tol on every axis.
// Boxes that only touch, or overlap by no more than tol, do not intersect.
func (b AABB) Intersects(o AABB, tol float64) bool {
	return b.OverlapOn(o, layout.AxisX) > tol &&
		b.OverlapOn(o, layout.AxisY) > tol &&
		b.OverlapOn(o, layout.AxisZ) > tol
}

// MinHorizontalOverlap returns the smaller of the X and Z overlaps, the
// cheapest horizontal push that separates the boxes.
func (b AABB) MinHorizontalOverlap(o AABB) float64 {
	return math.Max(0, math.Min(b.OverlapOn(o, layout.AxisX), b.OverlapOn(o, layout.AxisZ)))
}

// Penetration returns how far b must travel along dir to stop
// interpenetrating o. Zero when the boxes do not intersect.
func (b AABB) Penetration(o AABB, dir layout.Direction) float64 {
	if !b.Intersects(o, 0) {
		return 0
	}
	a := dir.Axis()
	if dir.Sign() > 0 {
		return math.Max(0, o.Max.Get(a)-b.Min.Get(a))
	}
	return math.Max(0, b.Max.Get(a)-o.Min.Get(a))
}

// Shrink returns the box inset by d on every side.
func (b AABB) Shrink(d float64) AABB {
	inset := layout.V(d, d, d)
	return AABB{Min: b.Min.Add(inset), Max: b.Max.Sub(inset)}
}
