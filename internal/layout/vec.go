package layout

import (
	"fmt"
	"math"
)

// Axis identifies one of the three coordinate axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the lowercase axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Perpendicular returns the two other axes in x, y, z order.
func (a Axis) Perpendicular() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

// Vec3 is a position or extent in world units.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// V is shorthand for constructing a Vec3.
func V(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Get returns the component along an axis.
func (v Vec3) Get(a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// With returns a copy with the component along an axis replaced.
func (v Vec3) With(a Axis, value float64) Vec3 {
	switch a {
	case AxisX:
		v.X = value
	case AxisY:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// ApproxEqual compares component-wise within tol.
func (v Vec3) ApproxEqual(o Vec3, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol && math.Abs(v.Z-o.Z) <= tol
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Direction is one of the six axis-aligned unit directions.
type Direction int

const (
	PosX Direction = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
)

// String returns the direction name used in persisted layouts.
func (d Direction) String() string {
	switch d {
	case PosX:
		return "+x"
	case NegX:
		return "-x"
	case PosY:
		return "+y"
	case NegY:
		return "-y"
	case PosZ:
		return "+z"
	case NegZ:
		return "-z"
	default:
		return "unknown"
	}
}

// ParseDirection converts a persisted direction name back to a Direction.
func ParseDirection(s string) (Direction, error) {
	for _, d := range AllDirections() {
		if d.String() == s {
			return d, nil
		}
	}
	return PosX, fmt.Errorf("unknown direction %q", s)
}

// Axis returns the axis the direction lies on.
func (d Direction) Axis() Axis {
	switch d {
	case PosX, NegX:
		return AxisX
	case PosY, NegY:
		return AxisY
	default:
		return AxisZ
	}
}

// Sign returns +1 or -1.
func (d Direction) Sign() int {
	switch d {
	case NegX, NegY, NegZ:
		return -1
	default:
		return 1
	}
}

// Vector returns the unit vector for the direction.
func (d Direction) Vector() Vec3 {
	return Vec3{}.With(d.Axis(), float64(d.Sign()))
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case PosX:
		return NegX
	case NegX:
		return PosX
	case PosY:
		return NegY
	case NegY:
		return PosY
	case PosZ:
		return NegZ
	case NegZ:
		return PosZ
	default:
		return d
	}
}

// IsVertical reports whether the direction moves between levels.
func (d Direction) IsVertical() bool {
	return d.Axis() == AxisY
}

// DirectionOf returns the direction for an axis and sign.
func DirectionOf(a Axis, sign int) Direction {
	switch a {
	case AxisX:
		if sign < 0 {
			return NegX
		}
		return PosX
	case AxisY:
		if sign < 0 {
			return NegY
		}
		return PosY
	default:
		if sign < 0 {
			return NegZ
		}
		return PosZ
	}
}

// AllDirections returns the six directions in a fixed order. The order is
// part of the determinism contract: scans and random picks index into it.
func AllDirections() []Direction {
	return []Direction{PosX, NegX, PosY, NegY, PosZ, NegZ}
}

// HorizontalDirections returns the four directions that stay on one level.
func HorizontalDirections() []Direction {
	return []Direction{PosX, NegX, PosZ, NegZ}
}

// ShiftAlongHallway is the conflict shift policy shared by both resolvers:
// a translation strictly along the hallway direction of overlap plus one
// base unit. Never perpendicular, so segments stay axis-aligned.
func ShiftAlongHallway(dir Direction, overlap float64, baseUnit int) Vec3 {
	if overlap < 0 {
		overlap = 0
	}
	return dir.Vector().Scale(overlap + float64(baseUnit))
}

// Span returns the signed distance from a to b along dir, rounded to whole
// world units. It is negative when b lies behind a.
func Span(dir Direction, a, b Vec3) int {
	return int(math.Round(b.Sub(a).Get(dir.Axis()) * float64(dir.Sign())))
}
