package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/lawnchairsociety/delve/internal/dungeon"
	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/protocol"
)

// Map symbols.
const (
	cellEmpty   = ' '
	cellWall    = '#'
	cellFloor   = '.'
	cellHallway = '='
	cellShaft   = 'H'
	cellDoor    = '+'
	cellHatch   = 'o'
	cellStart   = 'S'
	cellGoal    = 'G'
	cellJunct   = 'J'
	cellDeadEnd = 'x'
)

const levelEpsilon = 1e-6

// Level is one floor of a layout rasterized top-down: columns follow X,
// rows follow Z.
type Level struct {
	Floor  float64
	MinX   float64
	MinZ   float64
	Cell   float64
	Width  int
	Height int
	cells  [][]rune
}

// At returns the symbol at a column and row.
func (lv *Level) At(col, row int) rune {
	if row < 0 || row >= lv.Height || col < 0 || col >= lv.Width {
		return cellEmpty
	}
	return lv.cells[row][col]
}

// String renders the level with a header line.
func (lv *Level) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Level y=%g (%dx%d, %g units per cell)\n", lv.Floor, lv.Width, lv.Height, lv.Cell))
	for _, row := range lv.cells {
		b.WriteString(strings.TrimRight(string(row), " "))
		b.WriteString("\n")
	}
	return b.String()
}

func boxOf(center, size layout.Vec3) geometry.AABB {
	return geometry.FromCenter(center, size.Scale(0.5))
}

// spans reports whether the box's vertical range covers a floor height.
func spans(b geometry.AABB, floor float64) bool {
	return b.Min.Y <= floor+levelEpsilon && floor < b.Max.Y-levelEpsilon
}

// Rasterize draws every room and hallway that spans floor. cell is the
// size of one character in world units.
func Rasterize(l *dungeon.Layout, floor, cell float64) *Level {
	var rooms []protocol.RoomGeometry
	var halls []protocol.HallwayGeometry
	minX, minZ := math.Inf(1), math.Inf(1)
	maxX, maxZ := math.Inf(-1), math.Inf(-1)
	grow := func(b geometry.AABB) {
		minX, minZ = math.Min(minX, b.Min.X), math.Min(minZ, b.Min.Z)
		maxX, maxZ = math.Max(maxX, b.Max.X), math.Max(maxZ, b.Max.Z)
	}

	for _, r := range l.Rooms {
		if b := boxOf(r.Pos, r.Size); spans(b, floor) {
			rooms = append(rooms, r)
			grow(b)
		}
	}
	for _, h := range l.Hallways {
		if b := boxOf(h.Pos, h.Size); spans(b, floor) {
			halls = append(halls, h)
			grow(b)
		}
	}

	lv := &Level{Floor: floor, Cell: cell}
	if len(rooms) == 0 && len(halls) == 0 {
		return lv
	}
	lv.MinX, lv.MinZ = minX, minZ
	lv.Width = int(math.Ceil((maxX-minX)/cell)) + 1
	lv.Height = int(math.Ceil((maxZ-minZ)/cell)) + 1
	lv.cells = make([][]rune, lv.Height)
	for i := range lv.cells {
		lv.cells[i] = []rune(strings.Repeat(string(cellEmpty), lv.Width))
	}

	for _, h := range halls {
		symbol := cellHallway
		if h.Axis == "y" {
			symbol = cellShaft
		}
		lv.fill(boxOf(h.Pos, h.Size), symbol, symbol)
	}
	for _, r := range rooms {
		lv.fill(boxOf(r.Pos, r.Size), cellWall, cellFloor)
		lv.set(r.Pos, roomSymbol(r.Type))
	}
	for _, d := range l.Doorways {
		if !lv.hasDoor(d, rooms) {
			continue
		}
		if d.WallAxis == "y" {
			lv.set(d.Position, cellHatch)
		} else {
			lv.set(d.Position, cellDoor)
		}
	}
	return lv
}

// hasDoor keeps doors whose opening sits inside a room drawn on this level.
func (lv *Level) hasDoor(d protocol.DoorwayGeometry, rooms []protocol.RoomGeometry) bool {
	for _, r := range rooms {
		b := boxOf(r.Pos, r.Size)
		p := d.Position
		if p.X >= b.Min.X-levelEpsilon && p.X <= b.Max.X+levelEpsilon &&
			p.Z >= b.Min.Z-levelEpsilon && p.Z <= b.Max.Z+levelEpsilon &&
			p.Y >= b.Min.Y-levelEpsilon && p.Y <= b.Max.Y+levelEpsilon {
			return true
		}
	}
	return false
}

func (lv *Level) cellOf(x, z float64) (int, int) {
	return int(math.Floor((x - lv.MinX) / lv.Cell)), int(math.Floor((z - lv.MinZ) / lv.Cell))
}

func (lv *Level) set(p layout.Vec3, symbol rune) {
	col, row := lv.cellOf(p.X, p.Z)
	if row >= 0 && row < lv.Height && col >= 0 && col < lv.Width {
		lv.cells[row][col] = symbol
	}
}

// fill paints the edge cells of b with edge and the rest with inside.
func (lv *Level) fill(b geometry.AABB, edge, inside rune) {
	c0, r0 := lv.cellOf(b.Min.X, b.Min.Z)
	c1, r1 := lv.cellOf(b.Max.X-levelEpsilon, b.Max.Z-levelEpsilon)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if row < 0 || row >= lv.Height || col < 0 || col >= lv.Width {
				continue
			}
			if row == r0 || row == r1 || col == c0 || col == c1 {
				lv.cells[row][col] = edge
			} else {
				lv.cells[row][col] = inside
			}
		}
	}
}

func roomSymbol(kind string) rune {
	switch kind {
	case "start":
		return cellStart
	case "goal":
		return cellGoal
	case "junction":
		return cellJunct
	case "dead_end":
		return cellDeadEnd
	default:
		return cellFloor
	}
}

func legend() string {
	return `
Legend:
  [S] Start room        [G] Goal room
  [J] Junction          [x] Dead end
  [#] Room wall         [.] Room floor
  [=] Hallway           [H] Vertical shaft
  [+] Doorway           [o] Floor/ceiling hatch
`
}
