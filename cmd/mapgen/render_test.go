package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawnchairsociety/delve/internal/dungeon"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/protocol"
)

// sampleLayout has a start and goal room joined by a hallway on the ground
// floor and a lone room twelve units up.
func sampleLayout() *dungeon.Layout {
	return &dungeon.Layout{
		Name: "sample",
		Seed: "42",
		Rooms: []protocol.RoomGeometry{
			{PointID: 1, Pos: layout.V(3, 2, 3), Size: layout.V(6, 4, 6), Type: "start"},
			{PointID: 2, Pos: layout.V(23, 2, 3), Size: layout.V(6, 4, 6), Type: "goal"},
			{PointID: 3, Pos: layout.V(3, 14, 3), Size: layout.V(6, 4, 6), Type: "dead_end"},
		},
		Hallways: []protocol.HallwayGeometry{
			{SegmentID: 1, From: 1, To: 2, Pos: layout.V(13, 2, 3), Size: layout.V(14, 4, 4), Axis: "x"},
		},
		Doorways: []protocol.DoorwayGeometry{
			{FromRoomID: 1, SegmentID: 1, Position: layout.V(6, 1.6, 3), WallAxis: "x", Width: 2, Height: 3},
		},
	}
}

func TestRasterizeGroundFloor(t *testing.T) {
	lv := Rasterize(sampleLayout(), 0, 1)

	require.Equal(t, 27, lv.Width)
	require.Equal(t, 7, lv.Height)

	assert.Equal(t, cellWall, lv.At(0, 0))
	assert.Equal(t, cellFloor, lv.At(2, 2))
	assert.Equal(t, cellStart, lv.At(3, 3))
	assert.Equal(t, cellGoal, lv.At(23, 3))
	assert.Equal(t, cellHallway, lv.At(10, 3))
	assert.Equal(t, cellDoor, lv.At(6, 3))
	assert.Equal(t, cellEmpty, lv.At(10, 0), "hallway is narrower than the rooms")
	assert.Equal(t, cellEmpty, lv.At(-1, 99), "out of range reads are empty")
}

func TestRasterizeUpperFloor(t *testing.T) {
	lv := Rasterize(sampleLayout(), 12, 1)

	require.Equal(t, 7, lv.Width)
	assert.Equal(t, cellDeadEnd, lv.At(3, 3))
	assert.NotContains(t, lv.String(), string(cellDoor), "ground floor doors stay on the ground floor")
}

func TestRasterizeEmptyLevel(t *testing.T) {
	lv := Rasterize(sampleLayout(), 100, 1)
	assert.Zero(t, lv.Width)
	assert.Equal(t, 1, strings.Count(lv.String(), "\n"))
}

func TestRasterizeVerticalShaft(t *testing.T) {
	l := sampleLayout()
	l.Hallways = append(l.Hallways, protocol.HallwayGeometry{
		SegmentID: 2, From: 1, To: 3, Pos: layout.V(3, 8, 3), Size: layout.V(4, 8, 4), Axis: "y",
	})

	lv := Rasterize(l, 4, 1)
	assert.Equal(t, cellShaft, lv.At(1, 1))
}

func TestRenderAllLevels(t *testing.T) {
	out, err := Render(sampleLayout(), -1, 1, true)
	require.NoError(t, err)

	assert.Contains(t, out, `Layout "sample"`)
	assert.Contains(t, out, "Legend:")
	assert.Contains(t, out, "Level y=0 ")
	assert.Contains(t, out, "Level y=12 ")
}

func TestRenderSingleLevel(t *testing.T) {
	out, err := Render(sampleLayout(), 1, 1, false)
	require.NoError(t, err)

	assert.NotContains(t, out, "Legend:")
	assert.NotContains(t, out, "Level y=0 ")
	assert.Contains(t, out, "Level y=12 ")
}

func TestRenderUnknownLevel(t *testing.T) {
	_, err := Render(sampleLayout(), 5, 1, false)
	assert.Error(t, err)
}
