package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildChain creates start -> a -> b along +X with a spur c off a along +Z.
func buildChain(t *testing.T) (*Graph, []int) {
	t.Helper()
	g := NewGraph()
	start := g.AddPoint(V(0, 0, 0))
	a := g.AddPoint(V(16, 0, 0))
	b := g.AddPoint(V(32, 0, 0))
	c := g.AddPoint(V(16, 0, 16))
	g.StartID = start.ID

	_, err := g.Connect(start.ID, a.ID, PosX, 16)
	require.NoError(t, err)
	_, err = g.Connect(a.ID, b.ID, PosX, 16)
	require.NoError(t, err)
	_, err = g.Connect(a.ID, c.ID, PosZ, 16)
	require.NoError(t, err)

	return g, []int{start.ID, a.ID, b.ID, c.ID}
}

func TestDirectionBasics(t *testing.T) {
	for _, d := range AllDirections() {
		assert.Equal(t, d, d.Opposite().Opposite())
		assert.Equal(t, d.Axis(), d.Opposite().Axis())
		assert.Equal(t, -d.Sign(), d.Opposite().Sign())
		assert.Equal(t, d, DirectionOf(d.Axis(), d.Sign()))

		parsed, err := ParseDirection(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)

	assert.Equal(t, V(0, -1, 0), NegY.Vector())
	assert.True(t, PosY.IsVertical())
	assert.False(t, NegZ.IsVertical())
}

func TestShiftAlongHallway(t *testing.T) {
	assert.Equal(t, V(10, 0, 0), ShiftAlongHallway(PosX, 6, 4))
	assert.Equal(t, V(0, 0, -4), ShiftAlongHallway(NegZ, 0, 4))
	assert.Equal(t, V(0, 4, 0), ShiftAlongHallway(PosY, -3, 4), "negative overlap is treated as zero")
}

func TestConnectMaintainsNeighbors(t *testing.T) {
	g, ids := buildChain(t)
	a := g.Point(ids[1])

	assert.Equal(t, 3, a.Connections())
	assert.Equal(t, []int{ids[0], ids[2], ids[3]}, a.Neighbors())
	assert.True(t, a.HasNeighbor(ids[3]))
	assert.False(t, g.Point(ids[0]).HasNeighbor(ids[2]))

	seg := g.SegmentBetween(ids[2], ids[1])
	require.NotNil(t, seg)
	assert.Equal(t, ids[1], seg.From)
	assert.Equal(t, PosX, seg.DirectionFrom(ids[1]))
	assert.Equal(t, NegX, seg.DirectionFrom(ids[2]))
	assert.Equal(t, ids[1], seg.Other(ids[2]))
}

func TestConnectErrors(t *testing.T) {
	g, ids := buildChain(t)

	_, err := g.Connect(ids[0], ids[0], PosX, 4)
	assert.ErrorIs(t, err, ErrSelfConnection)

	_, err = g.Connect(ids[0], 99, PosX, 4)
	assert.ErrorIs(t, err, ErrUnknownPoint)

	_, err = g.Connect(ids[1], ids[0], NegX, 16)
	assert.ErrorIs(t, err, ErrAlreadyLinked)
}

func TestIdsMonotonic(t *testing.T) {
	g := NewGraph()
	assert.Equal(t, 1, g.NextPointID())
	p1 := g.AddPoint(Vec3{})
	p2 := g.AddPoint(Vec3{})
	assert.Equal(t, 1, p1.ID)
	assert.Equal(t, 2, p2.ID)
	assert.Equal(t, 3, g.NextPointID())
}

func TestJunctionCandidates(t *testing.T) {
	g, ids := buildChain(t)
	// start has 1, a has 3, b and c have 1: nothing is a plain corridor point.
	assert.Empty(t, g.JunctionCandidates())

	d := g.AddPoint(V(48, 0, 0))
	_, err := g.Connect(ids[2], d.ID, PosX, 16)
	require.NoError(t, err)
	assert.Equal(t, []int{ids[2]}, g.JunctionCandidates())
}

func TestDownstream(t *testing.T) {
	g, ids := buildChain(t)
	start, a, b, c := ids[0], ids[1], ids[2], ids[3]

	assert.Equal(t, []int{a, b, c}, g.Downstream(a, start))
	assert.Equal(t, []int{b}, g.Downstream(b, a))
	assert.Equal(t, []int{a, start, b, c}, g.Downstream(a, 0))
	assert.Nil(t, g.Downstream(404, 0))
}

func TestTranslatePreservesOrthogonality(t *testing.T) {
	g, ids := buildChain(t)
	before := g.Positions()

	down := g.Downstream(ids[1], ids[0])
	delta := ShiftAlongHallway(PosX, 6, 4)
	g.Translate(down, delta)

	for _, id := range down {
		moved := g.Point(id).Pos.Sub(before[id])
		assert.Equal(t, delta, moved, "point %d moved non-uniformly", id)
	}
	assert.Equal(t, before[ids[0]], g.Point(ids[0]).Pos)

	for _, s := range g.Segments() {
		assert.True(t, g.Orthogonal(s, 1e-9), "segment %d lost orthogonality", s.ID)
		assert.Equal(t, g.Span(s), s.Length, "segment %d length out of sync", s.ID)
	}
	assert.Equal(t, 26, g.SegmentBetween(ids[0], ids[1]).Length, "stretched by the shift")
	assert.Equal(t, 16, g.SegmentBetween(ids[1], ids[2]).Length, "moved rigidly")
}

func TestSpan(t *testing.T) {
	assert.Equal(t, 12, Span(PosX, V(4, 0, 0), V(16, 0, 0)))
	assert.Equal(t, 12, Span(NegZ, V(0, 0, 4), V(0, 0, -8)))
	assert.Equal(t, -4, Span(PosY, V(0, 8, 0), V(0, 4, 0)))
	assert.Equal(t, 10, Span(PosX, V(0, 0, 0), V(9.6, 0, 0)))
}

func TestConnectedAndClone(t *testing.T) {
	g, ids := buildChain(t)
	assert.True(t, g.Connected())

	c := g.Clone()
	c.Translate([]int{ids[3]}, V(1, 0, 0))
	assert.NotEqual(t, c.Point(ids[3]).Pos, g.Point(ids[3]).Pos)
	assert.Equal(t, g.SegmentCount(), c.SegmentCount())

	g.AddPoint(V(100, 0, 100))
	assert.False(t, g.Connected())
	assert.True(t, c.Connected())
}

func TestBranches(t *testing.T) {
	g, ids := buildChain(t)
	main := g.NewBranch(BranchMain, ids[0])
	main.Segments = append(main.Segments, 1, 2)
	spur := g.NewBranch(BranchSpur, ids[1])

	require.Len(t, g.Branches(), 2)
	assert.Equal(t, 1, main.ID)
	assert.Equal(t, 2, spur.ID)
	assert.Equal(t, "spur", spur.Kind.String())
}
