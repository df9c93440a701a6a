// Package layout holds the dungeon topology: points (future rooms) joined by
// axis-aligned segments (future hallways), grouped into growth branches.
package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/zyedidia/generic/mapset"
)

var (
	ErrUnknownPoint   = errors.New("layout: unknown point")
	ErrSelfConnection = errors.New("layout: point cannot connect to itself")
	ErrAlreadyLinked  = errors.New("layout: points are already connected")
)

// Role is the semantic role of a point in the dungeon.
type Role int

const (
	RolePlain Role = iota
	RoleStart
	RoleGoal
)

func (r Role) String() string {
	switch r {
	case RoleStart:
		return "start"
	case RoleGoal:
		return "goal"
	default:
		return "plain"
	}
}

// ParseRole converts a persisted role name to a Role. Unknown names are plain.
func ParseRole(s string) Role {
	switch s {
	case "start":
		return RoleStart
	case "goal":
		return RoleGoal
	default:
		return RolePlain
	}
}

// Point is a node of the graph; it becomes a room.
type Point struct {
	ID        int
	Pos       Vec3
	Role      Role
	neighbors []int // sorted, unique
}

// Connections returns the number of linked points.
func (p *Point) Connections() int {
	return len(p.neighbors)
}

// Neighbors returns a copy of the linked point ids in ascending order.
func (p *Point) Neighbors() []int {
	out := make([]int, len(p.neighbors))
	copy(out, p.neighbors)
	return out
}

// HasNeighbor reports whether id is linked to this point.
func (p *Point) HasNeighbor(id int) bool {
	i := sort.SearchInts(p.neighbors, id)
	return i < len(p.neighbors) && p.neighbors[i] == id
}

func (p *Point) link(id int) {
	i := sort.SearchInts(p.neighbors, id)
	if i < len(p.neighbors) && p.neighbors[i] == id {
		return
	}
	p.neighbors = append(p.neighbors, 0)
	copy(p.neighbors[i+1:], p.neighbors[i:])
	p.neighbors[i] = id
}

// Segment is an edge of the graph; it becomes a hallway.
type Segment struct {
	ID     int
	From   int
	To     int
	Dir    Direction
	Length int // world units, a multiple of the base unit
}

// Other returns the endpoint opposite id.
func (s *Segment) Other(id int) int {
	if s.From == id {
		return s.To
	}
	return s.From
}

// DirectionFrom returns the travel direction when walking the segment
// starting at id.
func (s *Segment) DirectionFrom(id int) Direction {
	if s.From == id {
		return s.Dir
	}
	return s.Dir.Opposite()
}

// BranchKind distinguishes the main path from spurs.
type BranchKind int

const (
	BranchMain BranchKind = iota
	BranchSpur
)

func (k BranchKind) String() string {
	if k == BranchSpur {
		return "spur"
	}
	return "main"
}

// Branch is one contiguous growth run.
type Branch struct {
	ID       int
	Kind     BranchKind
	Root     int
	Segments []int
}

// Graph owns points, segments and branches for a single generation session.
type Graph struct {
	points   map[int]*Point
	order    []int
	segments []*Segment
	branches []*Branch
	links    map[[2]int]int // ordered point pair -> segment id

	nextPointID   int
	nextSegmentID int
	nextBranchID  int

	StartID int
	GoalID  int
}

// NewGraph creates an empty graph. Ids start at 1 so 0 can mean "none".
func NewGraph() *Graph {
	return &Graph{
		points:        make(map[int]*Point),
		links:         make(map[[2]int]int),
		nextPointID:   1,
		nextSegmentID: 1,
		nextBranchID:  1,
	}
}

// NextPointID returns the id the next AddPoint call will assign.
func (g *Graph) NextPointID() int {
	return g.nextPointID
}

// AddPoint creates a point at pos.
func (g *Graph) AddPoint(pos Vec3) *Point {
	p := &Point{ID: g.nextPointID, Pos: pos}
	g.nextPointID++
	g.points[p.ID] = p
	g.order = append(g.order, p.ID)
	return p
}

// Connect links two points with a segment travelling from -> to along dir.
func (g *Graph) Connect(from, to int, dir Direction, length int) (*Segment, error) {
	if from == to {
		return nil, ErrSelfConnection
	}
	a, ok := g.points[from]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPoint, from)
	}
	b, ok := g.points[to]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPoint, to)
	}
	if _, exists := g.links[pairKey(from, to)]; exists {
		return nil, ErrAlreadyLinked
	}

	s := &Segment{ID: g.nextSegmentID, From: from, To: to, Dir: dir, Length: length}
	g.nextSegmentID++
	g.segments = append(g.segments, s)
	g.links[pairKey(from, to)] = s.ID
	a.link(to)
	b.link(from)
	return s, nil
}

// NewBranch registers a branch rooted at root.
func (g *Graph) NewBranch(kind BranchKind, root int) *Branch {
	b := &Branch{ID: g.nextBranchID, Kind: kind, Root: root}
	g.nextBranchID++
	g.branches = append(g.branches, b)
	return b
}

// Point returns a point by id, or nil.
func (g *Graph) Point(id int) *Point {
	return g.points[id]
}

// Segment returns a segment by id, or nil.
func (g *Graph) Segment(id int) *Segment {
	if id < 1 || id > len(g.segments) {
		return nil
	}
	return g.segments[id-1]
}

// SegmentBetween returns the segment joining a and b in either order.
func (g *Graph) SegmentBetween(a, b int) *Segment {
	id, ok := g.links[pairKey(a, b)]
	if !ok {
		return nil
	}
	return g.Segment(id)
}

// Points returns all points in creation order.
func (g *Graph) Points() []*Point {
	out := make([]*Point, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.points[id])
	}
	return out
}

// Segments returns all segments in creation order.
func (g *Graph) Segments() []*Segment {
	out := make([]*Segment, len(g.segments))
	copy(out, g.segments)
	return out
}

// Branches returns all branches in creation order.
func (g *Graph) Branches() []*Branch {
	out := make([]*Branch, len(g.branches))
	copy(out, g.branches)
	return out
}

// PointCount returns the number of points.
func (g *Graph) PointCount() int {
	return len(g.order)
}

// SegmentCount returns the number of segments.
func (g *Graph) SegmentCount() int {
	return len(g.segments)
}

// JunctionCandidates returns points with exactly two connections, excluding
// the start point, in id order.
func (g *Graph) JunctionCandidates() []int {
	var out []int
	for _, id := range g.order {
		if id == g.StartID {
			continue
		}
		if g.points[id].Connections() == 2 {
			out = append(out, id)
		}
	}
	return out
}

// Downstream returns root plus every point reachable from it without
// passing through cameFrom, in BFS order. cameFrom may be 0 for the root of
// the graph, in which case the whole component is returned.
func (g *Graph) Downstream(root, cameFrom int) []int {
	if _, ok := g.points[root]; !ok {
		return nil
	}

	visited := mapset.New[int]()
	visited.Put(root)
	if cameFrom != 0 {
		visited.Put(cameFrom)
	}

	out := []int{root}
	queue := []int{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, n := range g.points[current].neighbors {
			if visited.Has(n) {
				continue
			}
			visited.Put(n)
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out
}

// Translate moves every listed point by delta. Segments touching a moved
// point take the new span between their endpoints as their length.
func (g *Graph) Translate(ids []int, delta Vec3) {
	moved := make(map[int]bool, len(ids))
	for _, id := range ids {
		if p, ok := g.points[id]; ok {
			p.Pos = p.Pos.Add(delta)
			moved[id] = true
		}
	}
	for _, s := range g.segments {
		if moved[s.From] != moved[s.To] {
			s.Length = g.Span(s)
		}
	}
}

// Span returns the distance between the endpoints of s along its direction.
func (g *Graph) Span(s *Segment) int {
	a, b := g.points[s.From], g.points[s.To]
	if a == nil || b == nil {
		return 0
	}
	return Span(s.Dir, a.Pos, b.Pos)
}

// Positions snapshots every point position.
func (g *Graph) Positions() map[int]Vec3 {
	out := make(map[int]Vec3, len(g.points))
	for id, p := range g.points {
		out[id] = p.Pos
	}
	return out
}

// Orthogonal reports whether the segment endpoints differ only along the
// segment axis (within tol).
func (g *Graph) Orthogonal(s *Segment, tol float64) bool {
	a, b := g.points[s.From], g.points[s.To]
	if a == nil || b == nil {
		return false
	}
	u, v := s.Dir.Axis().Perpendicular()
	return math.Abs(a.Pos.Get(u)-b.Pos.Get(u)) <= tol && math.Abs(a.Pos.Get(v)-b.Pos.Get(v)) <= tol
}

// Connected reports whether every point is reachable from the start point.
func (g *Graph) Connected() bool {
	if len(g.order) == 0 {
		return true
	}
	root := g.StartID
	if root == 0 {
		root = g.order[0]
	}
	return len(g.Downstream(root, 0)) == len(g.order)
}

// Clone returns a deep copy that shares no mutable state with g.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	c.order = append([]int(nil), g.order...)
	for id, p := range g.points {
		cp := *p
		cp.neighbors = append([]int(nil), p.neighbors...)
		c.points[id] = &cp
	}
	for _, s := range g.segments {
		cs := *s
		c.segments = append(c.segments, &cs)
	}
	for _, b := range g.branches {
		cb := *b
		cb.Segments = append([]int(nil), b.Segments...)
		c.branches = append(c.branches, &cb)
	}
	for k, v := range g.links {
		c.links[k] = v
	}
	c.nextPointID = g.nextPointID
	c.nextSegmentID = g.nextSegmentID
	c.nextBranchID = g.nextBranchID
	c.StartID = g.StartID
	c.GoalID = g.GoalID
	return c
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
