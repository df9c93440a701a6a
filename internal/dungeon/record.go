package dungeon

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/lawnchairsociety/delve/internal/geometry"
	"github.com/lawnchairsociety/delve/internal/layout"
	"github.com/lawnchairsociety/delve/internal/protocol"
)

var (
	ErrCorruptLayout  = errors.New("dungeon: layout records are inconsistent")
	ErrNotOrthogonal  = errors.New("dungeon: segment endpoints differ off its axis")
	ErrLengthMismatch = errors.New("dungeon: segment length disagrees with its endpoints")
	ErrOverlap        = errors.New("dungeon: placed volumes overlap")
)

// Layout is a finished generation as plain records.
type Layout struct {
	Name        string    `yaml:"name,omitempty" json:"name,omitempty"`
	Seed        string    `yaml:"seed" json:"seed"`
	SeedValue   uint32    `yaml:"seed_value" json:"seedValue"`
	Mode        Mode      `yaml:"mode" json:"mode"`
	BaseUnit    int       `yaml:"base_unit" json:"baseUnit"`
	GeneratedAt time.Time `yaml:"generated_at" json:"generatedAt"`

	StartID int `yaml:"start_id" json:"startId"`
	GoalID  int `yaml:"goal_id" json:"goalId"`

	Points   []PointRecord   `yaml:"points" json:"points"`
	Segments []SegmentRecord `yaml:"segments" json:"segments"`
	Branches []BranchRecord  `yaml:"branches" json:"branches"`

	Rooms    []protocol.RoomGeometry    `yaml:"rooms" json:"rooms"`
	Hallways []protocol.HallwayGeometry `yaml:"hallways" json:"hallways"`
	Doorways []protocol.DoorwayGeometry `yaml:"doorways" json:"doorways"`

	ShiftCount  int      `yaml:"shift_count" json:"shiftCount"`
	Warnings    []string `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Fingerprint string   `yaml:"fingerprint" json:"fingerprint"`
}

// PointRecord is a serialized point.
type PointRecord struct {
	ID        int         `yaml:"id" json:"id"`
	Pos       layout.Vec3 `yaml:"pos" json:"pos"`
	Role      string      `yaml:"role" json:"role"`
	Neighbors []int       `yaml:"neighbors" json:"neighbors"`
}

// SegmentRecord is a serialized segment.
type SegmentRecord struct {
	ID        int    `yaml:"id" json:"id"`
	From      int    `yaml:"from" json:"from"`
	To        int    `yaml:"to" json:"to"`
	Direction string `yaml:"direction" json:"direction"`
	Length    int    `yaml:"length" json:"length"`
}

// BranchRecord is a serialized branch.
type BranchRecord struct {
	ID       int    `yaml:"id" json:"id"`
	Kind     string `yaml:"kind" json:"kind"`
	Root     int    `yaml:"root" json:"root"`
	Segments []int  `yaml:"segments" json:"segments"`
}

// recordGraph copies the topology of g into records.
func recordGraph(l *Layout, g *layout.Graph) {
	l.StartID = g.StartID
	l.GoalID = g.GoalID

	l.Points = make([]PointRecord, 0, g.PointCount())
	for _, p := range g.Points() {
		l.Points = append(l.Points, PointRecord{
			ID:        p.ID,
			Pos:       p.Pos,
			Role:      p.Role.String(),
			Neighbors: p.Neighbors(),
		})
	}

	l.Segments = make([]SegmentRecord, 0, g.SegmentCount())
	for _, s := range g.Segments() {
		l.Segments = append(l.Segments, SegmentRecord{
			ID:        s.ID,
			From:      s.From,
			To:        s.To,
			Direction: s.Dir.String(),
			Length:    s.Length,
		})
	}

	l.Branches = nil
	for _, b := range g.Branches() {
		l.Branches = append(l.Branches, BranchRecord{
			ID:       b.ID,
			Kind:     b.Kind.String(),
			Root:     b.Root,
			Segments: append([]int{}, b.Segments...),
		})
	}
}

// Graph rebuilds the point graph from the records.
func (l *Layout) Graph() (*layout.Graph, error) {
	g := layout.NewGraph()
	for _, pr := range l.Points {
		if g.NextPointID() != pr.ID {
			return nil, fmt.Errorf("%w: point %d out of sequence", ErrCorruptLayout, pr.ID)
		}
		p := g.AddPoint(pr.Pos)
		p.Role = layout.ParseRole(pr.Role)
	}
	for _, sr := range l.Segments {
		dir, err := layout.ParseDirection(sr.Direction)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrCorruptLayout, sr.ID, err)
		}
		if _, err := g.Connect(sr.From, sr.To, dir, sr.Length); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrCorruptLayout, sr.ID, err)
		}
	}
	for _, br := range l.Branches {
		kind := layout.BranchMain
		if br.Kind == layout.BranchSpur.String() {
			kind = layout.BranchSpur
		}
		b := g.NewBranch(kind, br.Root)
		b.Segments = append(b.Segments, br.Segments...)
	}
	g.StartID = l.StartID
	g.GoalID = l.GoalID
	return g, nil
}

// canonical is the part of a layout that determines its fingerprint.
// Names, timestamps and warnings do not.
type canonical struct {
	SeedValue uint32                     `json:"seedValue"`
	Mode      Mode                       `json:"mode"`
	BaseUnit  int                        `json:"baseUnit"`
	Points    []PointRecord              `json:"points"`
	Segments  []SegmentRecord            `json:"segments"`
	Branches  []BranchRecord             `json:"branches"`
	Rooms     []protocol.RoomGeometry    `json:"rooms"`
	Hallways  []protocol.HallwayGeometry `json:"hallways"`
	Doorways  []protocol.DoorwayGeometry `json:"doorways"`
}

// ComputeFingerprint hashes the topology and geometry with BLAKE2b-256.
// Two layouts with equal fingerprints are the same dungeon.
func (l *Layout) ComputeFingerprint() (string, error) {
	data, err := json.Marshal(canonical{
		SeedValue: l.SeedValue,
		Mode:      l.Mode,
		BaseUnit:  l.BaseUnit,
		Points:    l.Points,
		Segments:  l.Segments,
		Branches:  l.Branches,
		Rooms:     l.Rooms,
		Hallways:  l.Hallways,
		Doorways:  l.Doorways,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode layout: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Validate checks that every segment is axis-aligned with a length matching
// its endpoints, and that no two room or hallway volumes interpenetrate
// beyond tol.
func (l *Layout) Validate(tol float64) error {
	g, err := l.Graph()
	if err != nil {
		return err
	}
	for _, s := range g.Segments() {
		if !g.Orthogonal(s, tol) {
			return fmt.Errorf("%w: segment %d", ErrNotOrthogonal, s.ID)
		}
		if span := g.Span(s); span != s.Length {
			return fmt.Errorf("%w: segment %d is %d long, endpoints are %d apart", ErrLengthMismatch, s.ID, s.Length, span)
		}
	}

	type volume struct {
		name string
		box  geometry.AABB
	}
	var volumes []volume
	for _, r := range l.Rooms {
		volumes = append(volumes, volume{fmt.Sprintf("room %d", r.PointID), boxOf(r.Pos, r.Size)})
	}
	for _, h := range l.Hallways {
		volumes = append(volumes, volume{fmt.Sprintf("hallway %d", h.SegmentID), boxOf(h.Pos, h.Size)})
	}
	for i := range volumes {
		for j := i + 1; j < len(volumes); j++ {
			if volumes[i].box.Intersects(volumes[j].box, tol) {
				return fmt.Errorf("%w: %s and %s", ErrOverlap, volumes[i].name, volumes[j].name)
			}
		}
	}
	return nil
}

// Levels returns the distinct room floor heights in ascending order.
func (l *Layout) Levels() []float64 {
	var levels []float64
	seen := make(map[float64]bool)
	for _, r := range l.Rooms {
		floor := r.Pos.Y - r.Size.Y/2
		if !seen[floor] {
			seen[floor] = true
			levels = append(levels, floor)
		}
	}
	sort.Float64s(levels)
	return levels
}

func boxOf(center, size layout.Vec3) geometry.AABB {
	return geometry.FromCenter(center, size.Scale(0.5))
}
