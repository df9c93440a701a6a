// Package protocol defines the messages exchanged between the growth engine,
// the conflict resolver and whoever observes a generation session.
package protocol

import (
	"github.com/lawnchairsociety/delve/internal/layout"
)

// SegmentProposal is one tentative segment offered for validation. Both
// endpoint positions are absolute and current as of the proposal.
type SegmentProposal struct {
	SegmentID       int              `json:"segmentId"`
	BranchID        int              `json:"branchId"`
	FromID          int              `json:"fromId"`
	ToID            int              `json:"toId"`
	From            layout.Vec3      `json:"from"`
	To              layout.Vec3      `json:"to"`
	Dir             layout.Direction `json:"-"`
	Direction       string           `json:"direction"`
	Length          int              `json:"length"`
	FromRole        layout.Role      `json:"-"`
	ToRole          layout.Role      `json:"-"`
	FromConnections int              `json:"fromConnections"`
	ToConnections   int              `json:"toConnections"`
	Attempt         int              `json:"attempt"`
}

// SegmentResult is the resolver's reply to a proposal.
type SegmentResult struct {
	OK            bool    `json:"ok"`
	OverlapAmount float64 `json:"overlapAmount,omitempty"`
}

// RoomGeometry is one resolved room.
type RoomGeometry struct {
	PointID         int         `yaml:"point_id" json:"pointId"`
	Pos             layout.Vec3 `yaml:"pos" json:"pos"`
	Size            layout.Vec3 `yaml:"size" json:"size"`
	Type            string      `yaml:"type" json:"type"`
	ConnectionCount int         `yaml:"connection_count" json:"connectionCount"`
}

// HallwayGeometry is one resolved hallway.
type HallwayGeometry struct {
	SegmentID int         `yaml:"segment_id" json:"segmentId"`
	From      int         `yaml:"from" json:"from"`
	To        int         `yaml:"to" json:"to"`
	Pos       layout.Vec3 `yaml:"pos" json:"pos"`
	Size      layout.Vec3 `yaml:"size" json:"size"`
	Axis      string      `yaml:"axis" json:"axis"`
	Length    float64     `yaml:"length" json:"length"`
}

// DoorwayGeometry is one door opening in a shared wall.
type DoorwayGeometry struct {
	FromRoomID int         `yaml:"from_room_id" json:"fromRoomId"`
	ToRoomID   int         `yaml:"to_room_id" json:"toRoomId"`
	SegmentID  int         `yaml:"segment_id" json:"segmentId"`
	Side       string      `yaml:"side" json:"side"`
	Position   layout.Vec3 `yaml:"position" json:"position"`
	Width      float64     `yaml:"width" json:"width"`
	Height     float64     `yaml:"height" json:"height"`
	WallAxis   string      `yaml:"wall_axis" json:"wallAxis"`
	Normal     int         `yaml:"normal" json:"normal"`
}

// GenerateRequest asks the stream server for one generation. Zero start and
// goal use the server defaults; Config is sparse-merged over the server's
// configuration; a non-empty Save name stores the finished layout.
type GenerateRequest struct {
	Mode   string         `json:"mode,omitempty"`
	Seed   string         `json:"seed"`
	Start  *layout.Vec3   `json:"start,omitempty"`
	Goal   *layout.Vec3   `json:"goal,omitempty"`
	Config map[string]any `json:"config,omitempty"`
	Save   string         `json:"save,omitempty"`
}
