package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/lawnchairsociety/delve/internal/layout"
)

// EventType names an event on the wire.
type EventType string

const (
	EventSegmentProposed EventType = "segment"
	EventSegmentResolved EventType = "segmentResult"
	EventBranchCompleted EventType = "branchComplete"
	EventBranchAborted   EventType = "branchAborted"
	EventPointsShifted   EventType = "pointsShifted"
	EventGeometry        EventType = "geometry"
	EventDoorwayCreated  EventType = "doorwayCreated"
	EventCompleted       EventType = "complete"
	EventWarning         EventType = "warning"
	EventError           EventType = "error"
)

// Event is anything a generation session reports.
type Event interface {
	Type() EventType
}

// SegmentProposed carries a proposal to observers.
type SegmentProposed struct {
	Proposal SegmentProposal `json:"proposal"`
}

// SegmentResolved reports the resolver's answer to a proposal.
type SegmentResolved struct {
	SegmentID int           `json:"segmentId"`
	Result    SegmentResult `json:"result"`
}

// BranchCompleted is emitted when a branch has no more segments.
type BranchCompleted struct {
	BranchID int    `json:"branchId"`
	Kind     string `json:"kind"`
	Segments int    `json:"segments"`
}

// BranchAborted is emitted when a segment exhausted its retries and the
// rest of its branch was dropped.
type BranchAborted struct {
	BranchID  int `json:"branchId"`
	SegmentID int `json:"segmentId"`
	Attempts  int `json:"attempts"`
	Dropped   int `json:"dropped"`
}

// PointsShifted is the authoritative correction of previously reported
// positions after conflict resolution.
type PointsShifted struct {
	Updates    map[int]layout.Vec3 `json:"updates"`
	ShiftCount int                 `json:"shiftCount"`
}

// Geometry is the resolved, materialization-ready output.
type Geometry struct {
	Rooms    []RoomGeometry    `json:"rooms"`
	Hallways []HallwayGeometry `json:"hallways"`
	BaseUnit int               `json:"baseUnit"`
}

// DoorwayCreated reports one door.
type DoorwayCreated struct {
	Doorway DoorwayGeometry `json:"doorway"`
}

// Completed closes a session with replay information.
type Completed struct {
	Seed          string `json:"seed"`
	SeedValue     uint32 `json:"seedValue"`
	TotalPoints   int    `json:"totalPoints"`
	TotalSegments int    `json:"totalSegments"`
	Fingerprint   string `json:"fingerprint,omitempty"`
}

// Warning reports a non-fatal condition.
type Warning struct {
	Message string `json:"message"`
}

// Failure ends a stream that could not complete.
type Failure struct {
	Message string `json:"message"`
}

func (SegmentProposed) Type() EventType { return EventSegmentProposed }
func (SegmentResolved) Type() EventType { return EventSegmentResolved }
func (BranchCompleted) Type() EventType { return EventBranchCompleted }
func (BranchAborted) Type() EventType   { return EventBranchAborted }
func (PointsShifted) Type() EventType   { return EventPointsShifted }
func (Geometry) Type() EventType        { return EventGeometry }
func (DoorwayCreated) Type() EventType  { return EventDoorwayCreated }
func (Completed) Type() EventType       { return EventCompleted }
func (Warning) Type() EventType         { return EventWarning }
func (Failure) Type() EventType         { return EventError }

// Listener receives events in emission order.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Recorder is a Listener that keeps every event.
type Recorder struct {
	Events []Event
}

func (r *Recorder) OnEvent(e Event) {
	r.Events = append(r.Events, e)
}

// Count returns how many recorded events have the given type.
func (r *Recorder) Count(t EventType) int {
	n := 0
	for _, e := range r.Events {
		if e.Type() == t {
			n++
		}
	}
	return n
}

// Last returns the most recent event of the given type, or nil.
func (r *Recorder) Last(t EventType) Event {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Type() == t {
			return r.Events[i]
		}
	}
	return nil
}

// Envelope frames an event for transport.
type Envelope struct {
	Sequence uint64          `json:"seq"`
	Type     EventType       `json:"type"`
	Payload  json.RawMessage `json:"payload"`
}

// Encode wraps an event in an envelope and marshals it.
func Encode(seq uint64, e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", e.Type(), err)
	}
	return json.Marshal(Envelope{Sequence: seq, Type: e.Type(), Payload: payload})
}
