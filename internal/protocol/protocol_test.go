package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawnchairsociety/delve/internal/layout"
)

func TestEncodeWrapsPayload(t *testing.T) {
	data, err := Encode(3, PointsShifted{
		Updates:    map[int]layout.Vec3{4: layout.V(8, 0, 0)},
		ShiftCount: 2,
	})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, uint64(3), env.Sequence)
	assert.Equal(t, EventPointsShifted, env.Type)
	assert.JSONEq(t, `{"updates":{"4":{"x":8,"y":0,"z":0}},"shiftCount":2}`, string(env.Payload))
}

func TestProposalHidesInternalFields(t *testing.T) {
	data, err := json.Marshal(SegmentProposal{
		SegmentID: 1,
		Dir:       layout.PosZ,
		Direction: layout.PosZ.String(),
		FromRole:  layout.RoleStart,
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "+z", fields["direction"])
	assert.NotContains(t, fields, "Dir")
	assert.NotContains(t, fields, "FromRole")
}

func TestSegmentResultOmitsZeroOverlap(t *testing.T) {
	data, err := json.Marshal(SegmentResult{OK: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var l Listener = &r

	l.OnEvent(Warning{Message: "first"})
	l.OnEvent(Geometry{BaseUnit: 4})
	l.OnEvent(Warning{Message: "second"})

	assert.Len(t, r.Events, 3)
	assert.Equal(t, 2, r.Count(EventWarning))
	assert.Equal(t, 0, r.Count(EventCompleted))
	assert.Equal(t, Warning{Message: "second"}, r.Last(EventWarning))
	assert.Nil(t, r.Last(EventCompleted))
}

func TestListenerFunc(t *testing.T) {
	var got []EventType
	l := ListenerFunc(func(e Event) { got = append(got, e.Type()) })
	l.OnEvent(Completed{Seed: "x"})
	l.OnEvent(Failure{Message: "boom"})
	assert.Equal(t, []EventType{EventCompleted, EventError}, got)
}
