package inspection

import (
	"encoding/json"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/session"
	"github.com/kromedia/neo/internal/simulation"
)

// Stream payload types.
const (
	PayloadSnapshot        = "snapshot"
	PayloadOscillatorEvent = "oscillator_event"
)

// Envelope is the frame sent to SSE and WebSocket subscribers. Clients keep
// the highest seq they have seen and discard older frames.
type Envelope struct {
	Type         string `json:"type"`
	InspectionID string `json:"inspection_id"`
	Seq          uint64 `json:"seq"`
	Data         any    `json:"data"`
}

// EventPayload decorates an oscillator event with the alert tone for its streak.
type EventPayload struct {
	domain.OscillatorEvent
	AlertFrequencyHz float64 `json:"alertFrequencyHz"`
}

// NewEventPayload builds the payload for one event.
func NewEventPayload(e domain.OscillatorEvent) EventPayload {
	return EventPayload{OscillatorEvent: e, AlertFrequencyHz: simulation.AlertFrequency(e.FibonacciSequenceStep)}
}

// MarshalUpdate encodes a session update for streaming.
func MarshalUpdate(u session.Update) ([]byte, error) {
	env := Envelope{InspectionID: u.InspectionID, Seq: u.Seq}
	if u.Event != nil {
		env.Type = PayloadOscillatorEvent
		env.Data = NewEventPayload(*u.Event)
	} else {
		env.Type = PayloadSnapshot
		env.Data = u.Report
	}
	return json.Marshal(env)
}
