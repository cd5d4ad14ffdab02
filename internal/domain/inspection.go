package domain

import "time"

// Inspection lifecycle states.
const (
	InspectionPending = "pending"
	InspectionReady   = "ready"
	InspectionFailed  = "failed"
	InspectionClosed  = "closed"
)

// Inspection is one NEO trace against a target and the persisted checkpoint of its session.
type Inspection struct {
	ID           string
	Target       string
	OperatorID   string
	Status       string
	Error        string
	Report       *Report
	Live         bool
	TickInterval time.Duration
	TickCount    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InspectionCheckpoint carries the mutable session fields persisted periodically.
type InspectionCheckpoint struct {
	InspectionID string
	Report       *Report
	Live         bool
	TickInterval time.Duration
	TickCount    int64
	UpdatedAt    time.Time
}

// StoredOscillatorEvent is an oscillator event persisted beyond the in-memory ring.
type StoredOscillatorEvent struct {
	InspectionID string
	Event        OscillatorEvent
	RecordedAt   time.Time
}
