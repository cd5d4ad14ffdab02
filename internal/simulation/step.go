// Package simulation evolves a report snapshot one tick at a time.
//
// Every function is pure with respect to its inputs except the StepX helpers,
// which mutate the working copy Step hands them. Draws happen in a fixed order:
// telemetry, dossiers, signal, integrity, patchwork.
package simulation

import (
	"time"

	"github.com/google/uuid"

	"github.com/kromedia/neo/internal/domain"
)

// Env carries the collaborators of one tick.
type Env struct {
	Rand  Source
	Now   func() time.Time
	NewID func() string
	Live  bool
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Env) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}

// Result is the committed outcome of one tick.
type Result struct {
	Report         *domain.Report
	Event          *domain.OscillatorEvent
	Patch          *domain.PatchLogEntry
	IntegrityTo    string
	DossierChanged bool
}

// Step produces the next snapshot from prev. prev is never modified.
func Step(prev *domain.Report, env Env) Result {
	next := prev.Clone()

	StepTelemetry(next, env)
	changed := StepDossiers(next, env)
	event := StepSignal(next, env)
	integrity := StepIntegrity(next, env)
	patch := StepPatchwork(next, env)

	return Result{
		Report:         next,
		Event:          event,
		Patch:          patch,
		IntegrityTo:    integrity,
		DossierChanged: changed,
	}
}
