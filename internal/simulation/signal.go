package simulation

import "github.com/kromedia/neo/internal/domain"

const (
	attackOnsetChance = 0.15
	minAttackPower    = 70
	maxIntensity      = 100
)

// StepSignal advances the oscillator signal of r in place. On attack onset it
// returns the synthesized event, otherwise nil. Nothing changes when not live.
func StepSignal(r *domain.Report, env Env) *domain.OscillatorEvent {
	if !env.Live {
		return nil
	}
	sig := &r.OscillatorSignal

	if p := env.Rand.Float64(); !sig.IsAttackSignal && p < attackOnsetChance {
		sig.SourceSpace = attackSpaces[intn(env.Rand, len(attackSpaces))]
		sig.Intensity = minAttackPower + intn(env.Rand, maxIntensity-minAttackPower+1)
		sig.FibonacciSequenceStep++
		sig.IsAttackSignal = true

		actor := fallbackActor
		if actors := hostileActors(r); len(actors) > 0 {
			actor = actors[intn(env.Rand, len(actors))]
		}
		return &domain.OscillatorEvent{
			ID:                    env.newID(),
			Timestamp:             env.now().Format(eventTimestampForm),
			SourceSpace:           sig.SourceSpace,
			Intensity:             sig.Intensity,
			FibonacciSequenceStep: sig.FibonacciSequenceStep,
			ThreatActor:           actor,
			TraceVector:           traceVectors[intn(env.Rand, len(traceVectors))],
		}
	}

	sig.SourceSpace = domain.SpaceBackgroundNoise
	sig.IsAttackSignal = false
	sig.Intensity = min(maxIntensity, max(1, sig.Intensity+intn(env.Rand, 7)-3))
	return nil
}
