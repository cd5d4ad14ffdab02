package simulation

import "github.com/kromedia/neo/internal/domain"

// PrependEvent returns a new ring with event first, truncated to MaxOscillatorEvents.
func PrependEvent(ring []domain.OscillatorEvent, event domain.OscillatorEvent) []domain.OscillatorEvent {
	return prepend(ring, event, MaxOscillatorEvents)
}

func prepend[T any](list []T, item T, limit int) []T {
	n := min(len(list)+1, limit)
	out := make([]T, 0, n)
	out = append(out, item)
	out = append(out, list[:n-1]...)
	return out
}
