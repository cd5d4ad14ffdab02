package simulation

import "github.com/kromedia/neo/internal/domain"

// StepIntegrity runs the tick path of the memory integrity machine against the
// already updated signal. It returns the new status, or "" when unchanged.
// REFRESHING belongs to the refresh path and is left alone.
func StepIntegrity(r *domain.Report, env Env) string {
	mi := &r.MemoryIntegrity
	attacking := r.OscillatorSignal.IsAttackSignal

	switch {
	case attacking && mi.Status == domain.IntegrityStable:
		if r.OscillatorSignal.Intensity > 85 && env.Rand.Float64() < 0.2 {
			mi.Status = domain.IntegrityUnderAssault
			return mi.Status
		}
		if env.Rand.Float64() < 0.1 {
			mi.Status = domain.IntegrityDegrading
			return mi.Status
		}
	case !attacking && (mi.Status == domain.IntegrityDegrading || mi.Status == domain.IntegrityUnderAssault):
		if env.Rand.Float64() < 0.2 {
			mi.Status = domain.IntegrityStable
			return mi.Status
		}
	}
	return ""
}

// CanRefresh reports whether a refresh request is accepted from status.
func CanRefresh(status string) bool {
	return status == domain.IntegrityStable || status == domain.IntegrityDegrading
}

// BeginRefresh returns a copy of r with the integrity status set to REFRESHING.
func BeginRefresh(r *domain.Report) *domain.Report {
	next := r.Clone()
	next.MemoryIntegrity.Status = domain.IntegrityRefreshing
	return next
}

// CompleteRefresh merges the refresh outcome onto whatever snapshot is current.
// Only status and lastRefresh are written.
func CompleteRefresh(r *domain.Report) *domain.Report {
	next := r.Clone()
	next.MemoryIntegrity.Status = domain.IntegrityStable
	next.MemoryIntegrity.LastRefresh = domain.JustNow
	return next
}
