package simulation

import "github.com/kromedia/neo/internal/domain"

// StepDossiers applies at most one profile status transition to r in place.
// It reports whether a profile changed.
func StepDossiers(r *domain.Report, env Env) bool {
	if !env.Live || env.Rand.Float64() >= 0.3 {
		return false
	}

	d := env.Rand.Float64()
	switch {
	case d < 0.5:
		if len(r.HumanDossier) == 0 {
			return false
		}
		h := &r.HumanDossier[intn(env.Rand, len(r.HumanDossier))]
		if (h.Status == domain.HumanActiveThreat || h.Status == domain.HumanWanted) && env.Rand.Float64() < 0.1 {
			h.Status = domain.HumanApprehended
			h.LastKnownLocation = detentionFacility
			return true
		}
	case d < 0.8:
		if len(r.AIDossier) == 0 {
			return false
		}
		a := &r.AIDossier[intn(env.Rand, len(r.AIDossier))]
		if a.Status == domain.AIActive && env.Rand.Float64() < 0.15 {
			a.Status = domain.AIQuarantined
			return true
		}
	default:
		if len(r.UnknownEntityDossier) == 0 {
			return false
		}
		u := &r.UnknownEntityDossier[intn(env.Rand, len(r.UnknownEntityDossier))]
		if u.ContainmentStatus == domain.EntityUncontained && env.Rand.Float64() < 0.05 {
			u.ContainmentStatus = domain.EntityContained
			return true
		}
	}
	return false
}
