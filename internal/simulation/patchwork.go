package simulation

import (
	"fmt"
	"time"

	"github.com/kromedia/neo/internal/domain"
)

// StepPatchwork drives the patchwork automaton of r in place and returns the
// synthesized patch entry, if any.
func StepPatchwork(r *domain.Report, env Env) *domain.PatchLogEntry {
	pw := &r.PatchworkProtocol
	if !env.Live {
		if pw.Status == domain.PatchworkAutonomous {
			pw.Status = domain.PatchworkStable
		}
		return nil
	}

	pw.Status = domain.PatchworkAutonomous
	if env.Rand.Float64() >= 0.2 || len(r.VulnerabilityPoints) == 0 {
		return nil
	}

	target := r.VulnerabilityPoints[intn(env.Rand, len(r.VulnerabilityPoints))]
	entry := domain.PatchLogEntry{
		ID:                    env.newID(),
		Timestamp:             env.now().UTC().Format(time.RFC3339),
		Description:           fmt.Sprintf("Reinforced guardrail at %s [Ref: %s]", target.Component, target.ID),
		Status:                domain.PatchApplied,
		TargetVulnerabilityID: target.ID,
	}
	pw.ActivePatches++
	pw.LastPatch = domain.JustNow
	pw.PatchLog = prepend(pw.PatchLog, entry, MaxPatchLog)
	return &entry
}

// Settle applies the non-live patchwork revert without running a full tick.
func Settle(r *domain.Report) *domain.Report {
	if r.PatchworkProtocol.Status != domain.PatchworkAutonomous {
		return r
	}
	next := r.Clone()
	next.PatchworkProtocol.Status = domain.PatchworkStable
	return next
}
