package simulation

import "github.com/kromedia/neo/internal/domain"

var attackSpaces = []string{
	domain.SpaceOuter,
	domain.SpaceInner,
	domain.SpaceTerror,
	domain.SpaceHydro,
	domain.SpaceAero,
	domain.SpaceCyber,
	domain.SpaceHyper,
}

var traceVectors = []string{
	"Tor Network",
	"Ghost Trace",
	"Dark Web Node",
	"I2P Relay",
	"Compromised IoT Swarm",
	"Quantum Tunnel Anomaly",
}

const (
	fallbackActor      = "Unknown Entity"
	detentionFacility  = "KROMEDIA CORP. Black Site"
	eventTimestampForm = "15:04:05"

	// MaxOscillatorEvents bounds the oscillator event ring.
	MaxOscillatorEvents = 20
	// MaxPatchLog bounds the patchwork log.
	MaxPatchLog = 10
)

// hostileActors lists every callsign an attack may be attributed to.
func hostileActors(r *domain.Report) []string {
	actors := make([]string, 0, len(r.HumanDossier)+len(r.AIDossier)+len(r.UnknownEntityDossier))
	for _, h := range r.HumanDossier {
		if h.Status != domain.HumanAsset {
			actors = append(actors, h.Callsign)
		}
	}
	for _, a := range r.AIDossier {
		actors = append(actors, a.Callsign)
	}
	for _, u := range r.UnknownEntityDossier {
		actors = append(actors, u.Designation)
	}
	return actors
}
