package simulation

import (
	"fmt"
	"testing"
	"time"

	"github.com/kromedia/neo/internal/domain"
)

type scriptedSource struct {
	t      *testing.T
	values []float64
	next   int
}

func script(t *testing.T, values ...float64) *scriptedSource {
	t.Helper()
	return &scriptedSource{t: t, values: values}
}

func (s *scriptedSource) Float64() float64 {
	if s.next >= len(s.values) {
		s.t.Fatalf("scripted source exhausted after %d draws", s.next)
	}
	v := s.values[s.next]
	s.next++
	return v
}

func (s *scriptedSource) drained() bool { return s.next == len(s.values) }

func testEnv(src Source, live bool) Env {
	var seq int
	return Env{
		Rand: src,
		Now:  func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
		Live: live,
	}
}

func sampleReport() *domain.Report {
	bounty := 250000
	return &domain.Report{
		KeyStats: domain.KeyStats{LatencyMs: 50},
		HumanDossier: []domain.HumanProfile{
			{Callsign: "Wraith", Status: domain.HumanWanted, Bounty: &bounty},
			{Callsign: "Handler", Status: domain.HumanAsset},
		},
		AIDossier:            []domain.AIProfile{{Callsign: "Chimera", Status: domain.AIActive}},
		UnknownEntityDossier: []domain.UnknownEntity{{Designation: "Entity-7", ContainmentStatus: domain.EntityUncontained}},
		VulnerabilityPoints: []domain.VulnerabilityPoint{
			{ID: "vp-1", Component: "Auth Gateway"},
			{ID: "vp-2", Component: "Memory Bus"},
		},
		OscillatorSignal:  domain.OscillatorSignal{SourceSpace: domain.SpaceBackgroundNoise, Intensity: 5},
		MemoryIntegrity:   domain.MemoryIntegrity{Status: domain.IntegrityStable, LastRefresh: "1 hour ago"},
		PatchworkProtocol: domain.Patchwork{Status: domain.PatchworkStable},
	}
}
