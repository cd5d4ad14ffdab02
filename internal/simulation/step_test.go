package simulation

import (
	"testing"

	"github.com/kromedia/neo/internal/domain"
)

func TestStepScriptedAttackOnset(t *testing.T) {
	prev := &domain.Report{
		KeyStats:          domain.KeyStats{LatencyMs: 50},
		OscillatorSignal:  domain.OscillatorSignal{SourceSpace: domain.SpaceBackgroundNoise, Intensity: 4, FibonacciSequenceStep: 2},
		MemoryIntegrity:   domain.MemoryIntegrity{Status: domain.IntegrityStable},
		PatchworkProtocol: domain.Patchwork{Status: domain.PatchworkStable},
	}
	src := script(t,
		0.5, 0.5, 0.5, // telemetry: latency, packet loss, threat
		0.5,           // dossier gate fails
		0.1, 0.0, 0.5, // signal: onset, source, intensity
		0.0,           // trace vector (no actors to draw from)
		0.5,           // integrity: no degradation
		0.9,           // patchwork: no patch
	)

	res := Step(prev, testEnv(src, true))
	if !src.drained() {
		t.Fatalf("expected every scripted draw consumed, used %d", src.next)
	}

	next := res.Report
	if !next.OscillatorSignal.IsAttackSignal {
		t.Fatal("expected attack signal")
	}
	if next.OscillatorSignal.FibonacciSequenceStep != 3 {
		t.Fatalf("expected step 3, got %d", next.OscillatorSignal.FibonacciSequenceStep)
	}
	if next.OscillatorSignal.SourceSpace != domain.SpaceOuter || next.OscillatorSignal.Intensity != 85 {
		t.Fatalf("unexpected signal %+v", next.OscillatorSignal)
	}
	if lat := next.KeyStats.LatencyMs; lat < 45 || lat > 54 {
		t.Fatalf("latency %d outside [45,54]", lat)
	}
	if res.Event == nil {
		t.Fatal("expected oscillator event")
	}
	if res.Event.ThreatActor != fallbackActor || res.Event.TraceVector != "Tor Network" {
		t.Fatalf("unexpected event %+v", res.Event)
	}
	if res.Event.Timestamp != "09:30:00" || res.Event.ID != "id-1" {
		t.Fatalf("unexpected event identity %+v", res.Event)
	}
	if next.PatchworkProtocol.Status != domain.PatchworkAutonomous {
		t.Fatalf("expected autonomous patchwork, got %s", next.PatchworkProtocol.Status)
	}

	ring := PrependEvent(nil, *res.Event)
	if len(ring) != 1 || ring[0].ID != res.Event.ID {
		t.Fatalf("unexpected ring %+v", ring)
	}
}

func TestStepDoesNotMutatePrevious(t *testing.T) {
	prev := sampleReport()
	before := prev.Clone()
	src := NewSource(7)
	for i := 0; i < 50; i++ {
		_ = Step(prev, testEnv(src, true))
	}
	if prev.KeyStats != before.KeyStats || prev.OscillatorSignal != before.OscillatorSignal {
		t.Fatalf("previous snapshot mutated")
	}
	if prev.HumanDossier[0].Status != before.HumanDossier[0].Status || len(prev.PatchworkProtocol.PatchLog) != 0 {
		t.Fatalf("previous snapshot slices mutated")
	}
}

func TestStepInvariantsOverManyTicks(t *testing.T) {
	src := NewSource(42)
	env := testEnv(src, true)
	report := sampleReport()
	var ring []domain.OscillatorEvent
	lastThreats := report.KeyStats.ThreatsDetected
	onsets := 0

	for i := 0; i < 5000; i++ {
		res := Step(report, env)
		report = res.Report

		ks := report.KeyStats
		if ks.ThreatsDetected < lastThreats {
			t.Fatalf("tick %d: threats decreased %d -> %d", i, lastThreats, ks.ThreatsDetected)
		}
		lastThreats = ks.ThreatsDetected
		if ks.LatencyMs < 20 {
			t.Fatalf("tick %d: latency %d below floor", i, ks.LatencyMs)
		}
		if ks.PacketLossPercent < 0 || ks.PacketLossPercent > 5 {
			t.Fatalf("tick %d: packet loss %v out of range", i, ks.PacketLossPercent)
		}
		sig := report.OscillatorSignal
		if sig.Intensity < 1 || sig.Intensity > 100 {
			t.Fatalf("tick %d: intensity %d out of range", i, sig.Intensity)
		}
		if res.Event != nil {
			onsets++
			ring = PrependEvent(ring, *res.Event)
			if ring[0].ID != res.Event.ID {
				t.Fatalf("tick %d: newest event not first", i)
			}
		}
		if len(ring) > MaxOscillatorEvents {
			t.Fatalf("tick %d: ring length %d", i, len(ring))
		}
		log := report.PatchworkProtocol.PatchLog
		if len(log) > MaxPatchLog {
			t.Fatalf("tick %d: patch log length %d", i, len(log))
		}
		if res.Patch != nil && log[0].ID != res.Patch.ID {
			t.Fatalf("tick %d: newest patch not first", i)
		}
	}
	if onsets == 0 {
		t.Fatal("expected at least one attack onset")
	}
	if report.OscillatorSignal.FibonacciSequenceStep != onsets {
		t.Fatalf("fibonacci step %d, onsets %d", report.OscillatorSignal.FibonacciSequenceStep, onsets)
	}
	if report.PatchworkProtocol.ActivePatches == 0 {
		t.Fatal("expected patches to be applied")
	}
}

func TestStepNotLiveRevertsPatchwork(t *testing.T) {
	src := NewSource(1)
	report := sampleReport()
	for i := 0; i < 20; i++ {
		report = Step(report, testEnv(src, true)).Report
		if report.PatchworkProtocol.Status != domain.PatchworkAutonomous {
			t.Fatalf("tick %d: expected autonomous while live", i)
		}
	}
	patches := report.PatchworkProtocol.ActivePatches
	logLen := len(report.PatchworkProtocol.PatchLog)
	signal := report.OscillatorSignal

	report = Step(report, testEnv(src, false)).Report
	pw := report.PatchworkProtocol
	if pw.Status != domain.PatchworkStable {
		t.Fatalf("expected stable after non-live tick, got %s", pw.Status)
	}
	if pw.ActivePatches != patches || len(pw.PatchLog) != logLen {
		t.Fatalf("non-live tick touched patch log or counter")
	}
	if report.OscillatorSignal != signal {
		t.Fatalf("non-live tick touched the signal")
	}
}

func TestSettle(t *testing.T) {
	r := sampleReport()
	r.PatchworkProtocol.Status = domain.PatchworkAutonomous
	r.PatchworkProtocol.ActivePatches = 3

	out := Settle(r)
	if out.PatchworkProtocol.Status != domain.PatchworkStable || out.PatchworkProtocol.ActivePatches != 3 {
		t.Fatalf("unexpected settled patchwork %+v", out.PatchworkProtocol)
	}
	if r.PatchworkProtocol.Status != domain.PatchworkAutonomous {
		t.Fatal("settle mutated its input")
	}
	if Settle(out) != out {
		t.Fatal("settle should return stable snapshots unchanged")
	}
}
