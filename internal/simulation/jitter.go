package simulation

import (
	"math"

	"github.com/kromedia/neo/internal/domain"
)

const (
	minLatencyMs  = 20
	maxPacketLoss = 5.0
)

// StepTelemetry random-walks the key stats of r in place.
func StepTelemetry(r *domain.Report, env Env) {
	ks := &r.KeyStats
	ks.LatencyMs = max(minLatencyMs, ks.LatencyMs+intn(env.Rand, 10)-5)

	loss := ks.PacketLossPercent + env.Rand.Float64()*0.2 - 0.1
	loss = math.Min(maxPacketLoss, math.Max(0, loss))
	ks.PacketLossPercent = math.Round(loss*100) / 100

	if env.Rand.Float64() > 0.95 {
		ks.ThreatsDetected++
	}
}
