package game

import (
	"log/slog"

	"github.com/pthm-cable/plankton/telemetry"
)

// flushTelemetry closes the stats window once it has covered its duration
// and hands the result to the callback, the log and the CSV output.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.simTime) {
		return
	}

	stats := g.collector.Flush(g.tick, g.simTime, g.fps, g.foodCount, g.agentSamples())
	perfStats := g.perf.Stats()

	if g.opts.StatsCallback != nil {
		g.opts.StatsCallback(stats)
	}

	if g.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.opts.Output != nil {
		if err := g.opts.Output.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := g.opts.Output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// Perf returns the tick timing collector.
func (g *Game) Perf() *telemetry.PerfCollector {
	return g.perf
}
