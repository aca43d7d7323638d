// Package telemetry aggregates simulation statistics over sim-time windows
// and writes them, with tick timing, to structured output.
package telemetry

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// AgentSample is one agent's state at a window boundary.
type AgentSample struct {
	Health      float64
	Pleasure    float64
	Arousal     float64
	Homeostasis float64
	Reward      float64 // Cumulative
	Collisions  int     // Cumulative
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec float64

	// Current window tracking
	windowStartTick int32
	windowStartTime float64

	// Event counters for current window
	foodEaten     int
	obstacleHits  int
	agentContacts int
	rewardGained  float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds.
func NewCollector(windowDurationSec float64) *Collector {
	if windowDurationSec <= 0 {
		windowDurationSec = 10
	}
	return &Collector{windowDurationSec: windowDurationSec}
}

// RecordFood records a food item eaten and the reward it paid.
func (c *Collector) RecordFood(reward float64) {
	c.foodEaten++
	c.rewardGained += reward
}

// RecordObstacleHit records an agent-obstacle collision.
func (c *Collector) RecordObstacleHit() {
	c.obstacleHits++
}

// RecordAgentContact records an agent-agent collision.
func (c *Collector) RecordAgentContact() {
	c.agentContacts++
}

// ShouldFlush returns true once the window has covered its duration.
func (c *Collector) ShouldFlush(simTime float64) bool {
	return simTime-c.windowStartTime >= c.windowDurationSec
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, simTime, fps float64, foodCount int, agents []AgentSample) WindowStats {
	health := make([]float64, len(agents))
	pleasure := make([]float64, len(agents))
	arousal := make([]float64, len(agents))
	homeostasis := make([]float64, len(agents))
	var totalReward float64
	var collisions int
	for i, a := range agents {
		health[i] = a.Health
		pleasure[i] = a.Pleasure
		arousal[i] = a.Arousal
		homeostasis[i] = a.Homeostasis
		totalReward += a.Reward
		collisions += a.Collisions
	}

	healthMean, healthStd, healthP10, healthP50, healthP90 := ComputeDistribution(health)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      simTime,
		FPS:             fps,

		Agents: len(agents),
		Food:   foodCount,

		FoodEaten:     c.foodEaten,
		ObstacleHits:  c.obstacleHits,
		AgentContacts: c.agentContacts,
		RewardGained:  c.rewardGained,

		TotalReward: totalReward,
		Collisions:  collisions,

		PleasureMean: mean(pleasure),
		ArousalMean:  mean(arousal),

		HomeostasisMean: mean(homeostasis),

		HealthMean: healthMean,
		HealthStd:  healthStd,
		HealthP10:  healthP10,
		HealthP50:  healthP50,
		HealthP90:  healthP90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.windowStartTime = simTime
	c.foodEaten = 0
	c.obstacleHits = 0
	c.agentContacts = 0
	c.rewardGained = 0

	return stats
}

// Reset discards the current window and starts a new one at tick 0.
func (c *Collector) Reset() {
	*c = Collector{windowDurationSec: c.windowDurationSec}
}

// WindowDuration returns the window length in simulation seconds.
func (c *Collector) WindowDuration() float64 {
	return c.windowDurationSec
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// ComputeDistribution returns the mean, population standard deviation and
// percentiles of values.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return mean, std, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}
