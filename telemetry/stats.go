package telemetry

import "log/slog"

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	FPS             float64 `csv:"fps"`

	// Counts at window end
	Agents int `csv:"agents"`
	Food   int `csv:"food"`

	// Events during window
	FoodEaten     int     `csv:"food_eaten"`
	ObstacleHits  int     `csv:"obstacle_hits"`
	AgentContacts int     `csv:"agent_contacts"`
	RewardGained  float64 `csv:"reward_gained"`

	// Cumulative totals across all agents
	TotalReward float64 `csv:"total_reward"`
	Collisions  int     `csv:"collisions"`

	// Affect (sampled at window end)
	PleasureMean float64 `csv:"pleasure_mean"`
	ArousalMean  float64 `csv:"arousal_mean"`

	HomeostasisMean float64 `csv:"homeostasis_mean"`

	// Health distribution (sampled at window end)
	HealthMean float64 `csv:"health_mean"`
	HealthStd  float64 `csv:"health_std"`
	HealthP10  float64 `csv:"health_p10"`
	HealthP50  float64 `csv:"health_p50"`
	HealthP90  float64 `csv:"health_p90"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Float64("fps", s.FPS),
		slog.Int("agents", s.Agents),
		slog.Int("food", s.Food),
		slog.Int("food_eaten", s.FoodEaten),
		slog.Int("obstacle_hits", s.ObstacleHits),
		slog.Int("agent_contacts", s.AgentContacts),
		slog.Float64("reward_gained", s.RewardGained),
		slog.Float64("total_reward", s.TotalReward),
		slog.Int("collisions", s.Collisions),
		slog.Float64("pleasure_mean", s.PleasureMean),
		slog.Float64("arousal_mean", s.ArousalMean),
		slog.Float64("homeostasis_mean", s.HomeostasisMean),
		slog.Float64("health_mean", s.HealthMean),
		slog.Float64("health_std", s.HealthStd),
		slog.Float64("health_p10", s.HealthP10),
		slog.Float64("health_p50", s.HealthP50),
		slog.Float64("health_p90", s.HealthP90),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"fps", s.FPS,
		"agents", s.Agents,
		"food", s.Food,
		"food_eaten", s.FoodEaten,
		"obstacle_hits", s.ObstacleHits,
		"agent_contacts", s.AgentContacts,
		"reward_gained", s.RewardGained,
		"total_reward", s.TotalReward,
		"collisions", s.Collisions,
		"pleasure_mean", s.PleasureMean,
		"arousal_mean", s.ArousalMean,
		"homeostasis_mean", s.HomeostasisMean,
		"health_mean", s.HealthMean,
		"health_p10", s.HealthP10,
	)
}
