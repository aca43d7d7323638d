package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/plankton/config"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeDistribution(t *testing.T) {
	mean, std, p10, p50, p90 := ComputeDistribution([]float64{100, 80, 60, 40, 20})

	if math.Abs(mean-60) > 1e-9 {
		t.Errorf("mean = %v, want 60", mean)
	}
	if math.Abs(std-math.Sqrt(800)) > 1e-9 {
		t.Errorf("std = %v, want %v", std, math.Sqrt(800))
	}
	if math.Abs(p10-28) > 1e-9 || math.Abs(p50-60) > 1e-9 || math.Abs(p90-92) > 1e-9 {
		t.Errorf("percentiles = (%v, %v, %v), want (28, 60, 92)", p10, p50, p90)
	}

	if m, s, a, b, c := ComputeDistribution(nil); m != 0 || s != 0 || a != 0 || b != 0 || c != 0 {
		t.Error("empty input should return all zeros")
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(10)
	if c.ShouldFlush(9.9) {
		t.Error("flush before window elapsed")
	}
	if !c.ShouldFlush(10) {
		t.Error("no flush at window end")
	}

	c.RecordFood(0.3)
	c.RecordFood(0.3)
	c.RecordObstacleHit()
	c.RecordAgentContact()

	agents := []AgentSample{
		{Health: 100, Pleasure: 0.5, Arousal: 0.2, Homeostasis: 0.5, Reward: 0.6, Collisions: 1},
		{Health: 50, Pleasure: -0.5, Arousal: 0.4, Homeostasis: 0.7, Reward: 0, Collisions: 1},
	}
	s := c.Flush(600, 10, 60, 13, agents)

	if s.FoodEaten != 2 || s.ObstacleHits != 1 || s.AgentContacts != 1 {
		t.Errorf("events = %d food, %d hits, %d contacts", s.FoodEaten, s.ObstacleHits, s.AgentContacts)
	}
	if math.Abs(s.RewardGained-0.6) > 1e-9 || math.Abs(s.TotalReward-0.6) > 1e-9 {
		t.Errorf("reward gained %v, total %v", s.RewardGained, s.TotalReward)
	}
	if s.Collisions != 2 || s.Agents != 2 || s.Food != 13 {
		t.Errorf("collisions %d, agents %d, food %d", s.Collisions, s.Agents, s.Food)
	}
	if s.PleasureMean != 0 || math.Abs(s.ArousalMean-0.3) > 1e-9 || s.HealthMean != 75 {
		t.Errorf("means = pleasure %v, arousal %v, health %v", s.PleasureMean, s.ArousalMean, s.HealthMean)
	}
	if math.Abs(s.HomeostasisMean-0.6) > 1e-9 {
		t.Errorf("homeostasis mean = %v, want 0.6", s.HomeostasisMean)
	}

	// Counters reset and the next window starts at the flush time
	if c.ShouldFlush(15) {
		t.Error("flush mid second window")
	}
	next := c.Flush(900, 20, 60, 15, nil)
	if next.FoodEaten != 0 || next.WindowStartTick != 600 {
		t.Errorf("second window = %+v", next)
	}
}

func TestOutputManager(t *testing.T) {
	if om, err := NewOutputManager(""); om != nil || err != nil {
		t.Fatalf("empty dir = (%v, %v), want (nil, nil)", om, err)
	}
	var disabled *OutputManager
	if err := disabled.WriteStats(WindowStats{}); err != nil {
		t.Errorf("nil manager WriteStats: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatal(err)
	}
	for i := int32(1); i <= 3; i++ {
		if err := om.WriteStats(WindowStats{WindowEndTick: i * 100, Agents: 5}); err != nil {
			t.Fatal(err)
		}
		if err := om.WritePerf(PerfStats{}, i*100); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("stats.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,sim_time,fps,agents") {
		t.Errorf("header = %q", lines[0])
	}
	if strings.Count(string(data), "window_end") != 1 {
		t.Error("header written more than once")
	}

	for _, name := range []string{"perf.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
