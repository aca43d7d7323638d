package telemetry

import (
	"math"
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCollector(window int) (*PerfCollector, *fakeClock) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	pc := NewPerfCollector(window)
	pc.now = clk.Now
	return pc, clk
}

// recordTick runs one tick that spends d in each listed phase.
func recordTick(pc *PerfCollector, clk *fakeClock, phases map[Phase]time.Duration) {
	pc.StartTick()
	for _, ph := range Phases {
		d, ok := phases[ph]
		if !ok {
			continue
		}
		pc.StartPhase(ph)
		clk.Advance(d)
	}
	pc.EndTick()
}

func TestPerfCollectorTracksPhases(t *testing.T) {
	pc, clk := newTestCollector(10)
	for i := 0; i < 5; i++ {
		recordTick(pc, clk, map[Phase]time.Duration{
			PhaseSpatialGrid: 100 * time.Microsecond,
			PhasePerception:  time.Duration(200+100*i) * time.Microsecond,
		})
	}

	stats := pc.Stats()
	if stats.Ticks != 5 {
		t.Errorf("ticks = %d, want 5", stats.Ticks)
	}
	if stats.PhaseAvg[PhaseSpatialGrid] != 100*time.Microsecond {
		t.Errorf("spatial grid avg = %v, want 100us", stats.PhaseAvg[PhaseSpatialGrid])
	}
	if stats.PhaseAvg[PhasePerception] != 400*time.Microsecond {
		t.Errorf("perception avg = %v, want 400us", stats.PhaseAvg[PhasePerception])
	}
	if stats.PhaseAvg[PhaseGraph] != 0 {
		t.Errorf("untouched phase has time %v", stats.PhaseAvg[PhaseGraph])
	}
	if stats.MinTickDuration != 300*time.Microsecond || stats.MaxTickDuration != 700*time.Microsecond {
		t.Errorf("min/max = %v/%v, want 300us/700us", stats.MinTickDuration, stats.MaxTickDuration)
	}
	if stats.AvgTickDuration != 500*time.Microsecond {
		t.Errorf("avg = %v, want 500us", stats.AvgTickDuration)
	}
	if math.Abs(stats.TicksPerSecond-2000) > 1e-6 {
		t.Errorf("ticks/s = %f, want 2000", stats.TicksPerSecond)
	}
}

func TestPerfCollectorRingWraps(t *testing.T) {
	pc, clk := newTestCollector(5)
	for i := 0; i < 12; i++ {
		recordTick(pc, clk, map[Phase]time.Duration{PhaseControl: time.Duration(i+1) * time.Millisecond})
	}

	stats := pc.Stats()
	if stats.Ticks != 5 {
		t.Errorf("ticks = %d, want window size 5", stats.Ticks)
	}
	// Only ticks 8..12 ms remain in the ring
	if stats.MinTickDuration != 8*time.Millisecond || stats.MaxTickDuration != 12*time.Millisecond {
		t.Errorf("min/max = %v/%v, want 8ms/12ms", stats.MinTickDuration, stats.MaxTickDuration)
	}
}

func TestPerfCollectorPhaseShare(t *testing.T) {
	pc, clk := newTestCollector(10)
	for i := 0; i < 5; i++ {
		recordTick(pc, clk, map[Phase]time.Duration{
			PhasePhysics:   10 * time.Microsecond,
			PhaseCollision: 490 * time.Microsecond,
		})
	}

	stats := pc.Stats()
	tests := []struct {
		phase Phase
		want  float64
	}{
		{PhasePhysics, 2},
		{PhaseCollision, 98},
		{PhaseFood, 0},
	}
	for _, tt := range tests {
		if got := stats.PhasePct[tt.phase]; math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s share = %.4f%%, want %.4f%%", tt.phase, got, tt.want)
		}
	}
}

func TestPerfCollectorTimeBetweenPhases(t *testing.T) {
	pc, clk := newTestCollector(4)
	pc.StartTick()
	clk.Advance(50 * time.Microsecond) // before the first phase
	pc.StartPhase(PhaseFood)
	clk.Advance(150 * time.Microsecond)
	pc.EndTick()

	stats := pc.Stats()
	if stats.AvgTickDuration != 200*time.Microsecond {
		t.Errorf("tick = %v, want 200us", stats.AvgTickDuration)
	}
	if math.Abs(stats.PhasePct[PhaseFood]-75) > 1e-9 {
		t.Errorf("food share = %.2f%%, want 75%%", stats.PhasePct[PhaseFood])
	}
}

func TestPerfCollectorEmptyAndReset(t *testing.T) {
	pc, clk := newTestCollector(0)
	if stats := pc.Stats(); stats.Ticks != 0 || stats.AvgTickDuration != 0 {
		t.Errorf("empty stats = %+v", stats)
	}

	recordTick(pc, clk, map[Phase]time.Duration{PhaseFood: time.Millisecond})
	pc.Reset()
	if stats := pc.Stats(); stats.Ticks != 0 {
		t.Errorf("ticks after Reset = %d", stats.Ticks)
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseSpatialGrid, "spatial_grid"},
		{PhaseTelemetry, "telemetry"},
		{Phase(-1), "unknown"},
		{numPhases, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(tt.phase), got, tt.want)
		}
	}
}
