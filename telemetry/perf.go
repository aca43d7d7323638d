package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one stage of a simulation tick.
type Phase int

// Tick phases in pipeline order.
const (
	PhaseSpatialGrid Phase = iota
	PhasePerception
	PhaseControl
	PhasePhysics
	PhaseCollision
	PhaseFood
	PhaseAffect
	PhaseGraph
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{
	"spatial_grid", "perception", "control",
	"physics", "collision", "food",
	"affect", "graph", "telemetry",
}

func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// Phases lists the tick phases in pipeline order.
var Phases = []Phase{
	PhaseSpatialGrid, PhasePerception, PhaseControl,
	PhasePhysics, PhaseCollision, PhaseFood,
	PhaseAffect, PhaseGraph, PhaseTelemetry,
}

// perfSample is the timing of one tick.
type perfSample struct {
	tick   time.Duration
	phases [numPhases]time.Duration
}

// PerfCollector keeps per-phase tick timings over a ring of recent ticks.
// Phases are indexed by Phase, so recording a tick does not allocate.
type PerfCollector struct {
	ring  []perfSample
	next  int
	count int

	cur        perfSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase // -1 outside a phase

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over the last window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]perfSample, window), phase: -1, now: time.Now}
}

// StartTick begins timing a tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = p.now()
	p.cur = perfSample{}
	p.phase = -1
}

// StartPhase closes the running phase and opens phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := p.now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = phase
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase >= 0 && p.phase < numPhases {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick closes the running phase and stores the tick in the ring.
func (p *PerfCollector) EndTick() {
	now := p.now()
	p.closePhase(now)
	p.phase = -1
	p.cur.tick = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.count < len(p.ring) {
		p.count++
	}
}

// Reset discards every recorded tick.
func (p *PerfCollector) Reset() {
	p.next, p.count = 0, 0
	p.phase = -1
}

// PerfStats summarizes the ticks in the window.
type PerfStats struct {
	Ticks           int
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	// Indexed by Phase
	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64 // Share of the average tick, 0-100
}

// Stats aggregates the window. With no recorded ticks every field is zero.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Ticks: p.count}
	if p.count == 0 {
		return s
	}

	var total time.Duration
	var phaseSum [numPhases]time.Duration
	for i := 0; i < p.count; i++ {
		smp := &p.ring[i]
		total += smp.tick
		if i == 0 || smp.tick < s.MinTickDuration {
			s.MinTickDuration = smp.tick
		}
		s.MaxTickDuration = max(s.MaxTickDuration, smp.tick)
		for ph, d := range smp.phases {
			phaseSum[ph] += d
		}
	}

	n := time.Duration(p.count)
	s.AvgTickDuration = total / n
	for ph := range phaseSum {
		s.PhaseAvg[ph] = phaseSum[ph] / n
		if s.AvgTickDuration > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgTickDuration) * 100
		}
	}
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}
	return s
}

// LogStats logs the summary, listing phases above 0.1% of the tick.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for _, ph := range Phases {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("ticks", s.Ticks),
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	for _, ph := range Phases {
		attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.PhasePct[ph]))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd      int32   `csv:"window_end"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MinTickUS      int64   `csv:"min_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	SpatialGridPct float64 `csv:"spatial_grid_pct"`
	PerceptionPct  float64 `csv:"perception_pct"`
	ControlPct     float64 `csv:"control_pct"`
	PhysicsPct     float64 `csv:"physics_pct"`
	CollisionPct   float64 `csv:"collision_pct"`
	FoodPct        float64 `csv:"food_pct"`
	AffectPct      float64 `csv:"affect_pct"`
	GraphPct       float64 `csv:"graph_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// ToCSV flattens s into a perf.csv row.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgTickUS:      s.AvgTickDuration.Microseconds(),
		MinTickUS:      s.MinTickDuration.Microseconds(),
		MaxTickUS:      s.MaxTickDuration.Microseconds(),
		TicksPerSec:    s.TicksPerSecond,
		SpatialGridPct: s.PhasePct[PhaseSpatialGrid],
		PerceptionPct:  s.PhasePct[PhasePerception],
		ControlPct:     s.PhasePct[PhaseControl],
		PhysicsPct:     s.PhasePct[PhasePhysics],
		CollisionPct:   s.PhasePct[PhaseCollision],
		FoodPct:        s.PhasePct[PhaseFood],
		AffectPct:      s.PhasePct[PhaseAffect],
		GraphPct:       s.PhasePct[PhaseGraph],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
