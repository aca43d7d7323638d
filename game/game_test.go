package game

import (
	"math"
	"reflect"
	"testing"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
	"github.com/pthm-cable/plankton/control"
	"github.com/pthm-cable/plankton/neural"
	"github.com/pthm-cable/plankton/telemetry"
)

const testDT = 1.0 / 60

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	cfg.Neural.HiddenLayers = []int{8}
	cfg.Agents.Count = 4
	cfg.Obstacles.Moving = 2
	cfg.Obstacles.Static = 2
	cfg.Perception.Cells = 12
	cfg.Control.ScriptBudgetMS = 0
	if err := cfg.SetPerception(12, cfg.Perception.Range, cfg.Perception.AngleDeg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config, opts Options) *Game {
	t.Helper()
	g, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(g.Destroy)
	return g
}

func startTestGame(t *testing.T, cfg *config.Config, opts Options) *Game {
	t.Helper()
	g := newTestGame(t, cfg, opts)
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g
}

func TestLifecycleTransitions(t *testing.T) {
	g := newTestGame(t, testConfig(t), Options{Seed: 1})

	if g.Tick(testDT) {
		t.Error("tick before start should do nothing")
	}
	if g.State() != StateCreated {
		t.Fatalf("state = %s, want created", g.State())
	}

	if err := g.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := g.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if got := len(g.Snapshot().Agents); got != 4 {
		t.Fatalf("agents after repeated Initialize = %d, want 4", got)
	}

	g.Pause()
	if g.State() != StateInitialized {
		t.Errorf("pause before start changed state to %s", g.State())
	}

	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !g.Tick(testDT) {
		t.Fatal("running game should tick")
	}

	g.Pause()
	g.Pause()
	if g.State() != StatePaused {
		t.Fatalf("state = %s, want paused", g.State())
	}
	g.Resume()
	g.Resume()
	if g.State() != StateRunning {
		t.Fatalf("state = %s, want running", g.State())
	}

	g.Destroy()
	g.Destroy()
	if g.State() != StateDestroyed {
		t.Fatalf("state = %s, want destroyed", g.State())
	}
	if err := g.Start(); err != nil {
		t.Errorf("Start after Destroy: %v", err)
	}
	if g.Tick(testDT) {
		t.Error("destroyed game should not tick")
	}
	if g.Graph() != nil {
		t.Error("graph survived Destroy")
	}
	if snap := g.Snapshot(); len(snap.Agents) != 0 || snap.State != "destroyed" {
		t.Errorf("snapshot after Destroy = %d agents, state %q", len(snap.Agents), snap.State)
	}
}

func TestPauseStopsMutation(t *testing.T) {
	g := startTestGame(t, testConfig(t), Options{Seed: 2})
	for i := 0; i < 10; i++ {
		g.Tick(testDT)
	}

	g.Pause()
	before := g.Snapshot()
	for i := 0; i < 10; i++ {
		if g.Tick(testDT) {
			t.Fatal("paused game ticked")
		}
	}
	after := g.Snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Error("snapshot changed while paused")
	}

	g.Resume()
	if !g.Tick(testDT) || g.TickCount() != 11 {
		t.Errorf("tick count after resume = %d, want 11", g.TickCount())
	}
}

func TestFoodStaysAtTarget(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agents.Count = 20
	cfg.Food.Target = 30
	cfg.Food.Radius = 40 // large food gets eaten often
	g := startTestGame(t, cfg, Options{Seed: 3})

	for i := 0; i < 300; i++ {
		g.Tick(testDT)
		snap := g.Snapshot()
		if len(snap.Food) != cfg.Food.Target {
			t.Fatalf("tick %d: food = %d, want %d", i, len(snap.Food), cfg.Food.Target)
		}
		if snap.Stats.Food != cfg.Food.Target {
			t.Fatalf("tick %d: food stat = %d, want %d", i, snap.Stats.Food, cfg.Food.Target)
		}
	}
	if g.Stats().TotalReward <= 0 {
		t.Error("no food eaten by 20 agents in 300 ticks")
	}
}

func TestFoodSpawnsInInterior(t *testing.T) {
	cfg := testConfig(t)
	g := startTestGame(t, cfg, Options{Seed: 4})
	for i := 0; i < 50; i++ {
		g.Tick(testDT)
	}
	d := cfg.Derived
	for _, f := range g.Snapshot().Food {
		if f.X < d.InteriorMinX || f.X > d.InteriorMaxX || f.Y < d.InteriorMinY || f.Y > d.InteriorMaxY {
			t.Errorf("food at (%f, %f) outside interior", f.X, f.Y)
		}
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agents.OtherControl = "random"
	run := func() []AgentView {
		g := startTestGame(t, cfg, Options{Seed: 42})
		for i := 0; i < 120; i++ {
			g.Tick(testDT)
		}
		return g.Snapshot().Agents
	}

	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different agents")
	}
}

func TestTickClampsDT(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agents.Count = 1
	cfg.Agents.MainControl = "keyboard"
	cfg.Obstacles.Moving = 0
	cfg.Obstacles.Static = 0
	keys := control.NewKeyState()
	keys.Press(control.KeyForward, true)

	g := startTestGame(t, cfg, Options{Seed: 5, Keys: keys})
	before := g.Snapshot().Agents[0]
	g.Tick(10)
	after := g.Snapshot().Agents[0]

	moved := math.Hypot(float64(after.X-before.X), float64(after.Y-before.Y))
	want := cfg.Control.MaxSpeed * cfg.World.MaxDT
	if math.Abs(moved-want) > 1e-3 {
		t.Errorf("moved %f, want %f", moved, want)
	}
	if after.Heading != before.Heading {
		t.Errorf("heading changed from %f to %f", before.Heading, after.Heading)
	}
	if got := g.Stats().SimTime; math.Abs(got-cfg.World.MaxDT) > 1e-6 {
		t.Errorf("sim time = %f, want %f", got, cfg.World.MaxDT)
	}
}

func TestNegativeDTIsIgnored(t *testing.T) {
	cfg := testConfig(t)
	g := startTestGame(t, cfg, Options{Seed: 6})
	g.Tick(float32(math.NaN()))
	g.Tick(-1)
	if got := g.Stats().SimTime; got != 0 {
		t.Errorf("sim time = %f, want 0", got)
	}
}

type panicController struct{}

func (panicController) Kind() components.ControlType { return components.ControlNeural }

func (panicController) Decide(control.Input) (control.Decision, error) {
	panic("boom")
}

func TestControllerPanicIsContained(t *testing.T) {
	cfg := testConfig(t)
	g := startTestGame(t, cfg, Options{Seed: 7})
	g.controllers[0] = panicController{}

	for i := 0; i < 5; i++ {
		if !g.Tick(testDT) {
			t.Fatal("tick did not run")
		}
	}
	if g.ctrlErrs[0] == "" {
		t.Error("panic was not recorded for agent 0")
	}
	for _, id := range []int{1, 2, 3} {
		if g.ctrlErrs[id] != "" {
			t.Errorf("agent %d recorded error %q", id, g.ctrlErrs[id])
		}
	}
}

func TestScriptAgents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agents.Count = 1
	cfg.Agents.MainControl = "script"
	cfg.Obstacles.Moving = 0
	cfg.Obstacles.Static = 0

	script, err := control.CompileScript("return [0, 1, 0];", control.ScriptFunction)
	if err != nil {
		t.Fatalf("CompileScript: %v", err)
	}
	g := startTestGame(t, cfg, Options{Seed: 8, Script: script})
	before := g.Snapshot().Agents[0]
	g.Tick(testDT)
	after := g.Snapshot().Agents[0]

	moved := math.Hypot(float64(after.X-before.X), float64(after.Y-before.Y))
	want := cfg.Control.MaxSpeed * testDT
	if math.Abs(moved-want) > 1e-3 {
		t.Errorf("script agent moved %f, want %f", moved, want)
	}
}

func TestReconfigure(t *testing.T) {
	cfg := testConfig(t)
	g := startTestGame(t, cfg, Options{Seed: 9})
	g.Tick(testDT)

	if err := g.Reconfigure(10, 100, 90); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	g.Tick(testDT)

	snap := g.Snapshot()
	if snap.Vision.Cells != 10 || snap.Vision.Range != 100 {
		t.Errorf("vision = %+v", snap.Vision)
	}
	for _, a := range snap.Agents {
		if len(a.Cells) != 10 {
			t.Errorf("agent %d has %d cells, want 10", a.ID, len(a.Cells))
		}
	}

	nc, ok := g.controllers[MainAgent].(*control.NeuralController)
	if !ok {
		t.Fatalf("agent 0 controller is %T", g.controllers[MainAgent])
	}
	if got := nc.Column().InputSize(); got != 30 {
		t.Errorf("column input size = %d, want 30", got)
	}

	receptor, ok := g.Graph().Node("receptor-1")
	if !ok || len(receptor.Ports) != 30 {
		t.Errorf("receptor ports = %d, want 30", len(receptor.Ports))
	}
	last := receptor.Ports[len(receptor.Ports)-1]
	if last.ID != neural.VisionInputID("B", 9) {
		t.Errorf("last receptor port = %q, want %q", last.ID, neural.VisionInputID("B", 9))
	}
}

func TestReconfigureInvalid(t *testing.T) {
	cfg := testConfig(t)
	g := startTestGame(t, cfg, Options{Seed: 10})

	if err := g.Reconfigure(0, 100, 90); err == nil {
		t.Error("expected error for zero cells")
	}
	if err := g.Reconfigure(8, 100, 400); err == nil {
		t.Error("expected error for angle > 360")
	}
	if got := g.Snapshot().Vision.Cells; got != 12 {
		t.Errorf("cells = %d after failed reconfigure, want 12", got)
	}
}

func TestReset(t *testing.T) {
	cfg := testConfig(t)
	g := startTestGame(t, cfg, Options{Seed: 11})
	for i := 0; i < 30; i++ {
		g.Tick(testDT)
	}
	g.Pause()

	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if g.State() != StatePaused {
		t.Errorf("state = %s, want paused", g.State())
	}
	snap := g.Snapshot()
	if snap.Tick != 0 || snap.Stats.SimTime != 0 || snap.Stats.Collisions != 0 {
		t.Errorf("counters not cleared: tick %d, time %f, collisions %d", snap.Tick, snap.Stats.SimTime, snap.Stats.Collisions)
	}
	if len(snap.Agents) != cfg.Agents.Count || len(snap.Food) != cfg.Food.Target {
		t.Errorf("reset world has %d agents, %d food", len(snap.Agents), len(snap.Food))
	}
}

func TestInvalidControlType(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agents.OtherControl = "telepathy"
	g := newTestGame(t, cfg, Options{})
	if err := g.Initialize(); err == nil {
		t.Fatal("expected error for unknown control type")
	}
	if g.State() != StateCreated {
		t.Errorf("state = %s, want created", g.State())
	}
}

func TestStatsCallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.StatsWindow = 0.1

	var windows []telemetry.WindowStats
	g := startTestGame(t, cfg, Options{
		Seed:          12,
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})
	for i := 0; i < 60; i++ {
		g.Tick(testDT)
	}

	if len(windows) < 5 {
		t.Fatalf("got %d windows, want at least 5", len(windows))
	}
	w := windows[0]
	if w.Agents != cfg.Agents.Count || w.Food != cfg.Food.Target {
		t.Errorf("window agents=%d food=%d", w.Agents, w.Food)
	}
	if w.WindowEndTick <= w.WindowStartTick {
		t.Errorf("window ticks [%d, %d]", w.WindowStartTick, w.WindowEndTick)
	}
}

func TestParallelPerceptionMatchesSequential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agents.Count = 80
	cfg.Agents.OtherControl = "random"

	seq := cfg.Clone()
	seq.Parallel.Workers = 1
	par := cfg.Clone()
	par.Parallel.Workers = 4
	par.Parallel.Threshold = 8

	run := func(c *config.Config) []AgentView {
		g := startTestGame(t, c, Options{Seed: 13})
		for i := 0; i < 20; i++ {
			g.Tick(testDT)
		}
		return g.Snapshot().Agents
	}

	if !reflect.DeepEqual(run(seq), run(par)) {
		t.Error("parallel perception diverged from sequential")
	}
}

func TestGraphFollowsMainAgent(t *testing.T) {
	cfg := testConfig(t)
	g := startTestGame(t, cfg, Options{Seed: 14})
	g.Tick(testDT)

	sensory := g.roster[0].vision.Sensory
	receptor, ok := g.Graph().Node("receptor-1")
	if !ok {
		t.Fatal("missing receptor")
	}
	for _, p := range receptor.Ports {
		if p.ID == neural.VisionInputID("G", 3) && p.Voltage != float64(sensory[3*3+1]) {
			t.Errorf("G3 voltage = %f, want %f", p.Voltage, sensory[3*3+1])
		}
	}
	if g.Graph().Now() <= 0 {
		t.Error("graph did not step")
	}
}
