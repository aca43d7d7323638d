// Package game owns the simulation: the ECS world, per-agent controllers and
// the fixed-order tick pipeline.
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
	"github.com/pthm-cable/plankton/control"
	"github.com/pthm-cable/plankton/neural"
	"github.com/pthm-cable/plankton/systems"
	"github.com/pthm-cable/plankton/telemetry"
)

// MainAgent is the ID of the agent whose vision feeds the point-neuron graph.
const MainAgent = 0

// Options are the collaborators a Game is built with.
type Options struct {
	Seed          int64
	Keys          *control.KeyState // Shared with input handlers; created if nil
	Script        *control.Script   // Compiled once, run by every script agent
	Output        *telemetry.OutputManager
	LogStats      bool
	StatsCallback func(telemetry.WindowStats)
}

// agentRef holds live component pointers for one agent during a tick.
type agentRef struct {
	entity ecs.Entity
	pos    *components.Position
	vel    *components.Velocity
	head   *components.Heading
	body   *components.Body
	agent  *components.Agent
	affect *components.Affect
	vision *components.Vision
}

// Game holds the complete simulation state.
type Game struct {
	cfg   *config.Config
	opts  Options
	state State
	rng   *rand.Rand

	world *ecs.World

	agentMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Heading,
		components.Body,
		components.Agent,
		components.Affect,
		components.Vision,
	]
	agentFilter *ecs.Filter7[
		components.Position,
		components.Velocity,
		components.Heading,
		components.Body,
		components.Agent,
		components.Affect,
		components.Vision,
	]
	foodMapper     *ecs.Map3[components.Position, components.Body, components.Food]
	foodFilter     *ecs.Filter3[components.Position, components.Body, components.Food]
	obstacleMapper *ecs.Map4[components.Position, components.Velocity, components.Body, components.Obstacle]
	obstacleFilter *ecs.Filter4[components.Position, components.Velocity, components.Body, components.Obstacle]

	// Controllers are indexed by agent ID.
	controllers []control.Controller
	ctrlErrs    []string
	fallback    *control.RandomController
	dispatcher  *control.Dispatcher

	vision   systems.VisionParams
	grid     *systems.SpatialGrid
	parallel *parallelState
	graph    *neural.Graph

	applyParams     control.ApplyParams
	collisionParams systems.CollisionParams
	affectParams    systems.AffectParams
	interior        systems.Rect
	worldW, worldH  float32
	maxDT           float32

	// Per-tick scratch
	roster        []agentRef
	targets       []systems.Target
	foods         []systems.Circle
	foodEntities  []ecs.Entity
	consumed      []bool
	obstacles     []systems.Circle
	maxTargetSize float32

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector

	tick        int32
	simTime     float64
	fps         float64
	fpsFrames   int
	fpsStart    time.Time
	totalReward float32
	collisions  int
	foodCount   int
}

// New creates a game in the created state. Nothing is allocated in the
// world until Initialize.
func New(cfg *config.Config, opts Options) (*Game, error) {
	vision, err := systems.VisionParamsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Keys == nil {
		opts.Keys = control.NewKeyState()
	}

	g := &Game{
		cfg:    cfg.Clone(),
		opts:   opts,
		state:  StateCreated,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		vision: vision,
	}
	g.loadParams()

	g.dispatcher = control.NewDispatcher(opts.Keys, cfg.Control.ManualOverride)
	g.collector = telemetry.NewCollector(cfg.Telemetry.StatsWindow)
	g.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	return g, nil
}

// loadParams derives the per-system parameter structs from the config.
func (g *Game) loadParams() {
	cfg := g.cfg
	g.applyParams = control.ApplyParamsFromConfig(cfg)
	g.collisionParams = systems.CollisionParamsFromConfig(cfg)
	g.affectParams = systems.AffectParamsFromConfig(cfg)
	g.worldW = cfg.Derived.WorldW32
	g.worldH = cfg.Derived.WorldH32
	g.maxDT = float32(cfg.World.MaxDT)
	g.interior = systems.Rect{
		MinX: cfg.Derived.InteriorMinX,
		MinY: cfg.Derived.InteriorMinY,
		MaxX: cfg.Derived.InteriorMaxX,
		MaxY: cfg.Derived.InteriorMaxY,
	}
	g.maxTargetSize = float32(max(cfg.Agents.Radius, cfg.Food.Radius, cfg.Obstacles.Radius, cfg.World.WallRadius))
}

// Config returns the game's configuration. Callers must not modify it.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Keys returns the key table read by keyboard control and manual override.
func (g *Game) Keys() *control.KeyState {
	return g.opts.Keys
}

// Graph returns the point-neuron graph fed by the main agent's vision, or
// nil before Initialize and after Destroy.
func (g *Game) Graph() *neural.Graph {
	return g.graph
}

// SetManualOverride toggles keyboard preemption of automated controllers.
func (g *Game) SetManualOverride(on bool) {
	g.cfg.Control.ManualOverride = on
	g.dispatcher.SetOverride(on)
}

// ManualOverride reports whether active keys preempt automated controllers.
func (g *Game) ManualOverride() bool {
	return g.dispatcher.Override()
}

// TickCount returns the number of completed ticks.
func (g *Game) TickCount() int32 {
	return g.tick
}

// newController builds the controller for one agent.
func (g *Game) newController(id int, kind components.ControlType) (control.Controller, error) {
	switch kind {
	case components.ControlNeural:
		col, err := neural.NewCorticalColumn(neural.ColumnParamsFromConfig(g.cfg), g.rng)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", id, err)
		}
		nc, err := control.NewNeuralController(col, neural.ModulatorFromConfig(g.cfg), g.cfg.Neural.Iterations, g.cfg.Derived.SensoryLen)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", id, err)
		}
		return nc, nil
	case components.ControlScript:
		return control.NewScriptController(id, g.opts.Script, control.ScriptParamsFromConfig(g.cfg)), nil
	case components.ControlKeyboard:
		return control.NewKeyboardController(g.opts.Keys), nil
	default:
		return control.NewRandomController(control.RandomParamsFromConfig(g.cfg), g.rng), nil
	}
}
