package game

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/control"
	"github.com/pthm-cable/plankton/neural"
	"github.com/pthm-cable/plankton/systems"
)

// State is a lifecycle state.
type State uint8

const (
	StateCreated State = iota
	StateInitialized
	StateRunning
	StatePaused
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// State returns the current lifecycle state.
func (g *Game) State() State {
	return g.state
}

// Initialize builds the world: walls, obstacles, food, agents and their
// controllers. Configuration errors, such as a network whose input layer
// does not match the sensory vector, are returned here. Calling it again,
// or after Destroy, does nothing.
func (g *Game) Initialize() error {
	if g.state != StateCreated {
		return nil
	}
	if err := g.build(); err != nil {
		g.teardown()
		return err
	}
	g.state = StateInitialized
	slog.Info("simulation initialized",
		"agents", g.cfg.Agents.Count,
		"food", g.foodCount,
		"cells", g.vision.Cells,
	)
	return nil
}

// Start initializes if needed and begins running.
func (g *Game) Start() error {
	switch g.state {
	case StateCreated:
		if err := g.Initialize(); err != nil {
			return err
		}
	case StateInitialized:
	default:
		return nil
	}
	g.state = StateRunning
	g.fpsStart = time.Now()
	return nil
}

// Pause stops simulation mutation. Snapshots remain available.
func (g *Game) Pause() {
	if g.state == StateRunning {
		g.state = StatePaused
	}
}

// Resume continues a paused simulation.
func (g *Game) Resume() {
	if g.state == StatePaused {
		g.state = StateRunning
		g.fpsStart = time.Now()
		g.fpsFrames = 0
	}
}

// Reset rebuilds the world and clears counters, keeping the running or
// paused state. The random sequence continues rather than restarting.
func (g *Game) Reset() error {
	switch g.state {
	case StateInitialized, StateRunning, StatePaused:
	default:
		return nil
	}
	g.teardown()
	if err := g.build(); err != nil {
		g.teardown()
		g.state = StateCreated
		return err
	}
	g.tick = 0
	g.simTime = 0
	g.fps = 0
	g.fpsFrames = 0
	g.fpsStart = time.Now()
	g.collector.Reset()
	g.perf.Reset()
	slog.Info("simulation reset")
	return nil
}

// Destroy releases the world, every controller and the worker pool.
func (g *Game) Destroy() {
	if g.state == StateDestroyed {
		return
	}
	g.teardown()
	g.state = StateDestroyed
}

// teardown drops everything build allocated.
func (g *Game) teardown() {
	if g.parallel != nil {
		g.parallel.stopWorkers()
		g.parallel = nil
	}
	g.world = nil
	g.agentMapper = nil
	g.agentFilter = nil
	g.foodMapper = nil
	g.foodFilter = nil
	g.obstacleMapper = nil
	g.obstacleFilter = nil
	g.controllers = nil
	g.ctrlErrs = nil
	g.fallback = nil
	g.graph = nil
	g.grid = nil
	g.roster = nil
	g.targets = nil
	g.foods = nil
	g.foodEntities = nil
	g.consumed = nil
	g.obstacles = nil
	g.totalReward = 0
	g.collisions = 0
	g.foodCount = 0
}

// build creates a fresh world and populates it.
func (g *Game) build() error {
	world := ecs.NewWorld()
	g.world = world
	g.agentMapper = ecs.NewMap7[
		components.Position,
		components.Velocity,
		components.Heading,
		components.Body,
		components.Agent,
		components.Affect,
		components.Vision,
	](world)
	g.agentFilter = ecs.NewFilter7[
		components.Position,
		components.Velocity,
		components.Heading,
		components.Body,
		components.Agent,
		components.Affect,
		components.Vision,
	](world)
	g.foodMapper = ecs.NewMap3[components.Position, components.Body, components.Food](world)
	g.foodFilter = ecs.NewFilter3[components.Position, components.Body, components.Food](world)
	g.obstacleMapper = ecs.NewMap4[components.Position, components.Velocity, components.Body, components.Obstacle](world)
	g.obstacleFilter = ecs.NewFilter4[components.Position, components.Velocity, components.Body, components.Obstacle](world)

	cellSize := max(float32(g.vision.Range), 64)
	g.grid = systems.NewSpatialGrid(g.worldW, g.worldH, cellSize)
	g.parallel = newParallelState(g.cfg.Parallel, g.vision)
	g.fallback = control.NewRandomController(control.RandomParamsFromConfig(g.cfg), g.rng)
	g.graph = neural.DefaultGraph(neural.GraphParamsFromConfig(g.cfg), g.vision.Cells)

	g.spawnWalls()
	g.spawnObstacles()
	g.spawnFood(g.cfg.Food.Target)
	return g.spawnAgents()
}

// spawnWalls lays the static obstacle ring around the arena.
func (g *Game) spawnWalls() {
	wc := g.cfg.World
	walls := systems.WallRing(g.worldW, g.worldH, float32(wc.WallMargin), float32(wc.WallSpacing), float32(wc.WallRadius))
	for _, w := range walls {
		pos := components.Position{X: w.X, Y: w.Y}
		vel := components.Velocity{}
		body := components.Body{Radius: w.Radius}
		obs := components.Obstacle{}
		g.obstacleMapper.NewEntity(&pos, &vel, &body, &obs)
	}
}

// spawnObstacles scatters static and moving obstacles in the interior.
func (g *Game) spawnObstacles() {
	oc := g.cfg.Obstacles
	radius := float32(oc.Radius)

	for i := 0; i < oc.Static; i++ {
		pos := g.interior.RandomPoint(g.rng)
		vel := components.Velocity{}
		body := components.Body{Radius: radius}
		obs := components.Obstacle{}
		g.obstacleMapper.NewEntity(&pos, &vel, &body, &obs)
	}

	for i := 0; i < oc.Moving; i++ {
		pos := g.interior.RandomPoint(g.rng)
		angle := g.rng.Float64() * 2 * math.Pi
		speed := float64(g.rng.Float32()) * oc.MaxSpeed
		vel := components.Velocity{X: float32(math.Cos(angle) * speed), Y: float32(math.Sin(angle) * speed)}
		body := components.Body{Radius: radius}
		obs := components.Obstacle{Moving: true}
		g.obstacleMapper.NewEntity(&pos, &vel, &body, &obs)
	}
}

// spawnFood places n food items uniformly in the interior.
func (g *Game) spawnFood(n int) {
	fc := g.cfg.Food
	for _, pos := range systems.FoodSpawnPoints(n, g.interior, g.rng) {
		body := components.Body{Radius: float32(fc.Radius)}
		food := components.Food{Nutrition: float32(fc.Nutrition)}
		g.foodMapper.NewEntity(&pos, &body, &food)
	}
	g.foodCount += n
}

// spawnAgents creates every agent and its controller. Agent 0 starts near
// the arena centre; the rest start anywhere in the interior.
func (g *Game) spawnAgents() error {
	ac := g.cfg.Agents
	mainKind, err := components.ParseControlType(ac.MainControl)
	if err != nil {
		return err
	}
	otherKind, err := components.ParseControlType(ac.OtherControl)
	if err != nil {
		return err
	}

	g.controllers = make([]control.Controller, ac.Count)
	g.ctrlErrs = make([]string, ac.Count)

	for id := 0; id < ac.Count; id++ {
		kind := otherKind
		pos := g.interior.RandomPoint(g.rng)
		if id == MainAgent {
			kind = mainKind
			jitter := float32(ac.CenterJitter)
			pos = components.Position{
				X: g.worldW/2 + (g.rng.Float32()*2-1)*jitter,
				Y: g.worldH/2 + (g.rng.Float32()*2-1)*jitter,
			}
		}

		ctrl, err := g.newController(id, kind)
		if err != nil {
			return err
		}
		g.controllers[id] = ctrl

		vel := components.Velocity{}
		head := components.Heading{Angle: systems.NormalizeAngle(g.rng.Float32() * 2 * math.Pi)}
		body := components.Body{Radius: float32(ac.Radius)}
		agent := components.Agent{
			ID:      id,
			Control: kind,
			Health:  float32(ac.InitialHealth),
			Energy:  float32(ac.InitialEnergy),
		}
		affect := components.Affect{
			Arousal:     float32(ac.InitialArousal),
			Homeostasis: float32(ac.InitialHomeostasis),
		}
		vision := systems.NewVision(g.vision)
		g.agentMapper.NewEntity(&pos, &vel, &head, &body, &agent, &affect, &vision)
	}
	return nil
}

// Reconfigure changes the vision cone. Every agent's vision and sensory
// vector are reallocated, neural agents get fresh networks sized to the new
// vector, and the point-neuron graph is rebuilt with matching inputs.
func (g *Game) Reconfigure(cells int, visionRange, angleDeg float64) error {
	next := g.cfg.Clone()
	if err := next.SetPerception(cells, visionRange, angleDeg); err != nil {
		return err
	}
	vision, err := systems.VisionParamsFromConfig(next)
	if err != nil {
		return err
	}

	prevCfg, prevVision := g.cfg, g.vision
	g.cfg, g.vision = next, vision

	if g.world == nil {
		return nil
	}

	// Rebuild neural controllers before touching the world so a failure
	// leaves the previous configuration in place.
	controllers := slices.Clone(g.controllers)
	for id, c := range controllers {
		if c.Kind() != components.ControlNeural {
			continue
		}
		nc, err := g.newController(id, components.ControlNeural)
		if err != nil {
			g.cfg, g.vision = prevCfg, prevVision
			return err
		}
		controllers[id] = nc
	}
	g.controllers = controllers

	query := g.agentFilter.Query()
	for query.Next() {
		_, _, _, _, _, _, v := query.Get()
		*v = systems.NewVision(vision)
	}

	g.grid = systems.NewSpatialGrid(g.worldW, g.worldH, max(float32(vision.Range), 64))
	g.parallel.setVision(vision)
	g.graph = neural.DefaultGraph(neural.GraphParamsFromConfig(g.cfg), vision.Cells)

	slog.Info("perception reconfigured", "cells", cells, "range", visionRange, "angle_deg", angleDeg)
	return nil
}
