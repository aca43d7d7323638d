package game

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/pthm-cable/plankton/control"
	"github.com/pthm-cable/plankton/systems"
	"github.com/pthm-cable/plankton/telemetry"
)

// Tick advances the simulation by dt seconds, clamped to the configured
// maximum. It does nothing unless the game is running and reports whether
// a tick was taken. Lifecycle changes requested during a tick apply from
// the next call.
func (g *Game) Tick(dt float32) bool {
	if g.state != StateRunning {
		return false
	}
	if !(dt > 0) || math.IsInf(float64(dt), 0) {
		dt = 0
	}
	dt = min(dt, g.maxDT)

	g.perf.StartTick()

	g.perf.StartPhase(telemetry.PhaseSpatialGrid)
	g.collectRoster()
	g.buildTargets()
	g.grid.Build(g.targets)

	g.perf.StartPhase(telemetry.PhasePerception)
	g.updatePerception()

	g.perf.StartPhase(telemetry.PhaseControl)
	g.updateControl(dt)

	g.perf.StartPhase(telemetry.PhasePhysics)
	g.updatePhysics(dt)

	g.perf.StartPhase(telemetry.PhaseCollision)
	g.updateCollisions()

	g.perf.StartPhase(telemetry.PhaseFood)
	g.replenishFood()

	g.perf.StartPhase(telemetry.PhaseAffect)
	for i := range g.roster {
		systems.DecayAffect(g.roster[i].affect, g.affectParams)
	}

	g.perf.StartPhase(telemetry.PhaseGraph)
	g.updateGraph()

	g.tick++
	g.simTime += float64(dt)

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.updateFPS()
	g.flushTelemetry()

	g.perf.EndTick()
	return true
}

// collectRoster gathers live component pointers for every agent, ordered
// by agent ID so the pipeline is independent of archetype layout.
func (g *Game) collectRoster() {
	g.roster = g.roster[:0]
	query := g.agentFilter.Query()
	for query.Next() {
		pos, vel, head, body, agent, affect, vision := query.Get()
		g.roster = append(g.roster, agentRef{
			entity: query.Entity(),
			pos:    pos,
			vel:    vel,
			head:   head,
			body:   body,
			agent:  agent,
			affect: affect,
			vision: vision,
		})
	}
	slices.SortFunc(g.roster, func(a, b agentRef) int {
		return a.agent.ID - b.agent.ID
	})
}

// buildTargets flattens agents, food and obstacles into the perceivable set.
func (g *Game) buildTargets() {
	pc := g.cfg.Perception
	agentColor := systems.ColorFromConfig(pc.AgentColor)
	foodColor := systems.ColorFromConfig(pc.FoodColor)
	obstacleColor := systems.ColorFromConfig(pc.ObstacleColor)
	movingColor := systems.ColorFromConfig(pc.MovingColor)

	g.targets = g.targets[:0]
	for _, r := range g.roster {
		g.targets = append(g.targets, systems.Target{
			X: r.pos.X, Y: r.pos.Y, Radius: r.body.Radius, Color: agentColor, Agent: r.agent.ID,
		})
	}

	fq := g.foodFilter.Query()
	for fq.Next() {
		pos, body, _ := fq.Get()
		g.targets = append(g.targets, systems.Target{
			X: pos.X, Y: pos.Y, Radius: body.Radius, Color: foodColor, Agent: -1,
		})
	}

	oq := g.obstacleFilter.Query()
	for oq.Next() {
		pos, _, body, obs := oq.Get()
		color := obstacleColor
		if obs.Moving {
			color = movingColor
		}
		g.targets = append(g.targets, systems.Target{
			X: pos.X, Y: pos.Y, Radius: body.Radius, Color: color, Agent: -1,
		})
	}
}

// updateControl asks every agent's controller for a decision and applies it
// to heading and velocity.
func (g *Game) updateControl(dt float32) {
	for i := range g.roster {
		r := &g.roster[i]
		in := control.Input{
			Agent:   r.agent.ID,
			Sensory: r.vision.Sensory,
			Affect:  *r.affect,
			Reward:  r.agent.Reward,
		}
		d := g.decide(r.agent.ID, in)
		control.Apply(d, r.head, r.vel, dt, g.applyParams)
	}
}

// decide runs one controller. Any error or panic is contained to this agent,
// which falls back to the random walk for the tick.
func (g *Game) decide(id int, in control.Input) (d control.Decision) {
	defer func() {
		if r := recover(); r != nil {
			g.reportControlError(id, fmt.Errorf("controller panic: %v", r))
			d = g.fallbackDecision(in)
		}
	}()

	if id < 0 || id >= len(g.controllers) || g.controllers[id] == nil {
		return g.fallbackDecision(in)
	}
	d, err := g.dispatcher.Decide(g.controllers[id], in)
	if err != nil {
		g.reportControlError(id, err)
		return g.fallbackDecision(in)
	}
	g.ctrlErrs[id] = ""
	return d
}

func (g *Game) fallbackDecision(in control.Input) control.Decision {
	d, err := g.fallback.Decide(in)
	if err != nil {
		return control.SteerDecision(control.Action{})
	}
	return d
}

// reportControlError logs err unless it repeats the agent's last one.
func (g *Game) reportControlError(id int, err error) {
	msg := err.Error()
	if id >= 0 && id < len(g.ctrlErrs) {
		if g.ctrlErrs[id] == msg {
			return
		}
		g.ctrlErrs[id] = msg
	}
	slog.Warn("controller failed, using random walk", "agent", id, "error", msg)
}

// updatePhysics integrates agents and moving obstacles.
func (g *Game) updatePhysics(dt float32) {
	for i := range g.roster {
		r := &g.roster[i]
		systems.Integrate(r.pos, *r.vel, dt)
		systems.Wrap(r.pos, g.worldW, g.worldH)
	}

	g.obstacles = g.obstacles[:0]
	query := g.obstacleFilter.Query()
	for query.Next() {
		pos, vel, body, obs := query.Get()
		if obs.Moving {
			systems.Integrate(pos, *vel, dt)
			systems.Bounce(pos, vel, body.Radius, g.worldW, g.worldH)
		}
		g.obstacles = append(g.obstacles, systems.Circle{X: pos.X, Y: pos.Y, Radius: body.Radius})
	}
}

func (r *agentRef) mover() systems.Mover {
	return systems.Mover{
		Pos:    r.pos,
		Vel:    r.vel,
		Radius: r.body.Radius,
		Agent:  r.agent,
		Affect: r.affect,
	}
}

// updateCollisions resolves food, obstacle and agent contacts in that order.
// Each food item is eaten at most once and each agent pair is resolved once.
func (g *Game) updateCollisions() {
	g.foods = g.foods[:0]
	g.foodEntities = g.foodEntities[:0]
	fq := g.foodFilter.Query()
	for fq.Next() {
		pos, body, food := fq.Get()
		g.foods = append(g.foods, systems.Circle{X: pos.X, Y: pos.Y, Radius: body.Radius, Nutrition: food.Nutrition})
		g.foodEntities = append(g.foodEntities, fq.Entity())
	}
	g.consumed = slices.Grow(g.consumed[:0], len(g.foods))[:len(g.foods)]
	clear(g.consumed)

	p := g.collisionParams
	for i := range g.roster {
		m := g.roster[i].mover()
		g.totalReward += systems.ResolveFood(m, g.foods, g.consumed, p)

		for _, o := range g.obstacles {
			if systems.ResolveObstacle(m, o, p) {
				g.collisions++
				g.collector.RecordObstacleHit()
			}
		}
	}

	for i := range g.roster {
		a := g.roster[i].mover()
		for j := i + 1; j < len(g.roster); j++ {
			if systems.ResolveAgents(a, g.roster[j].mover(), p) {
				g.collisions++
				g.collector.RecordAgentContact()
			}
		}
	}

	for i := range g.roster {
		systems.Wrap(g.roster[i].pos, g.worldW, g.worldH)
	}
}

// replenishFood removes eaten food and tops the supply back up to target.
func (g *Game) replenishFood() {
	for i, eaten := range g.consumed {
		if !eaten {
			continue
		}
		g.collector.RecordFood(float64(g.foods[i].Nutrition))
		g.foodMapper.Remove(g.foodEntities[i])
		g.foodCount--
	}
	if n := systems.FoodDeficit(g.foodCount, g.cfg.Food.Target); n > 0 {
		g.spawnFood(n)
	}
}

// updateGraph feeds the main agent's vision into the point-neuron graph.
func (g *Game) updateGraph() {
	if g.graph == nil || len(g.roster) == 0 || g.roster[0].agent.ID != MainAgent {
		return
	}
	g.graph.SetVisionInputs(g.roster[0].vision.Sensory)
	g.graph.Step()
}

// updateFPS recomputes the tick rate every FPSFrames ticks.
func (g *Game) updateFPS() {
	frames := g.cfg.Telemetry.FPSFrames
	if frames <= 0 {
		frames = 60
	}
	g.fpsFrames++
	if g.fpsFrames < frames {
		return
	}
	now := time.Now()
	if elapsed := now.Sub(g.fpsStart).Seconds(); elapsed > 0 {
		g.fps = float64(g.fpsFrames) / elapsed
	}
	g.fpsFrames = 0
	g.fpsStart = now
}

// agentSamples captures every agent's state for a stats window.
func (g *Game) agentSamples() []telemetry.AgentSample {
	samples := make([]telemetry.AgentSample, 0, len(g.roster))
	for _, r := range g.roster {
		samples = append(samples, telemetry.AgentSample{
			Health:      float64(r.agent.Health),
			Pleasure:    float64(r.affect.Pleasure),
			Arousal:     float64(r.affect.Arousal),
			Homeostasis: float64(r.affect.Homeostasis),
			Reward:      float64(r.agent.Reward),
			Collisions:  r.agent.Collisions,
		})
	}
	return samples
}
