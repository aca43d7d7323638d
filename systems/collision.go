package systems

import (
	"math"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
)

// CollisionParams holds interaction outcome parameters.
type CollisionParams struct {
	FoodPleasure    float32
	PleasureMax     float32
	MaxHealth       float32
	ObstacleDamage  float32
	ObstacleArousal float32
	AgentArousal    float32
	PushSlack       float32
	ObstacleDamping bool
	DampingFactor   float32
}

// CollisionParamsFromConfig extracts collision parameters.
func CollisionParamsFromConfig(cfg *config.Config) CollisionParams {
	cc := cfg.Collision
	return CollisionParams{
		FoodPleasure:    float32(cc.FoodPleasure),
		PleasureMax:     float32(cfg.Affect.PleasureMax),
		MaxHealth:       float32(cfg.Agents.MaxHealth),
		ObstacleDamage:  float32(cc.ObstacleDamage),
		ObstacleArousal: float32(cc.ObstacleArousal),
		AgentArousal:    float32(cc.AgentArousal),
		PushSlack:       float32(cc.PushSlack),
		ObstacleDamping: cc.ObstacleDamping,
		DampingFactor:   float32(cc.DampingFactor),
	}
}

// Mover is an agent's mutable state as seen by collision resolution.
type Mover struct {
	Pos    *components.Position
	Vel    *components.Velocity
	Radius float32
	Agent  *components.Agent
	Affect *components.Affect
}

// Circle is a food item or obstacle.
type Circle struct {
	X, Y      float32
	Radius    float32
	Nutrition float32
}

// separation returns the unit vector from (fromX, fromY) to (toX, toY) and
// the distance between them. Coincident points get the +X axis so callers
// never divide by zero.
func separation(fromX, fromY, toX, toY float32) (nx, ny, dist float32) {
	dx := toX - fromX
	dy := toY - fromY
	dist = float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if dist < 1e-6 {
		return 1, 0, 0
	}
	return dx / dist, dy / dist, dist
}

// ResolveFood consumes every unconsumed food item overlapping m and marks it
// in consumed. It returns the nutrition gained.
func ResolveFood(m Mover, foods []Circle, consumed []bool, p CollisionParams) float32 {
	var gained float32
	for i := range foods {
		if consumed[i] {
			continue
		}
		f := &foods[i]
		if distance(m.Pos.X, m.Pos.Y, f.X, f.Y) >= m.Radius+f.Radius {
			continue
		}
		consumed[i] = true
		gained += f.Nutrition

		m.Agent.Reward += f.Nutrition
		m.Agent.Health = min(p.MaxHealth, m.Agent.Health+f.Nutrition)
		m.Agent.Energy = min(p.MaxHealth, m.Agent.Energy+f.Nutrition)
		m.Affect.Pleasure = min(p.PleasureMax, m.Affect.Pleasure+p.FoodPleasure)
	}
	return gained
}

// ResolveObstacle pushes m out of o along the obstacle-to-agent bearing by
// the penetration depth plus slack. It reports whether they overlapped.
func ResolveObstacle(m Mover, o Circle, p CollisionParams) bool {
	nx, ny, dist := separation(o.X, o.Y, m.Pos.X, m.Pos.Y)
	minDist := m.Radius + o.Radius
	if dist >= minDist {
		return false
	}

	push := minDist - dist + p.PushSlack
	m.Pos.X += nx * push
	m.Pos.Y += ny * push

	m.Agent.Health = max(0, m.Agent.Health-p.ObstacleDamage)
	m.Agent.Collisions++
	m.Affect.Arousal = min(1, m.Affect.Arousal+p.ObstacleArousal)

	if p.ObstacleDamping && m.Vel != nil {
		m.Vel.X *= p.DampingFactor
		m.Vel.Y *= p.DampingFactor
	}
	return true
}

// ResolveAgents pushes two overlapping agents apart symmetrically, each by
// half the penetration plus slack. It reports whether they overlapped.
func ResolveAgents(a, b Mover, p CollisionParams) bool {
	nx, ny, dist := separation(a.Pos.X, a.Pos.Y, b.Pos.X, b.Pos.Y)
	minDist := a.Radius + b.Radius
	if dist >= minDist {
		return false
	}

	push := (minDist-dist)/2 + p.PushSlack
	a.Pos.X -= nx * push
	a.Pos.Y -= ny * push
	b.Pos.X += nx * push
	b.Pos.Y += ny * push

	a.Affect.Arousal = min(1, a.Affect.Arousal+p.AgentArousal)
	b.Affect.Arousal = min(1, b.Affect.Arousal+p.AgentArousal)
	a.Agent.Collisions++
	b.Agent.Collisions++
	return true
}
