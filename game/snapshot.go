package game

import (
	"slices"

	"github.com/pthm-cable/plankton/components"
)

// Snapshot is a read-only copy of the world for renderers and observers.
// Nothing in it aliases simulation state.
type Snapshot struct {
	Tick      int32          `json:"tick"`
	State     string         `json:"state"`
	Width     float32        `json:"width"`
	Height    float32        `json:"height"`
	Vision    VisionView     `json:"vision"`
	Agents    []AgentView    `json:"agents"`
	Food      []FoodView     `json:"food"`
	Obstacles []ObstacleView `json:"obstacles"`
	Stats     Stats          `json:"stats"`
}

// VisionView describes the cone every agent uses.
type VisionView struct {
	Cells int     `json:"cells"`
	Range float32 `json:"range"`
	Angle float32 `json:"angle"` // Full width, radians
}

// AgentView is one agent in a snapshot.
type AgentView struct {
	ID          int                `json:"id"`
	X           float32            `json:"x"`
	Y           float32            `json:"y"`
	Heading     float32            `json:"heading"`
	Radius      float32            `json:"radius"`
	Control     string             `json:"control"`
	Health      float32            `json:"health"`
	Energy      float32            `json:"energy"`
	Reward      float32            `json:"reward"`
	Collisions  int                `json:"collisions"`
	Pleasure    float32            `json:"pleasure"`
	Arousal     float32            `json:"arousal"`
	Homeostasis float32            `json:"homeostasis"`
	Cells       []components.Color `json:"cells"`
}

// FoodView is one food item in a snapshot.
type FoodView struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Radius float32 `json:"radius"`
}

// ObstacleView is one obstacle in a snapshot.
type ObstacleView struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Radius float32 `json:"radius"`
	Moving bool    `json:"moving"`
}

// Stats are the running aggregates shown to observers.
type Stats struct {
	SimTime      float64 `json:"sim_time"`
	FPS          float64 `json:"fps"`
	TotalReward  float32 `json:"total_reward"`
	Collisions   int     `json:"collisions"`
	Food         int     `json:"food"`
	PleasureMean float32 `json:"pleasure_mean"`
	ArousalMean  float32 `json:"arousal_mean"`

	HomeostasisMean float32 `json:"homeostasis_mean"`
}

// Snapshot copies the current world. It is valid in every state; before
// Initialize and after Destroy the entity lists are empty.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Tick:   g.tick,
		State:  g.state.String(),
		Width:  g.worldW,
		Height: g.worldH,
		Vision: VisionView{
			Cells: g.vision.Cells,
			Range: g.vision.Range,
			Angle: g.vision.Angle,
		},
		Stats: g.Stats(),
	}
	if g.world == nil {
		return s
	}

	query := g.agentFilter.Query()
	for query.Next() {
		pos, _, head, body, agent, affect, vision := query.Get()
		cells := make([]components.Color, len(vision.Cells))
		for i, c := range vision.Cells {
			cells[i] = c.Color
		}
		s.Agents = append(s.Agents, AgentView{
			ID:         agent.ID,
			X:          pos.X,
			Y:          pos.Y,
			Heading:    head.Angle,
			Radius:     body.Radius,
			Control:    agent.Control.String(),
			Health:     agent.Health,
			Energy:     agent.Energy,
			Reward:     agent.Reward,
			Collisions: agent.Collisions,
			Pleasure:   affect.Pleasure,
			Arousal:    affect.Arousal,
			Cells:      cells,

			Homeostasis: affect.Homeostasis,
		})
	}
	slices.SortFunc(s.Agents, func(a, b AgentView) int { return a.ID - b.ID })

	fq := g.foodFilter.Query()
	for fq.Next() {
		pos, body, _ := fq.Get()
		s.Food = append(s.Food, FoodView{X: pos.X, Y: pos.Y, Radius: body.Radius})
	}

	oq := g.obstacleFilter.Query()
	for oq.Next() {
		pos, _, body, obs := oq.Get()
		s.Obstacles = append(s.Obstacles, ObstacleView{X: pos.X, Y: pos.Y, Radius: body.Radius, Moving: obs.Moving})
	}
	return s
}

// Stats returns the running aggregates.
func (g *Game) Stats() Stats {
	s := Stats{
		SimTime:     g.simTime,
		FPS:         g.fps,
		TotalReward: g.totalReward,
		Collisions:  g.collisions,
		Food:        g.foodCount,
	}
	if g.world == nil {
		return s
	}

	var n int
	query := g.agentFilter.Query()
	for query.Next() {
		_, _, _, _, _, affect, _ := query.Get()
		s.PleasureMean += affect.Pleasure
		s.ArousalMean += affect.Arousal
		s.HomeostasisMean += affect.Homeostasis
		n++
	}
	if n > 0 {
		s.PleasureMean /= float32(n)
		s.ArousalMean /= float32(n)
		s.HomeostasisMean /= float32(n)
	}
	return s
}
