// Package components defines ECS components for the simulation.
package components

import "fmt"

// Position represents an entity's world position.
type Position struct {
	X, Y float32
}

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y float32
}

// Heading is an agent's facing angle in radians.
type Heading struct {
	Angle float32
}

// Body holds physical properties of an entity.
type Body struct {
	Radius float32
}

// Color is an RGB appearance with channels in [0,1].
type Color struct {
	R, G, B float32
}

// ControlType selects the decision source driving an agent.
type ControlType uint8

const (
	ControlNeural ControlType = iota
	ControlScript
	ControlKeyboard
	ControlRandom
)

func (c ControlType) String() string {
	switch c {
	case ControlNeural:
		return "neural"
	case ControlScript:
		return "script"
	case ControlKeyboard:
		return "keyboard"
	case ControlRandom:
		return "random"
	}
	return fmt.Sprintf("control(%d)", uint8(c))
}

// ParseControlType maps a config name to a ControlType. "snn" is accepted as
// an alias for neural.
func ParseControlType(s string) (ControlType, error) {
	switch s {
	case "neural", "snn":
		return ControlNeural, nil
	case "script":
		return ControlScript, nil
	case "keyboard":
		return ControlKeyboard, nil
	case "random":
		return ControlRandom, nil
	}
	return 0, fmt.Errorf("unknown control type %q", s)
}

// Agent holds per-agent bookkeeping.
type Agent struct {
	ID         int // Stable index, also the key into per-agent controller state
	Control    ControlType
	Health     float32
	Energy     float32
	Reward     float32 // Cumulative, never decreases
	Collisions int
}

// Affect holds the two decaying modulation signals.
type Affect struct {
	Pleasure float32 // Reward history, roughly [-1,1]
	Arousal  float32 // Threat history, [0,1]

	Homeostasis float32 // Pulled back to a set point every tick, [0,1]
}

// VisionCell is one angular bin of the vision cone.
type VisionCell struct {
	Angle   float32 // Centre angle relative to heading
	Color   Color
	Closest float32 // Distance of the winning entity during resolution
}

// Vision holds an agent's cone cells and the flattened sensory vector.
type Vision struct {
	Cells   []VisionCell
	Sensory []float32 // len(Cells)*3, ordered R,G,B per cell
}

// Food marks a consumable entity.
type Food struct {
	Nutrition float32
}

// Obstacle marks a solid entity. Moving obstacles bounce off the world bounds.
type Obstacle struct {
	Moving bool
}
