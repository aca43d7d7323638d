// Package control turns perception into movement: a shared key-state table,
// action clamping and application, and the four controller kinds.
package control

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
	"github.com/pthm-cable/plankton/neural"
)

// Input is what a controller sees for one agent on one tick.
type Input struct {
	Agent   int
	Sensory []float32
	Affect  components.Affect
	Reward  float32 // Cumulative
}

// Controller decides one agent's movement each tick.
type Controller interface {
	Kind() components.ControlType
	Decide(in Input) (Decision, error)
}

// NeuralController drives an agent from its own Cortical Column. Affect sets
// the column's modulation before every decision.
type NeuralController struct {
	column     *neural.CorticalColumn
	mod        neural.Modulator
	iterations int
	out        []float32
}

// NewNeuralController wraps a column. The column's input layer must match
// the sensory vector length.
func NewNeuralController(column *neural.CorticalColumn, mod neural.Modulator, iterations, sensoryLen int) (*NeuralController, error) {
	if column.InputSize() != sensoryLen {
		return nil, fmt.Errorf("%w: network expects %d inputs, sensory vector has %d",
			neural.ErrInputSize, column.InputSize(), sensoryLen)
	}
	return &NeuralController{
		column:     column,
		mod:        mod,
		iterations: max(1, iterations),
		out:        make([]float32, column.OutputSize()),
	}, nil
}

func (c *NeuralController) Kind() components.ControlType { return components.ControlNeural }

// Column returns the underlying network.
func (c *NeuralController) Column() *neural.CorticalColumn { return c.column }

func (c *NeuralController) Decide(in Input) (Decision, error) {
	c.column.SetModulation(c.mod.Modulation(in.Affect.Pleasure, in.Affect.Arousal))

	out, err := c.column.Decide(in.Sensory, c.iterations, c.out)
	if err != nil {
		return Decision{}, err
	}
	c.out = out
	return SteerDecision(ClampAction(out[:min(3, len(out))])), nil
}

// KeyboardController reads the shared key table.
type KeyboardController struct {
	keys *KeyState
}

// NewKeyboardController binds a controller to a key table.
func NewKeyboardController(keys *KeyState) *KeyboardController {
	return &KeyboardController{keys: keys}
}

func (c *KeyboardController) Kind() components.ControlType { return components.ControlKeyboard }

func (c *KeyboardController) Decide(Input) (Decision, error) {
	return SteerDecision(c.keys.Action()), nil
}

// RandomParams configures the random walk.
type RandomParams struct {
	TurnProb float32 // Per-tick chance of a heading jitter
	TurnMax  float32 // Full width of the jitter interval
	Speed    float32
}

// RandomParamsFromConfig extracts random walk constants.
func RandomParamsFromConfig(cfg *config.Config) RandomParams {
	return RandomParams{
		TurnProb: float32(cfg.Control.RandomTurnProb),
		TurnMax:  float32(cfg.Control.RandomTurnMax),
		Speed:    float32(cfg.Control.RandomSpeed),
	}
}

// RandomController wanders: it occasionally jitters the heading and always
// drives forward at a fixed speed.
type RandomController struct {
	params RandomParams
	rng    *rand.Rand
}

// NewRandomController creates a random walker drawing from rng.
func NewRandomController(p RandomParams, rng *rand.Rand) *RandomController {
	return &RandomController{params: p, rng: rng}
}

func (c *RandomController) Kind() components.ControlType { return components.ControlRandom }

func (c *RandomController) Decide(Input) (Decision, error) {
	var turn float32
	if c.rng.Float32() < c.params.TurnProb {
		turn = (c.rng.Float32() - 0.5) * c.params.TurnMax
	}
	return Decision{Kind: Walk, Turn: turn, Speed: c.params.Speed}, nil
}

// Dispatcher routes each agent to its controller and applies the manual
// override: while override is enabled and any steering key is held, the
// keyboard preempts neural and script controllers.
type Dispatcher struct {
	keys     *KeyState
	override bool
	keyboard *KeyboardController
}

// NewDispatcher creates a dispatcher reading keys.
func NewDispatcher(keys *KeyState, override bool) *Dispatcher {
	return &Dispatcher{
		keys:     keys,
		override: override,
		keyboard: NewKeyboardController(keys),
	}
}

// SetOverride toggles manual override.
func (d *Dispatcher) SetOverride(on bool) {
	d.override = on
}

// Override reports whether manual override is enabled.
func (d *Dispatcher) Override() bool {
	return d.override
}

// Decide returns c's decision for this tick, or the keyboard's when the
// override applies.
func (d *Dispatcher) Decide(c Controller, in Input) (Decision, error) {
	if d.override && d.keys.Active() {
		switch c.Kind() {
		case components.ControlNeural, components.ControlScript:
			return d.keyboard.Decide(in)
		}
	}
	return c.Decide(in)
}
