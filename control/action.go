package control

import (
	"math"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/config"
	"github.com/pthm-cable/plankton/systems"
)

// Action element indices.
const (
	ActLeft = iota
	ActForward
	ActRight
	ActBack
)

// Action holds steering intensities [left, forward, right, back], each in
// [0,1]. Only the keyboard sets Back.
type Action [4]float32

// ClampAction converts raw controller output into an Action. NaN and
// infinities become 0, everything else is clamped to [0,1]. Elements past
// the fourth are ignored; missing elements are 0.
func ClampAction[T float32 | float64](raw []T) Action {
	var a Action
	for i := 0; i < len(raw) && i < len(a); i++ {
		v := float64(raw[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		a[i] = float32(min(1, max(0, v)))
	}
	return a
}

// Clamped returns a with every element forced into [0,1].
func (a Action) Clamped() Action {
	return ClampAction(a[:])
}

// DecisionKind selects how a Decision is applied.
type DecisionKind uint8

const (
	// Steer applies the Action through the dead-zoned turn and drive rules.
	Steer DecisionKind = iota
	// Walk turns by Turn radians and drives at Speed.
	Walk
	// Hold leaves heading and velocity unchanged.
	Hold
)

// Decision is a controller's output for one agent on one tick.
type Decision struct {
	Kind   DecisionKind
	Action Action
	Turn   float32
	Speed  float32
}

// SteerDecision wraps an action.
func SteerDecision(a Action) Decision {
	return Decision{Kind: Steer, Action: a.Clamped()}
}

// ApplyParams holds the action application constants.
type ApplyParams struct {
	TurnSpeed    float32 // rad/s at full intensity
	TurnDeadZone float32
	MaxSpeed     float32
	MoveDeadZone float32
}

// ApplyParamsFromConfig extracts action constants.
func ApplyParamsFromConfig(cfg *config.Config) ApplyParams {
	cc := cfg.Control
	return ApplyParams{
		TurnSpeed:    float32(cc.TurnSpeed),
		TurnDeadZone: float32(cc.TurnDeadZone),
		MaxSpeed:     float32(cc.MaxSpeed),
		MoveDeadZone: float32(cc.MoveDeadZone),
	}
}

// Apply turns the heading and sets the velocity for one tick.
// Steer: left/right above the turn dead-zone rotate at TurnSpeed*intensity;
// forward above the move dead-zone drives at MaxSpeed*forward, otherwise
// back drives in reverse, otherwise the agent stops.
func Apply(d Decision, h *components.Heading, vel *components.Velocity, dt float32, p ApplyParams) {
	var speed float32
	switch d.Kind {
	case Hold:
		return
	case Walk:
		h.Angle = systems.NormalizeAngle(h.Angle + d.Turn)
		speed = d.Speed
	default:
		a := d.Action.Clamped()
		if a[ActLeft] > p.TurnDeadZone {
			h.Angle -= p.TurnSpeed * a[ActLeft] * dt
		}
		if a[ActRight] > p.TurnDeadZone {
			h.Angle += p.TurnSpeed * a[ActRight] * dt
		}
		h.Angle = systems.NormalizeAngle(h.Angle)

		switch {
		case a[ActForward] > p.MoveDeadZone:
			speed = p.MaxSpeed * a[ActForward]
		case a[ActBack] > p.MoveDeadZone:
			speed = -p.MaxSpeed * a[ActBack]
		}
	}

	sin, cos := math.Sincos(float64(h.Angle))
	vel.X = float32(cos) * speed
	vel.Y = float32(sin) * speed
}
