package control

import (
	"math"
	"testing"

	"github.com/pthm-cable/plankton/components"
)

func TestClampAction(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		raw  []float64
		want Action
	}{
		{"out of range", []float64{2, -1, 0.5}, Action{1, 0, 0.5, 0}},
		{"nan", []float64{nan, 0.3, nan}, Action{0, 0.3, 0, 0}},
		{"inf", []float64{math.Inf(1), math.Inf(-1), 1}, Action{0, 0, 1, 0}},
		{"short", []float64{0.7}, Action{0.7, 0, 0, 0}},
		{"long", []float64{0.1, 0.2, 0.3, 0.4, 0.9}, Action{0.1, 0.2, 0.3, 0.4}},
		{"empty", nil, Action{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampAction(tt.raw)
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("ClampAction(%v) = %v, want %v", tt.raw, got, tt.want)
					break
				}
			}
		})
	}
}

var testApply = ApplyParams{TurnSpeed: 3, TurnDeadZone: 0.3, MaxSpeed: 60, MoveDeadZone: 0.2}

func TestApplySteer(t *testing.T) {
	tests := []struct {
		name        string
		action      Action
		wantHeading float32
		wantSpeed   float32
	}{
		{"idle", Action{}, 0, 0},
		{"full forward", Action{0, 1, 0, 0}, 0, 60},
		{"half forward", Action{0, 0.5, 0, 0}, 0, 30},
		{"forward in dead zone", Action{0, 0.2, 0, 0}, 0, 0},
		{"left", Action{1, 0, 0, 0}, -0.3, 0},
		{"right", Action{0, 0, 1, 0}, 0.3, 0},
		{"turn in dead zone", Action{0.3, 0, 0, 0}, 0, 0},
		{"back", Action{0, 0, 0, 1}, 0, -60},
		{"forward wins over back", Action{0, 1, 0, 1}, 0, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := components.Heading{}
			vel := components.Velocity{X: 5, Y: 5}
			Apply(SteerDecision(tt.action), &h, &vel, 0.1, testApply)

			if math.Abs(float64(h.Angle-tt.wantHeading)) > 1e-5 {
				t.Errorf("heading = %f, want %f", h.Angle, tt.wantHeading)
			}
			speed := vel.X
			if tt.wantHeading != 0 {
				speed = float32(math.Hypot(float64(vel.X), float64(vel.Y)))
			}
			if math.Abs(float64(speed-tt.wantSpeed)) > 1e-4 {
				t.Errorf("speed = %f, want %f", speed, tt.wantSpeed)
			}
		})
	}
}

func TestApplyWalkAndHold(t *testing.T) {
	h := components.Heading{Angle: math.Pi / 2}
	vel := components.Velocity{}
	Apply(Decision{Kind: Walk, Turn: 0.1, Speed: 40}, &h, &vel, 0.016, testApply)

	want := float32(math.Pi/2 + 0.1)
	if math.Abs(float64(h.Angle-want)) > 1e-5 {
		t.Errorf("heading = %f, want %f", h.Angle, want)
	}
	if got := math.Hypot(float64(vel.X), float64(vel.Y)); math.Abs(got-40) > 1e-3 {
		t.Errorf("speed = %f, want 40", got)
	}

	before := vel
	Apply(Decision{Kind: Hold}, &h, &vel, 0.016, testApply)
	if vel != before {
		t.Errorf("hold changed velocity: %+v -> %+v", before, vel)
	}
}

func TestApplyNormalizesHeading(t *testing.T) {
	h := components.Heading{Angle: math.Pi - 0.01}
	vel := components.Velocity{}
	Apply(SteerDecision(Action{0, 0, 1, 0}), &h, &vel, 1, testApply)
	if h.Angle <= -math.Pi || h.Angle > math.Pi {
		t.Errorf("heading %f outside (-pi, pi]", h.Angle)
	}
}

func TestKeyState(t *testing.T) {
	k := NewKeyState()
	if k.Active() {
		t.Fatal("fresh key state is active")
	}

	if !k.Set("ArrowUp", true) {
		t.Fatal("ArrowUp not recognized")
	}
	if k.Set("q", true) {
		t.Error("q should not be recognized")
	}
	if got := k.Action(); got != (Action{0, 1, 0, 0}) {
		t.Errorf("forward action = %v", got)
	}

	k.Set("s", true)
	if got := k.Action(); got[ActForward] != 0 || got[ActBack] != 0 {
		t.Errorf("forward+back should cancel, got %v", got)
	}

	k.Set("a", true)
	k.Set("d", true)
	if k.Active() {
		t.Error("all opposing keys held should be inactive")
	}

	k.Set("d", false)
	if got := k.Action(); got[ActLeft] != 1 || got[ActRight] != 0 {
		t.Errorf("left action = %v", got)
	}

	k.Clear()
	if k.Active() || k.Down(KeyLeft) {
		t.Error("Clear left keys held")
	}

	var nilKeys *KeyState
	if nilKeys.Active() {
		t.Error("nil key state is active")
	}
}
