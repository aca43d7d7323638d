package control

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/plankton/components"
	"github.com/pthm-cable/plankton/neural"
)

func testColumn(t *testing.T, inputs int) *neural.CorticalColumn {
	t.Helper()
	col, err := neural.NewCorticalColumn(neural.ColumnParams{
		InputSize:   inputs,
		HiddenSizes: []int{8},
		OutputSize:  3,
		DT:          0.01,
		VRest:       -65,
		VReset:      -70,
		VThreshold:  -55,
		Tau:         20,
		Refractory:  2,
		OutputGain:  2,
	}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	return col
}

var testMod = neural.Modulator{ScalingBase: 0.8, ScalingGain: 0.4, ThresholdGain: 10, ThresholdPivot: 0.5}

func TestNeuralControllerInputSize(t *testing.T) {
	_, err := NewNeuralController(testColumn(t, 12), testMod, 5, 9)
	if !errors.Is(err, neural.ErrInputSize) {
		t.Errorf("err = %v, want ErrInputSize", err)
	}
}

func TestNeuralControllerDecide(t *testing.T) {
	c, err := NewNeuralController(testColumn(t, 6), testMod, 5, 6)
	if err != nil {
		t.Fatal(err)
	}

	in := Input{
		Sensory: []float32{40, 10, 0, 25, 5, 30},
		Affect:  components.Affect{Pleasure: 0.5, Arousal: 0.2},
	}
	for i := 0; i < 20; i++ {
		d, err := c.Decide(in)
		if err != nil {
			t.Fatal(err)
		}
		if d.Kind != Steer {
			t.Fatalf("kind = %d, want Steer", d.Kind)
		}
		for j, v := range d.Action {
			if v < 0 || v > 1 {
				t.Fatalf("action[%d] = %f outside [0,1]", j, v)
			}
		}
		if d.Action[ActBack] != 0 {
			t.Fatal("neural controller set back")
		}
	}

	scaling, adj := c.Column().Modulation()
	if math.Abs(float64(scaling-1)) > 1e-5 || math.Abs(float64(adj+3)) > 1e-5 {
		t.Errorf("modulation = (%f, %f), want (1, -3)", scaling, adj)
	}

	if _, err := c.Decide(Input{Sensory: make([]float32, 4)}); !errors.Is(err, neural.ErrInputSize) {
		t.Errorf("short sensory err = %v", err)
	}
}

func TestRandomController(t *testing.T) {
	always := NewRandomController(RandomParams{TurnProb: 1, TurnMax: 0.5, Speed: 40}, rand.New(rand.NewSource(3)))
	for i := 0; i < 100; i++ {
		d, _ := always.Decide(Input{})
		if d.Kind != Walk || d.Speed != 40 {
			t.Fatalf("decision = %+v", d)
		}
		if d.Turn < -0.25 || d.Turn > 0.25 {
			t.Fatalf("turn %f outside [-0.25, 0.25]", d.Turn)
		}
	}

	never := NewRandomController(RandomParams{TurnProb: 0, TurnMax: 0.5, Speed: 40}, rand.New(rand.NewSource(3)))
	for i := 0; i < 100; i++ {
		if d, _ := never.Decide(Input{}); d.Turn != 0 {
			t.Fatalf("turn = %f with zero probability", d.Turn)
		}
	}
}

func TestDispatcherOverride(t *testing.T) {
	keys := NewKeyState()
	nc, err := NewNeuralController(testColumn(t, 3), testMod, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	rc := NewRandomController(RandomParams{Speed: 40}, rand.New(rand.NewSource(1)))
	in := Input{Sensory: []float32{0, 0, 0}}

	d := NewDispatcher(keys, true)
	keys.Set("w", true)

	got, _ := d.Decide(nc, in)
	if got.Kind != Steer || got.Action != (Action{0, 1, 0, 0}) {
		t.Errorf("override decision = %+v, want keyboard forward", got)
	}

	got, _ = d.Decide(rc, in)
	if got.Kind != Walk {
		t.Errorf("random agent was overridden: %+v", got)
	}

	d.SetOverride(false)
	got, _ = d.Decide(nc, in)
	if got.Action == (Action{0, 1, 0, 0}) {
		t.Error("keyboard applied with override off")
	}

	d.SetOverride(true)
	keys.Clear()
	got, _ = d.Decide(nc, in)
	if got.Action != (Action{}) {
		t.Errorf("zero sensory neural action = %v, want zero", got.Action)
	}
}
