package neural

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func testColumnParams(inputs int) ColumnParams {
	return ColumnParams{
		InputSize:   inputs,
		HiddenSizes: []int{16, 8},
		OutputSize:  3,
		DT:          0.01,
		VRest:       -65,
		VReset:      -70,
		VThreshold:  -55,
		Tau:         20,
		Refractory:  2,
		OutputGain:  2,
	}
}

func TestNewCorticalColumn(t *testing.T) {
	c, err := NewCorticalColumn(testColumnParams(12), rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewCorticalColumn: %v", err)
	}

	sizes := c.LayerSizes()
	want := []int{12, 16, 8, 3}
	if len(sizes) != len(want) {
		t.Fatalf("sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("sizes[%d] = %d, want %d", i, sizes[i], want[i])
		}
	}

	// Weights lie within the Xavier bound for each layer
	for l, w := range c.weights {
		bound := float32(math.Sqrt(2.0/float64(w.Rows+w.Cols))) + 1e-6
		for _, v := range w.Data {
			if v < -bound || v > bound {
				t.Fatalf("layer %d weight %f outside +-%f", l, v, bound)
			}
		}
	}

	scaling, adj := c.Modulation()
	if scaling != 1 || adj != 0 {
		t.Errorf("initial modulation = (%f, %f), want (1, 0)", scaling, adj)
	}
}

func TestNewCorticalColumnInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *ColumnParams)
	}{
		{"zero input", func(p *ColumnParams) { p.InputSize = 0 }},
		{"zero output", func(p *ColumnParams) { p.OutputSize = 0 }},
		{"zero hidden", func(p *ColumnParams) { p.HiddenSizes = []int{4, 0} }},
		{"threshold below rest", func(p *ColumnParams) { p.VThreshold = -80 }},
		{"zero tau", func(p *ColumnParams) { p.Tau = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testColumnParams(6)
			tt.mutate(&p)
			if _, err := NewCorticalColumn(p, rand.New(rand.NewSource(1))); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestForwardInputSize(t *testing.T) {
	c, err := NewCorticalColumn(testColumnParams(12), rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Forward(make([]float32, 11), nil)
	if !errors.Is(err, ErrInputSize) {
		t.Errorf("err = %v, want ErrInputSize", err)
	}
}

func TestForwardOutputRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c, err := NewCorticalColumn(testColumnParams(30), rng)
	if err != nil {
		t.Fatal(err)
	}
	c.SetModulation(1.5, -8)

	inputs := make([]float32, 30)
	var out []float32
	for step := 0; step < 200; step++ {
		for i := range inputs {
			inputs[i] = rng.Float32() * 50
		}
		out, err = c.Forward(inputs, out)
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 3 {
			t.Fatalf("len(out) = %d, want 3", len(out))
		}
		for i, v := range out {
			if v < 0 || v > 1 || math.IsNaN(float64(v)) {
				t.Fatalf("step %d output[%d] = %f outside [0,1]", step, i, v)
			}
		}
	}
}

func TestForwardZeroInputStaysAtRest(t *testing.T) {
	c, err := NewCorticalColumn(testColumnParams(6), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Decide(make([]float32, 6), 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("output[%d] = %f, want 0", i, v)
		}
	}
}

func TestForwardDeterministic(t *testing.T) {
	a, _ := NewCorticalColumn(testColumnParams(9), rand.New(rand.NewSource(99)))
	b, _ := NewCorticalColumn(testColumnParams(9), rand.New(rand.NewSource(99)))

	inputs := make([]float32, 9)
	for i := range inputs {
		inputs[i] = float32(i) * 3
	}

	for step := 0; step < 20; step++ {
		oa, err := a.Forward(inputs, nil)
		if err != nil {
			t.Fatal(err)
		}
		ob, _ := b.Forward(inputs, nil)
		for i := range oa {
			if oa[i] != ob[i] {
				t.Fatalf("step %d output[%d]: %f != %f", step, i, oa[i], ob[i])
			}
		}
	}
}

func TestResetRestoresInitialResponse(t *testing.T) {
	c, _ := NewCorticalColumn(testColumnParams(9), rand.New(rand.NewSource(5)))
	inputs := make([]float32, 9)
	for i := range inputs {
		inputs[i] = 20
	}

	first, _ := c.Forward(inputs, nil)
	first = append([]float32(nil), first...)
	for i := 0; i < 10; i++ {
		c.Forward(inputs, nil)
	}
	c.Reset()
	again, _ := c.Forward(inputs, nil)

	for i := range first {
		if first[i] != again[i] {
			t.Errorf("output[%d] after reset = %f, want %f", i, again[i], first[i])
		}
	}
}

func TestDecideSingleIterationMatchesForward(t *testing.T) {
	a, _ := NewCorticalColumn(testColumnParams(6), rand.New(rand.NewSource(11)))
	b, _ := NewCorticalColumn(testColumnParams(6), rand.New(rand.NewSource(11)))
	inputs := []float32{10, 0, 5, 30, 1, 2}

	fa, _ := a.Forward(inputs, nil)
	db, err := b.Decide(inputs, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range fa {
		if fa[i] != db[i] {
			t.Errorf("output[%d]: Decide %f, Forward %f", i, db[i], fa[i])
		}
	}
}

func TestModulation(t *testing.T) {
	m := Modulator{ScalingBase: 0.8, ScalingGain: 0.4, ThresholdGain: 10, ThresholdPivot: 0.5}

	tests := []struct {
		name              string
		pleasure, arousal float32
		wantScale, wantTh float32
	}{
		{"neutral", 0, 0.5, 0.8, 0},
		{"rewarded", 1, 0.5, 1.2, 0},
		{"punished calm", -1, 0, 0.4, -5},
		{"stressed", 0, 1, 0.8, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, th := m.Modulation(tt.pleasure, tt.arousal)
			if math.Abs(float64(s-tt.wantScale)) > 1e-5 || math.Abs(float64(th-tt.wantTh)) > 1e-5 {
				t.Errorf("Modulation(%f, %f) = (%f, %f), want (%f, %f)",
					tt.pleasure, tt.arousal, s, th, tt.wantScale, tt.wantTh)
			}
		})
	}
}

func BenchmarkForward(b *testing.B) {
	p := testColumnParams(108)
	p.HiddenSizes = []int{128, 64, 32}
	c, _ := NewCorticalColumn(p, rand.New(rand.NewSource(1)))
	inputs := make([]float32, 108)
	for i := range inputs {
		inputs[i] = 0.5
	}
	out := make([]float32, 3)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out, _ = c.Forward(inputs, out)
	}
}
