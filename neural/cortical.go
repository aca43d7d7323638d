// Package neural provides the two neuron engines: a rate-coded leaky
// integrator network that drives agents, and an Izhikevich point-neuron
// graph evaluated for interactive inspection.
package neural

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/plankton/config"
)

// ErrInputSize reports a sensory vector whose length does not match the
// network's input layer.
var ErrInputSize = errors.New("neural: input size mismatch")

// ColumnParams describes a Cortical Column network.
type ColumnParams struct {
	InputSize   int
	HiddenSizes []int
	OutputSize  int
	DT          float32

	VRest      float32
	VReset     float32
	VThreshold float32
	Tau        float32 // Membrane time constant
	Refractory float32 // Refractory period after a spike
	OutputGain float32 // Normalized output is multiplied by this, then clamped to 1
}

// ColumnParamsFromConfig builds network parameters sized for the current
// sensory vector.
func ColumnParamsFromConfig(cfg *config.Config) ColumnParams {
	nc := cfg.Neural
	return ColumnParams{
		InputSize:   cfg.Derived.SensoryLen,
		HiddenSizes: append([]int(nil), nc.HiddenLayers...),
		OutputSize:  nc.Outputs,
		DT:          float32(nc.DT),
		VRest:       float32(nc.VRest),
		VReset:      float32(nc.VReset),
		VThreshold:  float32(nc.VThreshold),
		Tau:         float32(nc.Tau),
		Refractory:  float32(nc.Refractory),
		OutputGain:  float32(nc.OutputGain),
	}
}

// CorticalColumn is a layered leaky integrate-and-fire network. Weights are
// fixed after construction; only the two modulation scalars change.
type CorticalColumn struct {
	params ColumnParams
	sizes  []int

	weights []blas32.General // layer l: sizes[l+1] rows x sizes[l] cols
	biases  [][]float32

	potential  [][]float32
	spikes     [][]float32
	refractory [][]float32
	current    [][]float32

	scaling      float32
	thresholdAdj float32

	sum []float32 // Decide accumulator
}

// NewCorticalColumn builds a network with Xavier-scaled uniform weights,
// zero biases and every neuron at rest.
func NewCorticalColumn(p ColumnParams, rng *rand.Rand) (*CorticalColumn, error) {
	if p.InputSize < 1 || p.OutputSize < 1 {
		return nil, fmt.Errorf("neural: layer sizes must be positive (input %d, output %d)", p.InputSize, p.OutputSize)
	}
	for _, h := range p.HiddenSizes {
		if h < 1 {
			return nil, fmt.Errorf("neural: hidden layer size must be positive, got %d", h)
		}
	}
	if p.Tau <= 0 || p.VThreshold <= p.VRest {
		return nil, fmt.Errorf("neural: invalid membrane constants (tau %g, rest %g, threshold %g)", p.Tau, p.VRest, p.VThreshold)
	}

	sizes := make([]int, 0, len(p.HiddenSizes)+2)
	sizes = append(sizes, p.InputSize)
	sizes = append(sizes, p.HiddenSizes...)
	sizes = append(sizes, p.OutputSize)

	c := &CorticalColumn{
		params:  p,
		sizes:   sizes,
		scaling: 1,
		sum:     make([]float32, p.OutputSize),
	}

	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := float32(math.Sqrt(2.0 / float64(in+out)))

		data := make([]float32, in*out)
		for i := range data {
			data[i] = (rng.Float32() - 0.5) * 2 * scale
		}
		c.weights = append(c.weights, blas32.General{Rows: out, Cols: in, Stride: in, Data: data})
		c.biases = append(c.biases, make([]float32, out))

		c.potential = append(c.potential, make([]float32, out))
		c.spikes = append(c.spikes, make([]float32, out))
		c.refractory = append(c.refractory, make([]float32, out))
		c.current = append(c.current, make([]float32, out))
	}
	c.Reset()

	return c, nil
}

// InputSize returns the length of the input layer.
func (c *CorticalColumn) InputSize() int {
	return c.sizes[0]
}

// OutputSize returns the length of the output layer.
func (c *CorticalColumn) OutputSize() int {
	return c.sizes[len(c.sizes)-1]
}

// LayerSizes returns the layer widths, input first.
func (c *CorticalColumn) LayerSizes() []int {
	return append([]int(nil), c.sizes...)
}

// SetModulation sets the input gain and the firing threshold offset.
func (c *CorticalColumn) SetModulation(scaling, thresholdAdj float32) {
	c.scaling = scaling
	c.thresholdAdj = thresholdAdj
}

// Modulation returns the current input gain and threshold offset.
func (c *CorticalColumn) Modulation() (scaling, thresholdAdj float32) {
	return c.scaling, c.thresholdAdj
}

// Reset returns every neuron to rest and clears spikes and refractory timers.
func (c *CorticalColumn) Reset() {
	for l := range c.potential {
		for i := range c.potential[l] {
			c.potential[l][i] = c.params.VRest
			c.spikes[l][i] = 0
			c.refractory[l][i] = 0
		}
	}
}

// Forward runs one integration step through every layer and writes the
// output activity in [0,1] into out, which is grown if needed.
func (c *CorticalColumn) Forward(inputs, out []float32) ([]float32, error) {
	if len(inputs) != c.sizes[0] {
		return out, fmt.Errorf("%w: want %d, got %d", ErrInputSize, c.sizes[0], len(inputs))
	}

	p := &c.params
	threshold := p.VThreshold + c.thresholdAdj
	x := blas32.Vector{N: len(inputs), Inc: 1, Data: inputs}

	for l, w := range c.weights {
		cur := c.current[l]
		copy(cur, c.biases[l])
		// cur = scaling*(W*x + b)
		y := blas32.Vector{N: len(cur), Inc: 1, Data: cur}
		blas32.Gemv(blas.NoTrans, c.scaling, w, x, c.scaling, y)

		v := c.potential[l]
		spikes := c.spikes[l]
		refr := c.refractory[l]
		for i := range v {
			v[i] += ((p.VRest-v[i])/p.Tau + cur[i]) * p.DT

			if v[i] >= threshold && refr[i] <= 0 {
				spikes[i] = 1
				v[i] = p.VReset
				refr[i] = p.Refractory
			} else {
				spikes[i] = 0
				refr[i] = max(0, refr[i]-p.DT)
			}
		}

		x = blas32.Vector{N: len(spikes), Inc: 1, Data: spikes}
	}

	last := c.potential[len(c.potential)-1]
	if cap(out) < len(last) {
		out = make([]float32, len(last))
	}
	out = out[:len(last)]
	span := p.VThreshold - p.VRest
	for i, v := range last {
		norm := max(0, (v-p.VRest)/span)
		out[i] = min(1, norm*p.OutputGain)
	}
	return out, nil
}

// Decide runs Forward iterations times and writes the mean output into out.
func (c *CorticalColumn) Decide(inputs []float32, iterations int, out []float32) ([]float32, error) {
	if iterations < 1 {
		iterations = 1
	}
	for i := range c.sum {
		c.sum[i] = 0
	}

	var err error
	for it := 0; it < iterations; it++ {
		out, err = c.Forward(inputs, out)
		if err != nil {
			return out, err
		}
		for i, v := range out {
			c.sum[i] += v
		}
	}

	inv := 1 / float32(iterations)
	for i := range out {
		out[i] = c.sum[i] * inv
	}
	return out, nil
}

// Modulator maps affect onto the network's two runtime scalars.
type Modulator struct {
	ScalingBase    float32
	ScalingGain    float32
	ThresholdGain  float32
	ThresholdPivot float32
}

// ModulatorFromConfig extracts affect coupling constants.
func ModulatorFromConfig(cfg *config.Config) Modulator {
	nc := cfg.Neural
	return Modulator{
		ScalingBase:    float32(nc.ScalingBase),
		ScalingGain:    float32(nc.ScalingGain),
		ThresholdGain:  float32(nc.ThresholdGain),
		ThresholdPivot: float32(nc.ThresholdPivot),
	}
}

// Modulation returns the synaptic scaling and threshold adjustment for the
// given affect. Reward history raises excitability; stress shifts the
// threshold.
func (m Modulator) Modulation(pleasure, arousal float32) (scaling, thresholdAdj float32) {
	scaling = m.ScalingBase + pleasure*m.ScalingGain
	thresholdAdj = (arousal - m.ThresholdPivot) * m.ThresholdGain
	return scaling, thresholdAdj
}
