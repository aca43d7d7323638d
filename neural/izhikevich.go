package neural

import "math"

// IzhParams are the four Izhikevich constants plus the spike threshold.
type IzhParams struct {
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	C         float64 `json:"c"` // Post-spike reset potential
	D         float64 `json:"d"` // Post-spike recovery increment
	Threshold float64 `json:"threshold"`
}

// Preset firing patterns.
var (
	PresetRegular    = IzhParams{A: 0.02, B: 0.2, C: -65, D: 8, Threshold: 30}
	PresetChattering = IzhParams{A: 0.02, B: 0.2, C: -50, D: 2, Threshold: 30}
	PresetFast       = IzhParams{A: 0.1, B: 0.2, C: -65, D: 2, Threshold: 30}
)

// PresetByName returns a preset by name. "intrinsic" is an alias for
// chattering.
func PresetByName(name string) (IzhParams, bool) {
	switch name {
	case "regular", "":
		return PresetRegular, true
	case "chattering", "intrinsic":
		return PresetChattering, true
	case "fast":
		return PresetFast, true
	}
	return IzhParams{}, false
}

// NeuronState is the mutable state of one point neuron.
type NeuronState struct {
	V         float64 `json:"v"`
	U         float64 `json:"u"`
	Spike     bool    `json:"spike"`
	LastSpike float64 `json:"last_spike"`
	HasSpiked bool    `json:"has_spiked"`
}

// RestingState returns the initial state: v=-65, u=0.
func RestingState() NeuronState {
	return NeuronState{V: -65}
}

// Step integrates one forward-Euler step of the Izhikevich model at time now
// and reports whether the neuron fired. A firing neuron always ends the step
// with V == C.
func Step(p IzhParams, s *NeuronState, current, dt, now float64) bool {
	v, u := s.V, s.U
	s.V = v + dt*(0.04*v*v+5*v+140-u+current)
	s.U = u + dt*p.A*(p.B*v-u)

	if s.V >= p.Threshold {
		s.V = p.C
		s.U += p.D
		s.Spike = true
		s.LastSpike = now
		s.HasSpiked = true
		return true
	}
	s.Spike = false
	return false
}

// SpikeCurrent returns the current delivered by a presynaptic spike at
// spikeTime through a synapse with the given weight and delay. Nothing
// arrives before the delay has elapsed.
func SpikeCurrent(weight, delay, spikeTime, now, tau float64) float64 {
	elapsed := now - spikeTime - delay
	if elapsed < 0 {
		return 0
	}
	return weight * math.Exp(-elapsed/tau)
}

// sigmoid squashes x into (0,1).
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
