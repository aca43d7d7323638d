package neural

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/plankton/config"
)

// NodeKind distinguishes graph node roles.
type NodeKind uint8

const (
	KindNeuron   NodeKind = iota
	KindReceptor          // Sensory input node; each port carries a voltage
	KindEffector          // Output node; each port accumulates pulses
)

func (k NodeKind) String() string {
	switch k {
	case KindNeuron:
		return "neuron"
	case KindReceptor:
		return "receptor"
	case KindEffector:
		return "effector"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Graph edit errors.
var (
	ErrUnknownID   = errors.New("neural: unknown id")
	ErrDuplicateID = errors.New("neural: duplicate id")
	ErrBadSynapse  = errors.New("neural: invalid synapse")
)

// maxPulse caps an effector port's accumulated pulse.
const maxPulse = 100

// Port is a receptor input or an effector output.
type Port struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Voltage float64 `json:"voltage,omitempty"` // Receptor input voltage
	Pulse   float64 `json:"pulse,omitempty"`   // Effector accumulation in [0,100]
	Decay   float64 `json:"decay,omitempty"`   // Effector per-step pulse retention
}

// Node is a neuron, receptor or effector in the editable graph.
type Node struct {
	ID     string      `json:"id"`
	Label  string      `json:"label"`
	X, Y   float64     `json:"-"`
	Kind   NodeKind    `json:"kind"`
	Params IzhParams   `json:"params"`
	State  NeuronState `json:"state"`
	Ports  []Port      `json:"ports,omitempty"`
}

// Synapse connects a neuron or receptor port to a neuron or effector port.
type Synapse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
	Delay  float64 `json:"delay"` // Must be positive
}

// GraphParams holds the engine's time constants.
type GraphParams struct {
	DT           float64
	Tau          float64 // Post-spike current decay
	OutputWindow float64 // Spikes older than this do not reach outputs
}

// GraphParamsFromConfig extracts engine parameters.
func GraphParamsFromConfig(cfg *config.Config) GraphParams {
	return GraphParams{
		DT:           cfg.Spiking.DT,
		Tau:          cfg.Spiking.Tau,
		OutputWindow: cfg.Spiking.OutputWindow,
	}
}

type portRef struct {
	node *Node
	idx  int
}

// Graph is an Izhikevich network built from editable nodes and synapses.
// Every step computes all input currents from the previous state before any
// neuron is integrated, so results do not depend on node order.
type Graph struct {
	params   GraphParams
	now      float64
	nodes    []*Node
	byID     map[string]*Node
	ports    map[string]portRef
	synapses []Synapse
	currents []float64
	fired    []string
}

// NewGraph creates an empty graph.
func NewGraph(p GraphParams) *Graph {
	return &Graph{
		params: p,
		byID:   make(map[string]*Node),
		ports:  make(map[string]portRef),
	}
}

// DefaultGraph returns the starter topology: a vision receptor with one
// R, G and B input per cell, two regular-spiking neurons and a six-output
// effector. It has no synapses.
func DefaultGraph(p GraphParams, cells int) *Graph {
	g := NewGraph(p)

	inputs := make([]Port, 0, cells*3)
	for _, ch := range []string{"R", "G", "B"} {
		for i := 0; i < cells; i++ {
			inputs = append(inputs, Port{ID: VisionInputID(ch, i), Label: fmt.Sprintf("%s%d", ch, i)})
		}
	}
	// IDs are fresh, so these cannot fail.
	_ = g.AddReceptor("receptor-1", "vision", inputs)
	_ = g.AddNeuron("neuron-1", "neuron 1", 50, 150, PresetRegular)
	_ = g.AddNeuron("neuron-2", "neuron 2", 50, 250, PresetRegular)

	outputs := []Port{
		{ID: "output-left", Label: "left", Decay: 0.85},
		{ID: "output-forward", Label: "forward", Decay: 0.85},
		{ID: "output-right", Label: "right", Decay: 0.85},
		{ID: "output-motivation", Label: "motivation", Decay: 0.85},
		{ID: "output-stress", Label: "stress", Decay: 0.85},
		{ID: "output-homeostasis", Label: "homeostasis", Decay: 0.85},
	}
	_ = g.AddEffector("effector-1", "effector", outputs)
	return g
}

// VisionInputID names the receptor port for a colour channel of a cell.
func VisionInputID(channel string, cell int) string {
	return fmt.Sprintf("vision-%s-%d", channel, cell)
}

// Now returns the graph's simulated time.
func (g *Graph) Now() float64 {
	return g.now
}

func (g *Graph) claim(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrUnknownID)
	}
	if _, ok := g.byID[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if _, ok := g.ports[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	return nil
}

func (g *Graph) addNode(n *Node) error {
	if err := g.claim(n.ID); err != nil {
		return err
	}
	seen := make(map[string]bool, len(n.Ports))
	for _, p := range n.Ports {
		if err := g.claim(p.ID); err != nil || seen[p.ID] || p.ID == n.ID {
			return fmt.Errorf("%w: port %s", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = true
	}

	g.nodes = append(g.nodes, n)
	g.byID[n.ID] = n
	for i := range n.Ports {
		g.ports[n.Ports[i].ID] = portRef{node: n, idx: i}
	}
	return nil
}

// AddNeuron adds a point neuron at rest.
func (g *Graph) AddNeuron(id, label string, x, y float64, params IzhParams) error {
	return g.addNode(&Node{ID: id, Label: label, X: x, Y: y, Kind: KindNeuron, Params: params, State: RestingState()})
}

// AddReceptor adds a receptor whose ports carry input voltages.
func (g *Graph) AddReceptor(id, label string, inputs []Port) error {
	return g.addNode(&Node{ID: id, Label: label, Kind: KindReceptor, Ports: append([]Port(nil), inputs...)})
}

// AddEffector adds an effector whose ports accumulate pulses.
func (g *Graph) AddEffector(id, label string, outputs []Port) error {
	return g.addNode(&Node{ID: id, Label: label, Kind: KindEffector, Ports: append([]Port(nil), outputs...)})
}

// RemoveNode deletes a node, its ports and every synapse touching them.
func (g *Graph) RemoveNode(id string) error {
	n, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownID, id)
	}

	gone := map[string]bool{id: true}
	for _, p := range n.Ports {
		gone[p.ID] = true
		delete(g.ports, p.ID)
	}
	delete(g.byID, id)

	for i, other := range g.nodes {
		if other == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}

	kept := g.synapses[:0]
	for _, s := range g.synapses {
		if !gone[s.From] && !gone[s.To] {
			kept = append(kept, s)
		}
	}
	g.synapses = kept
	return nil
}

// Connect adds a synapse. Sources are neurons or receptor ports; targets
// are neurons or effector ports. Delay must be positive and weight finite.
func (g *Graph) Connect(from, to string, weight, delay float64) error {
	if !(delay > 0) || math.IsInf(delay, 0) {
		return fmt.Errorf("%w: delay must be positive, got %g", ErrBadSynapse, delay)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: weight must be finite, got %g", ErrBadSynapse, weight)
	}
	if !g.isSource(from) {
		return fmt.Errorf("%w: %s is not a neuron or receptor input", ErrBadSynapse, from)
	}
	if !g.isTarget(to) {
		return fmt.Errorf("%w: %s is not a neuron or effector output", ErrBadSynapse, to)
	}
	for i := range g.synapses {
		if g.synapses[i].From == from && g.synapses[i].To == to {
			g.synapses[i].Weight = weight
			g.synapses[i].Delay = delay
			return nil
		}
	}
	g.synapses = append(g.synapses, Synapse{From: from, To: to, Weight: weight, Delay: delay})
	return nil
}

// Disconnect removes the synapse between from and to.
func (g *Graph) Disconnect(from, to string) error {
	for i, s := range g.synapses {
		if s.From == from && s.To == to {
			g.synapses = append(g.synapses[:i], g.synapses[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: synapse %s->%s", ErrUnknownID, from, to)
}

func (g *Graph) isSource(id string) bool {
	if n, ok := g.byID[id]; ok {
		return n.Kind == KindNeuron
	}
	ref, ok := g.ports[id]
	return ok && ref.node.Kind == KindReceptor
}

func (g *Graph) isTarget(id string) bool {
	if n, ok := g.byID[id]; ok {
		return n.Kind == KindNeuron
	}
	ref, ok := g.ports[id]
	return ok && ref.node.Kind == KindEffector
}

// SetParams replaces a neuron's Izhikevich constants.
func (g *Graph) SetParams(id string, p IzhParams) error {
	n, ok := g.byID[id]
	if !ok || n.Kind != KindNeuron {
		return fmt.Errorf("%w: neuron %s", ErrUnknownID, id)
	}
	n.Params = p
	return nil
}

// SetInput sets a receptor port's voltage.
func (g *Graph) SetInput(id string, voltage float64) error {
	ref, ok := g.ports[id]
	if !ok || ref.node.Kind != KindReceptor {
		return fmt.Errorf("%w: receptor input %s", ErrUnknownID, id)
	}
	ref.node.Ports[ref.idx].Voltage = voltage
	return nil
}

// SetVisionInputs copies a flattened R,G,B sensory vector onto the
// vision-<channel>-<cell> receptor ports. Missing ports are skipped.
func (g *Graph) SetVisionInputs(sensory []float32) {
	channels := [3]string{"R", "G", "B"}
	for i, v := range sensory {
		ref, ok := g.ports[VisionInputID(channels[i%3], i/3)]
		if ok && ref.node.Kind == KindReceptor {
			ref.node.Ports[ref.idx].Voltage = float64(v)
		}
	}
}

// Step advances the graph by one dt and returns the IDs of neurons that
// fired.
func (g *Graph) Step() []string {
	now := g.now
	g.fired = g.fired[:0]

	if cap(g.currents) < len(g.nodes) {
		g.currents = make([]float64, len(g.nodes))
	}
	currents := g.currents[:len(g.nodes)]
	for i, n := range g.nodes {
		currents[i] = 0
		if n.Kind == KindNeuron {
			currents[i] = g.inputCurrent(n.ID, now)
		}
	}

	for i, n := range g.nodes {
		if n.Kind != KindNeuron {
			continue
		}
		if Step(n.Params, &n.State, currents[i], g.params.DT, now) {
			g.fired = append(g.fired, n.ID)
		}
	}

	// Effector pulses decay, then fresh spikes add to them.
	for _, n := range g.nodes {
		if n.Kind != KindEffector {
			continue
		}
		for i := range n.Ports {
			n.Ports[i].Pulse *= n.Ports[i].Decay
		}
	}
	for _, s := range g.synapses {
		src, ok := g.byID[s.From]
		if !ok || !src.State.Spike {
			continue
		}
		if ref, ok := g.ports[s.To]; ok && ref.node.Kind == KindEffector {
			p := &ref.node.Ports[ref.idx]
			p.Pulse = min(maxPulse, p.Pulse+math.Abs(s.Weight)*10)
		}
	}

	g.now += g.params.DT
	return g.fired
}

// inputCurrent sums receptor drive and delayed spike currents into target.
func (g *Graph) inputCurrent(target string, now float64) float64 {
	var total float64
	for _, s := range g.synapses {
		if s.To != target {
			continue
		}
		if ref, ok := g.ports[s.From]; ok && ref.node.Kind == KindReceptor {
			total += ref.node.Ports[ref.idx].Voltage * s.Weight
			continue
		}
		src, ok := g.byID[s.From]
		if !ok || !src.State.HasSpiked {
			continue
		}
		total += SpikeCurrent(s.Weight, s.Delay, src.State.LastSpike, now, g.params.Tau)
	}
	return total
}

// OutputSignal returns the squashed strength of an effector output: recent
// presynaptic spikes contribute |weight|*exp(-age/tau), summed and passed
// through a logistic function.
func (g *Graph) OutputSignal(id string) (float64, error) {
	ref, ok := g.ports[id]
	if !ok || ref.node.Kind != KindEffector {
		return 0, fmt.Errorf("%w: effector output %s", ErrUnknownID, id)
	}

	var total float64
	for _, s := range g.synapses {
		if s.To != id {
			continue
		}
		src, ok := g.byID[s.From]
		if !ok || !src.State.HasSpiked {
			continue
		}
		age := g.now - src.State.LastSpike
		if age < 0 || age > g.params.OutputWindow {
			continue
		}
		total += math.Abs(s.Weight) * math.Exp(-age/g.params.Tau)
	}
	return sigmoid(total), nil
}

// OutputPulse returns an effector output's accumulated pulse scaled to [0,1].
func (g *Graph) OutputPulse(id string) (float64, error) {
	ref, ok := g.ports[id]
	if !ok || ref.node.Kind != KindEffector {
		return 0, fmt.Errorf("%w: effector output %s", ErrUnknownID, id)
	}
	return ref.node.Ports[ref.idx].Pulse / maxPulse, nil
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	out := *n
	out.Ports = append([]Port(nil), n.Ports...)
	return out, true
}

// Nodes returns copies of every node in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = *n
		out[i].Ports = append([]Port(nil), n.Ports...)
	}
	return out
}

// Synapses returns a copy of the synapse list.
func (g *Graph) Synapses() []Synapse {
	return append([]Synapse(nil), g.synapses...)
}

// Reset returns every neuron to rest, clears pulses and rewinds time.
func (g *Graph) Reset() {
	g.now = 0
	for _, n := range g.nodes {
		if n.Kind == KindNeuron {
			n.State = RestingState()
		}
		for i := range n.Ports {
			n.Ports[i].Pulse = 0
		}
	}
}
