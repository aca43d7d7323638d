package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayVisionCones OverlayID = "vision_cones"
	OverlayVisionStrip OverlayID = "vision_strip"
	OverlayAgentPanel  OverlayID = "agent_panel"
	OverlayGraph       OverlayID = "graph"
	OverlayPerf        OverlayID = "perf"
	OverlayControls    OverlayID = "controls"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID       OverlayID
	Name     string
	Key      int32  // Toggle key, 0 = none
	KeyLabel string
	Category string // "perception", "panels" or "debug"
	Default  bool   // Enabled at startup
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with default overlays. Movement
// keys (WASD and arrows) are left free for keyboard control.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	return reg
}

func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{ID: OverlayVisionCones, Name: "Vision Cones", Key: rl.KeyV, KeyLabel: "V", Category: "perception", Default: true})
	r.Register(OverlayDescriptor{ID: OverlayVisionStrip, Name: "Vision Strip", Key: rl.KeyB, KeyLabel: "B", Category: "perception", Default: true})
	r.Register(OverlayDescriptor{ID: OverlayAgentPanel, Name: "Agent Panel", Key: rl.KeyI, KeyLabel: "I", Category: "panels", Default: true})
	r.Register(OverlayDescriptor{ID: OverlayGraph, Name: "Neuron Graph", Key: rl.KeyG, KeyLabel: "G", Category: "panels"})
	r.Register(OverlayDescriptor{ID: OverlayControls, Name: "Controls", Key: rl.KeyTab, KeyLabel: "Tab", Category: "panels", Default: true})
	r.Register(OverlayDescriptor{ID: OverlayPerf, Name: "Performance", Key: rl.KeyF3, KeyLabel: "F3", Category: "debug"})
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = desc.Default
}

// Toggle switches an overlay on/off and returns the new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.enabled[id] = !r.enabled[id]
	return r.enabled[id]
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	if _, ok := r.byID[id]; ok {
		r.enabled[id] = enabled
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// All returns all registered overlays in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	return r.descriptors
}

// HandleKeyPress toggles the overlay bound to key.
// Returns the overlay ID, its new state, and whether a toggle occurred.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool, bool) {
	for _, desc := range r.descriptors {
		if desc.Key != 0 && desc.Key == key {
			return desc.ID, r.Toggle(desc.ID), true
		}
	}
	return "", false, false
}
