// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Agents     AgentsConfig     `yaml:"agents"`
	Food       FoodConfig       `yaml:"food"`
	Obstacles  ObstaclesConfig  `yaml:"obstacles"`
	Perception PerceptionConfig `yaml:"perception"`
	Neural     NeuralConfig     `yaml:"neural"`
	Spiking    SpikingConfig    `yaml:"spiking"`
	Control    ControlConfig    `yaml:"control"`
	Collision  CollisionConfig  `yaml:"collision"`
	Affect     AffectConfig     `yaml:"affect"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Parallel   ParallelConfig   `yaml:"parallel"`
	Feed       FeedConfig       `yaml:"feed"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds arena dimensions and wall layout.
type WorldConfig struct {
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	WallMargin    float64 `yaml:"wall_margin"`    // Inset of the wall ring from the world edge
	WallThickness float64 `yaml:"wall_thickness"` // Extra clearance between the walls and spawned food
	WallSpacing   float64 `yaml:"wall_spacing"`   // Distance between consecutive wall obstacles
	WallRadius    float64 `yaml:"wall_radius"`
	MaxDT         float64 `yaml:"max_dt"`         // Tick dt is clamped to this (seconds)
}

// AgentsConfig holds agent population parameters.
type AgentsConfig struct {
	Count          int     `yaml:"count"`
	Radius         float64 `yaml:"radius"`
	InitialHealth  float64 `yaml:"initial_health"`
	InitialEnergy  float64 `yaml:"initial_energy"`
	MaxHealth      float64 `yaml:"max_health"`    // Health and energy saturate here
	InitialArousal float64 `yaml:"initial_arousal"`
	MainControl    string  `yaml:"main_control"`  // Controller of agent 0: neural, script, keyboard, random
	OtherControl   string  `yaml:"other_control"` // Controller of the remaining agents
	CenterJitter   float64 `yaml:"center_jitter"` // Agent 0 spawns within this distance of the arena centre

	InitialHomeostasis float64 `yaml:"initial_homeostasis"`
}

// FoodConfig holds food spawning parameters.
type FoodConfig struct {
	Target    int     `yaml:"target"` // Food is replenished toward this count
	Radius    float64 `yaml:"radius"`
	Nutrition float64 `yaml:"nutrition"`
}

// ObstaclesConfig holds free-standing obstacle parameters (walls are in WorldConfig).
type ObstaclesConfig struct {
	Moving   int     `yaml:"moving"` // Number of bouncing obstacles
	Radius   float64 `yaml:"radius"`
	MaxSpeed float64 `yaml:"max_speed"`
	Static   int     `yaml:"static"` // Number of scattered static obstacles
}

// ColorConfig is an RGB triple in [0,1].
type ColorConfig struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
}

// PerceptionConfig holds vision cone parameters.
type PerceptionConfig struct {
	Cells         int         `yaml:"cells"`
	Range         float64     `yaml:"range"`
	AngleDeg      float64     `yaml:"angle_deg"`
	Background    ColorConfig `yaml:"background"`
	AgentColor    ColorConfig `yaml:"agent_color"`
	FoodColor     ColorConfig `yaml:"food_color"`
	ObstacleColor ColorConfig `yaml:"obstacle_color"`
	MovingColor   ColorConfig `yaml:"moving_color"`
	BlurMode      string      `yaml:"blur_mode"`   // "ring" (center/side weights, wraps) or "falloff" (normalized 1/(1+|d|), clamped)
	BlurCenter    float64     `yaml:"blur_center"` // Ring mode self weight
	BlurSide      float64     `yaml:"blur_side"`   // Ring mode neighbour weight
	BlurRadius    int         `yaml:"blur_radius"` // Falloff mode neighbour reach
}

// NeuralConfig holds Cortical Column parameters.
type NeuralConfig struct {
	HiddenLayers   []int   `yaml:"hidden_layers"`
	Outputs        int     `yaml:"outputs"`
	DT             float64 `yaml:"dt"`
	Iterations     int     `yaml:"iterations"`     // Forward passes averaged per control tick
	VRest          float64 `yaml:"v_rest"`
	VReset         float64 `yaml:"v_reset"`
	VThreshold     float64 `yaml:"v_threshold"`
	Tau            float64 `yaml:"tau"`
	Refractory     float64 `yaml:"refractory"`
	OutputGain     float64 `yaml:"output_gain"`
	ScalingBase    float64 `yaml:"scaling_base"`   // synapticScaling = base + pleasure*gain
	ScalingGain    float64 `yaml:"scaling_gain"`
	ThresholdGain  float64 `yaml:"threshold_gain"` // thresholdAdjustment = (arousal - pivot)*gain
	ThresholdPivot float64 `yaml:"threshold_pivot"`
}

// SpikingConfig holds point-neuron graph engine parameters.
type SpikingConfig struct {
	DT           float64 `yaml:"dt"`
	Tau          float64 `yaml:"tau"`           // Post-spike current decay constant
	OutputWindow float64 `yaml:"output_window"` // Spikes older than this do not reach outputs
}

// ControlConfig holds controller and action-application parameters.
type ControlConfig struct {
	TurnSpeed      float64   `yaml:"turn_speed"`       // rad/s at full intensity
	TurnDeadZone   float64   `yaml:"turn_dead_zone"`
	MaxSpeed       float64   `yaml:"max_speed"`
	MoveDeadZone   float64   `yaml:"move_dead_zone"`
	RandomTurnProb float64   `yaml:"random_turn_prob"` // Per-tick chance of a heading jitter
	RandomTurnMax  float64   `yaml:"random_turn_max"`  // Full width of the jitter interval
	RandomSpeed    float64   `yaml:"random_speed"`
	ManualOverride bool      `yaml:"manual_override"`  // Active keys preempt automated controllers
	ScriptPath     string    `yaml:"script_path"`
	ScriptMode     string    `yaml:"script_mode"`      // "function" or "frame"
	ScriptBudgetMS int       `yaml:"script_budget_ms"` // Per-call time budget
	ScriptIdle     []float64 `yaml:"script_idle"`      // Action when no script is loaded
	ScriptFallback []float64 `yaml:"script_fallback"`  // Action when a script fails
}

// CollisionConfig holds interaction outcome parameters.
type CollisionConfig struct {
	FoodPleasure    float64 `yaml:"food_pleasure"`
	ObstacleDamage  float64 `yaml:"obstacle_damage"`
	ObstacleArousal float64 `yaml:"obstacle_arousal"`
	AgentArousal    float64 `yaml:"agent_arousal"`
	PushSlack       float64 `yaml:"push_slack"`       // Extra separation added to every push
	ObstacleDamping bool    `yaml:"obstacle_damping"` // Reflect and damp velocity on obstacle hit
	DampingFactor   float64 `yaml:"damping_factor"`
}

// AffectConfig holds affect decay parameters.
type AffectConfig struct {
	PleasureDecay float64 `yaml:"pleasure_decay"`
	ArousalDecay  float64 `yaml:"arousal_decay"`
	ArousalFloor  float64 `yaml:"arousal_floor"`
	PleasureMax   float64 `yaml:"pleasure_max"`
	PleasureMin   float64 `yaml:"pleasure_min"`

	HomeostasisDecay    float64 `yaml:"homeostasis_decay"`    // Distance from the set point retained per tick
	HomeostasisSetPoint float64 `yaml:"homeostasis_setpoint"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds of simulated time per window
	PerfWindow  int     `yaml:"perf_window"`  // Ticks averaged by the perf collector
	FPSFrames   int     `yaml:"fps_frames"`   // FPS is recomputed every N ticks
}

// ParallelConfig holds perception worker pool parameters.
type ParallelConfig struct {
	Threshold int `yaml:"threshold"` // Minimum agent count before perception fans out
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
}

// FeedConfig holds observer feed parameters.
type FeedConfig struct {
	Addr          string `yaml:"addr"`
	BroadcastEach int    `yaml:"broadcast_each"` // Publish a snapshot every N ticks
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	VisionAngle  float32 // Perception.AngleDeg in radians
	SensoryLen   int     // Perception.Cells * 3
	WorldW32     float32
	WorldH32     float32
	InteriorMinX float32 // Walkable interior bounds for food placement
	InteriorMinY float32
	InteriorMaxX float32
	InteriorMaxY float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit calls Init and panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Defaults returns a fresh copy of the embedded defaults with derived values set.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate reports values the simulation cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.World.Width <= 0 || c.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world size must be positive, got %gx%g", c.World.Width, c.World.Height))
	}
	if c.World.MaxDT <= 0 {
		errs = append(errs, fmt.Errorf("world.max_dt must be positive, got %g", c.World.MaxDT))
	}
	if err := ValidatePerception(c.Perception.Cells, c.Perception.Range, c.Perception.AngleDeg); err != nil {
		errs = append(errs, err)
	}
	if c.Agents.Count < 1 {
		errs = append(errs, fmt.Errorf("agents.count must be at least 1, got %d", c.Agents.Count))
	}
	if c.Neural.Iterations < 1 {
		errs = append(errs, fmt.Errorf("neural.iterations must be at least 1, got %d", c.Neural.Iterations))
	}
	if c.Neural.Outputs < 3 {
		errs = append(errs, fmt.Errorf("neural.outputs must be at least 3, got %d", c.Neural.Outputs))
	}
	for _, h := range c.Neural.HiddenLayers {
		if h < 1 {
			errs = append(errs, fmt.Errorf("neural.hidden_layers entries must be positive, got %d", h))
		}
	}
	return errors.Join(errs...)
}

// ValidatePerception checks a perception parameter triple.
func ValidatePerception(cells int, visionRange, angleDeg float64) error {
	if cells < 1 {
		return fmt.Errorf("perception cells must be at least 1, got %d", cells)
	}
	if visionRange <= 0 {
		return fmt.Errorf("perception range must be positive, got %g", visionRange)
	}
	if angleDeg <= 0 || angleDeg > 360 {
		return fmt.Errorf("perception angle must be in (0, 360], got %g", angleDeg)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.VisionAngle = float32(c.Perception.AngleDeg * math.Pi / 180)
	c.Derived.SensoryLen = c.Perception.Cells * 3
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)

	inset := float32(c.World.WallMargin + c.World.WallThickness)
	c.Derived.InteriorMinX = inset
	c.Derived.InteriorMinY = inset
	c.Derived.InteriorMaxX = c.Derived.WorldW32 - inset
	c.Derived.InteriorMaxY = c.Derived.WorldH32 - inset
	// Tiny worlds fall back to the full arena
	if c.Derived.InteriorMaxX <= c.Derived.InteriorMinX || c.Derived.InteriorMaxY <= c.Derived.InteriorMinY {
		c.Derived.InteriorMinX, c.Derived.InteriorMinY = 0, 0
		c.Derived.InteriorMaxX, c.Derived.InteriorMaxY = c.Derived.WorldW32, c.Derived.WorldH32
	}
}

// SetPerception replaces the perception dimensions and refreshes derived values.
func (c *Config) SetPerception(cells int, visionRange, angleDeg float64) error {
	if err := ValidatePerception(cells, visionRange, angleDeg); err != nil {
		return err
	}
	c.Perception.Cells = cells
	c.Perception.Range = visionRange
	c.Perception.AngleDeg = angleDeg
	c.computeDerived()
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Neural.HiddenLayers = append([]int(nil), c.Neural.HiddenLayers...)
	out.Control.ScriptIdle = append([]float64(nil), c.Control.ScriptIdle...)
	out.Control.ScriptFallback = append([]float64(nil), c.Control.ScriptFallback...)
	return &out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
