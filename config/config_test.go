package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Perception.Cells != 36 {
		t.Errorf("cells = %d, want 36", cfg.Perception.Cells)
	}
	if cfg.Derived.SensoryLen != 108 {
		t.Errorf("sensory len = %d, want 108", cfg.Derived.SensoryLen)
	}
	if math.Abs(float64(cfg.Derived.VisionAngle)-2*math.Pi/3) > 1e-5 {
		t.Errorf("vision angle = %f, want 2pi/3", cfg.Derived.VisionAngle)
	}
	if len(cfg.Neural.HiddenLayers) != 3 || cfg.Neural.HiddenLayers[0] != 128 {
		t.Errorf("hidden layers = %v", cfg.Neural.HiddenLayers)
	}
	if cfg.Derived.InteriorMinX != 120 || cfg.Derived.InteriorMaxX != 1480 {
		t.Errorf("interior x = [%f, %f], want [120, 1480]", cfg.Derived.InteriorMinX, cfg.Derived.InteriorMaxX)
	}
	if cfg.Agents.InitialHomeostasis != 0.5 || cfg.Affect.HomeostasisSetPoint != 0.5 || cfg.Affect.HomeostasisDecay != 0.98 {
		t.Errorf("homeostasis = start %f, set point %f, decay %f",
			cfg.Agents.InitialHomeostasis, cfg.Affect.HomeostasisSetPoint, cfg.Affect.HomeostasisDecay)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	data := "perception:\n  cells: 12\nagents:\n  count: 2\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Perception.Cells != 12 || cfg.Derived.SensoryLen != 36 {
		t.Errorf("cells = %d, sensory = %d", cfg.Perception.Cells, cfg.Derived.SensoryLen)
	}
	if cfg.Agents.Count != 2 {
		t.Errorf("agents = %d, want 2", cfg.Agents.Count)
	}
	// Untouched fields keep defaults
	if cfg.Perception.Range != 250 {
		t.Errorf("range = %f, want default 250", cfg.Perception.Range)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero cells", "perception:\n  cells: 0\n"},
		{"negative range", "perception:\n  range: -1\n"},
		{"no agents", "agents:\n  count: 0\n"},
		{"bad hidden", "neural:\n  hidden_layers: [8, 0]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSetPerception(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetPerception(10, 100, 90); err != nil {
		t.Fatalf("SetPerception: %v", err)
	}
	if cfg.Derived.SensoryLen != 30 {
		t.Errorf("sensory len = %d, want 30", cfg.Derived.SensoryLen)
	}
	if err := cfg.SetPerception(10, 100, 400); err == nil {
		t.Error("expected error for angle > 360")
	}
}

func TestCloneIndependent(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	c := cfg.Clone()
	c.Neural.HiddenLayers[0] = 1
	if cfg.Neural.HiddenLayers[0] == 1 {
		t.Error("clone shares hidden layer slice")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Control.MaxSpeed != cfg.Control.MaxSpeed {
		t.Errorf("max speed = %f, want %f", back.Control.MaxSpeed, cfg.Control.MaxSpeed)
	}
}
