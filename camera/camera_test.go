package camera

import (
	"math"
	"testing"
)

func TestNewFitsWorld(t *testing.T) {
	cam := New(1280, 960, 1600, 1200)

	if cam.X != 800 || cam.Y != 600 {
		t.Errorf("expected camera at (800, 600), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 0.8 {
		t.Errorf("expected zoom 0.8, got %f", cam.Zoom)
	}

	// World corners land on the viewport corners
	sx, sy := cam.WorldToScreen(0, 0)
	if math.Abs(float64(sx)) > 0.01 || math.Abs(float64(sy)) > 0.01 {
		t.Errorf("world origin at (%f, %f), want (0, 0)", sx, sy)
	}
	sx, sy = cam.WorldToScreen(1600, 1200)
	if math.Abs(float64(sx-1280)) > 0.01 || math.Abs(float64(sy-960)) > 0.01 {
		t.Errorf("world corner at (%f, %f), want (1280, 960)", sx, sy)
	}
}

func TestFitUsesTighterAxis(t *testing.T) {
	cam := New(1000, 1000, 2000, 1000)
	if cam.Zoom != 0.5 {
		t.Errorf("expected zoom 0.5, got %f", cam.Zoom)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.SetZoom(2)
	cam.Pan(300, -100)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},  // center
		{100, 100},  // top-left
		{1200, 600}, // near bottom-right
	}

	for _, tc := range testCases {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if math.Abs(float64(sx-tc.sx)) > 0.01 || math.Abs(float64(sy-tc.sy)) > 0.01 {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestPanClampsToWorld(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.SetZoom(1)

	cam.Pan(-100000, -100000)
	minX, minY, _, _ := cam.VisibleWorldBounds()
	if minX != 0 || minY != 0 {
		t.Errorf("view starts at (%f, %f), want (0, 0)", minX, minY)
	}

	cam.Pan(100000, 100000)
	_, _, maxX, maxY := cam.VisibleWorldBounds()
	if maxX != 2560 || maxY != 1440 {
		t.Errorf("view ends at (%f, %f), want (2560, 1440)", maxX, maxY)
	}
}

func TestPanAtFitStaysCentered(t *testing.T) {
	cam := New(1280, 960, 1600, 1200)
	cam.Pan(500, 500)
	if cam.X != 800 || cam.Y != 600 {
		t.Errorf("camera moved to (%f, %f) while fitted", cam.X, cam.Y)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)

	cam.SetZoom(10.0)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MaxZoom, cam.Zoom)
	}

	cam.SetZoom(0.01)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MinZoom, cam.Zoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.SetZoom(2)

	tests := []struct {
		name   string
		x, y   float32
		radius float32
		want   bool
	}{
		{"center", 1280, 720, 1, true},
		{"far corner", 10, 10, 5, false},
		{"edge with radius", 1280 + 330, 720, 15, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cam.IsVisible(tt.x, tt.y, tt.radius); got != tt.want {
				t.Errorf("IsVisible(%f, %f, %f) = %v, want %v", tt.x, tt.y, tt.radius, got, tt.want)
			}
		})
	}
}

func TestResize(t *testing.T) {
	cam := New(1280, 720, 2560, 1440)
	cam.Resize(640, 360)
	if cam.MinZoom != 0.25 || cam.Zoom != 0.5 {
		t.Errorf("after resize min=%f zoom=%f, want 0.25 and 0.5", cam.MinZoom, cam.Zoom)
	}
	cam.Reset()
	if cam.Zoom != cam.MinZoom {
		t.Errorf("reset zoom = %f, want %f", cam.Zoom, cam.MinZoom)
	}
}

func TestScaleLength(t *testing.T) {
	cam := New(1280, 960, 1600, 1200)
	if got := cam.ScaleLength(10); got != 8 {
		t.Errorf("ScaleLength(10) = %f, want 8", got)
	}
}
