package systems

import "math"

const twoPi = 2 * math.Pi

// clamp01 clamps a float32 value to the [0, 1] range.
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// NormalizeAngle wraps an angle to (-Pi, Pi].
func NormalizeAngle(angle float32) float32 {
	if angle <= math.Pi && angle > -math.Pi {
		return angle
	}
	a := math.Mod(float64(angle)+math.Pi, twoPi)
	if a <= 0 {
		a += twoPi
	}
	out := float32(a - math.Pi)
	if out <= -math.Pi {
		out = math.Pi
	}
	return out
}

// ArcsOverlap reports whether two arcs on the unit circle intersect.
// Each arc begins at its start angle and sweeps counter-clockwise by width.
// Endpoints count as overlapping, so an arc ending exactly at Pi meets one
// starting at -Pi.
func ArcsOverlap(startA, widthA, startB, widthB float32) bool {
	if widthA >= twoPi || widthB >= twoPi {
		return true
	}
	return arcContains(startA, widthA, startB) || arcContains(startB, widthB, startA)
}

// arcContains reports whether angle lies on the arc [start, start+width].
func arcContains(start, width, angle float32) bool {
	d := math.Mod(float64(angle)-float64(start), twoPi)
	if d < 0 {
		d += twoPi
	}
	// Points a hair below a full turn are the arc start itself.
	if twoPi-d < 1e-6 {
		d = 0
	}
	return d <= float64(width)+1e-6
}

// distance returns the Euclidean distance between two points.
func distance(x1, y1, x2, y2 float32) float32 {
	dx := x2 - x1
	dy := y2 - y1
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

// wrapCoord maps v into [0, size).
func wrapCoord(v, size float32) float32 {
	if v >= 0 && v < size {
		return v
	}
	m := float32(math.Mod(float64(v), float64(size)))
	if m < 0 {
		m += size
	}
	if m >= size {
		m = 0
	}
	return m
}
