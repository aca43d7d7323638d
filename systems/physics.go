package systems

import "github.com/pthm-cable/plankton/components"

// Integrate advances a position by velocity over dt.
func Integrate(pos *components.Position, vel components.Velocity, dt float32) {
	pos.X += vel.X * dt
	pos.Y += vel.Y * dt
}

// Wrap maps a position onto the toroidal world.
func Wrap(pos *components.Position, width, height float32) {
	pos.X = wrapCoord(pos.X, width)
	pos.Y = wrapCoord(pos.Y, height)
}

// Bounce keeps a circle inside the world by reflecting its velocity at the
// bounds and pulling it back inside.
func Bounce(pos *components.Position, vel *components.Velocity, radius, width, height float32) {
	if pos.X-radius < 0 {
		pos.X = radius
		vel.X = absf(vel.X)
	} else if pos.X+radius > width {
		pos.X = width - radius
		vel.X = -absf(vel.X)
	}
	if pos.Y-radius < 0 {
		pos.Y = radius
		vel.Y = absf(vel.Y)
	} else if pos.Y+radius > height {
		pos.Y = height - radius
		vel.Y = -absf(vel.Y)
	}
}
