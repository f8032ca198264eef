package player

import (
	"math"

	"cubeworld.dev/internal/logic/mathx"
)

const (
	KeyW      = "KeyW"
	KeyS      = "KeyS"
	KeyA      = "KeyA"
	KeyD      = "KeyD"
	KeySpace  = "Space"
	KeyShiftL = "ShiftLeft"
)

type Keys map[string]bool

func KeysOf(codes []string) Keys {
	k := make(Keys, len(codes))
	for _, c := range codes {
		k[c] = true
	}
	return k
}

// Rig is a yaw/pitch camera. Yaw turns about +Y, pitch about the rig's local X.
type Rig struct {
	Pos   [3]float64
	Yaw   float64
	Pitch float64
}

func NewRig(pos [3]float64) *Rig {
	return &Rig{Pos: pos}
}

// Look applies a mouse delta. Yaw stays in [-π, π] and pitch within straight
// up/down; a delta that is not finite after scaling is ignored.
func (r *Rig) Look(dx, dy, sensitivity float64) {
	yaw, pitch := dx*sensitivity, dy*sensitivity
	if !finite(yaw) || !finite(pitch) {
		return
	}
	r.Yaw = math.Remainder(r.Yaw-yaw, 2*math.Pi)
	r.Pitch = mathx.Clamp(r.Pitch-pitch, -math.Pi/2, math.Pi/2)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Step moves the rig one frame. Horizontal motion follows the yaw only.
func (r *Rig) Step(keys Keys, speed float64) {
	var vx, vy, vz float64
	if keys[KeyW] {
		vz -= speed
	}
	if keys[KeyS] {
		vz += speed
	}
	if keys[KeyA] {
		vx -= speed
	}
	if keys[KeyD] {
		vx += speed
	}
	if keys[KeySpace] {
		vy += speed
	}
	if keys[KeyShiftL] {
		vy -= speed
	}

	sin, cos := math.Sincos(r.Yaw)
	r.Pos[0] += vx*cos + vz*sin
	r.Pos[1] += vy
	r.Pos[2] += -vx*sin + vz*cos
}
