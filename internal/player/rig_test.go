package player

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestStepForwardFollowsYaw(t *testing.T) {
	r := NewRig([3]float64{4, 4, 4})
	r.Step(KeysOf([]string{KeyW}), 0.1)
	if !near(r.Pos[0], 4) || !near(r.Pos[2], 3.9) {
		t.Fatalf("forward at yaw 0: pos=%v", r.Pos)
	}

	r = NewRig([3]float64{})
	r.Yaw = math.Pi / 2 // facing -X
	r.Step(KeysOf([]string{KeyW}), 1)
	if !near(r.Pos[0], -1) || !near(r.Pos[2], 0) {
		t.Fatalf("forward at yaw pi/2: pos=%v", r.Pos)
	}
}

func TestStepStrafeAndVertical(t *testing.T) {
	r := NewRig([3]float64{})
	r.Step(KeysOf([]string{KeyD, KeySpace}), 0.5)
	if !near(r.Pos[0], 0.5) || !near(r.Pos[1], 0.5) || !near(r.Pos[2], 0) {
		t.Fatalf("pos=%v", r.Pos)
	}
	r.Step(KeysOf([]string{KeyA, KeyShiftL}), 0.5)
	if !near(r.Pos[0], 0) || !near(r.Pos[1], 0) {
		t.Fatalf("pos=%v", r.Pos)
	}
	r.Step(KeysOf([]string{KeyW, KeyS}), 1)
	if !near(r.Pos[2], 0) {
		t.Fatalf("opposing keys should cancel: pos=%v", r.Pos)
	}
}

func TestLookClampsPitch(t *testing.T) {
	r := NewRig([3]float64{})
	r.Look(100, 0, 0.002)
	if !near(r.Yaw, -0.2) {
		t.Fatalf("yaw=%v", r.Yaw)
	}
	r.Look(0, -10000, 0.002)
	if r.Pitch != math.Pi/2 {
		t.Fatalf("pitch=%v want pi/2", r.Pitch)
	}
	r.Look(0, 10000, 0.002)
	if r.Pitch != -math.Pi/2 {
		t.Fatalf("pitch=%v want -pi/2", r.Pitch)
	}
}

func TestLookKeepsYawBounded(t *testing.T) {
	r := NewRig([3]float64{4, 4, 4})
	for i := 0; i < 1000; i++ {
		r.Look(1.7e308, 0, 0.002)
		r.Look(-1e5, 0, 0.002)
	}
	if !finite(r.Yaw) || r.Yaw < -math.Pi || r.Yaw > math.Pi {
		t.Fatalf("yaw=%v", r.Yaw)
	}

	r.Look(math.Inf(1), math.NaN(), 0.002)
	if !finite(r.Yaw) || !finite(r.Pitch) {
		t.Fatalf("non-finite look leaked: yaw=%v pitch=%v", r.Yaw, r.Pitch)
	}

	r.Step(KeysOf([]string{KeyW, KeyD}), 0.1)
	for i, v := range r.Pos {
		if !finite(v) {
			t.Fatalf("pos[%d]=%v", i, v)
		}
	}
}

func TestLookWrapsFullTurn(t *testing.T) {
	r := NewRig([3]float64{})
	// 3.5 turns clockwise lands half a turn away.
	r.Look(-7*math.Pi/0.002, 0, 0.002)
	if !near(math.Abs(r.Yaw), math.Pi) {
		t.Fatalf("yaw=%v want ±π", r.Yaw)
	}
}
