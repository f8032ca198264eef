package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"cubeworld.dev/internal/player"
	"cubeworld.dev/internal/protocol"
	"cubeworld.dev/internal/tuning"
)

type memLogger struct{ entries []TransitionLogEntry }

func (m *memLogger) WriteTransition(e TransitionLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type failingLogger struct{}

func (failingLogger) WriteTransition(TransitionLogEntry) error { return errors.New("disk full") }

func newTestSession(t *testing.T, tune tuning.Tuning) *Session {
	t.Helper()
	s, err := New(Config{ID: "S1", Seed: 7, Tuning: tune}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestFirstFrameActivatesViewWindow(t *testing.T) {
	s := newTestSession(t, tuning.Defaults())
	ml := &memLogger{}
	s.SetTransitionLogger(ml)

	f := s.StepOnce(nil)
	if f.Type != protocol.TypeFrame || f.Frame != 0 || f.Cell != [2]int{0, 0} {
		t.Fatalf("frame header: %+v", f)
	}
	if s.Chunks().ActivatedCount() != 25 {
		t.Fatalf("activated=%d want 25", s.Chunks().ActivatedCount())
	}
	want := 25*64*2 + 9*64*4
	if len(f.Blocks) != want {
		t.Fatalf("blocks=%d want %d", len(f.Blocks), want)
	}
	if len(ml.entries) != 1 || ml.entries[0].Blocks != want || ml.entries[0].WallChunks != 9 {
		t.Fatalf("transition log: %+v", ml.entries)
	}

	f = s.StepOnce(nil)
	if f.Frame != 1 || len(f.Blocks) != 0 {
		t.Fatalf("idle frame should place nothing: frame=%d blocks=%d", f.Frame, len(f.Blocks))
	}
	if len(ml.entries) != 1 {
		t.Fatalf("idle frame logged a transition")
	}
}

func TestWalkingForwardActivatesNextRow(t *testing.T) {
	s := newTestSession(t, tuning.Defaults())
	s.StepOnce(nil)

	in := []Input{{Keys: []string{player.KeyW}}}
	var f protocol.FrameMsg
	for i := 0; i < 200; i++ {
		f = s.StepOnce(in)
		in = nil // held keys persist between inputs
		if f.Cell != [2]int{0, 0} {
			break
		}
	}
	if f.Cell != [2]int{0, -1} {
		t.Fatalf("cell=%v want [0 -1]", f.Cell)
	}
	if s.Chunks().ActivatedCount() != 30 {
		t.Fatalf("activated=%d want 30", s.Chunks().ActivatedCount())
	}
	if len(f.Blocks) == 0 {
		t.Fatalf("transition frame carried no blocks")
	}
	for _, b := range f.Blocks {
		z := int(b.Center[2] - 0.5)
		if z < -24 || z >= -16 {
			t.Fatalf("block outside new row cz=-3: %+v", b)
		}
	}
}

func TestLookAccumulatesAcrossInputs(t *testing.T) {
	s := newTestSession(t, tuning.Defaults())
	s.StepOnce([]Input{{Look: [2]float64{10, 0}}, {Look: [2]float64{15, 0}}})
	want := -25 * tuning.Defaults().LookSensitivity
	if d := s.Rig().Yaw - want; d > 1e-12 || d < -1e-12 {
		t.Fatalf("yaw=%v want %v", s.Rig().Yaw, want)
	}
}

func TestTransitionLoggerErrorDoesNotStopFrame(t *testing.T) {
	s := newTestSession(t, tuning.Defaults())
	s.SetTransitionLogger(failingLogger{})
	if f := s.StepOnce(nil); len(f.Blocks) == 0 {
		t.Fatalf("frame lost on logger error")
	}
}

func TestTestPadPlacedBeforeFirstFrame(t *testing.T) {
	tune := tuning.Defaults()
	tune.TestPad = true
	s := newTestSession(t, tune)
	f := s.StepOnce(nil)
	want := 26 + 25*64*2 + 9*64*4
	if len(f.Blocks) != want {
		t.Fatalf("blocks=%d want %d", len(f.Blocks), want)
	}
}

func TestWelcomeListsTextures(t *testing.T) {
	s := newTestSession(t, tuning.Defaults())
	w := s.Welcome()
	if w.SessionID != "S1" || w.WorldParams.ChunkSize != 8 || w.WorldParams.Seed != 7 {
		t.Fatalf("welcome=%+v", w)
	}
	labels := map[string]bool{}
	for _, tex := range w.Textures {
		labels[tex.Label] = true
	}
	for _, l := range []string{"Stone", "Coal_Ore", "Iron_Ore", "Gold_Ore", "Diamond_Ore"} {
		if !labels[l] {
			t.Fatalf("texture %s missing from welcome", l)
		}
	}
}

func TestSubmitDropsWhenFull(t *testing.T) {
	s := newTestSession(t, tuning.Defaults())
	for i := 0; i < cap(s.inbox); i++ {
		if !s.Submit(Input{}) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	if s.Submit(Input{}) {
		t.Fatalf("submit on full inbox should drop")
	}
	if n := len(s.drainInbox()); n != cap(s.inbox) {
		t.Fatalf("drained %d", n)
	}
}

func TestRunDeliversFrames(t *testing.T) {
	tune := tuning.Defaults()
	tune.FrameRateHz = 240
	s := newTestSession(t, tune)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan []byte, 4)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, out) }()

	select {
	case b := <-out:
		var f protocol.FrameMsg
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if f.Frame != 0 || len(f.Blocks) == 0 {
			t.Fatalf("first frame: frame=%d blocks=%d", f.Frame, len(f.Blocks))
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no frame delivered")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run err=%v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestGenParamsChunkBlocks(t *testing.T) {
	p := GenParams{ChunkSize: 8, FloorY: 0, CeilingY: 5}
	if p.ChunkBlocks(false) != 128 || p.ChunkBlocks(true) != 384 {
		t.Fatalf("chunk blocks: %d %d", p.ChunkBlocks(false), p.ChunkBlocks(true))
	}
}
