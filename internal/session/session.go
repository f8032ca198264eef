package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cubeworld.dev/internal/player"
	"cubeworld.dev/internal/protocol"
	"cubeworld.dev/internal/scene"
	"cubeworld.dev/internal/terrain/ore"
	"cubeworld.dev/internal/terrain/store"
	"cubeworld.dev/internal/tuning"
)

type Config struct {
	ID     string
	Seed   uint64
	Tuning tuning.Tuning
}

// Input is one client INPUT after validation.
type Input struct {
	Keys []string
	Look [2]float64
}

// Session is one player's world: camera rig, chunk manager and the scene
// mirror. All state is owned by the goroutine running Run (or the caller of
// StepOnce); only Submit may be called concurrently.
type Session struct {
	id   string
	seed uint64
	tune tuning.Tuning
	log  *log.Logger

	rig    *player.Rig
	scene  *scene.Scene
	chunks *store.Manager

	keys  player.Keys
	frame uint64
	inbox chan Input

	transLog TransitionLogger
}

func New(cfg Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	tbl, err := cfg.Tuning.Ores()
	if err != nil {
		return nil, fmt.Errorf("ore table: %w", err)
	}
	sc := scene.New(cfg.Tuning.TextureDir)
	for _, l := range tbl.Labels() {
		sc.Texture(l)
	}
	sc.Texture(cfg.Tuning.FloorLabel)

	mgr, err := store.NewManager(cfg.Tuning.StoreConfig(), cfg.Tuning.Classifier(), ore.NewSelector(tbl, ore.NewSource(cfg.Seed)), sc)
	if err != nil {
		return nil, err
	}
	if cfg.Tuning.TestPad {
		scene.PlaceTestPad(sc, cfg.Tuning.FloorLabel)
	}

	return &Session{
		id:     cfg.ID,
		seed:   cfg.Seed,
		tune:   cfg.Tuning,
		log:    logger,
		rig:    player.NewRig(cfg.Tuning.Spawn),
		scene:  sc,
		chunks: mgr,
		keys:   player.Keys{},
		inbox:  make(chan Input, 64),
	}, nil
}

func (s *Session) ID() string                             { return s.id }
func (s *Session) Seed() uint64                           { return s.seed }
func (s *Session) Chunks() *store.Manager                 { return s.chunks }
func (s *Session) Scene() *scene.Scene                    { return s.scene }
func (s *Session) Rig() *player.Rig                       { return s.rig }
func (s *Session) CurrentFrame() uint64                   { return s.frame }
func (s *Session) SetTransitionLogger(l TransitionLogger) { s.transLog = l }

func (s *Session) Welcome() protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.id,
		WorldParams: protocol.WorldParams{
			ChunkSize:       s.tune.ChunkSize,
			ViewRadius:      s.tune.ViewRadius,
			FloorY:          s.tune.FloorY,
			CeilingY:        s.tune.CeilingY,
			FrameRateHz:     s.tune.FrameRateHz,
			LookSensitivity: s.tune.LookSensitivity,
			Spawn:           s.tune.Spawn,
			Seed:            s.seed,
		},
		Textures: s.scene.Textures(),
	}
}

// Submit queues input for the next frame. It never blocks; input is dropped
// when the queue is full.
func (s *Session) Submit(in Input) bool {
	select {
	case s.inbox <- in:
		return true
	default:
		return false
	}
}

// StepOnce advances one frame. Look deltas accumulate across inputs; the last
// input's key set wins. Chunk generation for a new cell runs inside this call.
func (s *Session) StepOnce(inputs []Input) protocol.FrameMsg {
	for _, in := range inputs {
		s.rig.Look(in.Look[0], in.Look[1], s.tune.LookSensitivity)
		s.keys = player.KeysOf(in.Keys)
	}
	s.rig.Step(s.keys, s.tune.MoveSpeed)

	start := time.Now()
	tr := s.chunks.OnPlayerMoved(s.rig.Pos[0], s.rig.Pos[2])
	if tr.Changed {
		s.recordTransition(tr, time.Since(start))
	}

	msg := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Frame:           s.frame,
		Camera: protocol.Camera{
			Pos:   s.rig.Pos,
			Yaw:   s.rig.Yaw,
			Pitch: s.rig.Pitch,
		},
		Cell:   [2]int{tr.Cell.CX, tr.Cell.CZ},
		Blocks: s.scene.Drain(),
	}
	s.frame++
	return msg
}

func (s *Session) recordTransition(tr store.Transition, took time.Duration) {
	entry := TransitionLogEntry{
		SessionID: s.id,
		Frame:     s.frame,
		Cell:      [2]int{tr.Cell.CX, tr.Cell.CZ},
		Params: GenParams{
			ChunkSize:  s.tune.ChunkSize,
			FloorY:     s.tune.FloorY,
			CeilingY:   s.tune.CeilingY,
			WallMarker: s.tune.WallMarker,
		},
		Activated:  tr.Activated,
		WallChunks: tr.WallChunks(),
		Blocks:     tr.Blocks(),
		Micros:     took.Microseconds(),
	}
	if len(tr.Activated) > 0 {
		s.log.Printf("session=%s frame=%d cell=%v activated=%d walls=%d blocks=%d took=%s",
			s.id, s.frame, entry.Cell, len(tr.Activated), entry.WallChunks, entry.Blocks, took)
	}
	if s.transLog == nil {
		return
	}
	if err := s.transLog.WriteTransition(entry); err != nil {
		s.log.Printf("session=%s transition log: %v", s.id, err)
	}
}

func (s *Session) drainInbox() []Input {
	var ins []Input
	for {
		select {
		case in := <-s.inbox:
			ins = append(ins, in)
		default:
			return ins
		}
	}
}

// Run steps the session at the configured frame rate and delivers encoded
// FRAME messages to out until ctx is done.
func (s *Session) Run(ctx context.Context, out chan<- []byte) error {
	hz := s.tune.FrameRateHz
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		msg := s.StepOnce(s.drainInbox())
		b, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- b:
		}
	}
}
