package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"cubeworld.dev/internal/player"
	"cubeworld.dev/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "client name")
		seed     = flag.Uint64("seed", 0, "ore seed to request (0 = server default)")
		turnEach = flag.Uint64("turn_every", 180, "frames between random turns")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Seed:            *seed,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	w := &walker{rng: rand.New(rand.NewSource(time.Now().UnixNano())), turnEvery: *turnEach}
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var wm protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &wm); err != nil {
				continue
			}
			logger.Printf("WELCOME session_id=%s chunk_size=%d view_radius=%d seed=%d textures=%d",
				wm.SessionID, wm.WorldParams.ChunkSize, wm.WorldParams.ViewRadius, wm.WorldParams.Seed, len(wm.Textures))

		case protocol.TypeFrame:
			var f protocol.FrameMsg
			if err := json.Unmarshal(msg, &f); err != nil {
				continue
			}
			if len(f.Blocks) > 0 {
				logger.Printf("frame=%d cell=%v pos=%.2f,%.2f blocks=%d", f.Frame, f.Cell, f.Camera.Pos[0], f.Camera.Pos[2], len(f.Blocks))
			}
			if in, ok := w.next(&f); ok {
				_ = conn.WriteJSON(in)
			}

		case protocol.TypeError:
			var em protocol.ErrorMsg
			_ = json.Unmarshal(msg, &em)
			logger.Printf("ERROR %s: %s", em.Code, em.Message)
		}
	}
}

// walker holds W and turns by a random amount every turnEvery frames.
type walker struct {
	rng       *rand.Rand
	turnEvery uint64
	started   bool
}

func (w *walker) next(f *protocol.FrameMsg) (protocol.InputMsg, bool) {
	in := protocol.InputMsg{
		Type:            protocol.TypeInput,
		ProtocolVersion: protocol.Version,
		Frame:           f.Frame,
		Keys:            []string{player.KeyW},
	}
	if !w.started {
		w.started = true
		return in, true
	}
	if w.turnEvery == 0 || f.Frame%w.turnEvery != 0 {
		return in, false
	}
	in.Look = [2]float64{float64(w.rng.Intn(801) - 400), 0}
	return in, true
}
