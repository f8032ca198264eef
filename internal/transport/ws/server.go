package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"cubeworld.dev/internal/protocol"
	"cubeworld.dev/internal/session"
	"cubeworld.dev/internal/tuning"
)

// SessionIndex receives session lifecycle records. Optional.
type SessionIndex interface {
	RecordSessionOpen(id, client string, seed uint64, remoteAddr string)
	RecordSessionClose(id string, frames uint64, chunks, blocks int)
}

type Config struct {
	Tuning      tuning.Tuning
	Seed        uint64 // default ore seed; 0 derives one per session
	MaxSessions int
}

type Server struct {
	cfg   Config
	log   *log.Logger
	trans session.TransitionLogger
	index SessionIndex

	upgrader websocket.Upgrader
	boot     string // distinguishes session ids across restarts
	nextID   atomic.Uint64
	active   atomic.Int64
	frames   atomic.Uint64
}

func NewServer(cfg Config, logger *log.Logger) *Server {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 64
	}
	return &Server{
		cfg:  cfg,
		log:  logger,
		boot: strconv.FormatInt(time.Now().UnixMilli(), 36),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 256 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) SetTransitionLogger(l session.TransitionLogger) { s.trans = l }
func (s *Server) SetSessionIndex(idx SessionIndex)               { s.index = idx }

func (s *Server) ActiveSessions() int64 { return s.active.Load() }
func (s *Server) FramesSent() uint64    { return s.frames.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if s.active.Add(1) > int64(s.cfg.MaxSessions) {
			s.active.Add(-1)
			s.reject(conn, protocol.ErrSessionBusy, "too many sessions", websocket.CloseTryAgainLater)
			return
		}
		defer s.active.Add(-1)

		sess, hello := s.handshake(conn)
		if sess == nil {
			return
		}
		if s.index != nil {
			s.index.RecordSessionOpen(sess.ID(), hello.ClientName, sess.Seed(), r.RemoteAddr)
		}
		s.log.Printf("session=%s open client=%q seed=%d remote=%s", sess.ID(), hello.ClientName, sess.Seed(), r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-ctx.Done()
			_ = conn.Close() // unblocks the reader
		}()

		out := make(chan []byte, 8)
		runDone := make(chan struct{})
		go func() {
			defer close(runDone)
			if err := sess.Run(ctx, out); err != nil && err != context.Canceled {
				s.log.Printf("session=%s stopped: %v", sess.ID(), err)
				cancel()
			}
		}()

		// Writer goroutine.
		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
					s.frames.Add(1)
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			in, ok := decodeInput(msg)
			if !ok {
				continue
			}
			sess.Submit(in)
		}

		cancel()
		<-runDone
		<-writeDone

		// Run has returned, so the session state is safe to read here.
		if s.index != nil {
			s.index.RecordSessionClose(sess.ID(), sess.CurrentFrame(), sess.Chunks().ActivatedCount(), sess.Scene().Len())
		}
		s.log.Printf("session=%s closed frames=%d chunks=%d blocks=%d", sess.ID(), sess.CurrentFrame(), sess.Chunks().ActivatedCount(), sess.Scene().Len())
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*session.Session, protocol.HelloMsg) {
	var hello protocol.HelloMsg

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, hello
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.reject(conn, protocol.ErrProtoBadRequest, "expected HELLO", websocket.ClosePolicyViolation)
		return nil, hello
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrProtoVersion, "bad protocol_version", websocket.ClosePolicyViolation)
		return nil, hello
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest, "invalid HELLO", websocket.ClosePolicyViolation)
		return nil, hello
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, hello
	}
	hello.ClientName = strings.TrimSpace(hello.ClientName)
	if hello.ClientName == "" {
		hello.ClientName = "browser"
	}

	n := s.nextID.Add(1)
	seed := hello.Seed
	if seed == 0 {
		seed = s.cfg.Seed
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) ^ n
	}

	sess, err := session.New(session.Config{
		ID:     newSessionID(s.boot, n),
		Seed:   seed,
		Tuning: s.cfg.Tuning,
	}, log.New(s.log.Writer(), "[session] ", s.log.Flags()))
	if err != nil {
		s.log.Printf("session create: %v", err)
		s.reject(conn, protocol.ErrInternal, "session unavailable", websocket.CloseInternalServerErr)
		return nil, hello
	}
	if s.trans != nil {
		sess.SetTransitionLogger(s.trans)
	}

	if err := writeJSON(conn, sess.Welcome()); err != nil {
		return nil, hello
	}
	return sess, hello
}

// newSessionID is unique per process start, so indexes and logs that outlive
// the process never see the same id twice.
func newSessionID(boot string, n uint64) string {
	return fmt.Sprintf("S%s-%d", boot, n)
}

func (s *Server) reject(conn *websocket.Conn, code, message string, closeCode int) {
	if !protocol.IsKnownCode(code) {
		s.log.Printf("reject with unknown code %q", code)
		code = protocol.ErrInternal
	}
	_ = writeJSON(conn, protocol.NewError(code, message))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, message), time.Now().Add(time.Second))
}

func decodeInput(msg []byte) (session.Input, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeInput || base.ProtocolVersion != protocol.Version {
		return session.Input{}, false
	}
	if err := protocol.Validate(protocol.TypeInput, msg); err != nil {
		return session.Input{}, false
	}
	var in protocol.InputMsg
	if err := json.Unmarshal(msg, &in); err != nil {
		return session.Input{}, false
	}
	return session.Input{Keys: in.Keys, Look: in.Look}, true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
