package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "cubeworld.dev/internal/persistence/log"
	"cubeworld.dev/internal/session"
	"cubeworld.dev/internal/terrain/gen"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory")
		logDir    = flag.String("transitions", "", "dir containing transitions-*.jsonl.zst (default: <data>/transitions)")
		sessionID = flag.String("session", "", "only verify this session id (optional)")
	)
	flag.Parse()

	dir := *logDir
	if dir == "" {
		dir = filepath.Join(*dataDir, "transitions")
	}

	files, err := persistlog.ListTransitionFiles(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list transitions:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no transition files found in", dir)
		os.Exit(1)
	}

	var sum summary
	for _, path := range files {
		err := persistlog.ReadTransitions(path, func(e session.TransitionLogEntry) error {
			if *sessionID != "" && e.SessionID != *sessionID {
				return nil
			}
			if err := verifyEntry(e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			sum.add(e)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: sessions=%d transitions=%d chunks=%d wall_chunks=%d blocks=%d\n",
		len(sum.sessions), sum.transitions, sum.chunks, sum.walls, sum.blocks)
}

type summary struct {
	sessions    map[string]struct{}
	transitions int
	chunks      int
	walls       int
	blocks      int
}

func (s *summary) add(e session.TransitionLogEntry) {
	if s.sessions == nil {
		s.sessions = map[string]struct{}{}
	}
	s.sessions[e.SessionID] = struct{}{}
	s.transitions++
	s.chunks += len(e.Activated)
	s.walls += e.WallChunks
	s.blocks += e.Blocks
}

// verifyEntry re-derives every activated chunk's classification and block
// count from the logged generation parameters.
func verifyEntry(e session.TransitionLogEntry) error {
	cls := gen.Classifier{WallMarker: e.Params.WallMarker}
	walls, blocks := 0, 0
	for _, c := range e.Activated {
		wall := cls.Classify(c.Key.CX, c.Key.CZ) == gen.Wall
		if wall != c.Wall {
			return fmt.Errorf("session %s frame %d: chunk (%d,%d) wall=%v, generator says %v",
				e.SessionID, e.Frame, c.Key.CX, c.Key.CZ, c.Wall, wall)
		}
		if want := e.Params.ChunkBlocks(wall); c.Blocks != want {
			return fmt.Errorf("session %s frame %d: chunk (%d,%d) blocks=%d want %d",
				e.SessionID, e.Frame, c.Key.CX, c.Key.CZ, c.Blocks, want)
		}
		if wall {
			walls++
		}
		blocks += c.Blocks
	}
	if walls != e.WallChunks {
		return fmt.Errorf("session %s frame %d: wall_chunks=%d want %d", e.SessionID, e.Frame, e.WallChunks, walls)
	}
	if blocks != e.Blocks {
		return fmt.Errorf("session %s frame %d: blocks=%d want %d", e.SessionID, e.Frame, e.Blocks, blocks)
	}
	return nil
}
