package session

import "cubeworld.dev/internal/terrain/store"

// TransitionLogEntry records one cell change and the chunks it activated.
type TransitionLogEntry struct {
	SessionID  string             `json:"session_id"`
	Frame      uint64             `json:"frame"`
	Cell       [2]int             `json:"cell"`
	Params     GenParams          `json:"params"`
	Activated  []store.ChunkStats `json:"activated,omitempty"`
	WallChunks int                `json:"wall_chunks"`
	Blocks     int                `json:"blocks"`
	Micros     int64              `json:"micros"`
}

// GenParams is enough to re-derive the deterministic part of a chunk layout.
type GenParams struct {
	ChunkSize  int `json:"chunk_size"`
	FloorY     int `json:"floor_y"`
	CeilingY   int `json:"ceiling_y"`
	WallMarker int `json:"wall_marker"`
}

// ChunkBlocks is the number of blocks one chunk emits.
func (p GenParams) ChunkBlocks(wall bool) int {
	per := 2
	if wall {
		per += p.CeilingY - p.FloorY - 1
	}
	return p.ChunkSize * p.ChunkSize * per
}

type TransitionLogger interface {
	WriteTransition(e TransitionLogEntry) error
}

// MultiTransitionLogger fans an entry out to every non-nil logger and returns
// the first error.
type MultiTransitionLogger []TransitionLogger

func (m MultiTransitionLogger) WriteTransition(e TransitionLogEntry) error {
	var first error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteTransition(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
