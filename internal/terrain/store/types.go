package store

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid chunk config")

type ChunkKey struct {
	CX int `json:"cx"`
	CZ int `json:"cz"`
}

func (k ChunkKey) Less(o ChunkKey) bool {
	if k.CX != o.CX {
		return k.CX < o.CX
	}
	return k.CZ < o.CZ
}

// Placement asks the renderer for one unit cube at an integer grid position.
type Placement struct {
	X, Y, Z int
	Label   string
}

// Handle is opaque to the chunk manager.
type Handle uint64

type Placer interface {
	PlaceBlock(p Placement) Handle
}

type Config struct {
	ChunkSize  int
	ViewRadius int
	FloorY     int
	CeilingY   int
	FloorLabel string
}

func (c Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size %d must be positive", ErrInvalidConfig, c.ChunkSize)
	case c.ViewRadius < 0:
		return fmt.Errorf("%w: view_radius %d must not be negative", ErrInvalidConfig, c.ViewRadius)
	case c.CeilingY <= c.FloorY:
		return fmt.Errorf("%w: ceiling_y %d must be above floor_y %d", ErrInvalidConfig, c.CeilingY, c.FloorY)
	case c.FloorLabel == "":
		return fmt.Errorf("%w: empty floor label", ErrInvalidConfig)
	}
	return nil
}

// ChunkStats counts what one activation emitted.
type ChunkStats struct {
	Key    ChunkKey `json:"key"`
	Wall   bool     `json:"wall"`
	Blocks int      `json:"blocks"`
}

// Transition summarises one OnPlayerMoved call.
type Transition struct {
	Cell      ChunkKey
	Changed   bool
	Activated []ChunkStats
}

func (t Transition) WallChunks() int {
	n := 0
	for _, c := range t.Activated {
		if c.Wall {
			n++
		}
	}
	return n
}

func (t Transition) Blocks() int {
	n := 0
	for _, c := range t.Activated {
		n += c.Blocks
	}
	return n
}
