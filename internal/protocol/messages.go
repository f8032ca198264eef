package protocol

import "cubeworld.dev/internal/scene"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	// Optional: seed for ore draws (0 means server-chosen).
	Seed uint64 `json:"seed,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	SessionID       string          `json:"session_id"`
	WorldParams     WorldParams     `json:"world_params"`
	Textures        []scene.Texture `json:"textures"`
}

type WorldParams struct {
	ChunkSize       int        `json:"chunk_size"`
	ViewRadius      int        `json:"view_radius"`
	FloorY          int        `json:"floor_y"`
	CeilingY        int        `json:"ceiling_y"`
	FrameRateHz     int        `json:"frame_rate_hz"`
	LookSensitivity float64    `json:"look_sensitivity"`
	Spawn           [3]float64 `json:"spawn"`
	Seed            uint64     `json:"seed"`
}

// INPUT (client -> server). Keys lists currently held key codes; Look is the
// accumulated pointer movement since the previous INPUT.
type InputMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Frame           uint64     `json:"frame,omitempty"`
	Keys            []string   `json:"keys"`
	Look            [2]float64 `json:"look"`
}

// FRAME (server -> client)
type FrameMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Frame           uint64        `json:"frame"`
	Camera          Camera        `json:"camera"`
	Cell            [2]int        `json:"cell"`
	Blocks          []scene.Block `json:"blocks,omitempty"`
}

type Camera struct {
	Pos   [3]float64 `json:"pos"`
	Yaw   float64    `json:"yaw"`
	Pitch float64    `json:"pitch"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
