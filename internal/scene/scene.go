package scene

import (
	"path"
	"sort"

	"cubeworld.dev/internal/terrain/store"
)

// Texture describes how the renderer should load a block label's image.
type Texture struct {
	Label   string `json:"label"`
	Path    string `json:"path"`
	Filter  string `json:"filter"`
	Mipmaps bool   `json:"mipmaps"`
}

// Block is one cube as the renderer sees it: centred half a unit off the grid.
type Block struct {
	Handle   store.Handle `json:"handle"`
	Center   [3]float64   `json:"center"`
	Rotation [3]float64   `json:"rotation,omitempty"`
	Label    string       `json:"label"`
}

// Scene mirrors what the browser has been asked to draw. It owns the texture
// cache and the pending block queue; it never reads back from the renderer.
type Scene struct {
	textureDir string
	textures   map[string]Texture

	next    store.Handle
	total   int
	pending []Block
}

func New(textureDir string) *Scene {
	if textureDir == "" {
		textureDir = "./texture"
	}
	return &Scene{
		textureDir: textureDir,
		textures:   map[string]Texture{},
	}
}

func (s *Scene) PlaceBlock(p store.Placement) store.Handle {
	return s.SetBlock([3]int{p.X, p.Y, p.Z}, [3]float64{}, p.Label)
}

// SetBlock places a cube at a grid position with roll/pitch/yaw rotation.
func (s *Scene) SetBlock(pos [3]int, rot [3]float64, label string) store.Handle {
	s.Texture(label)
	s.next++
	s.total++
	s.pending = append(s.pending, Block{
		Handle:   s.next,
		Center:   [3]float64{float64(pos[0]) + 0.5, float64(pos[1]) + 0.5, float64(pos[2]) + 0.5},
		Rotation: rot,
		Label:    label,
	})
	return s.next
}

// Texture returns the cached texture for a label, creating it on first use.
func (s *Scene) Texture(label string) Texture {
	if t, ok := s.textures[label]; ok {
		return t
	}
	t := Texture{
		Label:   label,
		Path:    path.Join(s.textureDir, label+".png"),
		Filter:  "nearest",
		Mipmaps: false,
	}
	s.textures[label] = t
	return t
}

// Textures lists cached textures sorted by label.
func (s *Scene) Textures() []Texture {
	out := make([]Texture, 0, len(s.textures))
	for _, t := range s.textures {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Drain hands over blocks placed since the previous call.
func (s *Scene) Drain() []Block {
	out := s.pending
	s.pending = nil
	return out
}

// Len is the number of blocks placed over the scene's lifetime.
func (s *Scene) Len() int { return s.total }

// PlaceTestPad places the static 5x5 stone pad around the origin and a single
// rotated block on top of it.
func PlaceTestPad(s *Scene, label string) {
	for x := -2; x <= 2; x++ {
		for z := -2; z <= 2; z++ {
			s.SetBlock([3]int{x, 0, z}, [3]float64{}, label)
		}
	}
	s.SetBlock([3]int{0, 1, 0}, [3]float64{1, 1, 1}, label)
}
