package scene

import (
	"testing"

	"cubeworld.dev/internal/terrain/store"
)

func TestPlaceBlockCentersAndCachesTextures(t *testing.T) {
	s := New("./texture")
	h1 := s.PlaceBlock(store.Placement{X: 2, Y: 0, Z: -3, Label: "Stone"})
	h2 := s.PlaceBlock(store.Placement{X: 0, Y: 4, Z: 0, Label: "Coal"})
	h3 := s.PlaceBlock(store.Placement{X: 1, Y: 1, Z: 1, Label: "Stone"})
	if !(h1 < h2 && h2 < h3) {
		t.Fatalf("handles not increasing: %d %d %d", h1, h2, h3)
	}

	blocks := s.Drain()
	if len(blocks) != 3 {
		t.Fatalf("drained %d blocks want 3", len(blocks))
	}
	if blocks[0].Center != [3]float64{2.5, 0.5, -2.5} {
		t.Fatalf("center=%v", blocks[0].Center)
	}
	if len(s.Drain()) != 0 {
		t.Fatalf("drain should empty the queue")
	}
	if s.Len() != 3 {
		t.Fatalf("Len=%d want 3", s.Len())
	}

	tex := s.Textures()
	if len(tex) != 2 || tex[0].Label != "Coal" || tex[1].Label != "Stone" {
		t.Fatalf("textures=%+v", tex)
	}
	if tex[1].Path != "texture/Stone.png" || tex[1].Filter != "nearest" || tex[1].Mipmaps {
		t.Fatalf("texture settings=%+v", tex[1])
	}
}

func TestPlaceTestPad(t *testing.T) {
	s := New("")
	PlaceTestPad(s, "Stone")
	blocks := s.Drain()
	if len(blocks) != 26 {
		t.Fatalf("pad blocks=%d want 26", len(blocks))
	}
	top := blocks[len(blocks)-1]
	if top.Center != [3]float64{0.5, 1.5, 0.5} || top.Rotation != [3]float64{1, 1, 1} {
		t.Fatalf("top block=%+v", top)
	}
}
