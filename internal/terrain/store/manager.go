package store

import (
	"sort"

	"cubeworld.dev/internal/logic/mathx"
	"cubeworld.dev/internal/terrain/gen"
)

type Classifier interface {
	Classify(cx, cz int) gen.Cell
}

type OrePicker interface {
	Pick(worldX, worldZ int) string
}

// Manager streams chunks around the player. Chunks are activated at most once
// and never evicted. Accessed only from the session loop goroutine.
type Manager struct {
	cfg      Config
	classify Classifier
	ores     OrePicker
	placer   Placer

	activated map[ChunkKey]struct{}
	last      ChunkKey
	hasLast   bool
}

func NewManager(cfg Config, classify Classifier, ores OrePicker, placer Placer) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:       cfg,
		classify:  classify,
		ores:      ores,
		placer:    placer,
		activated: map[ChunkKey]struct{}{},
	}, nil
}

func (m *Manager) CellAt(x, z float64) ChunkKey {
	return ChunkKey{
		CX: mathx.FloorCell(x, m.cfg.ChunkSize),
		CZ: mathx.FloorCell(z, m.cfg.ChunkSize),
	}
}

// OnPlayerMoved activates the view window around the player's cell. It is a
// no-op while the player stays inside the last active cell.
func (m *Manager) OnPlayerMoved(x, z float64) Transition {
	cell := m.CellAt(x, z)
	if m.hasLast && cell == m.last {
		return Transition{Cell: cell}
	}

	tr := Transition{Cell: cell, Changed: true}
	r := m.cfg.ViewRadius
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			k := ChunkKey{CX: cell.CX + dx, CZ: cell.CZ + dz}
			if _, ok := m.activated[k]; ok {
				continue
			}
			tr.Activated = append(tr.Activated, m.ActivateChunk(k))
			m.activated[k] = struct{}{}
		}
	}
	m.last = cell
	m.hasLast = true
	return tr
}

// ActivateChunk emits every block of one chunk. It does not consult or update
// the activated set.
func (m *Manager) ActivateChunk(k ChunkKey) ChunkStats {
	st := ChunkStats{Key: k, Wall: m.classify.Classify(k.CX, k.CZ) == gen.Wall}
	size := m.cfg.ChunkSize
	for x := 0; x < size; x++ {
		for z := 0; z < size; z++ {
			wx := k.CX*size + x
			wz := k.CZ*size + z

			m.placer.PlaceBlock(Placement{X: wx, Y: m.cfg.FloorY, Z: wz, Label: m.cfg.FloorLabel})
			m.placer.PlaceBlock(Placement{X: wx, Y: m.cfg.CeilingY, Z: wz, Label: m.cfg.FloorLabel})
			st.Blocks += 2

			if !st.Wall {
				continue
			}
			for y := m.cfg.FloorY + 1; y < m.cfg.CeilingY; y++ {
				m.placer.PlaceBlock(Placement{X: wx, Y: y, Z: wz, Label: m.ores.Pick(wx, wz)})
				st.Blocks++
			}
		}
	}
	return st
}

func (m *Manager) IsActivated(k ChunkKey) bool {
	_, ok := m.activated[k]
	return ok
}

func (m *Manager) ActivatedCount() int { return len(m.activated) }

func (m *Manager) ActivatedKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(m.activated))
	for k := range m.activated {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

func (m *Manager) LastCell() (ChunkKey, bool) {
	return m.last, m.hasLast
}
