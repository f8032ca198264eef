package ore

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"cubeworld.dev/internal/logic/mathx"
)

const DefaultFallback = "Stone"

var ErrInvalidDescriptor = errors.New("invalid ore descriptor")

// Descriptor defines one distance-banded rarity curve.
type Descriptor struct {
	Label       string  `yaml:"label"`
	MinDistance float64 `yaml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance"`
	Peak        float64 `yaml:"peak"`
}

// Weight is an inverted parabola over [min,max]: Peak at the midpoint, zero at
// and beyond the bounds.
func Weight(d Descriptor, b float64) float64 {
	t := mathx.Clamp(2*(b-d.MinDistance)/(d.MaxDistance-d.MinDistance)-1, -1, 1)
	return (1 - t*t) * d.Peak
}

// Table is an ordered, validated descriptor list. Earlier entries win ties.
type Table struct {
	descs    []Descriptor
	fallback string
}

func NewTable(descs []Descriptor, fallback string) (*Table, error) {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		return nil, fmt.Errorf("%w: empty fallback label", ErrInvalidDescriptor)
	}
	out := make([]Descriptor, 0, len(descs))
	for i, d := range descs {
		d.Label = strings.TrimSpace(d.Label)
		switch {
		case d.Label == "":
			return nil, fmt.Errorf("%w: [%d] empty label", ErrInvalidDescriptor, i)
		case !(d.MaxDistance > d.MinDistance):
			return nil, fmt.Errorf("%w: [%d] %s max_distance %v must exceed min_distance %v", ErrInvalidDescriptor, i, d.Label, d.MaxDistance, d.MinDistance)
		case !(d.Peak >= 0):
			return nil, fmt.Errorf("%w: [%d] %s peak %v must be a non-negative number", ErrInvalidDescriptor, i, d.Label, d.Peak)
		}
		out = append(out, d)
	}
	return &Table{descs: out, fallback: fallback}, nil
}

// Labels lists every label Pick can return, table order first.
func (t *Table) Labels() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(t.descs)+1)
	for _, d := range t.descs {
		if !seen[d.Label] {
			seen[d.Label] = true
			out = append(out, d.Label)
		}
	}
	if !seen[t.fallback] {
		out = append(out, t.fallback)
	}
	return out
}

// PickAt resolves a label for Manhattan distance b and a uniform draw r.
func (t *Table) PickAt(b, r float64) string {
	sum := 0.0
	for _, d := range t.descs {
		sum += Weight(d, b)
		if sum > r {
			return d.Label
		}
	}
	return t.fallback
}

type Source interface {
	Float64() float64
}

func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Selector draws one uniform value per Pick.
type Selector struct {
	table *Table
	src   Source
}

func NewSelector(t *Table, src Source) *Selector {
	return &Selector{table: t, src: src}
}

func (s *Selector) Pick(worldX, worldZ int) string {
	b := float64(mathx.AbsInt(worldX) + mathx.AbsInt(worldZ))
	return s.table.PickAt(b, s.src.Float64())
}
