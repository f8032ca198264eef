package gen

import "math"

type Cell uint8

const (
	Open Cell = iota
	Wall
)

func (c Cell) String() string {
	switch c {
	case Wall:
		return "WALL"
	default:
		return "OPEN"
	}
}

// DefaultWallMarker is the parity that marks a wall chunk.
const DefaultWallMarker = 1

// Hash constants. The output pattern depends on these exact values.
const (
	IndexScaleX = 4.4721
	IndexScaleZ = 15.1567
	IndexMod    = 6

	AnswerBase  = 1502
	PhaseOffZ   = 4536
	PhaseOffX   = 4972
	MixOffX     = 268
	MixOffZ     = 216
	MixMod      = 37
	ParityMod   = 2
	DegreeScale = 2 * math.Pi / 360
)

// Table is indexed by the fractional index hash.
var Table = [IndexMod]int{1, 5, 3, 9, 6, 2}

// tableIndex follows float remainder semantics (sign of the dividend), then
// shifts negative indices into [0,6).
func tableIndex(cx, cz int) int {
	// Explicit conversions keep the products rounded separately (no FMA).
	v := math.Mod(float64(float64(cx)*IndexScaleX)+float64(float64(cz)*IndexScaleZ), IndexMod)
	idx := int(math.Floor(v))
	if idx < 0 {
		idx += IndexMod
	}
	return idx
}

// Answer is the raw terrain hash for a chunk. All remainders truncate toward
// zero, so the result may be negative.
func Answer(cx, cz int) int {
	idx := tableIndex(cx, cz)

	phase := DegreeScale * float64((cz-PhaseOffZ)*(cx+PhaseOffX))
	f := int(math.Floor(float64(cx) + float64(float64(cz)*math.Sin(phase))))
	mix := (cx-MixOffX)*(cz+MixOffZ)%MixMod + Table[idx]

	return (cx + AnswerBase) + (cx-cz)*(f*mix%MixMod)
}

type Classifier struct {
	WallMarker int
}

func (c Classifier) Classify(cx, cz int) Cell {
	if Answer(cx, cz)%ParityMod == c.WallMarker {
		return Wall
	}
	return Open
}

func Classify(cx, cz int) Cell {
	return Classifier{WallMarker: DefaultWallMarker}.Classify(cx, cz)
}
