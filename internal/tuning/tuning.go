package tuning

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"cubeworld.dev/internal/terrain/gen"
	"cubeworld.dev/internal/terrain/ore"
	"cubeworld.dev/internal/terrain/store"
)

//go:embed tuning.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("tuning.schema.json", schemaJSON)

type Tuning struct {
	ChunkSize  int `yaml:"chunk_size"`
	ViewRadius int `yaml:"view_radius"`
	FloorY     int `yaml:"floor_y"`
	CeilingY   int `yaml:"ceiling_y"`
	WallMarker int `yaml:"wall_marker"`

	FloorLabel    string           `yaml:"floor_label"`
	FallbackLabel string           `yaml:"fallback_label"`
	OreTable      []ore.Descriptor `yaml:"ore_table"`

	FrameRateHz     int        `yaml:"frame_rate_hz"`
	MoveSpeed       float64    `yaml:"move_speed"`
	LookSensitivity float64    `yaml:"look_sensitivity"`
	Spawn           [3]float64 `yaml:"spawn"`
	TextureDir      string     `yaml:"texture_dir"`
	TestPad         bool       `yaml:"test_pad"`
}

func Defaults() Tuning {
	return Tuning{
		ChunkSize:     8,
		ViewRadius:    2,
		FloorY:        0,
		CeilingY:      5,
		WallMarker:    gen.DefaultWallMarker,
		FloorLabel:    "Stone",
		FallbackLabel: ore.DefaultFallback,
		OreTable: []ore.Descriptor{
			{Label: "Coal_Ore", MinDistance: 0, MaxDistance: 96, Peak: 0.20},
			{Label: "Iron_Ore", MinDistance: 32, MaxDistance: 192, Peak: 0.12},
			{Label: "Gold_Ore", MinDistance: 128, MaxDistance: 384, Peak: 0.06},
			{Label: "Diamond_Ore", MinDistance: 256, MaxDistance: 768, Peak: 0.03},
		},
		FrameRateHz:     60,
		MoveSpeed:       0.1,
		LookSensitivity: 0.002,
		Spawn:           [3]float64{4, 4, 4},
		TextureDir:      "./texture",
	}
}

func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}
	return Parse(raw)
}

// Parse validates a YAML document against the tuning schema and overlays it
// on Defaults. A present ore_table replaces the default table wholesale.
func Parse(raw []byte) (Tuning, error) {
	t := Defaults()

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if doc != nil {
		if err := validate(doc); err != nil {
			return t, fmt.Errorf("tuning.yaml: %w", err)
		}
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("tuning.yaml: %w", err)
		}
	}
	if _, err := t.Ores(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.StoreConfig().Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// validate runs the schema over the JSON form of the document so numbers
// arrive as the validator expects them.
func validate(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

func (t Tuning) StoreConfig() store.Config {
	return store.Config{
		ChunkSize:  t.ChunkSize,
		ViewRadius: t.ViewRadius,
		FloorY:     t.FloorY,
		CeilingY:   t.CeilingY,
		FloorLabel: t.FloorLabel,
	}
}

func (t Tuning) Classifier() gen.Classifier {
	return gen.Classifier{WallMarker: t.WallMarker}
}

func (t Tuning) Ores() (*ore.Table, error) {
	return ore.NewTable(t.OreTable, t.FallbackLabel)
}
