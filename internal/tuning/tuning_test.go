package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cubeworld.dev/internal/terrain/ore"
	"cubeworld.dev/internal/terrain/store"
)

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	if err := d.StoreConfig().Validate(); err != nil {
		t.Fatalf("default store config: %v", err)
	}
	tbl, err := d.Ores()
	if err != nil {
		t.Fatalf("default ore table: %v", err)
	}
	labels := tbl.Labels()
	if len(labels) != 5 || labels[len(labels)-1] != "Stone" {
		t.Fatalf("labels=%v want four ores then Stone", labels)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	got, err := Parse([]byte(`
chunk_size: 16
view_radius: 3
ore_table:
  - {label: X, min_distance: 0, max_distance: 10, peak: 1.0}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.ChunkSize != 16 || got.ViewRadius != 3 {
		t.Fatalf("overrides lost: %+v", got)
	}
	if got.CeilingY != 5 || got.FloorLabel != "Stone" || got.FrameRateHz != 60 {
		t.Fatalf("defaults lost: %+v", got)
	}
	if len(got.OreTable) != 1 || got.OreTable[0].Label != "X" {
		t.Fatalf("ore table=%+v", got.OreTable)
	}
}

func TestParseEmptyDocumentUsesDefaults(t *testing.T) {
	got, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.ChunkSize != Defaults().ChunkSize {
		t.Fatalf("chunk size=%d", got.ChunkSize)
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	bad := []string{
		"chunk_size: 0\n",
		"view_radius: -1\n",
		"unknown_key: 1\n",
		"spawn: [1, 2]\n",
		"ore_table:\n  - {label: X, min_distance: 0}\n",
		"wall_marker: 3\n",
	}
	for _, doc := range bad {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func TestParseRejectsDegenerateOreBand(t *testing.T) {
	_, err := Parse([]byte("ore_table:\n  - {label: X, min_distance: 5, max_distance: 5, peak: 0.1}\n"))
	if !errors.Is(err, ore.ErrInvalidDescriptor) {
		t.Fatalf("err=%v want ErrInvalidDescriptor", err)
	}
}

func TestParseRejectsCeilingBelowFloor(t *testing.T) {
	_, err := Parse([]byte("floor_y: 5\nceiling_y: 2\n"))
	if !errors.Is(err, store.ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("frame_rate_hz: 30\nspawn: [0, 2, 0]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.FrameRateHz != 30 || got.Spawn != [3]float64{0, 2, 0} {
		t.Fatalf("loaded=%+v", got)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("missing file err=%v", err)
	}
}
