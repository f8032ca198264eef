package main

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	"cubeworld.dev/internal/persistence/indexdb"
	persistlog "cubeworld.dev/internal/persistence/log"
	"cubeworld.dev/internal/transport/ws"
	"cubeworld.dev/internal/tuning"
)

func TestWriteMetrics(t *testing.T) {
	srv := ws.NewServer(ws.Config{Tuning: tuning.Defaults()}, log.New(io.Discard, "", 0))

	var buf bytes.Buffer
	writeMetrics(&buf, srv, nil, nil)
	out := buf.String()
	if !strings.Contains(out, "cubeworld_sessions_active 0\n") {
		t.Fatalf("missing sessions gauge:\n%s", out)
	}
	if strings.Contains(out, "cubeworld_index_queue_depth") {
		t.Fatalf("index metrics written without an index:\n%s", out)
	}

	buf.Reset()
	writeMetrics(&buf, srv, persistlog.NewTransitionLogger(t.TempDir()), &indexdb.Stats{QueueDepth: 3, QueueCapacity: 4096, DropTransitionTotal: 2, DropRollbackTotal: 5})
	out = buf.String()
	for _, want := range []string{
		"cubeworld_index_queue_depth 3\n",
		"cubeworld_index_queue_capacity 4096\n",
		`cubeworld_index_dropped_total{kind="transition"} 2` + "\n",
		`cubeworld_index_dropped_total{kind="rollback"} 5` + "\n",
		"cubeworld_transition_log_entries_total 0\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:5000":     true,
		"10.0.0.2:5000":  false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}

func TestOpenRuntimeIndex(t *testing.T) {
	idx, err := openRuntimeIndex(t.TempDir(), true)
	if err != nil || idx != nil {
		t.Fatalf("disabled: idx=%v err=%v", idx, err)
	}

	t.Setenv("CW_INDEX_BACKEND", "postgres")
	if _, err := openRuntimeIndex(t.TempDir(), false); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}

	t.Setenv("CW_INDEX_BACKEND", "sqlite")
	idx, err = openRuntimeIndex(t.TempDir(), false)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if idx == nil {
		t.Fatalf("sqlite index is nil")
	}
	_ = idx.Close()
}

func TestEnvBool(t *testing.T) {
	t.Setenv("CW_TEST_FLAG", "true")
	if !envBool("CW_TEST_FLAG", false) {
		t.Fatalf("want true")
	}
	t.Setenv("CW_TEST_FLAG", "nope")
	if envBool("CW_TEST_FLAG", false) {
		t.Fatalf("invalid value should fall back to default")
	}
}
