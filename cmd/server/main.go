package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cubeworld.dev/internal/persistence/indexdb"
	persistlog "cubeworld.dev/internal/persistence/log"
	"cubeworld.dev/internal/session"
	"cubeworld.dev/internal/transport/ws"
	"cubeworld.dev/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		webDir     = flag.String("web", "./web", "static client directory (empty to disable)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite session index")
		seed       = flag.Uint64("seed", 0, "default ore seed for sessions that do not send one (0 = per-session)")
		maxSess    = flag.Int("max_sessions", 64, "max concurrent sessions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}
	_ = os.MkdirAll(*dataDir, 0o755)

	// Optional: read-model index (does not affect generation).
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	transLog := persistlog.NewTransitionLogger(*dataDir)
	defer transLog.Close()

	wsSrv := ws.NewServer(ws.Config{
		Tuning:      tune,
		Seed:        *seed,
		MaxSessions: *maxSess,
	}, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))
	if idx != nil {
		wsSrv.SetTransitionLogger(session.MultiTransitionLogger{transLog, idx})
		wsSrv.SetSessionIndex(idx)
	} else {
		wsSrv.SetTransitionLogger(transLog)
	}

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		var stats *indexdb.Stats
		if idx != nil {
			st := idx.Stats()
			stats = &st
		}
		writeMetrics(rw, wsSrv, transLog, stats)
	})
	if envBool("CW_ENABLE_PPROF_HTTP", false) {
		guard := func(h http.HandlerFunc) http.HandlerFunc {
			return func(rw http.ResponseWriter, r *http.Request) {
				if !isLoopbackRemote(r.RemoteAddr) {
					http.Error(rw, "forbidden", http.StatusForbidden)
					return
				}
				h(rw, r)
			}
		}
		mux.HandleFunc("/debug/pprof/", guard(pprof.Index))
		mux.HandleFunc("/debug/pprof/cmdline", guard(pprof.Cmdline))
		mux.HandleFunc("/debug/pprof/profile", guard(pprof.Profile))
		mux.HandleFunc("/debug/pprof/symbol", guard(pprof.Symbol))
		mux.HandleFunc("/debug/pprof/trace", guard(pprof.Trace))
		logger.Printf("pprof endpoints enabled on loopback")
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	if dir := strings.TrimSpace(*webDir); dir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(dir)))
			logger.Printf("serving client from %s", dir)
		} else {
			logger.Printf("web dir %s not found; static client disabled", dir)
		}
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func writeMetrics(rw io.Writer, wsSrv *ws.Server, transLog *persistlog.TransitionLogger, stats *indexdb.Stats) {
	fmt.Fprintf(rw, "# HELP cubeworld_sessions_active Current number of connected sessions.\n")
	fmt.Fprintf(rw, "# TYPE cubeworld_sessions_active gauge\n")
	fmt.Fprintf(rw, "cubeworld_sessions_active %d\n", wsSrv.ActiveSessions())

	fmt.Fprintf(rw, "# HELP cubeworld_frames_sent_total FRAME messages written to clients.\n")
	fmt.Fprintf(rw, "# TYPE cubeworld_frames_sent_total counter\n")
	fmt.Fprintf(rw, "cubeworld_frames_sent_total %d\n", wsSrv.FramesSent())

	if transLog != nil {
		fmt.Fprintf(rw, "# HELP cubeworld_transition_log_entries_total Transition entries appended to the zstd log.\n")
		fmt.Fprintf(rw, "# TYPE cubeworld_transition_log_entries_total counter\n")
		fmt.Fprintf(rw, "cubeworld_transition_log_entries_total %d\n", transLog.Entries())
		fmt.Fprintf(rw, "cubeworld_transition_log_segments_total %d\n", transLog.Segments())
	}

	if stats == nil {
		return
	}
	fmt.Fprintf(rw, "# HELP cubeworld_index_queue_depth Pending index writes.\n")
	fmt.Fprintf(rw, "# TYPE cubeworld_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "cubeworld_index_queue_depth %d\n", stats.QueueDepth)
	fmt.Fprintf(rw, "cubeworld_index_queue_capacity %d\n", stats.QueueCapacity)

	fmt.Fprintf(rw, "# HELP cubeworld_index_dropped_total Index writes dropped (queue full or failed transaction).\n")
	fmt.Fprintf(rw, "# TYPE cubeworld_index_dropped_total counter\n")
	fmt.Fprintf(rw, "cubeworld_index_dropped_total{kind=\"transition\"} %d\n", stats.DropTransitionTotal)
	fmt.Fprintf(rw, "cubeworld_index_dropped_total{kind=\"session\"} %d\n", stats.DropSessionTotal)
	fmt.Fprintf(rw, "cubeworld_index_dropped_total{kind=\"rollback\"} %d\n", stats.DropRollbackTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
