package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"cubeworld.dev/internal/session"
)

// SQLiteIndex is a queryable read-model of session activity. It stores
// transition summaries only; chunk contents are never persisted.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	insertTransition *sql.Stmt
	openSession      *sql.Stmt
	closeSession     *sql.Stmt

	dropTransition atomic.Uint64
	dropSession    atomic.Uint64
	dropRollback   atomic.Uint64
}

type reqKind int

const (
	reqTransition reqKind = iota + 1
	reqSessionOpen
	reqSessionClose
)

type req struct {
	kind reqKind

	transition session.TransitionLogEntry
	session    sessionRow
}

type sessionRow struct {
	ID         string
	Client     string
	Seed       uint64
	RemoteAddr string
	At         string
	Frames     uint64
	Chunks     int
	Blocks     int
}

type Stats struct {
	QueueDepth          int    `json:"queue_depth"`
	QueueCapacity       int    `json:"queue_capacity"`
	DropTransitionTotal uint64 `json:"drop_transition_total"`
	DropSessionTotal    uint64 `json:"drop_session_total"`
	// Writes lost to a failed transaction (begin or statement error).
	DropRollbackTotal uint64 `json:"drop_rollback_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	if err := s.prepare(); err != nil {
		s.closeStmts()
		_ = db.Close()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			client TEXT NOT NULL,
			seed INTEGER NOT NULL,
			remote_addr TEXT NOT NULL,
			opened_at TEXT NOT NULL,
			closed_at TEXT,
			frames INTEGER NOT NULL DEFAULT 0,
			chunks INTEGER NOT NULL DEFAULT 0,
			blocks INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS transitions (
			session_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			cx INTEGER NOT NULL,
			cz INTEGER NOT NULL,
			activated INTEGER NOT NULL,
			wall_chunks INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			micros INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (session_id, frame)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_cell ON transitions(cx, cz);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) prepare() error {
	var err error
	// Ids are unique per process start; a repeated id is ignored rather than
	// allowed to overwrite an earlier session's rows.
	if s.insertTransition, err = s.db.Prepare(`INSERT OR IGNORE INTO transitions(session_id,frame,cx,cz,activated,wall_chunks,blocks,micros,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`); err != nil {
		return fmt.Errorf("prepare transitions insert: %w", err)
	}
	if s.openSession, err = s.db.Prepare(`INSERT INTO sessions(session_id,client,seed,remote_addr,opened_at) VALUES(?,?,?,?,?) ON CONFLICT(session_id) DO NOTHING`); err != nil {
		return fmt.Errorf("prepare sessions insert: %w", err)
	}
	if s.closeSession, err = s.db.Prepare(`UPDATE sessions SET closed_at=?, frames=?, chunks=?, blocks=? WHERE session_id=? AND closed_at IS NULL`); err != nil {
		return fmt.Errorf("prepare sessions update: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) closeStmts() {
	for _, st := range []*sql.Stmt{s.insertTransition, s.openSession, s.closeSession} {
		if st != nil {
			_ = st.Close()
		}
	}
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropTransitionTotal: s.dropTransition.Load(),
		DropSessionTotal:    s.dropSession.Load(),
		DropRollbackTotal:   s.dropRollback.Load(),
	}
}

func (s *SQLiteIndex) WriteTransition(e session.TransitionLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTransition, transition: e}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTransition.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSessionOpen(id, client string, seed uint64, remoteAddr string) {
	s.enqueueSession(req{kind: reqSessionOpen, session: sessionRow{
		ID:         id,
		Client:     client,
		Seed:       seed,
		RemoteAddr: remoteAddr,
		At:         time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

func (s *SQLiteIndex) RecordSessionClose(id string, frames uint64, chunks, blocks int) {
	s.enqueueSession(req{kind: reqSessionClose, session: sessionRow{
		ID:     id,
		At:     time.Now().UTC().Format(time.RFC3339Nano),
		Frames: frames,
		Chunks: chunks,
		Blocks: blocks,
	}})
}

func (s *SQLiteIndex) enqueueSession(r req) {
	if s == nil || s.closed.Load() || r.session.ID == "" {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropSession.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	defer s.closeStmts()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return
		}
		tx = txx
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		// The failed op plus everything batched before it.
		s.dropRollback.Add(uint64(opCount + 1))
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			s.dropRollback.Add(1)
			continue
		}
		switch r.kind {
		case reqTransition:
			e := r.transition
			raw, _ := json.Marshal(e)
			exec(s.insertTransition,
				e.SessionID,
				int64(e.Frame),
				e.Cell[0], e.Cell[1],
				len(e.Activated),
				e.WallChunks,
				e.Blocks,
				e.Micros,
				string(raw),
			)
		case reqSessionOpen:
			se := r.session
			exec(s.openSession, se.ID, se.Client, int64(se.Seed), se.RemoteAddr, se.At)
		case reqSessionClose:
			se := r.session
			exec(s.closeSession, se.At, int64(se.Frames), se.Chunks, se.Blocks, se.ID)
			// Session close is the natural end of a burst.
			commit()
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
