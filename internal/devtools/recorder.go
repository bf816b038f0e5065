package devtools

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/statebox/internal/emitter"
	"github.com/roach88/statebox/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Added index on changes(session_id, key)
const currentSchemaVersion = 1

// ErrSessionNotFound is returned by ReadSession for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

// Recorder appends store change streams to a SQLite database.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the logger used to report write failures.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// Open creates or opens a recording database at path.
//
// The database runs in WAL mode with NORMAL synchronous writes, a 5 second
// busy timeout and foreign keys enforced. Schema and migrations are applied
// on every Open; both are idempotent.
func Open(path string, opts ...RecorderOption) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	r := &Recorder{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_changes_session_key
			ON changes(session_id, key)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// SessionOptions configures one recording.
type SessionOptions struct {
	// Label is a free-form description stored with the session.
	Label string

	// IDs generates the session id. Default: UUIDv7Generator.
	IDs IDGenerator
}

// Session is one active recording of one store.
type Session struct {
	id       string
	recorder *Recorder
	ctx      context.Context
	sub      *emitter.Subscription

	mu   sync.Mutex
	seq  int64
	errs []error
}

// Record starts recording e. The store's current state is saved as the
// session's initial state, then every change delivered through OnAll is
// appended. Write failures never reach the store; they are logged and
// reported by Session.Err.
func (r *Recorder) Record(ctx context.Context, e store.Engine, opts SessionOptions) (*Session, error) {
	ids := opts.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	keys, err := json.Marshal(e.Keys())
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", e.Name(), err)
	}
	view := e.View()
	initial := encodeValue(e.StateMap())

	id := ids.Generate()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, store, label, keys, initial_state, initial_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, e.Name(), opts.Label, string(keys), initial, view.Version())
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", e.Name(), err)
	}

	s := &Session{id: id, recorder: r, ctx: context.WithoutCancel(ctx)}
	s.sub = e.OnAll().Subscribe(emitter.Func(s.write))

	r.logger.Debug("recording started", "session", id, "store", e.Name())
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Len returns the number of changes written.
func (s *Session) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Err returns the write failures seen so far, joined.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

// Stop ends the recording. Repeated calls are no-ops.
func (s *Session) Stop() {
	s.sub.Unsubscribe()
}

func (s *Session) write(c store.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq + 1
	_, err := s.recorder.db.ExecContext(s.ctx, `
		INSERT INTO changes (session_id, seq, key, previous, value, version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.id, seq, c.Key, encodeValue(c.PreviousValue), encodeValue(c.Value), c.Version)
	if err != nil {
		err = fmt.Errorf("write change %d of session %s: %w", seq, s.id, err)
		s.errs = append(s.errs, err)
		s.recorder.logger.Error("recording failed", "session", s.id, "key", c.Key, "error", err)
		return
	}
	s.seq = seq
}

// encodeValue renders v as JSON. Values JSON cannot represent (NaN, funcs,
// channels) are stored as a JSON string of their %v form.
func encodeValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	return string(data)
}

// SessionInfo summarizes a recorded session.
type SessionInfo struct {
	ID      string `json:"id"`
	Store   string `json:"store"`
	Label   string `json:"label,omitempty"`
	Changes int64  `json:"changes"`
}

// ChangeRecord is one recorded change. Values are kept as JSON.
type ChangeRecord struct {
	Seq      int64           `json:"seq"`
	Key      string          `json:"key"`
	Previous json.RawMessage `json:"previous"`
	Value    json.RawMessage `json:"value"`
	Version  int64           `json:"version"`
}

// SessionRecord is a full recorded session.
type SessionRecord struct {
	SessionInfo
	Keys           []string        `json:"keys"`
	InitialState   json.RawMessage `json:"initial_state"`
	InitialVersion int64           `json:"initial_version"`
	Trace          []ChangeRecord  `json:"trace"`
}

// Sessions lists recorded sessions in the order they were started.
// Returns an empty slice, not nil, when there are none.
func (r *Recorder) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.store, s.label, COUNT(c.seq)
		FROM sessions s
		LEFT JOIN changes c ON c.session_id = s.id
		GROUP BY s.id
		ORDER BY s.rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Store, &info.Label, &info.Changes); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession returns the session with the given id and its changes ordered
// by seq.
func (r *Recorder) ReadSession(ctx context.Context, id string) (*SessionRecord, error) {
	rec := &SessionRecord{}
	var keys, initial string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, store, label, keys, initial_state, initial_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Store, &rec.Label, &keys, &initial, &rec.InitialVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(keys), &rec.Keys); err != nil {
		return nil, fmt.Errorf("decode keys of session %s: %w", id, err)
	}
	rec.InitialState = json.RawMessage(initial)

	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, key, previous, value, version
		FROM changes
		WHERE session_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	rec.Trace = []ChangeRecord{}
	for rows.Next() {
		var c ChangeRecord
		var prev, val string
		if err := rows.Scan(&c.Seq, &c.Key, &prev, &val, &c.Version); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.Previous = json.RawMessage(prev)
		c.Value = json.RawMessage(val)
		rec.Trace = append(rec.Trace, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	rec.Changes = int64(len(rec.Trace))
	return rec, nil
}

// FormatSession renders a session as text, one change per line.
func FormatSession(rec *SessionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "session %s store=%s", rec.ID, rec.Store)
	if rec.Label != "" {
		fmt.Fprintf(&b, " label=%q", rec.Label)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "keys: %s\n", strings.Join(rec.Keys, ", "))
	fmt.Fprintf(&b, "initial (v%d): %s\n", rec.InitialVersion, rec.InitialState)
	for _, c := range rec.Trace {
		fmt.Fprintf(&b, "#%d v%d %s: %s -> %s\n", c.Seq, c.Version, c.Key, c.Previous, c.Value)
	}
	return b.String()
}
