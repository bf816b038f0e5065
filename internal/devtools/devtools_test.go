package devtools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/store"
	"github.com/roach88/statebox/internal/testutil"
)

type counter struct {
	Count   int `store:"count"`
	Doubled int `store:"doubled"`
}

func quietLogger() *slog.Logger {
	return testutil.DiscardLogger()
}

func newCounter(t *testing.T) *store.Store[counter] {
	t.Helper()
	double := func(s *store.Store[counter]) error {
		s.On("count").Subscribe(func(v any) error {
			return s.Set("doubled").Set(v.(int) * 2)
		})
		return nil
	}
	s, err := store.NewWithEffects(counter{}, []store.Effect[counter]{double},
		store.WithName("counter"), store.WithLogger(quietLogger()))
	require.NoError(t, err)
	return s
}

func openRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "trace.db"), WithRecorderLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// =============================================================================
// Logger
// =============================================================================

func TestAttachLogger_LogsEveryChange(t *testing.T) {
	s := newCounter(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	sub := AttachLogger(s, logger)
	require.NoError(t, s.Set("count").Set(2))

	assert.Equal(t,
		"level=INFO msg=\"state changed\" store=counter key=doubled previous=0 value=4 version=3\n"+
			"level=INFO msg=\"state changed\" store=counter key=count previous=0 value=2 version=2\n",
		buf.String())

	sub.Unsubscribe()
	buf.Reset()
	require.NoError(t, s.Set("count").Set(3))
	assert.Empty(t, buf.String())
}

func TestAttachLogger_Options(t *testing.T) {
	s := newCounter(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	AttachLogger(s, logger, WithLevel(slog.LevelDebug), WithMessage("count moved"), WithKeys("count"))
	require.NoError(t, s.Set("count").Set(1))

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="count moved"`)
	assert.Contains(t, out, "key=count")
	assert.NotContains(t, out, "key=doubled")
}

// =============================================================================
// Recorder
// =============================================================================

func TestOpen_Pragmas(t *testing.T) {
	r := openRecorder(t)

	var mode string
	require.NoError(t, r.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, r.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	r1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, r2.Close())
}

func TestRecorder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t)
	s := newCounter(t)

	session, err := r.Record(ctx, s, SessionOptions{Label: "demo", IDs: NewFixedGenerator("session-1")})
	require.NoError(t, err)
	assert.Equal(t, "session-1", session.ID())

	require.NoError(t, s.Set("count").Set(1))
	require.NoError(t, s.Set("count").Set(1))
	session.Stop()
	session.Stop()
	require.NoError(t, s.Set("count").Set(5))

	require.NoError(t, session.Err())
	assert.Equal(t, int64(2), session.Len())

	rec, err := r.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "counter", rec.Store)
	assert.Equal(t, "demo", rec.Label)
	assert.Equal(t, []string{"count", "doubled"}, rec.Keys)
	assert.JSONEq(t, `{"count":0,"doubled":0}`, string(rec.InitialState))
	assert.Equal(t, int64(1), rec.InitialVersion)

	require.Len(t, rec.Trace, 2)
	assert.Equal(t, "doubled", rec.Trace[0].Key)
	assert.Equal(t, int64(3), rec.Trace[0].Version)
	assert.Equal(t, "count", rec.Trace[1].Key)
	assert.JSONEq(t, "1", string(rec.Trace[1].Value))
	assert.JSONEq(t, "0", string(rec.Trace[1].Previous))
}

func TestRecorder_Sessions(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t)

	sessions, err := r.Sessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)

	ids := NewFixedGenerator("b-session", "a-session")
	s1 := newCounter(t)
	_, err = r.Record(ctx, s1, SessionOptions{IDs: ids})
	require.NoError(t, err)
	require.NoError(t, s1.Set("count").Set(1))

	s2 := newCounter(t)
	_, err = r.Record(ctx, s2, SessionOptions{IDs: ids, Label: "second"})
	require.NoError(t, err)

	sessions, err = r.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SessionInfo{
		{ID: "b-session", Store: "counter", Changes: 2},
		{ID: "a-session", Store: "counter", Label: "second", Changes: 0},
	}, sessions)
}

func TestRecorder_UnknownSession(t *testing.T) {
	r := openRecorder(t)
	_, err := r.ReadSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRecorder_DuplicateSessionID(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t)
	ids := NewFixedGenerator("same", "same")

	_, err := r.Record(ctx, newCounter(t), SessionOptions{IDs: ids})
	require.NoError(t, err)
	_, err = r.Record(ctx, newCounter(t), SessionOptions{IDs: ids})
	assert.Error(t, err)
}

func TestRecorder_WriteFailureDoesNotReachStore(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t)
	s := newCounter(t)

	session, err := r.Record(ctx, s, SessionOptions{IDs: NewFixedGenerator("s")})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	require.NoError(t, s.Set("count").Set(1), "recorder errors never veto a mutation")
	assert.Error(t, session.Err())
	assert.Equal(t, int64(0), session.Len())
	assert.Equal(t, 1, s.Get("count"))
}

func TestEncodeValue(t *testing.T) {
	assert.Equal(t, `{"a":[1,2]}`, encodeValue(map[string]any{"a": []int{1, 2}}))
	assert.Equal(t, `null`, encodeValue(nil))
	assert.Equal(t, `"NaN"`, encodeValue(math.NaN()))

	var decoded any
	require.NoError(t, json.Unmarshal([]byte(encodeValue(counter{Count: 1})), &decoded))
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "UUIDv7 ids sort by creation time")
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestFormatSession_Golden(t *testing.T) {
	ctx := context.Background()
	r := openRecorder(t)
	s := newCounter(t)

	_, err := r.Record(ctx, s, SessionOptions{Label: "demo", IDs: NewFixedGenerator("session-1")})
	require.NoError(t, err)
	require.NoError(t, s.Set("count").Set(1))
	require.NoError(t, s.Set("count").Set(1))
	require.NoError(t, s.Set("count").Set(3))

	rec, err := r.ReadSession(ctx, "session-1")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "counter_session", []byte(FormatSession(rec)))
}
