// Package recorder persists loop diagnostics to SQLite.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
	_ "modernc.org/sqlite"

	"github.com/san-kum/pidloop/internal/joints"
	"github.com/san-kum/pidloop/internal/loop"
)

var ErrClosed = errors.New("recorder: closed")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cycles (
	session      TEXT NOT NULL,
	cycle        INTEGER NOT NULL,
	time_ns      INTEGER NOT NULL,
	channel      INTEGER NOT NULL,
	requested    TEXT NOT NULL,
	target       REAL,
	ramped       REAL,
	measured     REAL,
	output       REAL,
	proportional REAL,
	integral     REAL,
	derivative   REAL,
	saturated    INTEGER NOT NULL,
	updated      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	session TEXT NOT NULL,
	cycle   INTEGER NOT NULL,
	time_ns INTEGER NOT NULL,
	kind    TEXT NOT NULL,
	detail  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS cycles_session ON cycles(session, cycle);
`

const (
	insertCycle = `INSERT INTO cycles (session, cycle, time_ns, channel, requested, target, ramped,
		measured, output, proportional, integral, derivative, saturated, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertEvent = `INSERT INTO events (session, cycle, time_ns, kind, detail) VALUES (?, ?, ?, ?, ?)`
)

// CycleRow is one channel of one published cycle.
type CycleRow struct {
	Cycle      uint64
	Time       time.Time
	Channel    int
	Diagnostic joints.ChannelDiagnostic
}

// Event is a skip, fault or settings change.
type Event struct {
	Cycle  uint64
	Time   time.Time
	Kind   string
	Detail string
}

// Recorder is a loop hook that buffers diagnostics and hands full batches to
// a writer goroutine, so the cycle never waits on the database. Buffered rows
// are flushed on Close and at process exit.
type Recorder struct {
	db        *sql.DB
	path      string
	session   string
	batchSize int
	log       *slog.Logger

	batches chan batch
	done    chan struct{}
	flushMu sync.Mutex

	mu     sync.Mutex
	rows   []CycleRow
	events []Event
	err    error
	closed bool
}

// batch is one transaction's worth of data. A non-nil ack receives the
// writer's result once the batch and everything queued before it is written.
type batch struct {
	rows   []CycleRow
	events []Event
	ack    chan error
}

// queuedBatches bounds how many full batches may wait for the writer before
// Func keeps accumulating instead.
const queuedBatches = 8

// Open creates or appends to the database at path and starts a new session.
// An empty path creates pidloop_<id>.sqlite3 in the working directory.
func Open(path, name string, log *slog.Logger) (*Recorder, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	session := xid.New().String()
	if path == "" {
		path = fmt.Sprintf("pidloop_%s.sqlite3", session)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: create schema: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO sessions (id, name, started_at) VALUES (?, ?, ?)`,
		session, name, time.Now().UnixNano()); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: create session: %w", err)
	}

	r := &Recorder{
		db:        db,
		path:      path,
		session:   session,
		batchSize: 1000,
		log:       log,
		batches:   make(chan batch, queuedBatches),
		done:      make(chan struct{}),
	}
	go r.writeLoop()
	atexit.Register(func() {
		if err := r.Close(); err != nil && !errors.Is(err, ErrClosed) {
			fmt.Fprintf(os.Stderr, "recorder: %v\n", err)
		}
	})

	log.Info("recording diagnostics", "path", path, "session", session)
	return r, nil
}

func (r *Recorder) Path() string    { return r.path }
func (r *Recorder) Session() string { return r.session }

// SetBatchSize sets how many rows are buffered before a write.
func (r *Recorder) SetBatchSize(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 1 {
		n = 1
	}
	r.batchSize = n
}

// Err returns the first write error. Once set, the recorder drops data.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Func records a loop hook invocation.
func (r *Recorder) Func(ctx loop.HookCtx) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}

	switch ctx.Pos {
	case loop.HookPosPublished:
		for i, d := range ctx.Diagnostic.Channels {
			r.rows = append(r.rows, CycleRow{Cycle: ctx.Cycle, Time: ctx.Time, Channel: i, Diagnostic: d})
		}
	case loop.HookPosSkipped:
		r.events = append(r.events, Event{Cycle: ctx.Cycle, Time: ctx.Time, Kind: "skip", Detail: ctx.Reason.String()})
	case loop.HookPosFault:
		r.events = append(r.events, Event{Cycle: ctx.Cycle, Time: ctx.Time, Kind: "fault", Detail: ctx.Err.Error()})
	case loop.HookPosSettingsApplied:
		r.events = append(r.events, Event{Cycle: ctx.Cycle, Time: ctx.Time, Kind: "settings"})
	default:
		return
	}

	if len(r.rows)+len(r.events) < r.batchSize {
		return
	}
	select {
	case r.batches <- batch{rows: r.rows, events: r.events}:
		r.rows, r.events = nil, nil
	default:
		// Writer is behind; keep the rows and try again next cycle.
	}
}

// Flush hands off all buffered rows and waits until they are written.
func (r *Recorder) Flush() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return err
	}
	b := r.takeLocked()
	r.mu.Unlock()

	return r.send(b)
}

func (r *Recorder) takeLocked() batch {
	b := batch{rows: r.rows, events: r.events, ack: make(chan error, 1)}
	r.rows, r.events = nil, nil
	return b
}

func (r *Recorder) send(b batch) error {
	r.batches <- b
	return <-b.ack
}

func (r *Recorder) writeLoop() {
	defer close(r.done)
	for b := range r.batches {
		r.mu.Lock()
		err := r.err
		r.mu.Unlock()

		if err == nil {
			err = r.write(b)
			if err != nil {
				r.log.Error("recorder write failed", "err", err)
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
		}
		if b.ack != nil {
			b.ack <- err
		}
	}
}

func nullable(v float64) any {
	if !joints.IsKnown(v) {
		return nil
	}
	return v
}

func (r *Recorder) write(b batch) error {
	if len(b.rows) == 0 && len(b.events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cycleStmt, err := tx.Prepare(insertCycle)
	if err != nil {
		return err
	}
	defer cycleStmt.Close()

	for _, row := range b.rows {
		d := row.Diagnostic
		_, err := cycleStmt.Exec(
			r.session, row.Cycle, row.Time.UnixNano(), row.Channel, d.Requested.String(),
			nullable(d.Target), nullable(d.Ramped), nullable(d.Measured), nullable(d.PID.Output),
			nullable(d.PID.Proportional), nullable(d.PID.Integral), nullable(d.PID.Derivative),
			d.PID.Saturated, d.Updated,
		)
		if err != nil {
			return fmt.Errorf("recorder: insert cycle %d: %w", row.Cycle, err)
		}
	}

	eventStmt, err := tx.Prepare(insertEvent)
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	for _, ev := range b.events {
		if _, err := eventStmt.Exec(r.session, ev.Cycle, ev.Time.UnixNano(), ev.Kind, ev.Detail); err != nil {
			return fmt.Errorf("recorder: insert event: %w", err)
		}
	}

	return tx.Commit()
}

// Close writes everything still buffered, stops the writer and closes the
// database.
func (r *Recorder) Close() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	failed := r.err != nil
	b := r.takeLocked()
	r.mu.Unlock()

	var err error
	if !failed {
		err = r.send(b)
	}
	close(r.batches)
	<-r.done
	return errors.Join(err, r.db.Close())
}
