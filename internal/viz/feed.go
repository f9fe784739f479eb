package viz

import (
	"sync"
	"time"

	"github.com/san-kum/pidloop/internal/joints"
	"github.com/san-kum/pidloop/internal/loop"
)

// Snapshot is the most recent view of a running loop.
type Snapshot struct {
	Cycle      uint64
	Time       time.Time
	State      loop.State
	Published  uint64
	Skipped    uint64
	LastSkip   loop.SkipReason
	Fault      error
	Output     joints.OutputSample
	Diagnostic joints.DiagnosticSample
}

// Feed is a loop hook that keeps the latest snapshot for a UI running on
// another goroutine. It never blocks the loop for longer than a copy.
type Feed struct {
	mu    sync.Mutex
	snap  Snapshot
	fresh bool
}

func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Func(ctx loop.HookCtx) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snap.Cycle = ctx.Cycle
	f.snap.Time = ctx.Time
	f.snap.State = ctx.State
	switch ctx.Pos {
	case loop.HookPosPublished:
		f.snap.Published++
		if ctx.Output != nil {
			ctx.Output.CopyTo(&f.snap.Output)
		}
		if ctx.Diagnostic != nil {
			ctx.Diagnostic.CopyTo(&f.snap.Diagnostic)
		}
	case loop.HookPosSkipped:
		f.snap.Skipped++
		f.snap.LastSkip = ctx.Reason
	case loop.HookPosFault:
		f.snap.Fault = ctx.Err
	case loop.HookPosTransition:
		if ctx.State == loop.Running {
			f.snap.Fault = nil
		}
	}
	f.fresh = true
}

// Latest returns a copy of the snapshot and whether anything happened since
// the previous call.
func (f *Feed) Latest() (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.snap
	s.Output = joints.OutputSample{}
	s.Diagnostic = joints.DiagnosticSample{}
	f.snap.Output.CopyTo(&s.Output)
	f.snap.Diagnostic.CopyTo(&s.Diagnostic)
	fresh := f.fresh
	f.fresh = false
	return s, fresh
}
