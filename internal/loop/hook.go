package loop

import (
	"time"

	"github.com/san-kum/pidloop/internal/joints"
)

// HookPos names the point in the loop at which a hook fires.
type HookPos struct {
	Name string
}

var (
	// HookPosPublished fires after outputs and diagnostics are written.
	HookPosPublished = &HookPos{Name: "Published"}
	// HookPosSkipped fires when a cycle publishes nothing.
	HookPosSkipped = &HookPos{Name: "Skipped"}
	// HookPosFault fires when a cycle raises a fatal condition.
	HookPosFault = &HookPos{Name: "Fault"}
	// HookPosTransition fires on every lifecycle state change.
	HookPosTransition = &HookPos{Name: "Transition"}
	// HookPosSettingsApplied fires when new settings take effect.
	HookPosSettingsApplied = &HookPos{Name: "SettingsApplied"}
)

// HookCtx describes the site at which a hook fires. Samples are only valid
// for the duration of the call.
type HookCtx struct {
	Pos        *HookPos
	Cycle      uint64
	Time       time.Time
	State      State
	Reason     SkipReason
	Err        error
	Output     *joints.OutputSample
	Diagnostic *joints.DiagnosticSample
}

// Hook observes a Loop.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a function to a Hook.
type HookFunc func(ctx HookCtx)

func (f HookFunc) Func(ctx HookCtx) { f(ctx) }
