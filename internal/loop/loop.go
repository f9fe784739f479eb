package loop

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/joints"
	"github.com/san-kum/pidloop/internal/ports"
	"github.com/san-kum/pidloop/internal/settings"
)

// Config wires a Loop to its host. Logger may be nil.
type Config struct {
	Commands    CommandReader
	Status      StatusReader
	Outputs     OutputWriter
	Diagnostics DiagnosticWriter
	Settings    SettingsSource
	Logger      *slog.Logger
}

type Loop struct {
	commands    CommandReader
	statusIn    StatusReader
	outputs     OutputWriter
	diagnostics DiagnosticWriter
	settings    SettingsSource
	log         *slog.Logger
	hooks       []Hook

	mu    sync.Mutex
	state State
	fault error

	cycle    uint64
	version  uint64
	channels []settings.Channel

	pids       []control.PID
	ramps      []control.Ramp
	estimators []control.VelocityEstimator
	requested  []joints.Domain

	cmd    joints.CommandSample
	status joints.StatusSample
	out    joints.OutputSample
	work   joints.OutputSample
	diag   joints.DiagnosticSample
}

func New(cfg Config) *Loop {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loop{
		commands:    cfg.Commands,
		statusIn:    cfg.Status,
		outputs:     cfg.Outputs,
		diagnostics: cfg.Diagnostics,
		settings:    cfg.Settings,
		log:         log,
	}
}

// AcceptHook registers a hook. Hooks must be registered before the loop
// runs.
func (l *Loop) AcceptHook(h Hook) {
	l.hooks = append(l.hooks, h)
}

func (l *Loop) invokeHook(ctx HookCtx) {
	for _, h := range l.hooks {
		h.Func(ctx)
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Fault returns the error that faulted the loop, if any.
func (l *Loop) Fault() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fault
}

// NumChannels returns the configured channel count.
func (l *Loop) NumChannels() int {
	return len(l.channels)
}

// Cycle returns the number of cycles run since Start.
func (l *Loop) Cycle() uint64 { return l.cycle }

func (l *Loop) setState(s State, fault error) {
	l.mu.Lock()
	prev := l.state
	l.state = s
	l.fault = fault
	l.mu.Unlock()

	if prev != s {
		l.log.Info("state transition", "from", prev, "to", s)
	}
	l.invokeHook(HookCtx{Pos: HookPosTransition, Cycle: l.cycle, State: s, Err: fault})
}

func (l *Loop) transitionError(op string) error {
	return fmt.Errorf("%w: %s in state %v", ErrInvalidTransition, op, l.state)
}

// Configure sizes every per-channel container from the current settings and
// resets all per-channel state.
func (l *Loop) Configure() error {
	switch l.state {
	case Unconfigured, Configured, Stopped:
	default:
		return l.transitionError("configure")
	}

	snap, version := l.settings.Snapshot()
	if err := settings.Validate(snap); err != nil {
		return err
	}

	n := len(snap)
	if err := l.settings.Bind(n); err != nil {
		return fmt.Errorf("%w: %w", ErrSettingsChanged, err)
	}
	if n != len(l.channels) {
		l.pids = make([]control.PID, n)
		l.ramps = make([]control.Ramp, n)
		l.estimators = make([]control.VelocityEstimator, n)
		l.requested = make([]joints.Domain, n)
		l.out.Channels = make([]joints.Output, n)
		l.work.Channels = make([]joints.Output, n)
		l.diag.Channels = make([]joints.ChannelDiagnostic, n)
	}
	l.channels = snap
	l.version = version
	l.resetChannels()

	l.log.Info("configured", "channels", n)
	l.setState(Configured, nil)
	return nil
}

// Start reloads the gains from the current settings, resets all transient
// per-channel state and starts accepting cycles. It fails if the channel
// count changed since Configure.
func (l *Loop) Start() error {
	switch l.state {
	case Configured, Stopped:
	default:
		return l.transitionError("start")
	}

	snap, version := l.settings.Snapshot()
	if len(snap) != len(l.channels) {
		return fmt.Errorf("%w: configured %d channels, settings have %d",
			ErrSettingsChanged, len(l.channels), len(snap))
	}

	l.channels = snap
	l.version = version
	l.resetChannels()
	l.cycle = 0

	l.setState(Running, nil)
	return nil
}

// Stop ends cycling. Per-channel state is kept until the next Start.
func (l *Loop) Stop() error {
	switch l.state {
	case Running, Faulted:
	default:
		return l.transitionError("stop")
	}
	l.setState(Stopped, nil)
	return nil
}

// Recover clears a fault. The loop must be started again before cycles
// resume.
func (l *Loop) Recover() error {
	if l.state != Faulted {
		return l.transitionError("recover")
	}
	l.setState(Stopped, nil)
	return nil
}

// Cleanup releases the per-channel containers and the channel count lock.
func (l *Loop) Cleanup() error {
	switch l.state {
	case Configured, Stopped:
	default:
		return l.transitionError("cleanup")
	}
	l.channels = nil
	l.pids = nil
	l.ramps = nil
	l.estimators = nil
	l.requested = nil
	l.out.Channels = nil
	l.work.Channels = nil
	l.diag.Channels = nil
	l.settings.Unbind()
	l.setState(Unconfigured, nil)
	return nil
}

// UpdateSettings replaces the settings. It may be called from any goroutine.
// From Configure until Cleanup a sequence with a different channel count is
// rejected and the current settings stay in effect. Accepted settings apply
// at the next cycle.
func (l *Loop) UpdateSettings(next []settings.Channel) error {
	if err := l.settings.Replace(next); err != nil {
		l.log.Warn("settings update rejected", "err", err)
		return fmt.Errorf("%w: %w", ErrReconfigurationRejected, err)
	}
	return nil
}

func (l *Loop) resetChannels() {
	for i, c := range l.channels {
		l.pids[i] = *control.NewPID(c.Gains())
		l.ramps[i].Reset()
		l.estimators[i].Reset()
		l.requested[i] = joints.Unset
		l.out.Channels[i] = joints.Cleared()
		l.diag.Channels[i] = joints.ChannelDiagnostic{}
	}
}

// applySettings swaps in settings replaced since the previous cycle. Gains
// change without resetting the PID memory.
func (l *Loop) applySettings() {
	if l.settings.Version() == l.version {
		return
	}
	snap, version := l.settings.Snapshot()
	l.version = version
	if len(snap) != len(l.channels) {
		l.log.Error("ignoring settings with mismatched channel count", "have", len(l.channels), "got", len(snap))
		return
	}

	for i, next := range snap {
		prev := l.channels[i]
		l.pids[i].SetGains(next.Gains())
		if next.OutputDomain != prev.OutputDomain {
			l.out.Channels[i] = joints.Cleared()
		}
		if next.UseExternal != prev.UseExternal || next.Derive != prev.Derive {
			l.estimators[i].Reset()
		}
	}
	l.channels = snap

	l.log.Debug("settings applied", "version", version)
	l.invokeHook(HookCtx{Pos: HookPosSettingsApplied, Cycle: l.cycle, State: l.state})
}

// Update runs one control cycle at time now. It is a no-op unless the loop
// is running. A fatal condition faults the loop and is returned.
func (l *Loop) Update(now time.Time) error {
	if l.state != Running {
		return nil
	}
	l.cycle++
	l.applySettings()

	n := len(l.channels)

	if l.commands.Read(&l.cmd) == ports.NoData {
		l.skip(now, SkipNoCommand)
		return nil
	}
	if l.cmd.Len() != n {
		return l.raise(now, -1, ErrSizeMismatch,
			fmt.Sprintf("command has %d channels, expected %d", l.cmd.Len(), n))
	}

	if l.statusIn.Read(&l.status) != ports.NewData {
		l.skip(now, SkipStaleStatus)
		return nil
	}
	if l.status.Len() != n {
		return l.raise(now, -1, ErrSizeMismatch,
			fmt.Sprintf("status has %d channels, expected %d", l.status.Len(), n))
	}

	sampleTime := l.status.Time
	if sampleTime.IsZero() {
		sampleTime = now
	}

	copy(l.work.Channels, l.out.Channels)
	updated := 0
	for i := 0; i < n; i++ {
		ok, err := l.updateChannel(i, now, sampleTime)
		if err != nil {
			return l.raise(now, i, err, "")
		}
		if ok {
			updated++
		}
	}

	if updated == 0 {
		l.skip(now, SkipColdStart)
		return nil
	}

	l.out.Channels, l.work.Channels = l.work.Channels, l.out.Channels
	l.out.Time = now
	l.diag.Time = now
	l.diag.Cycle = l.cycle
	l.outputs.Write(l.out)
	l.diagnostics.Write(l.diag)

	l.invokeHook(HookCtx{
		Pos:        HookPosPublished,
		Cycle:      l.cycle,
		Time:       now,
		State:      l.state,
		Output:     &l.out,
		Diagnostic: &l.diag,
	})
	return nil
}

// updateChannel computes channel i into the work buffer. It returns false
// when the channel is waiting for estimator history.
func (l *Loop) updateChannel(i int, now, sampleTime time.Time) (bool, error) {
	cmd := l.cmd.Channels[i]
	if !cmd.Usable() {
		return false, fmt.Errorf("%w: domain %v value %v", ErrInvalidInputDomain, cmd.Domain, cmd.Value)
	}
	cfg := &l.channels[i]
	diag := &l.diag.Channels[i]

	if cmd.Domain != l.requested[i] {
		l.ramps[i].Reset()
		l.estimators[i].Reset()
		l.requested[i] = cmd.Domain
	}

	target := l.ramps[i].Apply(cmd.Value, now, cfg.Ramp)
	diag.Requested = cmd.Domain
	diag.Target = cmd.Value
	diag.Ramped = target
	diag.Updated = false

	measured, ok, err := l.measure(i, cmd.Domain, sampleTime)
	if err != nil {
		return false, err
	}
	diag.Measured = measured
	if !ok {
		l.log.Debug("channel warming up", "channel", i, "domain", cmd.Domain)
		return false, nil
	}

	u := l.pids[i].Update(measured, target, now)
	l.work.Channels[i] = joints.Output{Domain: cfg.OutputDomain, Value: u}
	diag.PID = l.pids[i].State()
	diag.Updated = true
	return true, nil
}

// measure selects the measurement for domain d on channel i, running the
// velocity estimator for derived domains.
func (l *Loop) measure(i int, d joints.Domain, sampleTime time.Time) (float64, bool, error) {
	cfg := &l.channels[i]
	reading := l.status.Channels[i].Source(cfg.UseExternal)

	if src, derivable := d.Source(); derivable && cfg.Derive {
		v := reading.Field(src)
		if !joints.IsKnown(v) {
			return joints.Unknown, false, fmt.Errorf("%w: %v needed to derive %v", ErrInvalidStatusValue, src, d)
		}
		rate, ok := l.estimators[i].Update(sampleTime, v)
		if !ok {
			return joints.Unknown, false, nil
		}
		return rate, true, nil
	}

	v := reading.Field(d)
	if !joints.IsKnown(v) {
		return joints.Unknown, false, fmt.Errorf("%w: %v", ErrInvalidStatusValue, d)
	}
	return v, true, nil
}

func (l *Loop) skip(now time.Time, reason SkipReason) {
	l.invokeHook(HookCtx{Pos: HookPosSkipped, Cycle: l.cycle, Time: now, State: l.state, Reason: reason})
}

func (l *Loop) raise(now time.Time, channel int, err error, detail string) error {
	cerr := &CycleError{
		Cycle:   l.cycle,
		Channel: channel,
		Time:    now,
		Detail:  detail,
		Wrapped: err,
	}
	l.log.Error("cycle fault", "cycle", l.cycle, "channel", channel, "err", cerr)
	l.setState(Faulted, cerr)
	l.invokeHook(HookCtx{Pos: HookPosFault, Cycle: l.cycle, Time: now, State: Faulted, Err: cerr})
	return cerr
}

// IsFatal reports whether err is one of the fatal cycle conditions.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSizeMismatch) ||
		errors.Is(err, ErrInvalidInputDomain) ||
		errors.Is(err, ErrInvalidStatusValue)
}
