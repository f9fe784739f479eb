package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/san-kum/pidloop/internal/joints"
	"github.com/san-kum/pidloop/internal/loop"
	"github.com/san-kum/pidloop/internal/metrics"
	"github.com/san-kum/pidloop/internal/plant"
	"github.com/san-kum/pidloop/internal/ports"
	"github.com/san-kum/pidloop/internal/runtime"
	"github.com/san-kum/pidloop/internal/settings"
)

// Epoch is the virtual start time of simulated runs.
var Epoch = time.Unix(0, 0).UTC()

type Config struct {
	Settings   *settings.Config
	Integrator string
	Noise      plant.Noise
	GearRatio  float64
	Logger     *slog.Logger
}

// ChannelTrace is one channel's view of a cycle.
type ChannelTrace struct {
	Requested joints.Domain
	Target    float64
	Ramped    float64
	Measured  float64
	Output    joints.Output
	PID       joints.PIDState
	Position  float64
	Speed     float64
}

// Trace records one cycle. Published is false when the loop skipped it; the
// controller fields then hold the previous cycle's values.
type Trace struct {
	Time      float64
	Published bool
	Channels  []ChannelTrace
}

type Result struct {
	Traces    []Trace
	Metrics   map[string]float64
	Cycles    uint64
	Published uint64
	Skipped   uint64
	Fault     error
}

// Experiment closes a control loop around a simulated plant.
type Experiment struct {
	cfg Config
	log *slog.Logger

	store    *settings.Store
	loop     *loop.Loop
	bank     *plant.Bank
	driver   *runtime.Driver
	commands *ports.CommandPort
	status   *ports.StatusPort
	outputs  *ports.OutputPort
	diags    *ports.DiagnosticPort
	metrics  []metrics.Metric

	targets   []settings.Target
	next      int
	cmd       joints.CommandSample
	cmdDirty  bool
	statusBuf joints.StatusSample
	outBuf    joints.OutputSample
	diagBuf   joints.DiagnosticSample
	start     time.Time
	published bool

	result *Result
}

func New(cfg Config) *Experiment {
	if cfg.Integrator == "" {
		cfg.Integrator = "rk4"
	}
	if cfg.GearRatio == 0 {
		cfg.GearRatio = 1
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Experiment{cfg: cfg, log: log}
}

// Setup builds the plant, the loop and the driver, and configures the loop.
func (e *Experiment) Setup(reg *Registry) error {
	sc := e.cfg.Settings
	if sc == nil {
		return errors.New("experiment: no settings")
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	n := len(sc.Channels)
	motors := make([]*plant.Motor, n)
	for i := range motors {
		m, err := reg.GetModel(sc.Plant)
		if err != nil {
			return err
		}
		motors[i] = m
	}
	integ, err := reg.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	e.bank = plant.NewBank(motors, integ, e.cfg.Noise)
	e.bank.GearRatio = e.cfg.GearRatio

	e.store, err = settings.NewStore(sc.Channels)
	if err != nil {
		return err
	}
	e.commands = ports.NewCommandPort("commands")
	e.status = ports.NewStatusPort("status")
	e.outputs = ports.NewOutputPort("outputs")
	e.diags = ports.NewDiagnosticPort("diagnostics")

	e.loop = loop.New(loop.Config{
		Commands:    e.commands,
		Status:      e.status,
		Outputs:     e.outputs,
		Diagnostics: e.diags,
		Settings:    e.store,
		Logger:      e.log,
	})
	e.loop.AcceptHook(loop.HookFunc(e.observe))

	e.driver, err = runtime.NewDriver(sc.Period, e.log)
	if err != nil {
		return err
	}
	e.driver.AddStage("command", runtime.StageFunc(e.tickCommands))
	e.driver.AddStage("status", runtime.StageFunc(e.tickStatus))
	e.driver.AddStage("control", runtime.StageFunc(e.tickControl))
	e.driver.AddStage("plant", runtime.StageFunc(e.tickPlant))

	e.metrics = reg.DefaultMetrics()

	e.targets = append([]settings.Target(nil), sc.Targets...)
	sort.SliceStable(e.targets, func(i, j int) bool { return e.targets[i].At < e.targets[j].At })

	return e.loop.Configure()
}

// Loop exposes the controller, e.g. for live retuning.
func (e *Experiment) Loop() *loop.Loop { return e.loop }

// Current returns the channel settings currently stored.
func (e *Experiment) Current() []settings.Channel { return e.store.Current() }

// UpdateSettings retunes the running loop. See loop.Loop.UpdateSettings.
func (e *Experiment) UpdateSettings(next []settings.Channel) error {
	return e.loop.UpdateSettings(next)
}

// Bank exposes the simulated plant.
func (e *Experiment) Bank() *plant.Bank { return e.bank }

// AddObserver registers a loop hook. Call after Setup.
func (e *Experiment) AddObserver(h loop.Hook) {
	e.loop.AcceptHook(h)
}

// Run simulates the configured duration on a virtual clock.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if err := e.begin(Epoch); err != nil {
		return nil, err
	}
	err := e.driver.RunVirtual(ctx, Epoch, e.driver.Steps(e.cfg.Settings.Duration))
	return e.finish(err)
}

// RunRealtime runs on the wall clock until ctx is done or the configured
// duration elapses. A zero duration runs until canceled.
func (e *Experiment) RunRealtime(ctx context.Context) (*Result, error) {
	if err := e.begin(time.Time{}); err != nil {
		return nil, err
	}
	err := e.driver.Run(ctx, e.cfg.Settings.Duration)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return e.finish(err)
}

func (e *Experiment) begin(start time.Time) error {
	if e.loop == nil {
		return errors.New("experiment: not set up")
	}
	n := e.loop.NumChannels()
	e.start = start
	e.next = 0
	e.cmd = joints.CommandSample{Channels: make([]joints.Command, n)}
	for i := range e.cmd.Channels {
		e.cmd.Channels[i] = joints.Command{Domain: joints.Position, Value: 0}
	}
	e.cmdDirty = true
	// Samples left over from a previous run must not leak into this one.
	e.commands.Clear()
	e.status.Clear()
	e.outputs.Clear()
	e.diags.Clear()
	e.outBuf = joints.OutputSample{}
	e.diagBuf = joints.DiagnosticSample{}
	e.result = &Result{}
	for _, m := range e.metrics {
		m.Reset()
	}
	return e.loop.Start()
}

func (e *Experiment) finish(runErr error) (*Result, error) {
	res := e.result
	res.Metrics = metrics.Collect(e.metrics)
	if st := e.loop.State(); st == loop.Running || st == loop.Faulted {
		if err := e.loop.Stop(); err != nil {
			return res, err
		}
	}

	var serr *runtime.StageError
	if errors.As(runErr, &serr) && loop.IsFatal(runErr) {
		res.Fault = serr.Wrapped
		e.log.Warn("run ended on fault", "cycle", serr.Cycle, "err", serr.Wrapped)
		return res, nil
	}
	return res, runErr
}

func (e *Experiment) elapsed(now time.Time) time.Duration {
	if e.start.IsZero() {
		e.start = now
	}
	return now.Sub(e.start)
}

func (e *Experiment) tickCommands(now time.Time) error {
	el := e.elapsed(now)
	for e.next < len(e.targets) && e.targets[e.next].At <= el {
		t := e.targets[e.next]
		e.cmd.Channels[t.Channel] = joints.Command{Domain: t.Domain, Value: t.Value}
		e.cmdDirty = true
		e.next++
	}
	if e.cmdDirty {
		e.cmd.Time = now
		e.commands.Write(e.cmd)
		e.cmdDirty = false
	}
	return nil
}

func (e *Experiment) tickStatus(now time.Time) error {
	e.bank.StatusInto(now, &e.statusBuf)
	e.status.Write(e.statusBuf)
	return nil
}

func (e *Experiment) tickControl(now time.Time) error {
	e.published = false
	return e.loop.Update(now)
}

func (e *Experiment) tickPlant(now time.Time) error {
	if e.outputs.Read(&e.outBuf) != ports.NoData {
		e.bank.Apply(e.outBuf)
	}
	if err := e.bank.Step(e.driver.Period().Seconds()); err != nil {
		return fmt.Errorf("plant: %w", err)
	}
	e.record(now)
	return nil
}

func (e *Experiment) observe(ctx loop.HookCtx) {
	switch ctx.Pos {
	case loop.HookPosPublished:
		e.published = true
		e.result.Published++
		for _, m := range e.metrics {
			m.Observe(ctx.Diagnostic)
		}
	case loop.HookPosSkipped:
		e.result.Skipped++
	}
}

func (e *Experiment) record(now time.Time) {
	e.result.Cycles++
	e.diags.Peek(&e.diagBuf)

	n := e.bank.Len()
	tr := Trace{
		Time:      e.elapsed(now).Seconds(),
		Published: e.published,
		Channels:  make([]ChannelTrace, n),
	}
	for i := 0; i < n; i++ {
		x := e.bank.State(i)
		ct := ChannelTrace{Position: x[0], Speed: x[1], Output: joints.Cleared()}
		if i < len(e.diagBuf.Channels) {
			d := e.diagBuf.Channels[i]
			ct.Requested = d.Requested
			ct.Target = d.Target
			ct.Ramped = d.Ramped
			ct.Measured = d.Measured
			ct.PID = d.PID
		}
		if i < len(e.outBuf.Channels) {
			ct.Output = e.outBuf.Channels[i]
		}
		tr.Channels[i] = ct
	}
	e.result.Traces = append(e.result.Traces, tr)
}
