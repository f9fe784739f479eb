package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrStop may be returned by a stage to end the run without error.
	ErrStop = errors.New("runtime: stop requested")

	// ErrInvalidPeriod indicates a non-positive activation period.
	ErrInvalidPeriod = errors.New("runtime: period must be positive")
)

// Stage is one step of a cycle.
type Stage interface {
	Tick(now time.Time) error
}

// StageFunc adapts a function to a Stage.
type StageFunc func(now time.Time) error

func (f StageFunc) Tick(now time.Time) error { return f(now) }

// StageError reports the stage and cycle at which a run failed.
type StageError struct {
	Stage   string
	Cycle   uint64
	Time    time.Time
	Wrapped error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("cycle %d, stage %s: %v", e.Cycle, e.Stage, e.Wrapped)
}

func (e *StageError) Unwrap() error {
	return e.Wrapped
}

type namedStage struct {
	name  string
	stage Stage
}

// Driver runs its stages once per period.
type Driver struct {
	period time.Duration
	stages []namedStage
	log    *slog.Logger

	// ContinueOnError keeps cycling after a stage fails. Failures are
	// logged and the remaining stages of that cycle are skipped.
	ContinueOnError bool

	cycles uint64
}

func NewDriver(period time.Duration, log *slog.Logger) (*Driver, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Driver{period: period, log: log}, nil
}

func (d *Driver) Period() time.Duration { return d.period }

// Cycles returns the number of completed cycles.
func (d *Driver) Cycles() uint64 { return d.cycles }

// AddStage appends a stage. Stages run in the order added.
func (d *Driver) AddStage(name string, s Stage) {
	d.stages = append(d.stages, namedStage{name: name, stage: s})
}

// cycle runs every stage at now. It reports whether the run should stop.
func (d *Driver) cycle(now time.Time) (bool, error) {
	d.cycles++
	for _, s := range d.stages {
		err := s.stage.Tick(now)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrStop) {
			return true, nil
		}
		serr := &StageError{Stage: s.name, Cycle: d.cycles, Time: now, Wrapped: err}
		if d.ContinueOnError {
			d.log.Warn("stage failed", "stage", s.name, "cycle", d.cycles, "err", err)
			return false, nil
		}
		return true, serr
	}
	return false, nil
}

// Run cycles on the wall clock until ctx is done, a stage stops the run, or
// duration elapses. A zero duration runs until canceled.
func (d *Driver) Run(ctx context.Context, duration time.Duration) error {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	start := time.Now()
	d.log.Info("driver started", "period", d.period, "duration", duration)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("driver canceled", "cycles", d.cycles)
			return ctx.Err()
		case now := <-ticker.C:
			if duration > 0 && now.Sub(start) > duration {
				d.log.Info("driver finished", "cycles", d.cycles)
				return nil
			}
			stop, err := d.cycle(now)
			if stop {
				return err
			}
		}
	}
}

// RunVirtual runs n cycles on a virtual clock starting at start. The k-th
// cycle runs at start + k*period.
func (d *Driver) RunVirtual(ctx context.Context, start time.Time, n int) error {
	for k := 0; k < n; k++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		stop, err := d.cycle(start.Add(time.Duration(k) * d.period))
		if stop {
			return err
		}
	}
	return nil
}

// Steps returns the number of periods in duration, rounded down.
func (d *Driver) Steps(duration time.Duration) int {
	return int(duration / d.period)
}
