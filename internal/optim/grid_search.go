// Package optim tunes channel gains by simulating candidate settings.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/settings"
)

var ErrNoCandidate = errors.New("optim: no candidate finished without fault")

// Build turns candidate settings into a ready experiment.
type Build func(sc *settings.Config) (*experiment.Experiment, error)

type Candidate struct {
	Kp, Ki, Kd float64
	Score      float64
	Fault      error
}

// GridSearch evaluates every gain combination for one channel and ranks
// them by a result metric, lowest first. An empty axis keeps the base gain.
type GridSearch struct {
	Channel int
	Kp      []float64
	Ki      []float64
	Kd      []float64
	Metric  string
	Workers int
}

func NewGridSearch(channel int, kp, ki, kd []float64) *GridSearch {
	return &GridSearch{Channel: channel, Kp: kp, Ki: ki, Kd: kd, Metric: "tracking_rms"}
}

func axis(values []float64, base float64) []float64 {
	if len(values) == 0 {
		return []float64{base}
	}
	return values
}

func (g *GridSearch) candidates(base settings.Channel) []Candidate {
	var out []Candidate
	for _, kp := range axis(g.Kp, base.PID.Kp) {
		for _, ki := range axis(g.Ki, base.PID.Ki) {
			for _, kd := range axis(g.Kd, base.PID.Kd) {
				out = append(out, Candidate{Kp: kp, Ki: ki, Kd: kd, Score: math.Inf(1)})
			}
		}
	}
	return out
}

// Search runs all candidates in parallel. It returns the best candidate and
// the full ranking.
func (g *GridSearch) Search(ctx context.Context, base *settings.Config, build Build) (Candidate, []Candidate, error) {
	if g.Channel < 0 || g.Channel >= len(base.Channels) {
		return Candidate{}, nil, fmt.Errorf("optim: channel %d out of range", g.Channel)
	}
	cands := g.candidates(base.Channels[g.Channel])

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(cands))

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				g.evaluate(ctx, base, build, &cands[idx])
			}
		}()
	}

feed:
	for i := range cands {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Candidate{}, nil, err
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score < cands[j].Score })
	if math.IsInf(cands[0].Score, 1) {
		return Candidate{}, cands, ErrNoCandidate
	}
	return cands[0], cands, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *settings.Config, build Build, c *Candidate) {
	sc := *base
	sc.Channels = settings.Clone(base.Channels)
	sc.Targets = append([]settings.Target(nil), base.Targets...)
	pid := &sc.Channels[g.Channel].PID
	pid.Kp, pid.Ki, pid.Kd = c.Kp, c.Ki, c.Kd

	exp, err := build(&sc)
	if err != nil {
		c.Fault = err
		return
	}
	res, err := exp.Run(ctx)
	if err != nil {
		c.Fault = err
		return
	}
	if res.Fault != nil {
		c.Fault = res.Fault
		return
	}
	if v, ok := res.Metrics[g.Metric]; ok && !math.IsNaN(v) {
		c.Score = v
	}
}
