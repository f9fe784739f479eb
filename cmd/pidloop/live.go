package main

import (
	"context"
	"fmt"
	"maps"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/viz"
	"github.com/spf13/cobra"
)

type liveResult struct {
	res *experiment.Result
	err error
}

func runLive(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	sc, _, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	// Live runs go until the monitor quits unless --time is given.
	if !cmd.Flags().Changed("time") {
		sc.Duration = 0
	}

	exp, err := newExperiment(sc, log)
	if err != nil {
		return err
	}
	feed := viz.NewFeed()
	exp.AddObserver(feed)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out, err := attachOutputs(ctx, exp, runName, log)
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewMonitor(feed, exp), tea.WithAltScreen())

	done := make(chan liveResult, 1)
	go func() {
		res, err := exp.RunRealtime(ctx)
		done <- liveResult{res, err}
		p.Send(viz.DoneMsg{Result: res, Err: err})
	}()

	_, uiErr := p.Run()
	cancel()
	lr := <-done
	closeErr := out.close()

	if uiErr != nil {
		return fmt.Errorf("monitor: %w", uiErr)
	}
	if lr.err != nil {
		return lr.err
	}
	if closeErr != nil {
		return closeErr
	}

	if saveLive {
		runID, err := saveRun(runName, sc, lr.res)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	printResult(lr.res)
	return nil
}

func sortedKeys(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}
