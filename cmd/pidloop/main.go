package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/san-kum/pidloop/internal/canbus"
	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/integrators"
	"github.com/san-kum/pidloop/internal/optim"
	"github.com/san-kum/pidloop/internal/plant"
	"github.com/san-kum/pidloop/internal/recorder"
	"github.com/san-kum/pidloop/internal/settings"
	"github.com/san-kum/pidloop/internal/storage"
	"github.com/san-kum/pidloop/internal/viz"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	fromRun    string
	runName    string
	integrator string
	duration   time.Duration
	period     time.Duration
	gearRatio  float64
	noisePos   float64
	noiseSpeed float64
	seed       uint64
	// Diagnostics recording
	record     bool
	recordFile string
	// CAN output
	canIface  string
	canBaseID uint32
	// Plot options
	plotChannel int
	plotField   string
	plotWidth   int
	plotHeight  int
	// Live view
	saveLive bool
	// Gain search
	tuneChannel int
	tuneKp      []float64
	tuneKi      []float64
	tuneKd      []float64
	tuneMetric  string
	tuneWorkers int
	tuneTop     int
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// A missing .env is fine; flags and the real environment still apply.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "pidloop",
		Short:         "multi-channel PID setpoint tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", envOr("PIDLOOP_DATA", ".pidloop"), "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("PIDLOOP_LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate a control run and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&runName, "name", "", "run name (defaults to preset or config file)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run on the wall clock with a live monitor",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().BoolVar(&saveLive, "save", false, "store the run when the monitor exits")
	liveCmd.Flags().StringVar(&runName, "name", "live", "run name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotChannel, "channel", -1, "channel to plot (-1 for all)")
	plotCmd.Flags().StringVar(&plotField, "field", "tracking", "field to plot: "+strings.Join(viz.PlotFields, ", "))
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run traces to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list plant models and integrators",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("plants:      %s\n", strings.Join(experiment.NewRegistry().ListModels(), ", "))
			fmt.Printf("integrators: %s\n", strings.Join(integrators.Names(), ", "))
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check [config]",
		Short: "validate a settings file",
		Args:  cobra.ExactArgs(1),
		RunE:  checkConfig,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search channel gains in simulation",
		Args:  cobra.NoArgs,
		RunE:  tuneGains,
	}
	addScenarioFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&tuneChannel, "channel", 0, "channel to tune")
	tuneCmd.Flags().Float64SliceVar(&tuneKp, "kp", nil, "kp candidates")
	tuneCmd.Flags().Float64SliceVar(&tuneKi, "ki", nil, "ki candidates")
	tuneCmd.Flags().Float64SliceVar(&tuneKd, "kd", nil, "kd candidates")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "tracking_rms", "metric to minimize")
	tuneCmd.Flags().IntVar(&tuneWorkers, "workers", 0, "parallel simulations (0 uses all CPUs)")
	tuneCmd.Flags().IntVar(&tuneTop, "top", 5, "candidates to show")

	rootCmd.AddCommand(runCmd, liveCmd, tuneCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, presetsCmd, modelsCmd, checkCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := 0
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		code = 1
	}
	stop()
	atexit.Exit(code)
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "settings file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&fromRun, "from", "", "reuse the settings of a stored run")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "plant integrator")
	cmd.Flags().DurationVar(&duration, "time", 0, "run duration (0 keeps the configured one)")
	cmd.Flags().DurationVar(&period, "period", 0, "control period (0 keeps the configured one)")
	cmd.Flags().Float64Var(&gearRatio, "gear", 1, "ratio between motor and external position")
	cmd.Flags().Float64Var(&noisePos, "noise-pos", 0, "position measurement noise (std dev)")
	cmd.Flags().Float64Var(&noiseSpeed, "noise-speed", 0, "speed measurement noise (std dev)")
	cmd.Flags().Uint64Var(&seed, "seed", uint64(time.Now().UnixNano()), "noise seed")
	cmd.Flags().BoolVar(&record, "record", false, "record diagnostics to SQLite")
	cmd.Flags().StringVar(&recordFile, "record-file", "", "SQLite file (default pidloop_<session>.sqlite3)")
	cmd.Flags().StringVar(&canIface, "can", "", "publish outputs on this SocketCAN interface")
	cmd.Flags().Uint32Var(&canBaseID, "can-id", canbus.DefaultBaseID, "CAN id of channel 0")
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", logLevel)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// loadScenario resolves the settings from --config, --from or --preset and applies
// command line overrides. It also returns a default run name.
func loadScenario(cmd *cobra.Command) (*settings.Config, string, error) {
	var (
		sc   *settings.Config
		name string
		err  error
	)
	switch {
	case configFile != "":
		sc, err = settings.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	case fromRun != "":
		sc, err = storage.New(dataDir).LoadSettings(fromRun)
		if err != nil {
			return nil, "", err
		}
		name = strings.SplitN(fromRun, "_", 2)[0]
	case preset != "":
		sc, err = settings.GetPreset(preset)
		if err != nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, settings.ListPresets())
		}
		name = preset
	default:
		sc, _ = settings.GetPreset("position")
		name = "position"
	}

	if cmd.Flags().Changed("time") {
		sc.Duration = duration
	}
	if period > 0 {
		sc.Period = period
	}
	return sc, name, nil
}

func newExperiment(sc *settings.Config, log *slog.Logger) (*experiment.Experiment, error) {
	exp := experiment.New(experiment.Config{
		Settings:   sc,
		Integrator: integrator,
		Noise:      plant.Noise{Position: noisePos, Speed: noiseSpeed, Seed: seed},
		GearRatio:  gearRatio,
		Logger:     log,
	})
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return nil, err
	}
	return exp, nil
}

// outputs are the optional sinks attached to a run.
type outputs struct {
	rec *recorder.Recorder
	pub *canbus.Publisher
}

func attachOutputs(ctx context.Context, exp *experiment.Experiment, name string, log *slog.Logger) (*outputs, error) {
	o := &outputs{}
	if record || recordFile != "" {
		rec, err := recorder.Open(recordFile, name, log)
		if err != nil {
			return nil, err
		}
		exp.AddObserver(rec)
		o.rec = rec
	}
	if canIface != "" {
		w, err := canbus.DialSocketCAN(ctx, canIface)
		if err != nil {
			o.close()
			return nil, err
		}
		o.pub = canbus.NewPublisher(canbus.NewCodec(canBaseID, exp.Loop().NumChannels()), w, log)
		exp.AddObserver(o.pub)
	}
	return o, nil
}

// close drains both sinks and reports what they did.
func (o *outputs) close() error {
	var errs []error
	if o.rec != nil {
		if err := o.rec.Flush(); err != nil {
			errs = append(errs, err)
		} else if events, err := o.rec.Events(o.rec.Session()); err == nil {
			fmt.Printf("recorded session %s in %s (%d events)\n", o.rec.Session(), o.rec.Path(), len(events))
		}
		if err := o.rec.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.pub != nil {
		if err := o.pub.Close(); err != nil {
			errs = append(errs, err)
		}
		fmt.Printf("can: %d frames sent, %d failed\n", o.pub.Sent(), o.pub.Failed())
	}
	return errors.Join(errs...)
}

func saveRun(name string, sc *settings.Config, res *experiment.Result) (string, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return "", err
	}
	return st.Save(storage.NewMetadata(name, integrator, sc, res), sc, res)
}

func printResult(res *experiment.Result) {
	fmt.Printf("cycles: %d (published %d, skipped %d)\n", res.Cycles, res.Published, res.Skipped)
	if res.Fault != nil {
		fmt.Printf("fault: %v\n", res.Fault)
	}
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(res.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	sc, name, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	if runName != "" {
		name = runName
	}

	exp, err := newExperiment(sc, log)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out, err := attachOutputs(ctx, exp, name, log)
	if err != nil {
		return err
	}

	fmt.Printf("running %s (%d channels, %v)...\n", name, len(sc.Channels), sc.Duration)
	start := time.Now()

	res, runErr := exp.Run(ctx)
	closeErr := out.close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}
	elapsed := time.Since(start)

	runID, err := saveRun(name, sc, res)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	printResult(res)
	return nil
}

func tuneGains(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	sc, name, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	g := optim.NewGridSearch(tuneChannel, tuneKp, tuneKi, tuneKd)
	g.Metric = tuneMetric
	g.Workers = tuneWorkers

	fmt.Printf("tuning %s channel %d...\n", name, tuneChannel)
	start := time.Now()
	build := func(c *settings.Config) (*experiment.Experiment, error) {
		return newExperiment(c, log)
	}
	best, ranked, err := g.Search(cmd.Context(), sc, build)
	if err != nil {
		return err
	}
	fmt.Printf("evaluated %d candidates in %v\n\n", len(ranked), time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KP\tKI\tKD\t%s\tFAULT\n", strings.ToUpper(tuneMetric))
	for _, c := range ranked[:min(tuneTop, len(ranked))] {
		fault := "-"
		if c.Fault != nil {
			fault = c.Fault.Error()
		}
		fmt.Fprintf(w, "%g\t%g\t%g\t%.6f\t%s\n", c.Kp, c.Ki, c.Kd, c.Score, fault)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nbest: kp=%g ki=%g kd=%g\n", best.Kp, best.Ki, best.Kd)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANT\tTIME\tDURATION\tPERIOD\tCH\tCYCLES\tRMS\tFAULT")

	for _, run := range runs {
		rms := "-"
		if v, ok := run.Metrics["tracking_rms"]; ok {
			rms = fmt.Sprintf("%.4f", v)
		}
		fault := "-"
		if run.Fault != "" {
			fault = run.Fault
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Plant,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Period,
			run.Channels,
			run.Cycles,
			rms,
			fault,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	traces, err := st.LoadTraces(runID)
	if err != nil {
		return err
	}

	if len(traces) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("plant: %s\n", meta.Plant)
	fmt.Printf("samples: %d\n\n", len(traces))

	channels := []int{plotChannel}
	if plotChannel < 0 {
		channels = channels[:0]
		for i := range traces[0].Channels {
			channels = append(channels, i)
		}
	}

	for _, ch := range channels {
		graph, err := viz.PlotTraces(traces, ch, plotField, plotWidth, plotHeight)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	traces, err := st.LoadTraces(runID)
	if err != nil {
		return err
	}

	return storage.ExportJSON(os.Stdout, *meta, traces)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	traces, err := st.LoadTraces(runID)
	if err != nil {
		return err
	}

	if len(traces) == 0 {
		return fmt.Errorf("no data to export")
	}

	return storage.ExportCSV(os.Stdout, traces)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tPLANT\tCHANNELS\tDURATION\tTARGETS")
	for _, name := range settings.ListPresets() {
		p, err := settings.GetPreset(name)
		if err != nil {
			return err
		}
		targets := make([]string, len(p.Targets))
		for i, t := range p.Targets {
			targets[i] = fmt.Sprintf("ch%d %s=%g@%v", t.Channel, t.Domain, t.Value, t.At)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%s\n", name, p.Plant, len(p.Channels), p.Duration, strings.Join(targets, " "))
	}
	return w.Flush()
}

func checkConfig(cmd *cobra.Command, args []string) error {
	sc, err := settings.Load(args[0])
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	fmt.Printf("%s: ok (period %v, %d channels)\n", args[0], sc.Period, len(sc.Channels))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tOUTPUT\tKP\tKI\tKD\tLIMITS\tRAMP\tSOURCE")
	for i, c := range sc.Channels {
		source := "primary"
		if c.UseExternal {
			source = "external"
		}
		if c.Derive {
			source += "+derived"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%g\t%g\t[%g, %g]\t%g\t%s\n",
			i, c.Name, c.OutputDomain, c.PID.Kp, c.PID.Ki, c.PID.Kd,
			c.PID.OutputMin, c.PID.OutputMax, c.Ramp, source)
	}
	return w.Flush()
}
