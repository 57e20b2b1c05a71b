package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sandglass/internal/audio"
	"github.com/san-kum/sandglass/internal/config"
	"github.com/san-kum/sandglass/internal/cycle"
	"github.com/san-kum/sandglass/internal/export"
	"github.com/san-kum/sandglass/internal/logging"
	"github.com/san-kum/sandglass/internal/loop"
	"github.com/san-kum/sandglass/internal/matrix"
	"github.com/san-kum/sandglass/internal/metrics"
	"github.com/san-kum/sandglass/internal/panel"
	"github.com/san-kum/sandglass/internal/sand"
	"github.com/san-kum/sandglass/internal/scenario"
	"github.com/san-kum/sandglass/internal/storage"
	"github.com/san-kum/sandglass/internal/tui"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	logLevel   string

	reading int
	preset  string
	noAudio bool
	record  bool

	scenarioName string
	dumpFrames   bool
	maxVirtual   time.Duration
	sweep        bool
	svgPath      string

	listen string

	steps      int
	everyPoll  bool
	forceWrite bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sandglass",
		Short:         "two-panel falling-sand hourglass",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInteractive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sandglass", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: warn, info, debug, trace")

	addSelectorFlags := func(cmd *cobra.Command) {
		cmd.Flags().IntVar(&reading, "reading", 0, "raw duration knob reading (0-1023)")
		cmd.Flags().StringVar(&preset, "preset", "", "named duration preset")
		cmd.Flags().BoolVar(&record, "record", false, "record the run under the data directory")
	}
	addSelectorFlags(rootCmd)
	rootCmd.Flags().BoolVar(&noAudio, "no-audio", false, "disable tones")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run in the terminal, arrow keys tilt the hourglass",
		Args:  cobra.NoArgs,
		RunE:  runInteractive,
	}
	addSelectorFlags(runCmd)
	runCmd.Flags().BoolVar(&noAudio, "no-audio", false, "disable tones")

	headlessCmd := &cobra.Command{
		Use:   "headless",
		Short: "run a scripted scenario on a virtual clock",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	addSelectorFlags(headlessCmd)
	headlessCmd.Flags().StringVar(&scenarioName, "scenario", "drain", "builtin scenario name or yaml file")
	headlessCmd.Flags().BoolVar(&dumpFrames, "frames", false, "print every frame sent to the panels")
	headlessCmd.Flags().DurationVar(&maxVirtual, "max", 2*time.Hour, "upper bound on virtual time")
	headlessCmd.Flags().BoolVar(&sweep, "sweep", false, "run the scenario once per duration preset")
	headlessCmd.Flags().StringVar(&svgPath, "svg", "", "write the final panels as svg")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "drive websocket panels and take tilt from clients",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addSelectorFlags(serveCmd)
	serveCmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&noAudio, "no-audio", false, "disable tones")

	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "print the drain order",
		Args:  cobra.NoArgs,
		RunE:  printOrder,
	}

	framesCmd := &cobra.Command{
		Use:   "frames",
		Short: "hex dump of the first composed frames of a level cycle",
		Args:  cobra.NoArgs,
		RunE:  printFrames,
	}
	framesCmd.Flags().IntVar(&steps, "steps", 20, "number of simulation steps")
	framesCmd.Flags().BoolVar(&everyPoll, "every-poll", false, "emit frames on every poll, not only on change")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list duration presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the plot as svg")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a recorded run as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the default config",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}
	configCmd.Flags().BoolVar(&forceWrite, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(runCmd, headlessCmd, serveCmd, orderCmd, framesCmd,
		presetsCmd, listCmd, plotCmd, exportCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and lets flags override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Lookup("reading") != nil && flags.Changed("reading") {
		cfg.Duration.Reading = reading
		cfg.Duration.Preset = ""
	}
	if flags.Lookup("preset") != nil && flags.Changed("preset") {
		cfg.Duration.Preset = preset
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newBeeper(cfg *config.Config, log *slog.Logger) (loop.Beeper, func()) {
	if noAudio || !cfg.Tones.Enabled {
		return loop.Silent{}, func() {}
	}
	p := audio.NewPlayer()
	if err := p.Start(); err != nil {
		log.Warn("audio unavailable, running silent", "err", err)
		return loop.Silent{}, func() {}
	}
	return p, p.Stop
}

// openRecorder creates a recording when --record is set. The returned func
// closes it and reports where it went. The recorder is nil otherwise.
func openRecorder(meta storage.RunMetadata, now time.Time, log *slog.Logger) (*storage.Recorder, func(time.Time), error) {
	if !record {
		return nil, func(time.Time) {}, nil
	}
	rec, err := storage.New(dataDir).Create(meta, now)
	if err != nil {
		return nil, nil, fmt.Errorf("recording: %w", err)
	}
	log.Info("recording", "run", rec.ID())

	return rec, func(end time.Time) {
		if err := rec.Close(end); err != nil {
			log.Error("recording incomplete", "run", rec.ID(), "err", err)
			return
		}
		log.Info("recording saved", "run", rec.ID(), "frames", rec.Metadata().Frames)
	}, nil
}

func startRecording(r *loop.Runner, meta storage.RunMetadata, now time.Time, log *slog.Logger) (func(time.Time), error) {
	rec, finish, err := openRecorder(meta, now, log)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		r.AddSink(rec)
		r.AddObserver(rec)
	}
	return finish, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI; logs go to a file.
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(dataDir, "sandglass.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log := logging.NewLogger(cfg.LogLevel, logFile)

	beeper, stopAudio := newBeeper(cfg, log)
	defer stopAudio()

	opts, err := loop.OptionsFromConfig(cfg, log)
	if err != nil {
		return err
	}
	held := &loop.HeldTilt{}
	knob := tui.NewKnob(cfg.SelectorReading())
	r := loop.New(loop.SystemClock{}, held, knob, beeper, opts)

	finish, err := startRecording(r, storage.RunMetadata{
		Source:  "terminal",
		Reading: knob.Reading(),
		Color:   cfg.Color,
	}, time.Now(), log)
	if err != nil {
		return err
	}
	defer func() { finish(time.Now()) }()

	return tui.Run(r, held, knob)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.NewLogger(cfg.LogLevel, os.Stderr)

	sc, err := scenario.Resolve(scenarioName)
	if err != nil {
		return err
	}
	knob := sc.SelectorReading()
	if cmd.Flags().Changed("reading") || cmd.Flags().Changed("preset") || configFile != "" {
		knob = cfg.SelectorReading()
	}

	opts, err := loop.OptionsFromConfig(cfg, log)
	if err != nil {
		return err
	}
	opts.PollInterval = scenario.Poll

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := scenario.Run{Scenario: sc, Reading: knob, Options: opts, Limit: maxVirtual}
	if sweep {
		return runSweep(ctx, run)
	}

	ms := metrics.Defaults()
	for _, m := range ms {
		run.Observers = append(run.Observers, m)
	}
	if dumpFrames {
		run.Sinks = append(run.Sinks, loop.WriterBus{W: os.Stdout})
	}

	rec, finish, err := openRecorder(storage.RunMetadata{
		Source:   "headless",
		Scenario: sc.Name,
		Reading:  knob,
		Color:    cfg.Color,
	}, scenario.Epoch, log)
	if err != nil {
		return err
	}
	if rec != nil {
		run.Sinks = append(run.Sinks, rec)
		run.Observers = append(run.Observers, rec)
	}

	res, err := run.Execute(ctx)
	finish(scenario.Epoch.Add(res.Elapsed))
	if errors.Is(err, scenario.ErrTimeLimit) {
		log.Warn("virtual time limit reached", "max", maxVirtual)
	} else if err != nil {
		return err
	}

	if svgPath != "" {
		if err := os.WriteFile(svgPath, []byte(export.PanelsToSVG(res.Frames, 16)), 0644); err != nil {
			return err
		}
		log.Info("wrote panels", "path", svgPath)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "scenario\t%s\n", res.Name)
	fmt.Fprintf(w, "duration\t%v (knob %d)\n", res.Duration, res.Reading)
	fmt.Fprintf(w, "virtual time\t%v\n", res.Elapsed)
	fmt.Fprintf(w, "cycles\t%d (%d flips)\n", res.Cycles, res.Flips)
	fmt.Fprintf(w, "completed\t%d\n", res.Completed)
	fmt.Fprintf(w, "steps\t%d\n", res.Steps)
	fmt.Fprintf(w, "direction\t%s\n", res.Direction)
	fmt.Fprintf(w, "settled\t%d/%d\n", res.Settled, matrix.Cells)
	fmt.Fprintf(w, "state\t%s\n", res.State)
	report := metrics.Report(ms)
	for _, m := range ms {
		fmt.Fprintf(w, "%s\t%.4f\n", m.Name(), report[m.Name()])
	}
	return w.Flush()
}

// runSweep plays the scenario once per duration preset.
func runSweep(ctx context.Context, base scenario.Run) error {
	names := config.ListPresets()
	readings := make([]int, len(names))
	for i, name := range names {
		readings[i], _ = config.GetPreset(name)
	}

	results, err := scenario.Sweep(ctx, base, readings)
	if err != nil && !errors.Is(err, scenario.ErrTimeLimit) {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tREADING\tDURATION\tVIRTUAL\tSTEPS\tCYCLES\tDONE\tSTATE")
	for i, res := range results {
		fmt.Fprintf(w, "%s\t%d\t%v\t%v\t%d\t%d\t%d\t%s\n",
			names[i], res.Reading, res.Duration, res.Elapsed,
			res.Steps, res.Cycles, res.Completed, res.State)
	}
	return w.Flush()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.NewLogger(cfg.LogLevel, os.Stderr)
	if listen == "" {
		listen = cfg.Server.Listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := panel.NewHub(log)
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/panels", hub)
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("panel server failed", "err", err)
			stop()
		}
	}()
	log.Info("serving panels", "addr", listen, "path", "/panels")

	beeper, stopAudio := newBeeper(cfg, log)
	defer stopAudio()

	opts, err := loop.OptionsFromConfig(cfg, log)
	if err != nil {
		return err
	}
	r := loop.New(loop.SystemClock{}, hub, loop.FixedSelector(cfg.SelectorReading()), beeper, opts)
	r.AddSink(hub)

	finish, err := startRecording(r, storage.RunMetadata{
		Source:  "serve",
		Reading: cfg.SelectorReading(),
		Color:   cfg.Color,
	}, time.Now(), log)
	if err != nil {
		return err
	}

	err = r.Run(ctx)
	finish(time.Now())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("panel server shutdown", "err", serr)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printOrder(cmd *cobra.Command, args []string) error {
	order := sand.NewDrainOrder()

	var grid [matrix.Size][matrix.Size]int
	for i, c := range order {
		grid[c.Row][c.Col] = i
	}

	fmt.Println("drain order (row 0 at top, source index per cell):")
	for r := 0; r < matrix.Size; r++ {
		cells := make([]string, matrix.Size)
		for c := 0; c < matrix.Size; c++ {
			cells[c] = fmt.Sprintf("%2d", grid[r][c])
		}
		fmt.Println("  " + strings.Join(cells, " "))
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tROW\tCOL")
	for i, c := range order {
		fmt.Fprintf(w, "%d\t%d\t%d\n", i, c.Row, c.Col)
	}
	return w.Flush()
}

func printFrames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := loop.OptionsFromConfig(cfg, logging.Discard())
	if err != nil {
		return err
	}
	opts.StartupTones = nil
	opts.FrameEveryPoll = everyPoll

	clock := loop.NewManualClock(time.Unix(0, 0).UTC())
	r := loop.New(clock, &loop.HeldTilt{}, loop.FixedSelector(cfg.SelectorReading()), nil, opts)
	r.AddSink(loop.WriterBus{W: os.Stdout})

	r.Start()
	r.Poll(clock.Now())
	for i := 0; i < steps && r.Controller().State() == cycle.Running; i++ {
		clock.Advance(r.Controller().Interval())
		fmt.Printf("# step %d t=%v\n", i+1, clock.Now().Sub(time.Unix(0, 0)))
		r.Poll(clock.Now())
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREADING\tDURATION\tSTEP")
	for _, name := range config.ListPresets() {
		r, _ := config.GetPreset(name)
		d := config.DurationForReading(r)
		fmt.Fprintf(w, "%s\t%d\t%v\t%v\n", name, r, d, cycle.StepInterval(d))
	}
	return w.Flush()
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
	fmt.Fprintln(w, "ID\tSTARTED\tSOURCE\tSCENARIO\tCYCLES\tDONE\tSTEPS\tFRAMES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			run.ID,
			run.Started.Format("2006-01-02 15:04:05"),
			run.Source,
			orDash(run.Scenario),
			run.Cycles,
			run.Completed,
			run.Steps,
			run.Frames,
		)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadProgress(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("source: %s\n", meta.Source)
	fmt.Printf("cycles: %d, completed: %d\n", meta.Cycles, meta.Completed)
	fmt.Printf("samples: %d over %v\n\n", len(rows), rows[len(rows)-1].Elapsed)

	if svgPath != "" {
		if err := os.WriteFile(svgPath, []byte(progressSVG(rows)), 0644); err != nil {
			return err
		}
	}
	return plotProgress(os.Stdout, rows)
}

func progressSVG(rows []storage.Progress) string {
	source := make([]export.Point, len(rows))
	target := make([]export.Point, len(rows))
	for i, row := range rows {
		x := row.Elapsed.Seconds()
		source[i] = export.Point{X: x, Y: float64(row.Source)}
		target[i] = export.Point{X: x, Y: float64(row.Target)}
	}
	return export.SeriesToSVG([][]export.Point{source, target}, []string{"#ffcc00", "#00ccff"}, 800, 300)
}

func plotProgress(w io.Writer, rows []storage.Progress) error {
	target := make([]float64, len(rows))
	source := make([]float64, len(rows))
	for i, row := range rows {
		target[i] = float64(row.Target)
		source[i] = float64(row.Source)
	}

	graph := asciigraph.PlotMany([][]float64{source, target},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Yellow, asciigraph.Cyan),
		asciigraph.Caption("grains: source (yellow), target (cyan)"),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}

func writeConfig(cmd *cobra.Command, args []string) error {
	path := "sandglass.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !forceWrite {
		return fmt.Errorf("%s exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
