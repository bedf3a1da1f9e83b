package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benchkit/loadcal/pkg/loadcal/agent"
	"github.com/benchkit/loadcal/pkg/loadcal/calibrate"
	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/benchkit/loadcal/pkg/loadcal/history"
	"github.com/benchkit/loadcal/pkg/loadcal/job"
	"github.com/benchkit/loadcal/pkg/loadcal/logging"
	"github.com/benchkit/loadcal/pkg/loadcal/output"
	"github.com/benchkit/loadcal/pkg/loadcal/sysinfo"
	"github.com/benchkit/loadcal/pkg/loadcal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run <job> [key=value...]",
	Short: "Run a benchmark job",
	Long: `Run a benchmark job with the given properties.

Jobs:
  params    Estimate the load generator's sizing knobs

Properties for params:
  passive           relax the agent's memory protection for the run
  balloon=BYTES     memory balloon size
  log-bps=BYTES     log write rate per second
  fake-cpu-load     compute a local approximation instead of calibrating
  hash-size=BYTES   override the mean hashing footprint
  chunk-pages=N     override the IO chunking unit
  rps-max=N         override the request rate ceiling`,
	Args: cobra.MinimumNArgs(1),
	RunE: runJob,
}

var runTimeout time.Duration

func init() {
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort if the run has not converged (0=no deadline)")
	rootCmd.AddCommand(runCmd)
}

func runJob(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() { _ = logging.Close() }()

	defaults := config.DefaultsFor(sysinfo.TotalMemory())
	props := job.ParseArgs(args[1:])

	var j job.Job
	kind := job.Kind(args[0])
	switch kind {
	case job.KindParams:
		j, err = calibrate.NewParamsJob(props, defaults)
	default:
		return fmt.Errorf("unknown job kind %q", args[0])
	}
	if err != nil {
		return err
	}

	session := agent.NewSession(viper.GetString("agent.run_dir"), viper.GetString("agent.binary_path"))
	if session.Dir() == "" {
		session = agent.NewSession(config.DefaultAgentRunDir(), viper.GetString("agent.binary_path"))
	}

	status := newStatusLine(os.Stderr)
	env := &job.Environment{
		Defaults:     defaults,
		Agent:        session,
		PollInterval: viper.GetDuration("agent.poll_interval"),
		Timeout:      runTimeout,
	}
	if !getQuiet() {
		env.Progress = status.Set
	}

	// Interrupts cancel the wait loop between polls.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	result, err := j.Run(ctx, env)
	status.Done()
	if err != nil {
		if errors.Is(err, job.ErrCancelled) {
			printError("run cancelled")
		}
		return err
	}
	elapsed := time.Since(started)

	run := output.Run{
		Kind:    string(kind),
		Props:   propStrings(props),
		Started: started,
		Elapsed: elapsed,
	}
	if err := json.Unmarshal(result, &run.Knobs); err != nil {
		return fmt.Errorf("result is not a knob set: %w", err)
	}

	if cfg.History.Enabled {
		run.ID = recordRun(cfg, &run, result)
	}

	return renderRun(j, &run, result)
}

// recordRun appends the run to the history store. History failures are
// logged, not fatal; the result itself has already been produced.
func recordRun(cfg *config.Config, run *output.Run, result json.RawMessage) string {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logging.Get("history").Warn("opening history store", "err", err)
		return ""
	}
	defer func() { _ = store.Close() }()

	id, err := store.Append(&history.Record{
		Timestamp: run.Started.UTC(),
		Kind:      run.Kind,
		Props:     run.Props,
		Result:    result,
		Elapsed:   run.Elapsed,
	})
	if err != nil {
		logging.Get("history").Warn("recording run", "err", err)
		return ""
	}
	return id
}

// renderRun writes the result to stdout. The default plain format is the
// job's own two-line report; other formats render the structured run
// record.
func renderRun(j job.Job, run *output.Run, result json.RawMessage) error {
	format := viper.GetString("output")
	if format == "" || format == "plain" {
		return j.Format(os.Stdout, result)
	}

	formatter, err := output.Get(format)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, run); err != nil {
		return fmt.Errorf("formatting result: %w", err)
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}

// initLogging wires the configured logging settings, with the verbose
// flag promoting console output.
func initLogging(cfg *config.Config) error {
	logCfg := logging.Config{
		Level: cfg.Logging.Level,
		Path:  cfg.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    parseRotationSize(cfg.Logging.Rotation.MaxSize),
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			Daily:      cfg.Logging.Rotation.Daily,
		},
		Components: cfg.Logging.Components,
	}
	if logCfg.Path == "" {
		logCfg.Path = config.DefaultLogPath()
	}
	if viper.GetBool("verbose") {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
	}
	return logging.Init(logCfg)
}

// parseRotationSize converts a human-readable size to bytes, falling back
// to zero (package default) on parse failure.
func parseRotationSize(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := types.ParseSize(s)
	if err != nil {
		return 0
	}
	return int64(v)
}

// propStrings renders properties back to key=value form for display and
// history.
func propStrings(props job.Props) []string {
	if len(props) == 0 {
		return nil
	}
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.String()
	}
	return out
}
