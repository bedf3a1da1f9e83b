package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/benchkit/loadcal/pkg/loadcal/history"
	"github.com/benchkit/loadcal/pkg/loadcal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past estimation runs",
	Long: `View the history of estimation runs.

Every completed run is recorded with its configuration and result, so
earlier calibrations can be inspected or chained into later jobs.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a specific run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove runs older than the retention period",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of runs to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getHistory opens the configured history store.
func getHistory() (*history.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return history.Open(cfg.History.Path)
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	store, err := getHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(historyLimit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		printInfo("No runs recorded yet.")
		printInfo("Run 'loadcal run params' to calibrate.")
		return nil
	}

	for _, rec := range records {
		printInfo("%s  %s  %-8s  %s",
			rec.ID,
			rec.Timestamp.Local().Format(time.DateTime),
			rec.Kind,
			rec.Elapsed.Round(10*time.Millisecond))
	}
	return nil
}

// runHistoryShow renders one run with the selected output format.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	store, err := getHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := store.Get(args[0])
	if err != nil {
		return err
	}

	run := output.Run{
		ID:      rec.ID,
		Kind:    rec.Kind,
		Props:   rec.Props,
		Started: rec.Timestamp,
		Elapsed: rec.Elapsed,
	}
	if err := json.Unmarshal(rec.Result, &run.Knobs); err != nil {
		return fmt.Errorf("stored result is not a knob set: %w", err)
	}

	format := viper.GetString("output")
	if format == "" {
		format = "plain"
	}
	formatter, err := output.Get(format)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, &run); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}

// runHistoryClean removes runs older than the retention period.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	maxAge := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	deleted, err := store.Clean(maxAge)
	if err != nil {
		return err
	}

	printInfo("Removed %d run(s) older than %d days.", deleted, cfg.History.RetentionDays)
	return nil
}
