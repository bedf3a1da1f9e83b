package main

import (
	"fmt"

	"github.com/benchkit/loadcal/pkg/loadcal/agent"
	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage the calibration agent process",
	Long:  `Inspect and control the external calibration agent.`,
}

var agentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status",
	RunE:  runAgentStatus,
}

var agentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent if it is not running",
	RunE:  runAgentStart,
}

var agentStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the agent",
	RunE:  runAgentStop,
}

func init() {
	agentCmd.AddCommand(agentStatusCmd)
	agentCmd.AddCommand(agentStartCmd)
	agentCmd.AddCommand(agentStopCmd)
	rootCmd.AddCommand(agentCmd)
}

// getSession builds an agent session from flags and config.
func getSession() *agent.Session {
	dir := viper.GetString("agent.run_dir")
	if dir == "" {
		dir = config.DefaultAgentRunDir()
	}
	return agent.NewSession(dir, viper.GetString("agent.binary_path"))
}

func runAgentStatus(cmd *cobra.Command, args []string) error {
	session := getSession()

	if !session.Running() {
		printInfo("agent: not running")
		return nil
	}
	printInfo("agent: running")

	snap, err := session.Snapshot()
	if err != nil {
		if agent.IsNotExist(err) {
			printInfo("no bench has been requested yet")
			return nil
		}
		return fmt.Errorf("reading agent state: %w", err)
	}

	printInfo("requested bench seq: %d", snap.CmdSeq)
	printInfo("completed bench seq: %d", snap.BenchSeq)
	if snap.BenchState != "" {
		printInfo("bench state: %s", snap.BenchState)
	}
	if snap.Report.Phase != "" {
		printInfo("phase: %s", snap.Report.Phase)
	}
	return nil
}

func runAgentStart(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	session := getSession()
	if err := session.EnsureAgent(cmd.Context()); err != nil {
		return err
	}
	printInfo("agent: running")
	return nil
}

func runAgentStop(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	session := getSession()
	if err := session.Stop(cmd.Context()); err != nil {
		return err
	}
	printInfo("agent: stopped")
	return nil
}
