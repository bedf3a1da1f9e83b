package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "loadcal",
		Short: "Calibrate sizing knobs for the synthetic load generator",
		Long: `Loadcal estimates the runtime-tunable sizing parameters of a synthetic
memory/CPU/IO load generator used in resource-control testing.

It either delegates to the external calibration agent and waits for the
run to converge, or computes a fast local approximation without running
the workload.

Examples:
  loadcal run params                       # Full calibration via the agent
  loadcal run params balloon=1073741824    # With a 1 GiB balloon
  loadcal run params fake-cpu-load         # Local approximation
  loadcal run params rps-max=5000 -o json  # Override ceiling, JSON output
  loadcal history                          # Past calibration runs
  loadcal agent status                     # Agent process state`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/loadcal/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (plain, pretty, json)")
	rootCmd.PersistentFlags().String("run-dir", "", "agent run directory")
	rootCmd.PersistentFlags().String("agent-bin", "", "path to the agent binary")
	rootCmd.PersistentFlags().Duration("poll-interval", 0, "convergence poll interval (0=default)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("agent.run_dir", rootCmd.PersistentFlags().Lookup("run-dir"))
	_ = viper.BindPFlag("agent.binary_path", rootCmd.PersistentFlags().Lookup("agent-bin"))
	_ = viper.BindPFlag("agent.poll_interval", rootCmd.PersistentFlags().Lookup("poll-interval"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "loadcal"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "loadcal"))
		}
	}

	viper.SetEnvPrefix("LOADCAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("output", "plain")
	viper.SetDefault("agent.poll_interval", config.DefaultPollInterval)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.retention_days", config.DefaultRetentionDays)

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
