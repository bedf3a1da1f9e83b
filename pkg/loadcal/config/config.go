package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// AgentConfig configures the external calibration agent.
type AgentConfig struct {
	// BinaryPath is the path to the agent binary (auto-discovered if empty).
	BinaryPath string `mapstructure:"binary_path"`

	// RunDir is the directory holding the agent's command, bench and
	// report files. Empty means the default XDG data path.
	RunDir string `mapstructure:"run_dir"`

	// PollInterval is the convergence wait loop's sampling period.
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// HistoryConfig configures the run-history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the harness configuration.
type Config struct {
	// Output is the default result output format (plain, pretty, json).
	Output string `mapstructure:"output"`

	Agent   AgentConfig   `mapstructure:"agent"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/loadcal/config.yaml
//   - $HOME/.config/loadcal/config.yaml
//
// Environment variables are prefixed with LOADCAL_ (e.g., LOADCAL_OUTPUT).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "loadcal"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "loadcal"))

	v.SetEnvPrefix("LOADCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Agent.RunDir == "" {
		cfg.Agent.RunDir = DefaultAgentRunDir()
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath()
	}

	return &cfg, nil
}

// setDefaults registers the default values on a viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "plain")

	v.SetDefault("agent.binary_path", "")
	v.SetDefault("agent.run_dir", "")
	v.SetDefault("agent.poll_interval", DefaultPollInterval)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"agent":     "info",
		"calibrate": "info",
		"history":   "warn",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "loadcal"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "loadcal"), nil
}

// DataDir returns $XDG_DATA_HOME/loadcal/ for the agent run dir and the
// history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "loadcal")
}

// StateDir returns $XDG_STATE_HOME/loadcal/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "loadcal")
}

// DefaultAgentRunDir returns the default agent run directory.
func DefaultAgentRunDir() string {
	return filepath.Join(DataDir(), "agent")
}

// DefaultHistoryPath returns the default run-history database path.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "loadcal.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
