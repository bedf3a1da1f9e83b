package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benchkit/loadcal/pkg/loadcal/logging"
)

// TestInit tests the Init function with various configurations.
// Note: This test cannot run in parallel with other tests that use global state.
func TestInit(t *testing.T) {
	validDir := t.TempDir()
	componentsDir := t.TempDir()
	invalidDir := t.TempDir()

	tests := []struct {
		name    string
		cfg     logging.Config
		wantErr bool
	}{
		{
			name: "valid config with defaults",
			cfg: logging.Config{
				Level: "info",
				Path:  filepath.Join(validDir, "test.log"),
			},
			wantErr: false,
		},
		{
			name: "valid config with component overrides",
			cfg: logging.Config{
				Level: "info",
				Path:  filepath.Join(componentsDir, "components.log"),
				Components: map[string]string{
					"agent":     "debug",
					"calibrate": "warn",
				},
			},
			wantErr: false,
		},
		{
			name: "no file output",
			cfg: logging.Config{
				Level: "info",
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			cfg: logging.Config{
				Level: "invalid",
				Path:  filepath.Join(invalidDir, "invalid.log"),
			},
			wantErr: true,
		},
		{
			name: "invalid component level",
			cfg: logging.Config{
				Level: "info",
				Path:  filepath.Join(invalidDir, "component.log"),
				Components: map[string]string{
					"agent": "loud",
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := logging.Init(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Init() error = %v, wantErr %v", err, tt.wantErr)
			}
			_ = logging.Close()
		})
	}
}

func TestGetBeforeInit(t *testing.T) {
	// Loggers obtained before Init must be usable and silent.
	logger := logging.Get("preinit-component")
	if logger == nil {
		t.Fatal("Get() returned nil before Init")
	}
	logger.Info("this must not panic")
}

func TestLogOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "loadcal.log")

	if err := logging.Init(logging.Config{Level: "debug", Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logger := logging.Get("testcomp")
	logger.Info("bench started", "seq", 3)
	logger.Debug("poll tick")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "bench started") {
		t.Errorf("log output missing info message: %s", out)
	}
	if !strings.Contains(out, "poll tick") {
		t.Errorf("log output missing debug message: %s", out)
	}
	if !strings.Contains(out, "testcomp") {
		t.Errorf("log output missing component prefix: %s", out)
	}
}

func TestComponentLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "filtered.log")

	cfg := logging.Config{
		Level: "debug",
		Path:  logPath,
		Components: map[string]string{
			"quiet": "error",
		},
	}
	if err := logging.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("quiet").Info("suppressed message")
	logging.Get("quiet").Error("surfaced message")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	out := string(data)
	if strings.Contains(out, "suppressed message") {
		t.Errorf("info message leaked past component level: %s", out)
	}
	if !strings.Contains(out, "surfaced message") {
		t.Errorf("error message missing: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    logging.Level
		wantErr bool
	}{
		{input: "debug", want: logging.LevelDebug},
		{input: "info", want: logging.LevelInfo},
		{input: "warn", want: logging.LevelWarn},
		{input: "warning", want: logging.LevelWarn},
		{input: "error", want: logging.LevelError},
		{input: "ERROR", want: logging.LevelError},
		{input: "verbose", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerWith(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "with.log")

	if err := logging.Init(logging.Config{Level: "info", Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("agent").With("run_dir", "/tmp/agent").Info("session opened")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "run_dir") {
		t.Errorf("log output missing bound context: %s", data)
	}
}
