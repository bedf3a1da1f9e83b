package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/benchkit/loadcal/pkg/loadcal/logging"
	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

var logger = logging.Get("agent")

// Snapshot is one observation of the agent's current state, re-read on
// every wait-loop tick. It has no identity beyond "most recent read".
type Snapshot struct {
	// CmdSeq is the requested bench sequence from the command file.
	CmdSeq uint64

	// BenchSeq is the completed bench sequence from the bench file.
	BenchSeq uint64

	// BenchState is the bench file's state field.
	BenchState string

	// Failure is the agent's failure reason, if any.
	Failure string

	// Report is the most recent live telemetry. Zero-valued when the
	// agent has not written a report yet.
	Report ReportFile
}

// StartRequest describes one bench run handed to the agent.
type StartRequest struct {
	// BalloonSize is the memory balloon in bytes.
	BalloonSize uint64

	// LogBps is the log write rate in bytes per second.
	LogBps uint64

	// ExtraArgs are passed through to the load generator's bench mode.
	ExtraArgs []string
}

// Client is the narrow view of the agent session the estimation paths
// depend on. Tests substitute a stub.
type Client interface {
	// EnsureAgent starts the agent process if it is not already running
	// and waits until it reports readiness.
	EnsureAgent(ctx context.Context) error

	// RelaxMemProtection asks the agent to drop its memory-protection
	// invariant for this session. One-way; takes effect before the next
	// bench start.
	RelaxMemProtection() error

	// CommitBaseline marks the next bench run as the canonical baseline.
	CommitBaseline() error

	// StartBench requests a new bench run, bumping the requested
	// sequence number.
	StartBench(req StartRequest) error

	// Snapshot reads the agent's current command, bench and report
	// state.
	Snapshot() (Snapshot, error)

	// BenchKnobs reads the persisted knob report of the completed bench.
	BenchKnobs() (types.Knobs, error)

	// MissingSysReqs returns the subset of required capabilities the
	// agent's preflight did not find satisfied. Before the agent has
	// written its preflight report, all requirements count as met.
	MissingSysReqs(required []string) ([]string, error)
}

// Session is the file-backed Client implementation talking to a real (or
// simulated) agent process through a run directory.
type Session struct {
	dir    string
	binary string

	// pending command-file mutations applied on the next StartBench
	passive        bool
	commitBaseline bool
}

var _ Client = (*Session)(nil)

// NewSession creates a session over the given run directory. binary is
// the agent executable; empty means auto-discovery.
func NewSession(dir, binary string) *Session {
	return &Session{dir: dir, binary: binary}
}

// Dir returns the session's run directory.
func (s *Session) Dir() string { return s.dir }

func (s *Session) path(name string) string {
	return filepath.Join(s.dir, name)
}

// EnsureAgent starts the agent if it is not already running and polls
// until it reports readiness through its status file. Idempotent.
func (s *Session) EnsureAgent(ctx context.Context) error {
	if s.Running() {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating agent run dir: %w", err)
	}

	binary, err := s.resolveBinary()
	if err != nil {
		return fmt.Errorf("find agent binary: %w", err)
	}

	statusPath := s.path(StatusFileName)
	_ = os.Remove(statusPath) // clear stale status before starting

	// exec.Command rather than CommandContext: the agent must outlive
	// this invocation of the harness.
	cmd := exec.Command(binary, "--run-dir", s.dir)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	logger.Info("agent starting", "binary", binary, "dir", s.dir)

	for range 50 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}

		var status StatusFile
		if err := LoadJSON(statusPath, &status); err == nil {
			switch status.Status {
			case "ready":
				return nil
			case "error":
				return fmt.Errorf("agent failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("agent did not become ready within timeout")
}

// Running checks whether the agent process is alive based on its PID file.
func (s *Session) Running() bool {
	pid, err := readPIDFile(s.path(PIDFileName))
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes for existence without delivering anything.
	return process.Signal(syscall.Signal(0)) == nil
}

// Stop asks the agent to terminate and waits for it to exit. Idempotent.
func (s *Session) Stop(ctx context.Context) error {
	pid, err := readPIDFile(s.path(PIDFileName))
	if err != nil {
		return nil // not running
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return nil // already gone
	}

	for range 20 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
		if !s.Running() {
			return nil
		}
	}

	return errors.New("agent did not stop within timeout")
}

// RelaxMemProtection records the one-way passive request. It is written
// into the command file on the next StartBench.
func (s *Session) RelaxMemProtection() error {
	s.passive = true
	return s.updateCmd(func(cmd *CmdFile) {
		cmd.Passive = true
	})
}

// CommitBaseline marks the next bench run as the canonical baseline.
func (s *Session) CommitBaseline() error {
	s.commitBaseline = true
	return s.updateCmd(func(cmd *CmdFile) {
		cmd.CommitBaseline = true
	})
}

// StartBench writes the bench request into the command file and bumps the
// requested sequence number. The agent reacts to the file change.
func (s *Session) StartBench(req StartRequest) error {
	return s.updateCmd(func(cmd *CmdFile) {
		cmd.BenchSeq++
		cmd.BalloonSize = req.BalloonSize
		cmd.LogBps = req.LogBps
		cmd.BenchArgs = append([]string(nil), req.ExtraArgs...)
		cmd.Passive = s.passive
		cmd.CommitBaseline = s.commitBaseline
	})
}

// updateCmd applies fn to the current command file and writes it back
// atomically. A missing command file starts from the zero value.
func (s *Session) updateCmd(fn func(*CmdFile)) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating agent run dir: %w", err)
	}

	var cmd CmdFile
	if err := LoadJSON(s.path(CmdFileName), &cmd); err != nil && !IsNotExist(err) {
		return fmt.Errorf("reading command file: %w", err)
	}

	fn(&cmd)

	if err := SaveJSON(s.path(CmdFileName), &cmd); err != nil {
		return fmt.Errorf("writing command file: %w", err)
	}
	return nil
}

// Snapshot reads the agent's current command, bench and report files.
// Missing bench or report files yield zero values; a missing command file
// is an error since nothing has been requested yet.
func (s *Session) Snapshot() (Snapshot, error) {
	var cmd CmdFile
	if err := LoadJSON(s.path(CmdFileName), &cmd); err != nil {
		return Snapshot{}, fmt.Errorf("reading command file: %w", err)
	}

	var bench BenchFile
	if err := LoadJSON(s.path(BenchFileName), &bench); err != nil && !IsNotExist(err) {
		return Snapshot{}, fmt.Errorf("reading bench file: %w", err)
	}

	var report ReportFile
	if err := LoadJSON(s.path(ReportFileName), &report); err != nil && !IsNotExist(err) {
		return Snapshot{}, fmt.Errorf("reading report file: %w", err)
	}

	return Snapshot{
		CmdSeq:     cmd.BenchSeq,
		BenchSeq:   bench.Seq,
		BenchState: bench.State,
		Failure:    bench.Failure,
		Report:     report,
	}, nil
}

// BenchKnobs reads the persisted knob report from the bench file.
func (s *Session) BenchKnobs() (types.Knobs, error) {
	var bench BenchFile
	if err := LoadJSON(s.path(BenchFileName), &bench); err != nil {
		return types.Knobs{}, fmt.Errorf("reading bench file: %w", err)
	}
	return bench.Knobs, nil
}

// MissingSysReqs compares required capabilities against the agent's
// preflight report. Before the report exists, nothing is considered
// missing; the agent re-checks on startup.
func (s *Session) MissingSysReqs(required []string) ([]string, error) {
	var report SysReqFile
	if err := LoadJSON(s.path(SysReqFileName), &report); err != nil {
		if IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sysreq file: %w", err)
	}

	satisfied := make(map[string]bool, len(report.Satisfied))
	for _, req := range report.Satisfied {
		satisfied[req] = true
	}

	var missing []string
	for _, req := range required {
		if !satisfied[req] {
			missing = append(missing, req)
		}
	}
	return missing, nil
}

// resolveBinary finds the agent binary path.
// Priority: configured path > same directory as executable > PATH.
func (s *Session) resolveBinary() (string, error) {
	if s.binary != "" {
		if _, err := os.Stat(s.binary); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", s.binary)
		}
		return s.binary, nil
	}

	const name = "loadcal-agentsim"

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", errors.New("agent binary not found")
}

// readPIDFile reads a PID from a file.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}

	return pid, nil
}
