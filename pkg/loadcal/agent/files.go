// Package agent is the boundary to the externally-owned calibration
// agent. The agent exposes its state through JSON files in a run
// directory: a command file carrying the harness's requests, a bench file
// carrying completion state and the persisted knob report, and a report
// file carrying live telemetry. This package owns the file schemas and a
// session that starts the agent and reads its state; it does not own the
// agent itself.
package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

// File names inside the agent run directory.
const (
	CmdFileName    = "cmd.json"
	BenchFileName  = "bench.json"
	ReportFileName = "report.json"
	SysReqFileName = "sysreqs.json"
	StatusFileName = "agent.status"
	PIDFileName    = "agent.pid"
)

// Bench states reported in the bench file.
const (
	BenchRunning = "running"
	BenchDone    = "done"
	BenchFailed  = "failed"
)

// CmdFile is the harness's standing request to the agent. The agent
// re-reads it when it changes; BenchSeq is bumped once per requested
// bench run so completions from earlier runs cannot be mistaken for the
// current one.
type CmdFile struct {
	// BenchSeq is the requested bench sequence number.
	BenchSeq uint64 `json:"bench_seq"`

	// BalloonSize is the memory balloon for the bench in bytes.
	BalloonSize uint64 `json:"balloon_size"`

	// LogBps is the log write rate for the bench in bytes per second.
	LogBps uint64 `json:"log_bps"`

	// BenchArgs are extra arguments passed through to the load
	// generator's bench mode.
	BenchArgs []string `json:"bench_args,omitempty"`

	// Passive asks the agent to relax its memory-protection invariant
	// for this session. One-way: the agent keeps it relaxed until the
	// session ends.
	Passive bool `json:"passive,omitempty"`

	// CommitBaseline asks the agent to record this bench run as the
	// canonical baseline for later jobs.
	CommitBaseline bool `json:"commit_baseline,omitempty"`
}

// BenchFile is the agent's bench completion state and persisted report.
type BenchFile struct {
	// Seq is the completed bench sequence number.
	Seq uint64 `json:"bench_seq"`

	// State is one of BenchRunning, BenchDone, BenchFailed.
	State string `json:"state"`

	// Failure carries the agent's failure reason when State is
	// BenchFailed.
	Failure string `json:"failure,omitempty"`

	// Knobs is the calibrated parameter set, valid once Seq has reached
	// the requested sequence with State BenchDone.
	Knobs types.Knobs `json:"knobs"`
}

// ReportFile is the agent's live telemetry. Fields may be zero when a
// reading is not yet available; consumers render those as placeholders.
type ReportFile struct {
	// Timestamp is when the report was produced.
	Timestamp time.Time `json:"timestamp"`

	// Phase is the load generator's current workload phase name.
	Phase string `json:"phase"`

	// MemProbeSize is the memory footprint currently being probed.
	MemProbeSize uint64 `json:"mem_probe_size"`

	// IOReadBps and IOWriteBps are live root-device throughput readings.
	IOReadBps  uint64 `json:"io_read_bps"`
	IOWriteBps uint64 `json:"io_write_bps"`

	// LatP50, LatP90 and LatP99 are live read latency percentiles.
	LatP50 time.Duration `json:"lat_p50"`
	LatP90 time.Duration `json:"lat_p90"`
	LatP99 time.Duration `json:"lat_p99"`
}

// SysReqFile is the agent's preflight report: the host capabilities it
// found satisfied.
type SysReqFile struct {
	Satisfied []string `json:"satisfied"`
}

// StatusFile is the agent's startup status, written once the agent is
// ready to serve or has failed to start.
type StatusFile struct {
	Status string `json:"status"` // "ready" or "error"
	PID    int    `json:"pid,omitempty"`
	Error  string `json:"error,omitempty"`
}

// LoadJSON reads a JSON file into v. A missing file is reported as
// fs.ErrNotExist so callers can treat it as "not yet written".
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SaveJSON writes v as indented JSON, atomically via a temp file and
// rename so readers never observe a partial write.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// IsNotExist reports whether err means the file has not been written yet.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
