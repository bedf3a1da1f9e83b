package calibrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/benchkit/loadcal/pkg/loadcal/job"
	"github.com/benchkit/loadcal/pkg/loadcal/logging"
	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

var logger = logging.Get("calibrate")

// ParamsJob estimates the load generator's sizing knobs. It is the only
// implementation of job.Job for job.KindParams.
type ParamsJob struct {
	cfg Config
}

var _ job.Job = (*ParamsJob)(nil)

// NewParamsJob validates the given properties into a params job.
func NewParamsJob(props job.Props, defaults config.Defaults) (*ParamsJob, error) {
	cfg, err := ParseConfig(props, defaults)
	if err != nil {
		return nil, err
	}
	return &ParamsJob{cfg: cfg}, nil
}

// Config returns the job's validated run configuration.
func (j *ParamsJob) Config() Config { return j.cfg }

// SysReqs returns the host capabilities the full calibration depends on.
// The local approximation runs nothing, so the preflight only applies to
// the delegated path.
func (j *ParamsJob) SysReqs() []job.SysReq {
	if j.cfg.FakeCPULoad {
		return nil
	}
	return []job.SysReq{
		job.SysReqMemController,
		job.SysReqIOController,
		job.SysReqSwap,
	}
}

// Run produces the knob set. The local path has no side effects; the
// delegated path starts the agent, requests a bench run and waits for the
// sequence rendezvous before reading the persisted report.
func (j *ParamsJob) Run(ctx context.Context, env *job.Environment) (json.RawMessage, error) {
	logger.Info("estimating load generator parameters",
		"balloon", j.cfg.BalloonSize, "log_bps", j.cfg.LogBps, "fake_cpu_load", j.cfg.FakeCPULoad)

	var knobs types.Knobs
	if j.cfg.FakeCPULoad {
		knobs = Approximate(j.cfg, env.Defaults)
	} else {
		if err := j.preflight(env); err != nil {
			return nil, err
		}

		var err error
		knobs, err = delegate(ctx, j.cfg, env)
		if err != nil {
			return nil, err
		}
	}

	result, err := json.Marshal(knobs)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return result, nil
}

// preflight verifies the agent's system-requirement report against this
// job's requirements.
func (j *ParamsJob) preflight(env *job.Environment) error {
	required := make([]string, 0, len(j.SysReqs()))
	for _, req := range j.SysReqs() {
		required = append(required, string(req))
	}

	missing, err := env.Agent.MissingSysReqs(required)
	if err != nil {
		return fmt.Errorf("checking system requirements: %w", err)
	}
	if len(missing) > 0 {
		reqs := make([]job.SysReq, len(missing))
		for i, m := range missing {
			reqs[i] = job.SysReq(m)
		}
		return &job.PreflightError{Missing: reqs}
	}
	return nil
}

// Format renders the two-line human-readable report: the configured
// inputs and the computed knob set. A result that does not decode as a
// knob set is a programming error.
func (j *ParamsJob) Format(w io.Writer, result json.RawMessage) error {
	var knobs types.Knobs
	if err := json.Unmarshal(result, &knobs); err != nil {
		return fmt.Errorf("result is not a knob set: %w", err)
	}

	fmt.Fprintf(w, "Params: balloon_size=%s log_bps=%s\n",
		types.FormatSize(j.cfg.BalloonSize),
		types.FormatSize(j.cfg.LogBps))

	fmt.Fprintf(w, "\nResult: hash_size=%s rps_max=%d mem_size=%s mem_frac=%.3f chunk_pages=%d\n",
		types.FormatSize(knobs.HashSize),
		knobs.RPSMax,
		types.FormatSize(knobs.MemSize),
		knobs.MemFrac,
		knobs.ChunkPages)

	return nil
}
