package calibrate

import (
	"context"
	"fmt"
	"time"

	"github.com/benchkit/loadcal/pkg/loadcal/agent"
	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/benchkit/loadcal/pkg/loadcal/job"
	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

// delegate hands the calibration off to the external agent and waits for
// the requested bench run to converge.
//
// The termination condition is a sequence-number rendezvous: the bench's
// completed counter must reach the command's requested counter. The agent
// may be re-run many times over its lifetime; only the rendezvous on the
// specific requested sequence guards against observing a stale completion
// from an earlier run.
func delegate(ctx context.Context, cfg Config, env *job.Environment) (types.Knobs, error) {
	ag := env.Agent

	if cfg.Passive {
		if err := ag.RelaxMemProtection(); err != nil {
			return types.Knobs{}, fmt.Errorf("relaxing memory protection: %w", err)
		}
	}

	if err := ag.CommitBaseline(); err != nil {
		return types.Knobs{}, fmt.Errorf("committing bench baseline: %w", err)
	}
	if err := ag.EnsureAgent(ctx); err != nil {
		return types.Knobs{}, fmt.Errorf("starting agent: %w", err)
	}

	req := agent.StartRequest{
		BalloonSize: cfg.BalloonSize,
		LogBps:      cfg.LogBps,
	}
	if cfg.HashSize != nil {
		req.ExtraArgs = append(req.ExtraArgs, fmt.Sprintf("--bench-hash-size=%d", *cfg.HashSize))
	}
	if cfg.ChunkPages != nil {
		req.ExtraArgs = append(req.ExtraArgs, fmt.Sprintf("--bench-chunk-pages=%d", *cfg.ChunkPages))
	}
	if cfg.RPSMax != nil {
		req.ExtraArgs = append(req.ExtraArgs, fmt.Sprintf("--bench-rps-max=%d", *cfg.RPSMax))
	}

	if err := ag.StartBench(req); err != nil {
		return types.Knobs{}, fmt.Errorf("starting bench: %w", err)
	}

	if err := waitConverged(ctx, env); err != nil {
		return types.Knobs{}, err
	}

	// Only now is the persisted report known to belong to our run.
	knobs, err := ag.BenchKnobs()
	if err != nil {
		return types.Knobs{}, fmt.Errorf("reading bench report: %w", err)
	}
	return knobs, nil
}

// converged is the pure termination predicate for the wait loop.
func converged(snap agent.Snapshot) bool {
	return snap.BenchSeq >= snap.CmdSeq
}

// waitConverged polls the agent until the sequence rendezvous holds,
// rendering one progress line per tick. It blocks between polls without
// holding any lock, observes cancellation between polls, and applies the
// optional deadline once per tick.
func waitConverged(ctx context.Context, env *job.Environment) error {
	interval := env.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	var deadline time.Time
	if env.Timeout > 0 {
		deadline = time.Now().Add(env.Timeout)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := env.Agent.Snapshot()
		if err != nil {
			return fmt.Errorf("reading agent state: %w", err)
		}

		if env.Progress != nil {
			env.Progress(progressLine(snap))
		}

		// A failure only counts once it carries the requested sequence;
		// a leftover failed record from an earlier run is as stale as a
		// leftover completion.
		if snap.BenchState == agent.BenchFailed && snap.BenchSeq >= snap.CmdSeq {
			return &job.AgentFailureError{Reason: snap.Failure}
		}
		if converged(snap) {
			return nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", job.ErrTimeout, env.Timeout)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", job.ErrCancelled, ctx.Err())
		case <-ticker.C:
		}
	}
}

// progressLine renders one wait-loop status line. Unavailable telemetry
// readings render as dashes rather than failing the tick.
func progressLine(snap agent.Snapshot) string {
	rep := snap.Report
	phase := rep.Phase
	if phase == "" {
		phase = "starting"
	}

	return fmt.Sprintf(
		"[%s] mem: %5s rw:%5s/%5s p50/90/99: %5s/%5s/%5s",
		phase,
		types.FormatSizeDashed(rep.MemProbeSize),
		types.FormatSizeDashed(rep.IOReadBps),
		types.FormatSizeDashed(rep.IOWriteBps),
		types.FormatDurationDashed(rep.LatP50),
		types.FormatDurationDashed(rep.LatP90),
		types.FormatDurationDashed(rep.LatP99),
	)
}
