// Package job defines the benchmark job framework: the capability set
// every job variant implements, the property-map configuration format, and
// the failure types a run can surface.
package job

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/benchkit/loadcal/pkg/loadcal/agent"
	"github.com/benchkit/loadcal/pkg/loadcal/config"
)

// Kind identifies a job variant. The set is closed and fixed at compile
// time; dispatch happens over this tag rather than an open registry.
type Kind string

// Known job kinds.
const (
	// KindParams estimates the load generator's sizing knobs.
	KindParams Kind = "params"
)

// SysReq is a host capability a job requires before it may run. The
// preflight check itself is performed by the agent; jobs only declare
// their requirements.
type SysReq string

// Host capabilities jobs may require.
const (
	SysReqMemController SysReq = "memory-controller"
	SysReqIOController  SysReq = "io-controller"
	SysReqSwap          SysReq = "swap"
)

// Environment carries everything a job run may touch outside its own
// configuration. Defaults are threaded explicitly so the approximation
// path stays pure; the agent client is the only side-effecting
// collaborator.
type Environment struct {
	// Defaults are the process-wide fallback sizing values.
	Defaults config.Defaults

	// Agent is the client for the external calibration agent. Jobs that
	// never delegate may run with a nil Agent.
	Agent agent.Client

	// PollInterval is the convergence wait loop's sampling period.
	// Zero means config.DefaultPollInterval.
	PollInterval time.Duration

	// Timeout optionally bounds the wait loop. Zero means no deadline.
	Timeout time.Duration

	// Progress receives one status line per wait-loop tick. May be nil.
	Progress func(status string)
}

// Job is the capability set shared by all benchmark job variants.
type Job interface {
	// SysReqs returns the host capabilities this job requires.
	SysReqs() []SysReq

	// Run executes the job and returns its machine-readable result as a
	// self-describing JSON value. The result's shape is independent of
	// how it was produced.
	Run(ctx context.Context, env *Environment) (json.RawMessage, error)

	// Format renders a previously produced result as human-readable
	// text. A result of the wrong shape is a programming error and is
	// reported as such, not recovered from.
	Format(w io.Writer, result json.RawMessage) error
}
