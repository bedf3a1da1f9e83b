package job

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel failures a run can end with.
var (
	// ErrCancelled reports that the run was interrupted before the
	// result became available.
	ErrCancelled = errors.New("run cancelled")

	// ErrTimeout reports that the configured deadline elapsed before
	// the external operation converged.
	ErrTimeout = errors.New("run deadline exceeded")
)

// UnknownPropertyError reports a configuration key outside the job's
// recognized set. It fails at parse time, before any side effect.
type UnknownPropertyError struct {
	Key string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property key %q", e.Key)
}

// MalformedValueError reports a recognized key whose value failed to
// parse as its declared type.
type MalformedValueError struct {
	Key string
	Err error
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed value for property %q: %v", e.Key, e.Err)
}

func (e *MalformedValueError) Unwrap() error { return e.Err }

// PreflightError reports host capabilities required by the job but
// missing from the environment.
type PreflightError struct {
	Missing []SysReq
}

func (e *PreflightError) Error() string {
	names := make([]string, len(e.Missing))
	for i, req := range e.Missing {
		names[i] = string(req)
	}
	return fmt.Sprintf("unmet system requirements: %s", strings.Join(names, ", "))
}

// AgentFailureError reports that the external calibration operation
// failed. The reason is propagated verbatim; retrying is the harness's
// decision, not this package's.
type AgentFailureError struct {
	Reason string
}

func (e *AgentFailureError) Error() string {
	return fmt.Sprintf("calibration agent reported failure: %s", e.Reason)
}
