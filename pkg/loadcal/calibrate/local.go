package calibrate

import (
	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

// Approximate computes an estimated knob set without running the real
// workload. It is an approximation, not a calibration: values come from
// the static sizing profile with configured overrides applied, so it is
// synchronous and deterministic. Callers that need delegated-path
// accuracy must not end up here without asking for it explicitly.
func Approximate(cfg Config, defaults config.Defaults) types.Knobs {
	profile := defaults.Profile

	knobs := types.Knobs{
		HashSize:   profile.HashSizeMean,
		RPSMax:     config.FakeCPULoadRPSMax,
		MemSize:    profile.MemSize,
		MemFrac:    profile.MemFrac,
		ChunkPages: profile.ChunkPages,
		FileFrac:   profile.FileFrac,
	}

	if cfg.HashSize != nil {
		knobs.HashSize = *cfg.HashSize
	}
	if cfg.ChunkPages != nil {
		knobs.ChunkPages = *cfg.ChunkPages
	}
	if cfg.RPSMax != nil {
		knobs.RPSMax = *cfg.RPSMax
	}

	return knobs
}
