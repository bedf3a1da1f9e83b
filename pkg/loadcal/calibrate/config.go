// Package calibrate implements the params estimation job: it produces a
// calibrated knob set for the load generator, either by delegating to the
// external agent's full calibration run or by a fast local approximation.
package calibrate

import (
	"github.com/benchkit/loadcal/pkg/loadcal/config"
	"github.com/benchkit/loadcal/pkg/loadcal/job"
)

// Config is the validated, immutable configuration for one estimation
// run. Optional overrides are nil when not given; the estimation paths
// fall back to the default sizing profile.
type Config struct {
	// Passive relaxes the agent's memory-protection invariant for the
	// run.
	Passive bool

	// BalloonSize is the memory balloon in bytes.
	BalloonSize uint64

	// LogBps is the log write rate in bytes per second.
	LogBps uint64

	// FakeCPULoad selects the local approximation path instead of the
	// full delegated calibration.
	FakeCPULoad bool

	// HashSize overrides the mean hashing footprint in bytes.
	HashSize *uint64

	// ChunkPages overrides the IO chunking unit in pages.
	ChunkPages *uint32

	// RPSMax overrides the request rate ceiling.
	RPSMax *uint32
}

// ParseConfig validates a property list into a run configuration.
// Unrecognized keys fail with UnknownPropertyError and unparseable values
// with MalformedValueError, before any side effect. Defaults for balloon
// and log rate come from the supplied process-wide defaults.
func ParseConfig(props job.Props, defaults config.Defaults) (Config, error) {
	cfg := Config{
		BalloonSize: defaults.BalloonSize,
		LogBps:      defaults.LogBps,
	}

	for _, p := range props {
		var err error
		switch p.Key {
		case "passive":
			cfg.Passive, err = p.Bool()
		case "balloon":
			cfg.BalloonSize, err = p.Uint64()
		case "log-bps":
			cfg.LogBps, err = p.Uint64()
		case "fake-cpu-load":
			cfg.FakeCPULoad, err = p.Bool()
		case "hash-size":
			var v uint64
			if v, err = p.Uint64(); err == nil {
				cfg.HashSize = &v
			}
		case "chunk-pages":
			var v uint32
			if v, err = p.Uint32(); err == nil {
				cfg.ChunkPages = &v
			}
		case "rps-max":
			var v uint32
			if v, err = p.Uint32(); err == nil {
				cfg.RPSMax = &v
			}
		default:
			return Config{}, &job.UnknownPropertyError{Key: p.Key}
		}
		if err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}
