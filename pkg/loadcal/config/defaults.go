// Package config provides configuration management for the loadcal
// calibration harness.
package config

import "time"

// Default configuration values for loadcal.
const (
	// DefaultBalloonSize is the default memory balloon in bytes. No
	// balloon is reserved unless the job asks for one.
	DefaultBalloonSize uint64 = 0

	// DefaultLogBps is the default log write rate in bytes per second.
	DefaultLogBps uint64 = 1 << 20

	// FakeCPULoadRPSMax is the request rate ceiling applied by the local
	// approximation path when no rps-max override is given. The real
	// calibration discovers the ceiling by running the workload; the
	// approximation has to assume one.
	FakeCPULoadRPSMax uint32 = 2000

	// DefaultPollInterval is how often the convergence wait loop samples
	// the agent's live state.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultRetentionDays is how long run-history records are kept.
	DefaultRetentionDays = 90

	// DefaultChunkPages is the default IO chunking unit in pages.
	DefaultChunkPages uint32 = 25

	// DefaultFileFrac is the default fraction of the footprint backed by
	// files rather than anonymous memory.
	DefaultFileFrac = 0.25

	// DefaultMemFrac is the default fraction of the footprint actively
	// exercised by the load generator.
	DefaultMemFrac = 1.0

	// DefaultHashSizeMean is the default mean per-request hashing
	// footprint in bytes.
	DefaultHashSizeMean uint64 = 1 << 20
)

// Profile is a static sizing profile for the load generator, derived from
// total host memory. It seeds the local approximation path and provides
// the fallbacks the delegated path does not need.
type Profile struct {
	// MemSize is the default memory footprint in bytes.
	MemSize uint64

	// HashSizeMean is the mean per-request hashing footprint in bytes.
	HashSizeMean uint64

	// ChunkPages is the IO chunking unit in pages.
	ChunkPages uint32

	// MemFrac is the fraction of MemSize actively exercised.
	MemFrac float64

	// FileFrac is the fraction of the footprint backed by files.
	FileFrac float64
}

// DefaultProfile returns the sizing profile for a host with the given
// total memory.
func DefaultProfile(totalMemory uint64) Profile {
	return Profile{
		MemSize:      totalMemory,
		HashSizeMean: DefaultHashSizeMean,
		ChunkPages:   DefaultChunkPages,
		MemFrac:      DefaultMemFrac,
		FileFrac:     DefaultFileFrac,
	}
}

// Defaults bundles the process-wide fallbacks threaded into both
// estimation paths. Passing it explicitly keeps the approximation path
// pure and testable.
type Defaults struct {
	// BalloonSize is the default memory balloon in bytes.
	BalloonSize uint64

	// LogBps is the default log write rate in bytes per second.
	LogBps uint64

	// Profile is the default sizing profile.
	Profile Profile
}

// DefaultsFor returns the process-wide defaults for a host with the given
// total memory.
func DefaultsFor(totalMemory uint64) Defaults {
	return Defaults{
		BalloonSize: DefaultBalloonSize,
		LogBps:      DefaultLogBps,
		Profile:     DefaultProfile(totalMemory),
	}
}
