// Package types provides core data types for the loadcal calibration
// harness. It includes the calibrated knob set produced by an estimation
// run, along with utility functions for parsing and formatting byte sizes
// and latency readings.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB uint64 = 1024
	MiB uint64 = 1024 * KiB
	GiB uint64 = 1024 * MiB
	TiB uint64 = 1024 * GiB
)

// Knobs is the calibrated parameter set for the load generator. It is the
// sole output of an estimation run; callers cannot tell from its shape
// whether it was produced by the local approximation or read back from the
// agent's persisted bench report.
type Knobs struct {
	// HashSize is the mean per-request hashing footprint in bytes.
	HashSize uint64 `json:"hash_size"`

	// RPSMax is the maximum request rate in requests per second.
	RPSMax uint32 `json:"max_request_rate"`

	// MemSize is the total memory footprint in bytes.
	MemSize uint64 `json:"memory_size"`

	// MemFrac is the fraction of MemSize actively exercised (0.0-1.0).
	MemFrac float64 `json:"memory_fraction"`

	// ChunkPages is the IO chunking unit in pages.
	ChunkPages uint32 `json:"chunk_size"`

	// FileFrac is the fraction of the footprint backed by files rather
	// than anonymous memory.
	FileFrac float64 `json:"file_fraction,omitempty"`
}

// sizePattern matches size strings like "100M", "2G", "512K", "1.5GiB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in
// bytes. It supports plain byte counts ("1048576"), single-letter suffixes
// ("2G", "512k") and full IEC suffixes ("1.5GiB"). Decimal values are
// truncated to the nearest byte.
//
// Returns ErrInvalidSize if the format is not recognized.
// Returns ErrNegativeSize if the value is negative.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier uint64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return uint64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// FormatSizeDashed formats a size for telemetry display. A zero reading
// means the value is not available and renders as a dash.
func FormatSizeDashed(bytes uint64) string {
	if bytes == 0 {
		return "-"
	}
	return FormatSize(bytes)
}

// FormatDuration formats a latency reading compactly, switching units so
// the value stays short enough for a single status line.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

// FormatDurationDashed formats a latency reading for telemetry display.
// A zero reading means the value is not available and renders as a dash.
func FormatDurationDashed(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return FormatDuration(d)
}
