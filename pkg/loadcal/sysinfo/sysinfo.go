// Package sysinfo probes host capacity used to seed the default sizing
// profile. Platform-specific probes live in build-tagged files; on
// unsupported platforms a conservative fallback is used.
package sysinfo

// FallbackTotalMemory is assumed when the platform probe is unavailable.
const FallbackTotalMemory uint64 = 8 << 30

// TotalMemory returns the total physical memory of the host in bytes.
// When the probe fails it falls back to FallbackTotalMemory rather than
// erroring; sizing defaults degrade gracefully.
func TotalMemory() uint64 {
	if total, err := probeTotalMemory(); err == nil && total > 0 {
		return total
	}
	return FallbackTotalMemory
}
