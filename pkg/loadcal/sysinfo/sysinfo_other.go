//go:build !linux && !darwin

package sysinfo

import "errors"

// probeTotalMemory is unavailable on this platform; callers fall back to
// FallbackTotalMemory.
func probeTotalMemory() (uint64, error) {
	return 0, errors.New("total memory probe not supported on this platform")
}
