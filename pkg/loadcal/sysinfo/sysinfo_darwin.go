//go:build darwin

package sysinfo

import "golang.org/x/sys/unix"

// probeTotalMemory reads total physical memory via the hw.memsize sysctl.
func probeTotalMemory() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}
