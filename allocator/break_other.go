//go:build !linux && !darwin && !freebsd

package allocator

import (
	"fmt"
	"runtime"
	"unsafe"
)

// MmapBreak is only available on linux, darwin and freebsd.
type MmapBreak struct{}

var _ Break = &MmapBreak{}

// NewMmapBreak always fails on this platform.
func NewMmapBreak(limit int) (*MmapBreak, error) {
	checkMemLimit(limit)
	return nil, fmt.Errorf("%w: mmap on %s", ErrUnsupported, runtime.GOOS)
}

// Extend ...
func (m *MmapBreak) Extend(uint32) (uint32, error) {
	return 0, fmt.Errorf("%w: mmap on %s", ErrHeapExhausted, runtime.GOOS)
}

// Base ...
func (m *MmapBreak) Base() unsafe.Pointer {
	return nil
}

// Size ...
func (m *MmapBreak) Size() uint32 {
	return 0
}

// Reserved ...
func (m *MmapBreak) Reserved() uint32 {
	return 0
}

// Committed ...
func (m *MmapBreak) Committed() uint32 {
	return 0
}

// Close ...
func (m *MmapBreak) Close() error {
	return nil
}
