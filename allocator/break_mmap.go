//go:build linux || darwin || freebsd

package allocator

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapBreak reserves address space outside the Go heap and commits pages
// as the break moves forward, the way sbrk grows a process data segment.
type MmapBreak struct {
	data      []byte
	pageSize  uint32
	committed uint32
	brk       uint32
}

var _ Break = &MmapBreak{}

func roundUpPage(n uint64, pageSize uint32) uint64 {
	mask := uint64(pageSize) - 1
	return (n + mask) &^ mask
}

// NewMmapBreak reserves limit bytes (rounded up to whole pages) without committing them.
func NewMmapBreak(limit int) (*MmapBreak, error) {
	checkMemLimit(limit)

	pageSize := uint32(unix.Getpagesize())
	size := roundUpPage(uint64(limit), pageSize)
	if size > maxMemLimit {
		size = maxMemLimit &^ (uint64(pageSize) - 1)
	}

	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("allocator: reserve %d bytes: %w", size, err)
	}

	return &MmapBreak{
		data:     data,
		pageSize: pageSize,
	}, nil
}

// Extend ...
func (m *MmapBreak) Extend(n uint32) (uint32, error) {
	newBrk := uint64(m.brk) + uint64(n)
	if newBrk > uint64(len(m.data)) {
		return 0, fmt.Errorf("%w: reserved %d, break %d, requested %d", ErrHeapExhausted, len(m.data), m.brk, n)
	}

	if newBrk > uint64(m.committed) {
		next := roundUpPage(newBrk, m.pageSize)
		err := unix.Mprotect(m.data[m.committed:next], unix.PROT_READ|unix.PROT_WRITE)
		if err != nil {
			return 0, fmt.Errorf("%w: commit pages [%d, %d): %v", ErrHeapExhausted, m.committed, next, err)
		}
		m.committed = uint32(next)
	}

	old := m.brk
	m.brk = uint32(newBrk)
	return old, nil
}

// Base ...
func (m *MmapBreak) Base() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(m.data))
}

// Size ...
func (m *MmapBreak) Size() uint32 {
	return m.brk
}

// Reserved returns the number of bytes of address space held by the break.
func (m *MmapBreak) Reserved() uint32 {
	return uint32(len(m.data))
}

// Committed returns the number of bytes currently readable and writable.
func (m *MmapBreak) Committed() uint32 {
	return m.committed
}

// Close unmaps the whole reservation.
func (m *MmapBreak) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	m.committed = 0
	m.brk = 0
	return err
}
